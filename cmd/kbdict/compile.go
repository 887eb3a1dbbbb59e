package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/glyphkey/kbcompanion/internal/dictionary"
)

var (
	compileAssets    string
	compileOut       string
	compileLanguages []string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile <lang>_words.txt lists into <lang>.bin tries",
	Long: `Reads every <lang>_words.txt in the assets directory (or only the
languages given) and writes <lang>.bin next to them or into --out.

Example:
  kbdict compile --assets assets/dictionaries --languages en,de`,
	Args: cobra.NoArgs,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileAssets, "assets", "assets/dictionaries", "directory holding the word lists")
	compileCmd.Flags().StringVar(&compileOut, "out", "", "output directory (default: the assets directory)")
	compileCmd.Flags().StringSliceVar(&compileLanguages, "languages", nil, "languages to compile (default: all)")
}

func runCompile(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(compileAssets); err != nil {
		return fmt.Errorf("assets directory not found: %s", compileAssets)
	}
	out := compileOut
	if out == "" {
		out = compileAssets
	}

	langs := compileLanguages
	if len(langs) == 0 {
		found, err := dictionary.DiscoverLanguages(compileAssets)
		if err != nil {
			return err
		}
		langs = found
	}
	if len(langs) == 0 {
		return fmt.Errorf("no *_words.txt files found in %s", compileAssets)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Compiling languages: %s\n", strings.Join(langs, ", "))
	for _, lang := range langs {
		res, err := dictionary.CompileLanguage(lang, compileAssets, out)
		if err != nil {
			return err
		}
		slog.Debug("kbdict: compiled", "lang", lang, "words", res.Words, "nodes", res.Nodes)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s.bin -> %s (%.1f KB)\n", lang, res.Path, float64(res.Bytes)/1024)
	}
	return nil
}
