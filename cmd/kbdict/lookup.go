package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/glyphkey/kbcompanion/internal/dictionary"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup FILE WORD...",
	Short: "Print the frequency of words in a compiled dictionary",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	trie, err := dictionary.Decode(data)
	if err != nil {
		return err
	}
	missing := 0
	for _, word := range args[1:] {
		freq, ok := trie.Lookup(word)
		if !ok {
			missing++
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tnot found\n", word)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", word, freq)
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d words not found", missing, len(args)-1)
	}
	return nil
}
