package dictionary

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const wordsSuffix = "_words.txt"

// DiscoverLanguages returns the languages with a <lang>_words.txt list in dir,
// sorted.
func DiscoverLanguages(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+wordsSuffix))
	if err != nil {
		return nil, err
	}
	langs := make([]string, 0, len(matches))
	for _, m := range matches {
		langs = append(langs, strings.TrimSuffix(filepath.Base(m), wordsSuffix))
	}
	sort.Strings(langs)
	return langs, nil
}

// Result describes one compiled dictionary.
type Result struct {
	Language string
	Path     string
	Words    int
	Nodes    int
	Bytes    int
}

// CompileLanguage compiles assetsDir/<lang>_words.txt into outDir/<lang>.bin.
func CompileLanguage(lang, assetsDir, outDir string) (Result, error) {
	src := filepath.Join(assetsDir, lang+wordsSuffix)
	f, err := os.Open(src)
	if err != nil {
		return Result{}, fmt.Errorf("dictionary: missing word list: %w", err)
	}
	defer f.Close()

	words, err := ParseWords(f, DefaultMaxWords)
	if err != nil {
		return Result{}, err
	}
	nodes, err := Build(words)
	if err != nil {
		return Result{}, fmt.Errorf("dictionary: %s: %w", lang, err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, nodes); err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("dictionary: create output dir: %w", err)
	}
	out := filepath.Join(outDir, lang+".bin")
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return Result{}, fmt.Errorf("dictionary: write %s: %w", out, err)
	}
	return Result{Language: lang, Path: out, Words: len(words), Nodes: len(nodes), Bytes: buf.Len()}, nil
}
