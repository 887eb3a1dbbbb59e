// Package dictionary compiles word lists into the compact binary trie the
// keyboard's suggestion engine loads, and reads those tries back.
//
// A compiled dictionary is a flat array of 10-byte nodes in breadth-first
// order. Node 0 is the root. Each node holds a UTF-16 code unit, a frequency
// and the byte offsets of its first child and next sibling; an offset of 0
// means none.
package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxWords caps how many words are read from one list.
	DefaultMaxWords = 50000

	maxLineSize = 16 << 20
)

// Word is one dictionary word and its frequency in [0, 255].
type Word struct {
	Text string
	Freq uint8
}

// ParseWords reads a word list: one word per line, optionally followed by a
// frequency separated by spaces, tabs or commas. Blank lines and lines
// starting with '#' are skipped. A word without a frequency gets 1000 plus
// its index, which clamps to 255. At most max words are read; max <= 0 means
// DefaultMaxWords. A repeated word keeps its first position and its last
// frequency. Frequencies may be written in any Unicode decimal digits. A line
// that is not valid UTF-8 fails the whole list.
func ParseWords(r io.Reader, max int) ([]Word, error) {
	if max <= 0 {
		max = DefaultMaxWords
	}
	var (
		words  []Word
		index  = make(map[string]int)
		count  int
		lineNo int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() && count < max {
		lineNo++
		raw := sc.Text()
		if !utf8.ValidString(raw) {
			return nil, fmt.Errorf("dictionary: line %d: invalid UTF-8", lineNo)
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(strings.NewReplacer("\t", " ", ",", " ").Replace(line))
		freq := 1000 + count
		if len(fields) > 1 {
			if n, ok := parseDecimal(fields[1]); ok {
				freq = n
			}
		}
		w := Word{Text: fields[0], Freq: clampFreq(freq)}
		if i, ok := index[w.Text]; ok {
			words[i].Freq = w.Freq
		} else {
			index[w.Text] = len(words)
			words = append(words, w)
		}
		count++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dictionary: read words: %w", err)
	}
	return words, nil
}

// parseDecimal parses s as a non-negative integer written in Unicode
// decimal digits (category Nd). Values past 255 saturate since they clamp
// anyway.
func parseDecimal(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		d, ok := digitValue(c)
		if !ok {
			return 0, false
		}
		if n <= 255 {
			n = n*10 + d
		}
	}
	return n, true
}

// digitValue returns the value of a decimal digit. Nd digits come in
// contiguous runs of ten starting at zero, and every range in unicode.Nd
// starts on a zero.
func digitValue(c rune) (int, bool) {
	if c >= '0' && c <= '9' {
		return int(c - '0'), true
	}
	if !unicode.IsDigit(c) {
		return 0, false
	}
	for _, r := range unicode.Nd.R16 {
		if c >= rune(r.Lo) && c <= rune(r.Hi) {
			return int(c-rune(r.Lo)) % 10, true
		}
	}
	for _, r := range unicode.Nd.R32 {
		if c >= rune(r.Lo) && c <= rune(r.Hi) {
			return int(c-rune(r.Lo)) % 10, true
		}
	}
	return 0, false
}

func clampFreq(n int) uint8 {
	switch {
	case n < 0:
		return 0
	case n > 255:
		return 255
	}
	return uint8(n)
}
