package dictionary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

const (
	// NodeSize is the encoded size of one trie node in bytes.
	NodeSize = 10
	// MaxOffset is the largest node offset a uint24 can address.
	MaxOffset = 0xFFFFFF

	rootChar = '^'
)

var (
	// ErrTooLarge is returned when a trie needs offsets beyond MaxOffset.
	ErrTooLarge = errors.New("dictionary: trie exceeds 16MB offset limit")
	// ErrNonBMP is returned for words with characters that need two UTF-16
	// code units.
	ErrNonBMP = errors.New("dictionary: character outside the basic multilingual plane")
	// ErrCorrupt is returned by Decode for malformed data.
	ErrCorrupt = errors.New("dictionary: corrupt trie")
)

// Node is one trie node with its layout already assigned.
type Node struct {
	Char        rune
	Freq        uint8
	Offset      int
	FirstChild  *Node
	NextSibling *Node

	children map[rune]*Node
}

// Build lays out a trie of words breadth-first. Siblings are ordered by code
// point so the same list always produces the same bytes.
func Build(words []Word) ([]*Node, error) {
	root := &Node{Char: rootChar, children: map[rune]*Node{}}
	for _, w := range words {
		node := root
		for _, c := range w.Text {
			if c > 0xFFFF {
				return nil, fmt.Errorf("%w: %q in %q", ErrNonBMP, c, w.Text)
			}
			child, ok := node.children[c]
			if !ok {
				child = &Node{Char: c, children: map[rune]*Node{}}
				node.children[c] = child
			}
			node = child
		}
		node.Freq = w.Freq
	}

	var nodes []*Node
	queue := []*Node{root}
	offset := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if offset > MaxOffset {
			return nil, ErrTooLarge
		}
		node.Offset = offset
		nodes = append(nodes, node)
		offset += NodeSize

		kids := make([]*Node, 0, len(node.children))
		for _, c := range node.children {
			kids = append(kids, c)
		}
		sort.Slice(kids, func(i, j int) bool { return kids[i].Char < kids[j].Char })
		if len(kids) > 0 {
			node.FirstChild = kids[0]
			for i := 0; i+1 < len(kids); i++ {
				kids[i].NextSibling = kids[i+1]
			}
			queue = append(queue, kids...)
		}
	}
	return nodes, nil
}

// Encode writes nodes in their layout order.
func Encode(w io.Writer, nodes []*Node) error {
	bw := bufio.NewWriter(w)
	var buf [NodeSize]byte
	for _, n := range nodes {
		if n.Char > 0xFFFF {
			return fmt.Errorf("%w: %q", ErrNonBMP, n.Char)
		}
		child, sibling := 0, 0
		if n.FirstChild != nil {
			child = n.FirstChild.Offset
		}
		if n.NextSibling != nil {
			sibling = n.NextSibling.Offset
		}
		if child > MaxOffset || sibling > MaxOffset {
			return ErrTooLarge
		}
		binary.BigEndian.PutUint16(buf[0:2], uint16(n.Char))
		buf[2] = n.Freq
		putUint24(buf[3:6], child)
		putUint24(buf[6:9], sibling)
		buf[9] = 0
		if _, err := bw.Write(buf[:]); err != nil {
			return fmt.Errorf("dictionary: write: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("dictionary: write: %w", err)
	}
	return nil
}

func putUint24(b []byte, v int) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func uint24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

// Trie is a decoded dictionary.
type Trie struct {
	data []byte
}

// Decode validates data as an encoded trie.
func Decode(data []byte) (*Trie, error) {
	if len(data) == 0 || len(data)%NodeSize != 0 {
		return nil, fmt.Errorf("%w: size %d is not a multiple of %d", ErrCorrupt, len(data), NodeSize)
	}
	for off := 0; off < len(data); off += NodeSize {
		child, sibling := uint24(data[off+3:off+6]), uint24(data[off+6:off+9])
		for _, o := range []int{child, sibling} {
			if o%NodeSize != 0 || o >= len(data) || (o != 0 && o <= off) {
				return nil, fmt.Errorf("%w: node at %d links to %d", ErrCorrupt, off, o)
			}
		}
	}
	return &Trie{data: data}, nil
}

// Len returns the number of nodes, root included.
func (t *Trie) Len() int { return len(t.data) / NodeSize }

// Lookup returns the frequency of word. ok is false when the word's path is
// missing or ends on a node that does not terminate a word (frequency 0).
func (t *Trie) Lookup(word string) (freq uint8, ok bool) {
	if word == "" {
		return 0, false
	}
	off := 0
	for _, c := range word {
		if c > 0xFFFF {
			return 0, false
		}
		next := uint24(t.data[off+3 : off+6])
		found := false
		for next != 0 {
			if rune(binary.BigEndian.Uint16(t.data[next:next+2])) == c {
				found = true
				break
			}
			next = uint24(t.data[next+6 : next+9])
		}
		if !found {
			return 0, false
		}
		off = next
	}
	freq = t.data[off+2]
	return freq, freq > 0
}
