package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// folded is a lowercased copy of a text that remembers, for every byte of the
// copy, where the corresponding rune starts in the original text. Lowercasing
// can change the UTF-8 width of a rune, so offsets found in the copy have to
// be mapped back before they are used to slice the original.
type folded struct {
	lower   string
	offsets []int // nil when lower shares the byte layout of the original
}

func fold(text string) folded {
	if isASCII(text) {
		return folded{lower: strings.ToLower(text)}
	}

	buf := make([]byte, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		n := len(buf)
		if r == utf8.RuneError && size == 1 {
			buf = append(buf, text[i])
		} else {
			buf = utf8.AppendRune(buf, unicode.ToLower(r))
		}
		for j := n; j < len(buf); j++ {
			offsets = append(offsets, i)
		}
		i += size
	}
	offsets = append(offsets, len(text))

	return folded{lower: string(buf), offsets: offsets}
}

// original maps a byte offset in the folded copy to the original text.
func (f folded) original(i int) int {
	if f.offsets == nil {
		return i
	}
	return f.offsets[i]
}

// foldString lowercases s with the same rules used for texts.
func foldString(s string) string {
	return fold(s).lower
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
