package compare

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/benedoc-inc/pdfcmp/core/object"
)

// firstDifference returns the first differing position and the number of
// differing positions over the common prefix. When the common prefix is
// identical first is the shorter length.
func firstDifference[T comparable](a, b []T) (first, count int) {
	n := min(len(a), len(b))
	first = -1
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if first < 0 {
		first = n
	}
	return first, count
}

// byteWindow renders data[at-width : at+width] for a message. Line breaks
// collapse to spaces and other control bytes render as '.'.
func byteWindow(data []byte, at, width int) string {
	lo, hi := max(0, at-width), min(len(data), at+width+1)
	if lo >= hi {
		return `""`
	}
	var b strings.Builder
	for _, c := range data[lo:hi] {
		switch {
		case c == '\n' || c == '\r':
			b.WriteByte(' ')
		case c < 0x20 || c >= 0x7F:
			b.WriteByte('.')
		default:
			b.WriteByte(c)
		}
	}
	return fmt.Sprintf("%q", b.String())
}

func runeWindow(text []rune, at, width int) string {
	lo, hi := max(0, at-width), min(len(text), at+width+1)
	if lo >= hi {
		return `""`
	}
	return fmt.Sprintf("%q", strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(string(text[lo:hi])))
}

// byteDiff describes how two unequal payloads differ and returns the offset
// the message is anchored at.
func byteDiff(left, right []byte, width int) (int, string) {
	first, count := firstDifference(left, right)
	context := fmt.Sprintf("expected %s, found %s", byteWindow(left, first, width), byteWindow(right, first, width))
	if len(left) != len(right) {
		return first, fmt.Sprintf("stream lengths are different: expected %d bytes, found %d bytes; first difference at offset %d, total number of different bytes in common prefix: %d; %s",
			len(left), len(right), first, count, context)
	}
	return first, fmt.Sprintf("stream contents are different at offset %d, total number of different bytes: %d; %s", first, count, context)
}

// text decodes a string for character comparison: UTF-16BE when it carries
// a byte order mark, one rune per byte otherwise. A truncated final code
// unit is kept as a rune of its own.
func text(s object.String) []rune {
	v := s.Value
	if len(v) >= 2 && v[0] == 0xFE && v[1] == 0xFF {
		units := make([]uint16, 0, (len(v)-1)/2)
		i := 2
		for ; i+1 < len(v); i += 2 {
			units = append(units, uint16(v[i])<<8|uint16(v[i+1]))
		}
		out := utf16.Decode(units)
		if i < len(v) {
			out = append(out, rune(v[i]))
		}
		return out
	}
	out := make([]rune, len(v))
	for i, c := range v {
		out[i] = rune(c)
	}
	return out
}

// charDiff is byteDiff for strings. For unequal lengths the edit distance is
// included.
func charDiff(left, right []rune, width int) (int, string) {
	first, count := firstDifference(left, right)
	context := fmt.Sprintf("expected %s, found %s", runeWindow(left, first, width), runeWindow(right, first, width))
	if len(left) != len(right) {
		return first, fmt.Sprintf("string lengths are different: expected %d characters, found %d characters; first difference at character %d, edit distance %d; %s",
			len(left), len(right), first, editDistance(string(left), string(right)), context)
	}
	return first, fmt.Sprintf("strings are different at character %d, total number of different characters: %d; %s", first, count, context)
}

func editDistance(a, b string) int {
	dmp := diffmatchpatch.New()
	return dmp.DiffLevenshtein(dmp.DiffMain(a, b, false))
}
