package write

import (
	"bytes"

	"github.com/benedoc-inc/pdfcmp/core/filter"
	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

// writeXRefStream appends a cross-reference stream object that also carries
// the trailer entries, and returns its offset. The stream takes object
// number size, so the table covers size+1 entries.
func writeXRefStream(buf *bytes.Buffer, trailer *object.Dict, positions map[int]int64, gens map[int]int, inStream map[int]packed, size int) (int64, error) {
	xrefNum := size
	total := size + 1
	xrefPos := int64(buf.Len())

	maxField2 := xrefPos
	maxField3 := int64(0)
	for _, pos := range positions {
		if pos > maxField2 {
			maxField2 = pos
		}
	}
	for _, g := range gens {
		if int64(g) > maxField3 {
			maxField3 = int64(g)
		}
	}
	for _, p := range inStream {
		if int64(p.stream) > maxField2 {
			maxField2 = int64(p.stream)
		}
		if int64(p.index) > maxField3 {
			maxField3 = int64(p.index)
		}
	}

	w1, w2, w3 := 1, calculateBytesNeeded(maxField2), calculateBytesNeeded(maxField3)
	row := w1 + w2 + w3
	data := make([]byte, total*row)

	for num := 0; num < total; num++ {
		entry := data[num*row : (num+1)*row]
		switch {
		case num == xrefNum:
			entry[0] = 1
			writeBigEndian(entry[w1:w1+w2], xrefPos)
		default:
			if p, ok := inStream[num]; ok {
				entry[0] = 2
				writeBigEndian(entry[w1:w1+w2], int64(p.stream))
				writeBigEndian(entry[w1+w2:], int64(p.index))
			} else if pos, ok := positions[num]; ok {
				entry[0] = 1
				writeBigEndian(entry[w1:w1+w2], pos)
				writeBigEndian(entry[w1+w2:], int64(gens[num]))
			}
		}
	}

	compressed, err := filter.EncodeFlate(data)
	if err != nil {
		return 0, types.WrapError(types.ErrCodeWriteError, "cannot compress xref stream", err)
	}

	dict := trailer.Clone()
	dict.Set("Type", object.Name("XRef"))
	dict.Set("Size", object.Integer(total))
	dict.Set("W", object.NewArray(object.Integer(w1), object.Integer(w2), object.Integer(w3)))
	dict.Set("Filter", object.Name(filter.FlateDecode))

	writeIndirect(buf, xrefNum, 0, object.NewStream(dict, compressed))
	return xrefPos, nil
}

// calculateBytesNeeded returns the bytes needed to store value big-endian.
func calculateBytesNeeded(value int64) int {
	if value <= 0 {
		return 1
	}
	n := 0
	for value > 0 {
		n++
		value >>= 8
	}
	return n
}

// writeBigEndian fills dst with value, most significant byte first.
func writeBigEndian(dst []byte, value int64) {
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = byte(value)
		value >>= 8
	}
}
