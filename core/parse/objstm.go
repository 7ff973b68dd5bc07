package parse

import (
	"strconv"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

// objectStream is a decoded /Type /ObjStm with its header parsed.
type objectStream struct {
	data    []byte
	first   int
	nums    []int
	offsets []int
}

func newObjectStream(stm *object.Stream) (*objectStream, error) {
	if !stm.Dict.IsType("ObjStm") {
		return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "not an object stream")
	}
	n, ok := stm.Dict.Int("N")
	if !ok || n < 0 {
		return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "object stream without /N")
	}
	first, ok := stm.Dict.Int("First")
	if !ok || first < 0 {
		return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "object stream without /First")
	}
	data, err := stm.Bytes(true)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeStreamError, "cannot decode object stream", err)
	}
	if int(first) > len(data) {
		return nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "object stream /First %d beyond data", first)
	}

	ostm := &objectStream{data: data, first: int(first)}
	lex := newLexer(data[:first], 0)
	for i := int64(0); i < n; i++ {
		numTok, err1 := lex.next()
		offTok, err2 := lex.next()
		if err1 != nil || err2 != nil || numTok.kind != tokInteger || offTok.kind != tokInteger {
			return nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "bad object stream header at entry %d", i)
		}
		num, _ := strconv.Atoi(string(numTok.raw))
		off, _ := strconv.Atoi(string(offTok.raw))
		ostm.nums = append(ostm.nums, num)
		ostm.offsets = append(ostm.offsets, off)
	}
	return ostm, nil
}

// object returns object num, which the xref expects at position index.
func (ostm *objectStream) object(num, index int) (object.Object, error) {
	at := -1
	if index >= 0 && index < len(ostm.nums) && ostm.nums[index] == num {
		at = index
	} else {
		for i, n := range ostm.nums {
			if n == num {
				at = i
				break
			}
		}
	}
	if at < 0 {
		return nil, types.NewPDFErrorf(types.ErrCodeObjectNotFound, "object %d not in object stream", num)
	}
	pos := ostm.first + ostm.offsets[at]
	if pos >= len(ostm.data) {
		return nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "object %d offset beyond object stream", num)
	}
	return newParser(ostm.data, pos).object(0)
}
