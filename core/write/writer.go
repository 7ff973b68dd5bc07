// Package write serializes a core/object document back to PDF bytes.
package write

import (
	"bytes"
	"fmt"
	"io"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

// Options selects the cross-reference layout.
type Options struct {
	// XRefStream writes a compressed cross-reference stream (PDF 1.5+)
	// instead of a classic xref table.
	XRefStream bool
	// ObjectStreams packs non-stream objects into /ObjStm streams.
	// Object streams require an xref stream, so this implies XRefStream.
	ObjectStreams bool
}

// trailer keys that describe the old file layout and are rewritten
var layoutKeys = []object.Name{"Size", "Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length"}

// location of an object inside an object stream
type packed struct {
	stream int
	index  int
}

// Bytes returns the serialized document.
func Bytes(doc *object.Document, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, doc, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes doc to out: header, objects in ascending number order,
// cross-reference section and trailer.
func Write(out io.Writer, doc *object.Document, opts Options) error {
	if doc == nil || doc.Trailer == nil {
		return types.NewPDFError(types.ErrCodeInvalidInput, "document has no trailer")
	}
	if opts.ObjectStreams {
		opts.XRefStream = true
	}

	nums := doc.ObjectNumbers()
	size := 1
	if len(nums) > 0 {
		size = nums[len(nums)-1] + 1
	}

	var buf bytes.Buffer
	version := doc.Version
	if version == "" {
		version = "1.7"
	}
	if opts.XRefStream && version < "1.5" {
		version = "1.5"
	}
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	buf.Write([]byte{'%', 0xE2, 0xE3, 0xCF, 0xD3, '\n'})

	var inStream map[int]packed
	var objStm *object.Stream
	objStmNum := 0
	if opts.ObjectStreams {
		var err error
		objStm, inStream, err = buildObjectStream(doc, nums, size)
		if err != nil {
			return err
		}
		if objStm != nil {
			objStmNum = size
			size++
		}
	}

	positions := make(map[int]int64, len(nums)+1)
	gens := make(map[int]int, len(nums))
	for _, num := range nums {
		if _, ok := inStream[num]; ok {
			continue
		}
		obj, ok := doc.Lookup(object.Ref{Num: num})
		if !ok {
			continue
		}
		gen := doc.Generation(num)
		gens[num] = gen
		positions[num] = int64(buf.Len())
		writeIndirect(&buf, num, gen, obj)
	}
	if objStm != nil {
		positions[objStmNum] = int64(buf.Len())
		writeIndirect(&buf, objStmNum, 0, objStm)
	}

	trailer := doc.Trailer.Clone()
	for _, k := range layoutKeys {
		trailer.Delete(k)
	}

	var xrefPos int64
	if opts.XRefStream {
		var err error
		xrefPos, err = writeXRefStream(&buf, trailer, positions, gens, inStream, size)
		if err != nil {
			return err
		}
	} else {
		xrefPos = int64(buf.Len())
		writeXRefTable(&buf, positions, gens, size)
		trailer.Set("Size", object.Integer(size))
		buf.WriteString("trailer\n")
		writeDict(&buf, trailer)
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefPos)

	if _, err := out.Write(buf.Bytes()); err != nil {
		return types.WrapError(types.ErrCodeIOError, "write failed", err)
	}
	return nil
}

func writeIndirect(buf *bytes.Buffer, num, gen int, obj object.Object) {
	fmt.Fprintf(buf, "%d %d obj\n", num, gen)
	if stm, ok := obj.(*object.Stream); ok {
		dict := stm.Dict.Clone()
		dict.Set("Length", object.Integer(len(stm.Data)))
		writeDict(buf, dict)
		buf.WriteString("\nstream\n")
		buf.Write(stm.Data)
		buf.WriteString("\nendstream")
	} else {
		writeValue(buf, obj)
	}
	buf.WriteString("\nendobj\n")
}

func writeXRefTable(buf *bytes.Buffer, positions map[int]int64, gens map[int]int, size int) {
	buf.WriteString("xref\n")
	fmt.Fprintf(buf, "0 %d\n", size)
	fmt.Fprintf(buf, "%010d %05d f \n", 0, 65535)
	for i := 1; i < size; i++ {
		if pos, ok := positions[i]; ok {
			fmt.Fprintf(buf, "%010d %05d n \n", pos, gens[i])
		} else {
			fmt.Fprintf(buf, "%010d %05d f \n", 0, 1)
		}
	}
}
