package write

import (
	"bytes"
	"fmt"

	"github.com/benedoc-inc/pdfcmp/core/filter"
	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

// buildObjectStream packs every eligible object into one /ObjStm stream
// numbered streamNum. Streams and objects with a non-zero generation stay
// outside.
func buildObjectStream(doc *object.Document, nums []int, streamNum int) (*object.Stream, map[int]packed, error) {
	var header, body bytes.Buffer
	members := make(map[int]packed)

	for _, num := range nums {
		obj, ok := doc.Lookup(object.Ref{Num: num})
		if !ok || doc.Generation(num) != 0 {
			continue
		}
		if _, isStream := obj.(*object.Stream); isStream {
			continue
		}
		if header.Len() > 0 {
			header.WriteByte(' ')
		}
		fmt.Fprintf(&header, "%d %d", num, body.Len())
		body.Write(Serialize(obj))
		body.WriteByte('\n')
		members[num] = packed{stream: streamNum, index: len(members)}
	}
	if len(members) == 0 {
		return nil, nil, nil
	}

	header.WriteByte('\n')
	first := header.Len()
	payload := append(header.Bytes(), body.Bytes()...)
	compressed, err := filter.EncodeFlate(payload)
	if err != nil {
		return nil, nil, types.WrapError(types.ErrCodeWriteError, "cannot compress object stream", err)
	}

	dict := object.NewDict().
		Set("Type", object.Name("ObjStm")).
		Set("N", object.Integer(len(members))).
		Set("First", object.Integer(first)).
		Set("Filter", object.Name(filter.FlateDecode))
	return object.NewStream(dict, compressed), members, nil
}
