package parse

import (
	"bytes"
	"regexp"
	"strconv"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

var objHeaderPattern = regexp.MustCompile(`(?:^|[\r\n\s])(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// scanObjects locates every "N G obj" header. Later definitions win, as
// they would in an incremental update.
func scanObjects(data []byte) xrefTable {
	table := make(xrefTable)
	for _, m := range objHeaderPattern.FindAllSubmatchIndex(data, -1) {
		num, err := strconv.Atoi(string(data[m[2]:m[3]]))
		if err != nil || num <= 0 {
			continue
		}
		gen, _ := strconv.Atoi(string(data[m[4]:m[5]]))
		table[num] = xrefEntry{kind: entryOffset, offset: int64(m[2]), gen: gen}
	}
	return table
}

// recoverTrailer rebuilds a trailer when the xref chain is unusable: the last
// "trailer" dictionary carrying /Root, else the newest xref stream
// dictionary, else a synthetic trailer pointing at a /Type /Catalog object.
func recoverTrailer(data []byte, table xrefTable, load func(int) object.Object) (*object.Dict, error) {
	for idx := len(data); ; {
		idx = bytes.LastIndex(data[:idx], []byte("trailer"))
		if idx < 0 {
			break
		}
		p := newParser(data, idx+len("trailer"))
		if obj, err := p.object(0); err == nil {
			if d, ok := obj.(*object.Dict); ok && d.Has("Root") {
				return d, nil
			}
		}
	}

	var catalog object.Ref
	var xrefDict *object.Dict
	var xrefAt int64 = -1
	for num, e := range table {
		if e.kind != entryOffset {
			continue
		}
		switch v := load(num).(type) {
		case *object.Stream:
			if v.Dict.IsType("XRef") && v.Dict.Has("Root") && e.offset > xrefAt {
				xrefDict, xrefAt = v.Dict, e.offset
			}
		case *object.Dict:
			if v.IsType("Catalog") && (catalog.Num == 0 || num > catalog.Num) {
				catalog = object.Ref{Num: num, Gen: e.gen}
			}
		}
	}
	if xrefDict != nil {
		return xrefDict.Clone(), nil
	}
	if catalog.Num == 0 {
		return nil, types.NewPDFError(types.ErrCodeXRefError, "no trailer and no catalog found")
	}
	return object.NewDict().Set("Root", catalog), nil
}
