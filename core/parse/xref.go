package parse

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

type entryKind int

const (
	entryFree entryKind = iota
	entryOffset
	entryCompressed
)

// xrefEntry locates one object: at a byte offset (type 1) or inside an
// object stream (type 2).
type xrefEntry struct {
	kind   entryKind
	offset int64
	gen    int
	stream int
	index  int
}

// xrefTable maps object numbers to their newest location.
type xrefTable map[int]xrefEntry

// merge adds entries of an older section without overriding newer ones.
func (t xrefTable) merge(older xrefTable) {
	for num, e := range older {
		if _, ok := t[num]; !ok {
			t[num] = e
		}
	}
}

// findStartXRef returns the offset recorded after the last startxref keyword.
func findStartXRef(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, types.NewPDFError(types.ErrCodeXRefError, "startxref not found")
	}
	lex := newLexer(data, idx+len("startxref"))
	tok, err := lex.next()
	if err != nil || tok.kind != tokInteger {
		return 0, types.NewPDFError(types.ErrCodeXRefError, "startxref has no offset")
	}
	off, err := strconv.ParseInt(string(tok.raw), 10, 64)
	if err != nil || off < 0 || off >= int64(len(data)) {
		return 0, types.NewPDFErrorf(types.ErrCodeXRefError, "invalid startxref: %s", tok.raw)
	}
	return off, nil
}

// readXRefChain reads the section at start and every older section reached
// through /Prev. The returned trailer is the newest one, with keys missing
// there filled in from older trailers.
func readXRefChain(data []byte, start int64) (xrefTable, *object.Dict, error) {
	table := make(xrefTable)
	var trailer *object.Dict
	visited := make(map[int64]bool)

	for off := start; ; {
		if visited[off] {
			break
		}
		visited[off] = true

		section, sectionTrailer, err := readXRefSection(data, off)
		if err != nil {
			if trailer == nil {
				return nil, nil, err
			}
			// A broken /Prev link keeps what the newer sections provided.
			break
		}

		// Hybrid files: the table section points at an xref stream holding
		// the compressed entries.
		if stm, ok := sectionTrailer.Int("XRefStm"); ok && !visited[stm] {
			visited[stm] = true
			if extra, _, err := readXRefSection(data, stm); err == nil {
				section.merge(extra)
			}
		}

		table.merge(section)
		if trailer == nil {
			trailer = sectionTrailer.Clone()
		} else {
			for _, k := range sectionTrailer.Keys() {
				if !trailer.Has(k) {
					trailer.Set(k, sectionTrailer.Get(k))
				}
			}
		}

		prev, ok := sectionTrailer.Int("Prev")
		if !ok || prev < 0 || prev >= int64(len(data)) {
			break
		}
		off = prev
	}

	for _, k := range []object.Name{"Prev", "XRefStm", "Type", "W", "Index", "Filter", "DecodeParms", "Length"} {
		trailer.Delete(k)
	}
	return table, trailer, nil
}

func readXRefSection(data []byte, off int64) (xrefTable, *object.Dict, error) {
	lex := newLexer(data, int(off))
	lex.skipSpace()
	if bytes.HasPrefix(data[lex.pos:], []byte("xref")) {
		lex.pos += len("xref")
		return readXRefTable(lex)
	}
	return readXRefStream(data, lex.pos)
}

func readXRefTable(lex *lexer) (xrefTable, *object.Dict, error) {
	table := make(xrefTable)
	for {
		tok, err := lex.next()
		if err != nil {
			return nil, nil, types.WrapError(types.ErrCodeXRefError, "bad xref table", err)
		}
		if tok.isKeyword("trailer") {
			break
		}
		if tok.kind != tokInteger {
			return nil, nil, types.NewPDFErrorf(types.ErrCodeXRefError, "unexpected %q in xref table at offset %d", tok.raw, tok.pos)
		}
		countTok, err := lex.next()
		if err != nil || countTok.kind != tokInteger {
			return nil, nil, types.NewPDFErrorf(types.ErrCodeXRefError, "bad xref subsection header at offset %d", tok.pos)
		}
		first, _ := strconv.Atoi(string(tok.raw))
		count, _ := strconv.Atoi(string(countTok.raw))

		for i := 0; i < count; i++ {
			offTok, err1 := lex.next()
			genTok, err2 := lex.next()
			flagTok, err3 := lex.next()
			if err1 != nil || err2 != nil || err3 != nil || offTok.kind != tokInteger || genTok.kind != tokInteger {
				return nil, nil, types.NewPDFErrorf(types.ErrCodeXRefError, "bad xref entry for object %d", first+i)
			}
			num := first + i
			offset, _ := strconv.ParseInt(string(offTok.raw), 10, 64)
			gen, _ := strconv.Atoi(string(genTok.raw))
			if _, seen := table[num]; seen {
				continue
			}
			switch {
			case flagTok.isKeyword("n") && offset > 0:
				table[num] = xrefEntry{kind: entryOffset, offset: offset, gen: gen}
			case flagTok.isKeyword("n"), flagTok.isKeyword("f"):
				table[num] = xrefEntry{kind: entryFree, gen: gen}
			default:
				return nil, nil, types.NewPDFErrorf(types.ErrCodeXRefError, "bad xref flag %q for object %d", flagTok.raw, num)
			}
		}
	}

	p := &parser{lex: lex}
	obj, err := p.object(0)
	if err != nil {
		return nil, nil, types.WrapError(types.ErrCodeXRefError, "bad trailer", err)
	}
	trailer, ok := obj.(*object.Dict)
	if !ok {
		return nil, nil, types.NewPDFError(types.ErrCodeXRefError, "trailer is not a dictionary")
	}
	return table, trailer, nil
}

func readXRefStream(data []byte, pos int) (xrefTable, *object.Dict, error) {
	p := newParser(data, pos)
	_, obj, err := p.indirect()
	if err != nil {
		return nil, nil, types.WrapError(types.ErrCodeXRefError, "no xref section at startxref", err)
	}
	stm, ok := obj.(*object.Stream)
	if !ok || !stm.Dict.IsType("XRef") {
		return nil, nil, types.NewPDFErrorf(types.ErrCodeXRefError, "object at offset %d is not an xref stream", pos)
	}
	table, err := decodeXRefStream(stm)
	if err != nil {
		return nil, nil, err
	}
	return table, stm.Dict, nil
}

func decodeXRefStream(stm *object.Stream) (xrefTable, error) {
	wArr, ok := stm.Dict.Get("W").(*object.Array)
	if !ok || wArr.Len() != 3 {
		return nil, types.NewPDFError(types.ErrCodeXRefError, "xref stream /W must have three entries")
	}
	var w [3]int
	for i := range w {
		n, ok := object.Number(wArr.At(i))
		if !ok || n < 0 || n > 8 {
			return nil, types.NewPDFErrorf(types.ErrCodeXRefError, "bad /W entry %v", wArr.At(i))
		}
		w[i] = int(n)
	}
	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return nil, types.NewPDFError(types.ErrCodeXRefError, "xref stream entry size is zero")
	}

	size, _ := stm.Dict.Int("Size")
	var index []int
	if idx, ok := stm.Dict.Get("Index").(*object.Array); ok {
		for _, it := range idx.Items() {
			n, _ := object.Number(it)
			index = append(index, int(n))
		}
	} else {
		index = []int{0, int(size)}
	}
	if len(index)%2 != 0 {
		return nil, types.NewPDFError(types.ErrCodeXRefError, "xref stream /Index has odd length")
	}

	raw, err := stm.Bytes(true)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeXRefError, "cannot decode xref stream", err)
	}

	table := make(xrefTable)
	pos := 0
	for s := 0; s < len(index); s += 2 {
		first, count := index[s], index[s+1]
		for i := 0; i < count; i++ {
			if pos+entrySize > len(raw) {
				return table, nil
			}
			row := raw[pos : pos+entrySize]
			pos += entrySize

			typ := int64(1)
			if w[0] > 0 {
				typ = readBigEndian(row[:w[0]])
			}
			f2 := readBigEndian(row[w[0] : w[0]+w[1]])
			f3 := readBigEndian(row[w[0]+w[1]:])
			num := first + i
			if _, seen := table[num]; seen {
				continue
			}
			switch typ {
			case 0:
				table[num] = xrefEntry{kind: entryFree, gen: int(f3)}
			case 1:
				table[num] = xrefEntry{kind: entryOffset, offset: f2, gen: int(f3)}
			case 2:
				table[num] = xrefEntry{kind: entryCompressed, stream: int(f2), index: int(f3)}
			}
		}
	}
	return table, nil
}

func readBigEndian(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// parseHeader returns the version from "%PDF-x.y" and the offset of the
// header, which some producers precede with junk.
func parseHeader(data []byte) (string, int, error) {
	limit := len(data)
	if limit > 1024 {
		limit = 1024
	}
	idx := bytes.Index(data[:limit], []byte("%PDF-"))
	if idx < 0 {
		return "", 0, types.NewPDFError(types.ErrCodeInvalidPDF, "not a PDF: missing %PDF- header")
	}
	end := idx + 5
	for end < len(data) && end < idx+16 && (data[end] == '.' || (data[end] >= '0' && data[end] <= '9')) {
		end++
	}
	version := string(data[idx+5 : end])
	if version == "" {
		return "", 0, types.NewPDFError(types.ErrCodeInvalidPDF, fmt.Sprintf("bad header version at offset %d", idx))
	}
	return version, idx, nil
}
