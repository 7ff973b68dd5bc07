package parse

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

const maxNesting = 512

// parser builds objects from the token stream of a lexer.
type parser struct {
	lex *lexer
	// lengthOf resolves an indirect /Length; nil means indirect lengths are
	// unavailable and the stream end is found by searching for endstream.
	lengthOf func(object.Ref) (int, bool)
}

func newParser(data []byte, pos int) *parser {
	return &parser{lex: newLexer(data, pos)}
}

// ParseObject parses a single direct object from data. It is exported for
// tests and tooling that need to read snippets of PDF syntax.
func ParseObject(data []byte) (object.Object, error) {
	return newParser(data, 0).object(0)
}

func (p *parser) object(depth int) (object.Object, error) {
	tok, err := p.lex.next()
	if err != nil {
		return nil, err
	}
	return p.objectFrom(tok, depth)
}

func (p *parser) objectFrom(tok token, depth int) (object.Object, error) {
	if depth > maxNesting {
		return nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "nesting deeper than %d at offset %d", maxNesting, tok.pos)
	}
	switch tok.kind {
	case tokEOF:
		return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "unexpected end of data")
	case tokInteger:
		n, err := strconv.ParseInt(string(tok.raw), 10, 64)
		if err != nil {
			f, _ := strconv.ParseFloat(string(tok.raw), 64)
			return object.Real(f), nil
		}
		if ref, ok := p.tryRef(n); ok {
			return ref, nil
		}
		return object.Integer(n), nil
	case tokReal:
		f, err := strconv.ParseFloat(string(tok.raw), 64)
		if err != nil {
			return nil, types.WrapErrorf(types.ErrCodeMalformedPDF, err, "bad number at offset %d", tok.pos)
		}
		return object.Real(f), nil
	case tokName:
		return object.Name(tok.value), nil
	case tokString:
		return object.String{Value: tok.value}, nil
	case tokHexString:
		return object.String{Value: tok.value, Hex: true}, nil
	case tokArrayOpen:
		return p.array(depth)
	case tokDictOpen:
		return p.dict(depth)
	case tokKeyword:
		switch string(tok.raw) {
		case "true":
			return object.Boolean(true), nil
		case "false":
			return object.Boolean(false), nil
		case "null":
			return object.Null{}, nil
		}
	}
	return nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "unexpected token %q at offset %d", tok.raw, tok.pos)
}

// tryRef looks ahead for "gen R" after an integer and rewinds when the
// pattern does not match.
func (p *parser) tryRef(num int64) (object.Ref, bool) {
	save := p.lex.pos
	gen, err := p.lex.next()
	if err == nil && gen.kind == tokInteger {
		r, err := p.lex.next()
		if err == nil && r.isKeyword("R") {
			g, _ := strconv.Atoi(string(gen.raw))
			return object.Ref{Num: int(num), Gen: g}, true
		}
	}
	p.lex.pos = save
	return object.Ref{}, false
}

func (p *parser) array(depth int) (*object.Array, error) {
	arr := object.NewArray()
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == tokArrayClose {
			return arr, nil
		}
		if tok.kind == tokEOF {
			return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "unterminated array")
		}
		obj, err := p.objectFrom(tok, depth+1)
		if err != nil {
			return nil, err
		}
		arr.Append(obj)
	}
}

func (p *parser) dict(depth int) (*object.Dict, error) {
	d := object.NewDict()
	for {
		tok, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokDictClose:
			return d, nil
		case tokEOF:
			return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "unterminated dictionary")
		case tokName:
		default:
			return nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "dictionary key is not a name at offset %d", tok.pos)
		}
		key := object.Name(tok.value)

		vtok, err := p.lex.next()
		if err != nil {
			return nil, err
		}
		if vtok.kind == tokDictClose {
			// "/Key >>" with the value missing: treat as null and finish.
			return d, nil
		}
		val, err := p.objectFrom(vtok, depth+1)
		if err != nil {
			return nil, err
		}
		d.Set(key, val)
	}
}

// indirect parses "num gen obj ... endobj" at the lexer's position.
func (p *parser) indirect() (object.Ref, object.Object, error) {
	start := p.lex.pos
	numTok, err := p.lex.next()
	if err != nil {
		return object.Ref{}, nil, err
	}
	genTok, err := p.lex.next()
	if err != nil {
		return object.Ref{}, nil, err
	}
	objTok, err := p.lex.next()
	if err != nil {
		return object.Ref{}, nil, err
	}
	if numTok.kind != tokInteger || genTok.kind != tokInteger || !objTok.isKeyword("obj") {
		return object.Ref{}, nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "no object header at offset %d", start)
	}
	num, _ := strconv.Atoi(string(numTok.raw))
	gen, _ := strconv.Atoi(string(genTok.raw))
	ref := object.Ref{Num: num, Gen: gen}

	tok, err := p.lex.next()
	if err != nil {
		return ref, nil, err
	}
	if tok.isKeyword("endobj") {
		return ref, object.Null{}, nil
	}
	obj, err := p.objectFrom(tok, 0)
	if err != nil {
		return ref, nil, err
	}

	save := p.lex.pos
	next, err := p.lex.next()
	if err == nil && next.isKeyword("stream") {
		dict, ok := obj.(*object.Dict)
		if !ok {
			return ref, nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "stream without dictionary in object %d", num)
		}
		data, err := p.streamData(dict)
		if err != nil {
			return ref, nil, types.WrapErrorf(types.ErrCodeMalformedPDF, err, "object %d", num)
		}
		return ref, object.NewStream(dict, data), nil
	}
	p.lex.pos = save
	return ref, obj, nil
}

var endstream = []byte("endstream")

// streamData reads the payload after the "stream" keyword. /Length is
// trusted when it lands on endstream; otherwise the payload runs up to the
// next endstream keyword.
func (p *parser) streamData(dict *object.Dict) ([]byte, error) {
	data := p.lex.data
	pos := p.lex.pos
	if pos < len(data) && data[pos] == '\r' {
		pos++
	}
	if pos < len(data) && data[pos] == '\n' {
		pos++
	}

	length := -1
	switch v := dict.Get("Length").(type) {
	case object.Integer:
		length = int(v)
	case object.Ref:
		if p.lengthOf != nil {
			if n, ok := p.lengthOf(v); ok {
				length = n
			}
		}
	}

	if length >= 0 && pos+length <= len(data) {
		end := pos + length
		rest := end
		for rest < len(data) && isWhite(data[rest]) {
			rest++
		}
		if bytes.HasPrefix(data[rest:], endstream) {
			p.lex.pos = rest + len(endstream)
			return data[pos:end], nil
		}
	}

	idx := bytes.Index(data[pos:], endstream)
	if idx < 0 {
		return nil, fmt.Errorf("endstream not found")
	}
	end := pos + idx
	if end > pos && data[end-1] == '\n' {
		end--
	}
	if end > pos && data[end-1] == '\r' {
		end--
	}
	p.lex.pos = pos + idx + len(endstream)
	return data[pos:end], nil
}
