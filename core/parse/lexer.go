package parse

import (
	"bytes"
	"fmt"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInteger
	tokReal
	tokName
	tokString
	tokHexString
	tokKeyword
	tokDictOpen
	tokDictClose
	tokArrayOpen
	tokArrayClose
)

// token is one lexical unit. raw holds the source text for numbers and
// keywords; value holds the decoded bytes of names and strings.
type token struct {
	kind  tokenKind
	raw   []byte
	value []byte
	pos   int
}

func (t token) isKeyword(kw string) bool {
	return t.kind == tokKeyword && string(t.raw) == kw
}

// lexer tokenizes PDF syntax over an in-memory buffer.
type lexer struct {
	data []byte
	pos  int
}

func newLexer(data []byte, pos int) *lexer {
	return &lexer{data: data, pos: pos}
}

func isWhite(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool {
	return !isWhite(b) && !isDelim(b)
}

// skipSpace skips whitespace and comments.
func (l *lexer) skipSpace() {
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		if isWhite(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\r' && l.data[l.pos] != '\n' {
				l.pos++
			}
			continue
		}
		return
	}
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.data) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.data[l.pos]
	switch c {
	case '<':
		if l.peekAt(1) == '<' {
			l.pos += 2
			return token{kind: tokDictOpen, pos: start}, nil
		}
		return l.hexString()
	case '>':
		if l.peekAt(1) == '>' {
			l.pos += 2
			return token{kind: tokDictClose, pos: start}, nil
		}
		return token{}, fmt.Errorf("unexpected '>' at offset %d", start)
	case '[':
		l.pos++
		return token{kind: tokArrayOpen, pos: start}, nil
	case ']':
		l.pos++
		return token{kind: tokArrayClose, pos: start}, nil
	case '(':
		return l.literalString()
	case '/':
		return l.name()
	case '{', '}':
		l.pos++
		return token{kind: tokKeyword, raw: []byte{c}, pos: start}, nil
	case ')':
		return token{}, fmt.Errorf("unbalanced ')' at offset %d", start)
	}

	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		l.pos++
	}
	raw := l.data[start:l.pos]
	return token{kind: classifyRegular(raw), raw: raw, pos: start}, nil
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n < len(l.data) {
		return l.data[l.pos+n]
	}
	return 0
}

// classifyRegular distinguishes numbers from keywords.
func classifyRegular(raw []byte) tokenKind {
	i := 0
	if i < len(raw) && (raw[i] == '+' || raw[i] == '-') {
		i++
	}
	digits, dots := 0, 0
	for ; i < len(raw); i++ {
		switch {
		case raw[i] >= '0' && raw[i] <= '9':
			digits++
		case raw[i] == '.':
			dots++
		default:
			return tokKeyword
		}
	}
	switch {
	case digits == 0 || dots > 1:
		return tokKeyword
	case dots == 1:
		return tokReal
	}
	return tokInteger
}

func (l *lexer) name() (token, error) {
	start := l.pos
	l.pos++ // '/'
	var out []byte
	for l.pos < len(l.data) && isRegular(l.data[l.pos]) {
		c := l.data[l.pos]
		if c == '#' && l.pos+2 < len(l.data) {
			if v, ok := unhex2(l.data[l.pos+1], l.data[l.pos+2]); ok {
				out = append(out, v)
				l.pos += 3
				continue
			}
		}
		out = append(out, c)
		l.pos++
	}
	return token{kind: tokName, raw: l.data[start:l.pos], value: out, pos: start}, nil
}

func (l *lexer) hexString() (token, error) {
	start := l.pos
	l.pos++ // '<'
	end := bytes.IndexByte(l.data[l.pos:], '>')
	if end < 0 {
		return token{}, fmt.Errorf("unterminated hex string at offset %d", start)
	}
	body := l.data[l.pos : l.pos+end]
	l.pos += end + 1

	out := make([]byte, 0, len(body)/2+1)
	var hi byte
	half := false
	for _, c := range body {
		if isWhite(c) {
			continue
		}
		v, ok := unhex(c)
		if !ok {
			return token{}, fmt.Errorf("invalid hex digit %q at offset %d", c, start)
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return token{kind: tokHexString, value: out, pos: start}, nil
}

func (l *lexer) literalString() (token, error) {
	start := l.pos
	l.pos++ // '('
	var out []byte
	depth := 1
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		l.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return token{kind: tokString, value: out, pos: start}, nil
			}
			out = append(out, c)
		case '\r':
			// EOL in a literal string reads as a single newline.
			if l.pos < len(l.data) && l.data[l.pos] == '\n' {
				l.pos++
			}
			out = append(out, '\n')
		case '\\':
			if l.pos >= len(l.data) {
				break
			}
			e := l.data[l.pos]
			l.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && l.pos < len(l.data); k++ {
						d := l.data[l.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v*8 + int(d-'0')
						l.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return token{}, fmt.Errorf("unterminated string at offset %d", start)
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func unhex2(a, b byte) (byte, bool) {
	hi, ok1 := unhex(a)
	lo, ok2 := unhex(b)
	return hi<<4 | lo, ok1 && ok2
}
