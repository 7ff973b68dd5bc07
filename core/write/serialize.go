package write

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/benedoc-inc/pdfcmp/core/object"
)

// Serialize renders a direct object in PDF syntax. Streams are rendered as
// their dictionary only; payloads are written by the document writer.
func Serialize(o object.Object) []byte {
	var buf bytes.Buffer
	writeValue(&buf, o)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, o object.Object) {
	switch v := o.(type) {
	case nil, object.Null:
		buf.WriteString("null")
	case object.Boolean:
		buf.WriteString(strconv.FormatBool(bool(v)))
	case object.Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case object.Real:
		buf.WriteString(object.FormatReal(float64(v)))
	case object.Name:
		writeName(buf, v)
	case object.String:
		if v.Hex {
			fmt.Fprintf(buf, "<%X>", v.Value)
		} else {
			writeLiteral(buf, v.Value)
		}
	case object.Ref:
		fmt.Fprintf(buf, "%d %d R", v.Num, v.Gen)
	case *object.Array:
		buf.WriteByte('[')
		for i, it := range v.Items() {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeValue(buf, it)
		}
		buf.WriteByte(']')
	case *object.Dict:
		writeDict(buf, v)
	case *object.Stream:
		writeDict(buf, v.Dict)
	}
}

// writeDict writes keys in sorted order so output is deterministic.
func writeDict(buf *bytes.Buffer, d *object.Dict) {
	buf.WriteString("<<")
	for _, k := range d.Keys() {
		writeName(buf, k)
		buf.WriteByte(' ')
		writeValue(buf, d.Get(k))
		buf.WriteByte(' ')
	}
	buf.WriteString(">>")
}

func writeName(buf *bytes.Buffer, n object.Name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < 0x21 || c > 0x7E || c == '#' || isDelimiter(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func writeLiteral(buf *bytes.Buffer, s []byte) {
	buf.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}
