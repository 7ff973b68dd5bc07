// Package filter implements the PDF stream filters needed to compare stream
// payloads and to read cross-reference and object streams.
// Supports: FlateDecode (with PNG and TIFF predictors), ASCIIHexDecode,
// ASCII85Decode, RunLengthDecode. Image codecs are passed through.
package filter

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"
	"strings"

	"github.com/benedoc-inc/pdfcmp/types"
)

// Params carries the DecodeParms entries the supported filters use.
// The zero value means "no predictor".
type Params struct {
	Predictor        int
	Colors           int
	BitsPerComponent int
	Columns          int
}

// Canonical filter names.
const (
	FlateDecode     = "FlateDecode"
	ASCIIHexDecode  = "ASCIIHexDecode"
	ASCII85Decode   = "ASCII85Decode"
	RunLengthDecode = "RunLengthDecode"
	DCTDecode       = "DCTDecode"
	JPXDecode       = "JPXDecode"
	JBIG2Decode     = "JBIG2Decode"
	CCITTFaxDecode  = "CCITTFaxDecode"
	LZWDecode       = "LZWDecode"
)

// abbreviations used in inline images and by some producers
var abbreviations = map[string]string{
	"Fl":  FlateDecode,
	"AHx": ASCIIHexDecode,
	"A85": ASCII85Decode,
	"RL":  RunLengthDecode,
	"DCT": DCTDecode,
	"CCF": CCITTFaxDecode,
	"LZW": LZWDecode,
}

// Canonical strips a leading slash and expands abbreviations.
func Canonical(name string) string {
	name = strings.TrimPrefix(name, "/")
	if full, ok := abbreviations[name]; ok {
		return full
	}
	return name
}

// IsImageCodec reports whether name is a filter whose output is image data
// that is compared in its encoded form.
func IsImageCodec(name string) bool {
	switch Canonical(name) {
	case DCTDecode, JPXDecode, JBIG2Decode, CCITTFaxDecode:
		return true
	}
	return false
}

// Decode applies a single filter to data.
func Decode(data []byte, name string, params Params) ([]byte, error) {
	switch Canonical(name) {
	case FlateDecode:
		out, err := DecodeFlate(data)
		if err != nil {
			return nil, err
		}
		return ApplyPredictor(out, params)
	case ASCIIHexDecode:
		return DecodeASCIIHex(data)
	case ASCII85Decode:
		return DecodeASCII85(data)
	case RunLengthDecode:
		return DecodeRunLength(data)
	case DCTDecode, JPXDecode, JBIG2Decode, CCITTFaxDecode:
		return data, nil
	default:
		return nil, types.NewPDFErrorf(types.ErrCodeStreamError, "unsupported filter: %s", name)
	}
}

// DecodeFlate decompresses zlib data, falling back to a raw deflate stream
// for producers that omit the zlib header. Output produced before a
// truncation error is kept.
func DecodeFlate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err == nil {
		out, readErr := io.ReadAll(zr)
		zr.Close()
		if readErr == nil || (len(out) > 0 && readErr == io.ErrUnexpectedEOF) {
			return out, nil
		}
	}

	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		if len(out) > 0 && err == io.ErrUnexpectedEOF {
			return out, nil
		}
		return nil, types.WrapError(types.ErrCodeStreamError, "flate decode failed", err)
	}
	return out, nil
}

// EncodeFlate compresses data with zlib at the default level.
func EncodeFlate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, types.WrapError(types.ErrCodeStreamError, "flate encode failed", err)
	}
	if err := zw.Close(); err != nil {
		return nil, types.WrapError(types.ErrCodeStreamError, "flate encode failed", err)
	}
	return buf.Bytes(), nil
}

// DecodeASCIIHex decodes ASCIIHexDecode data.
// Whitespace is ignored, '>' marks end of data and an odd final digit is
// padded with 0.
func DecodeASCIIHex(data []byte) ([]byte, error) {
	result := make([]byte, 0, len(data)/2)
	var hi byte
	var haveNibble bool

	for _, b := range data {
		if isSpace(b) {
			continue
		}
		if b == '>' {
			break
		}

		var nibble byte
		switch {
		case b >= '0' && b <= '9':
			nibble = b - '0'
		case b >= 'A' && b <= 'F':
			nibble = b - 'A' + 10
		case b >= 'a' && b <= 'f':
			nibble = b - 'a' + 10
		default:
			return nil, types.NewPDFErrorf(types.ErrCodeStreamError, "invalid hex character: %q", b)
		}

		if haveNibble {
			result = append(result, hi<<4|nibble)
			haveNibble = false
		} else {
			hi = nibble
			haveNibble = true
		}
	}
	if haveNibble {
		result = append(result, hi<<4)
	}
	return result, nil
}

// EncodeASCIIHex encodes data as uppercase hex terminated by '>'.
func EncodeASCIIHex(data []byte) []byte {
	const hexChars = "0123456789ABCDEF"
	out := make([]byte, len(data)*2+1)
	for i, b := range data {
		out[i*2] = hexChars[b>>4]
		out[i*2+1] = hexChars[b&0x0F]
	}
	out[len(data)*2] = '>'
	return out
}

// DecodeASCII85 decodes ASCII85Decode data. 'z' stands for four zero bytes
// and '~>' ends the data; a leading '<~' is tolerated.
func DecodeASCII85(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("<~"))
	var result bytes.Buffer
	var tuple [5]byte
	n := 0

	for i := 0; i < len(data); i++ {
		b := data[i]
		if isSpace(b) {
			continue
		}
		if b == '~' {
			break
		}
		if b == 'z' {
			if n != 0 {
				return nil, types.NewPDFError(types.ErrCodeStreamError, "ascii85: 'z' inside tuple")
			}
			result.Write([]byte{0, 0, 0, 0})
			continue
		}
		if b < '!' || b > 'u' {
			return nil, types.NewPDFErrorf(types.ErrCodeStreamError, "invalid ascii85 character: 0x%02x", b)
		}
		tuple[n] = b - '!'
		n++
		if n == 5 {
			result.Write(ascii85Tuple(tuple))
			n = 0
		}
	}

	if n == 1 {
		return nil, types.NewPDFError(types.ErrCodeStreamError, "ascii85: dangling single character")
	}
	if n > 0 {
		for i := n; i < 5; i++ {
			tuple[i] = 84
		}
		result.Write(ascii85Tuple(tuple)[:n-1])
	}
	return result.Bytes(), nil
}

func ascii85Tuple(t [5]byte) []byte {
	v := uint32(t[0])*85*85*85*85 +
		uint32(t[1])*85*85*85 +
		uint32(t[2])*85*85 +
		uint32(t[3])*85 +
		uint32(t[4])
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// DecodeRunLength decodes RunLengthDecode data.
//   - length 0-127: copy the next length+1 bytes
//   - length 129-255: repeat the next byte 257-length times
//   - length 128: end of data
func DecodeRunLength(data []byte) ([]byte, error) {
	var result bytes.Buffer
	i := 0
	for i < len(data) {
		length := int(data[i])
		i++
		switch {
		case length == 128:
			return result.Bytes(), nil
		case length < 128:
			count := length + 1
			if i+count > len(data) {
				return nil, types.NewPDFError(types.ErrCodeStreamError, "runlength: not enough data for literal run")
			}
			result.Write(data[i : i+count])
			i += count
		default:
			if i >= len(data) {
				return nil, types.NewPDFError(types.ErrCodeStreamError, "runlength: not enough data for repeat")
			}
			result.Write(bytes.Repeat(data[i:i+1], 257-length))
			i++
		}
	}
	return result.Bytes(), nil
}

// ApplyPredictor reverses a PNG (10-15) or TIFF (2) predictor. Predictor 1 or
// 0 returns data unchanged.
func ApplyPredictor(data []byte, p Params) ([]byte, error) {
	switch {
	case p.Predictor <= 1:
		return data, nil
	case p.Predictor == 2:
		return tiffPredictor(data, p), nil
	case p.Predictor >= 10 && p.Predictor <= 15:
		return pngPredictor(data, p)
	default:
		return nil, types.NewPDFErrorf(types.ErrCodeStreamError, "unsupported predictor: %d", p.Predictor)
	}
}

func (p Params) geometry() (bpp, rowLen int) {
	colors, bpc, columns := p.Colors, p.BitsPerComponent, p.Columns
	if colors < 1 {
		colors = 1
	}
	if bpc < 1 {
		bpc = 8
	}
	if columns < 1 {
		columns = 1
	}
	bpp = (colors*bpc + 7) / 8
	rowLen = (colors*bpc*columns + 7) / 8
	return bpp, rowLen
}

func pngPredictor(data []byte, p Params) ([]byte, error) {
	bpp, rowLen := p.geometry()
	stride := rowLen + 1
	rows := len(data) / stride
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)

	for r := 0; r < rows; r++ {
		line := data[r*stride : r*stride+stride]
		tag, raw := line[0], line[1:]
		for i := 0; i < rowLen; i++ {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch tag {
			case 0:
				cur[i] = raw[i]
			case 1:
				cur[i] = raw[i] + left
			case 2:
				cur[i] = raw[i] + up
			case 3:
				cur[i] = raw[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = raw[i] + paeth(left, up, upLeft)
			default:
				return nil, types.NewPDFErrorf(types.ErrCodeStreamError, "invalid png filter type %d in row %d", tag, r)
			}
		}
		out = append(out, cur...)
		prev, cur = cur, prev
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// tiffPredictor handles 8-bit components only, which is all producers emit
// for non-image streams.
func tiffPredictor(data []byte, p Params) []byte {
	bpp, rowLen := p.geometry()
	out := append([]byte(nil), data...)
	for start := 0; start+rowLen <= len(out); start += rowLen {
		for i := bpp; i < rowLen; i++ {
			out[start+i] += out[start+i-bpp]
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f' || b == 0
}
