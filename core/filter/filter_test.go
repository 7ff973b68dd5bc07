package filter

import (
	"bytes"
	"compress/flate"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benedoc-inc/pdfcmp/types"
)

func TestDecodeASCIIHex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []byte
		wantErr  bool
	}{
		{name: "simple hex", input: "48656C6C6F>", expected: []byte("Hello")},
		{name: "lowercase hex", input: "48656c6c6f>", expected: []byte("Hello")},
		{name: "with whitespace", input: "48 65 6C\n6C 6F>", expected: []byte("Hello")},
		{name: "odd number of digits", input: "123>", expected: []byte{0x12, 0x30}},
		{name: "empty with terminator", input: ">", expected: []byte{}},
		{name: "invalid character", input: "GG>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeASCIIHex([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrStreamError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(tt.expected), string(got))
		})
	}
}

func TestDecodeASCII85(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []byte
		wantErr  bool
	}{
		{name: "hello world", input: "<~87cURD]j7BEbo80~>", expected: []byte("Hello world!")},
		{name: "z compression", input: "<~z~>", expected: []byte{0, 0, 0, 0}},
		{name: "partial tuple", input: "<~9jqo~>", expected: []byte("Man")},
		{name: "empty", input: "<~~>", expected: []byte{}},
		{name: "without opening delimiter", input: "9jqo~>", expected: []byte("Man")},
		{name: "z inside tuple", input: "9jz~>", wantErr: true},
		{name: "out of range", input: "9j{o~>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeASCII85([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(tt.expected), string(got))
		})
	}
}

func TestDecodeRunLength(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
		wantErr  bool
	}{
		{name: "literal run", input: []byte{4, 'H', 'e', 'l', 'l', 'o', 128}, expected: "Hello"},
		{name: "repeated bytes", input: []byte{252, 'A', 128}, expected: "AAAAA"},
		{name: "mixed", input: []byte{2, 'H', 'i', '!', 253, ' ', 128}, expected: "Hi!    "},
		{name: "empty", input: []byte{128}, expected: ""},
		{name: "truncated literal", input: []byte{4, 'H'}, wantErr: true},
		{name: "truncated repeat", input: []byte{252}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeRunLength(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestFlateRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("BT /F1 12 Tf (Hello) Tj ET\n"), 20)

	encoded, err := EncodeFlate(payload)
	require.NoError(t, err)
	assert.Less(t, len(encoded), len(payload))

	decoded, err := Decode(encoded, "/FlateDecode", Params{})
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestDecodeFlateRawDeflate(t *testing.T) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = fw.Write([]byte("no zlib header here"))
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	got, err := DecodeFlate(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "no zlib header here", string(got))
}

func TestDecodeFlateGarbage(t *testing.T) {
	// BTYPE 3 is reserved in deflate and the zlib header check fails too.
	_, err := DecodeFlate([]byte{0x07, 0x00, 0x01})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStreamError)
}

func TestApplyPredictor(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		input    []byte
		expected []byte
	}{
		{
			name:     "no predictor",
			params:   Params{Predictor: 1},
			input:    []byte{1, 2, 3},
			expected: []byte{1, 2, 3},
		},
		{
			name:     "png up",
			params:   Params{Predictor: 12, Columns: 3},
			input:    []byte{2, 1, 2, 3, 2, 1, 1, 1},
			expected: []byte{1, 2, 3, 2, 3, 4},
		},
		{
			name:     "png sub",
			params:   Params{Predictor: 11, Columns: 3},
			input:    []byte{1, 1, 1, 1},
			expected: []byte{1, 2, 3},
		},
		{
			name:     "png paeth on first row behaves like sub",
			params:   Params{Predictor: 15, Columns: 3},
			input:    []byte{4, 1, 1, 1},
			expected: []byte{1, 2, 3},
		},
		{
			name:     "png none",
			params:   Params{Predictor: 10, Columns: 2},
			input:    []byte{0, 9, 8},
			expected: []byte{9, 8},
		},
		{
			name:     "tiff",
			params:   Params{Predictor: 2, Columns: 3},
			input:    []byte{1, 1, 1, 5, 0, 0},
			expected: []byte{1, 2, 3, 5, 5, 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyPredictor(tt.input, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestApplyPredictorRejectsBadRowTag(t *testing.T) {
	_, err := ApplyPredictor([]byte{7, 1, 2}, Params{Predictor: 12, Columns: 2})
	assert.Error(t, err)
}

func TestDecodeUnsupportedFilter(t *testing.T) {
	_, err := Decode([]byte("x"), "LZWDecode", Params{})
	assert.ErrorIs(t, err, types.ErrStreamError)
}

func TestCanonicalAndImageCodec(t *testing.T) {
	assert.Equal(t, FlateDecode, Canonical("/Fl"))
	assert.Equal(t, ASCII85Decode, Canonical("A85"))
	assert.Equal(t, "Custom", Canonical("/Custom"))

	assert.True(t, IsImageCodec("/DCTDecode"))
	assert.True(t, IsImageCodec("JPXDecode"))
	assert.False(t, IsImageCodec("FlateDecode"))

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	got, err := Decode(jpeg, "DCT", Params{})
	require.NoError(t, err)
	assert.Equal(t, jpeg, got)
}

func TestEncodeASCIIHex(t *testing.T) {
	assert.Equal(t, "48656C6C6F>", string(EncodeASCIIHex([]byte("Hello"))))
	assert.Equal(t, ">", string(EncodeASCIIHex(nil)))

	decoded, err := DecodeASCIIHex(EncodeASCIIHex([]byte{0x00, 0xFF, 0x7F}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0xFF, 0x7F}, decoded)
}
