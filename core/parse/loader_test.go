package parse

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benedoc-inc/pdfcmp/core/filter"
	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/core/write"
	"github.com/benedoc-inc/pdfcmp/types"
)

// buildPDF lays out objects with a classic xref table and returns the file
// bytes. Object bodies are raw PDF syntax.
func buildPDF(objects map[int]string, trailer string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	return appendSection(buf.Bytes(), objects, trailer)
}

// appendSection appends objects plus an xref section and trailer, as an
// incremental update does.
func appendSection(base []byte, objects map[int]string, trailer string) []byte {
	buf := bytes.NewBuffer(append([]byte(nil), base...))
	var nums []int
	for n := range objects {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	offsets := make(map[int]int)
	for _, n := range nums {
		offsets[n] = buf.Len()
		fmt.Fprintf(buf, "%d 0 obj\n%s\nendobj\n", n, objects[n])
	}

	xref := buf.Len()
	buf.WriteString("xref\n")
	if len(base) <= len("%PDF-1.4\n") {
		fmt.Fprintf(buf, "0 %d\n", nums[len(nums)-1]+1)
		buf.WriteString("0000000000 65535 f \n")
		for i := 1; i <= nums[len(nums)-1]; i++ {
			if off, ok := offsets[i]; ok {
				fmt.Fprintf(buf, "%010d 00000 n \n", off)
			} else {
				buf.WriteString("0000000000 00001 f \n")
			}
		}
	} else {
		for _, n := range nums {
			fmt.Fprintf(buf, "%d 1\n%010d 00000 n \n", n, offsets[n])
		}
	}
	fmt.Fprintf(buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
	return buf.Bytes()
}

func minimalObjects() map[int]string {
	return map[int]string{
		1: "<< /Type /Catalog /Pages 2 0 R >>",
		2: "<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>",
		3: "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 5 0 R >>",
		4: "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>",
		5: "<< /Length 17 >>\nstream\n0 0 m 100 100 l S\nendstream",
		6: "<< /Title (Test) /Producer (pdfcmp) >>",
	}
}

func TestLoadClassicXRef(t *testing.T) {
	data := buildPDF(minimalObjects(), "<< /Size 7 /Root 1 0 R /Info 6 0 R >>")

	doc, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, "1.4", doc.Version)
	assert.Equal(t, 2, doc.PageCount())
	assert.Equal(t, 0, doc.Warnings().Count())

	page, _, ok := doc.Page(1)
	require.True(t, ok)
	content, ok := doc.Resolve(page.Get("Contents")).(*object.Stream)
	require.True(t, ok)
	assert.Equal(t, "0 0 m 100 100 l S", string(content.Data))

	info, _, ok := doc.Info()
	require.True(t, ok)
	assert.Equal(t, "Test", string(info.Get("Title").(object.String).Value))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, doc.ObjectNumbers())
}

func TestLoadJunkBeforeHeader(t *testing.T) {
	data := append([]byte("garbage\n"), buildPDF(minimalObjects(), "<< /Size 7 /Root 1 0 R >>")...)
	doc, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())
}

func TestLoadIncrementalUpdate(t *testing.T) {
	base := buildPDF(minimalObjects(), "<< /Size 7 /Root 1 0 R /Info 6 0 R >>")
	prev := bytes.LastIndex(base, []byte("\nxref\n")) + 1

	updated := appendSection(base,
		map[int]string{6: "<< /Title (Updated) >>"},
		fmt.Sprintf("<< /Size 7 /Root 1 0 R /Info 6 0 R /Prev %d >>", prev))

	doc, err := Load(updated)
	require.NoError(t, err)

	info, _, ok := doc.Info()
	require.True(t, ok)
	assert.Equal(t, "Updated", string(info.Get("Title").(object.String).Value))
	assert.False(t, info.Has("Producer"))
	assert.False(t, doc.Trailer.Has("Prev"))
	assert.Equal(t, 2, doc.PageCount(), "objects from the original revision stay reachable")
}

func TestLoadRecoversFromBrokenXRef(t *testing.T) {
	data := buildPDF(minimalObjects(), "<< /Size 7 /Root 1 0 R >>")
	idx := bytes.LastIndex(data, []byte("startxref\n"))
	broken := append(append([]byte(nil), data[:idx]...), []byte("startxref\n9\n%%EOF\n")...)

	doc, err := Load(broken)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())
	assert.Len(t, doc.Warnings().ByCode(types.WarnXRefRecovered), 1)

	_, err = Load(broken, WithRecovery(false))
	assert.ErrorIs(t, err, types.ErrXRefError)
}

func TestLoadRecoversWithoutTrailer(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.3\n")
	objs := minimalObjects()
	for _, n := range []int{1, 2, 3, 4, 5} {
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, objs[n])
	}

	doc, err := Load(buf.Bytes())
	require.NoError(t, err)
	_, ref, ok := doc.Catalog()
	require.True(t, ok)
	assert.Equal(t, object.Ref{Num: 1}, ref)
	assert.Equal(t, 2, doc.PageCount())
}

func TestLoadStaleOffsetUsesScan(t *testing.T) {
	data := buildPDF(minimalObjects(), "<< /Size 7 /Root 1 0 R /Info 6 0 R >>")
	// Shift every object by inserting a comment after the header; the xref
	// offsets now point a few bytes too early.
	shifted := append([]byte("%PDF-1.4\n%pad\n"), data[len("%PDF-1.4\n"):]...)
	xref := bytes.LastIndex(shifted, []byte("\nxref\n")) + 1
	idx := bytes.LastIndex(shifted, []byte("startxref\n"))
	shifted = append(shifted[:idx], []byte(fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xref))...)

	doc, err := Load(shifted)
	require.NoError(t, err)
	info, _, ok := doc.Info()
	require.True(t, ok)
	assert.Equal(t, "Test", string(info.Get("Title").(object.String).Value))
}

func TestLoadUnparsableObjectReadsAsNull(t *testing.T) {
	objs := minimalObjects()
	objs[6] = "<< /Title (broken"
	data := buildPDF(objs, "<< /Size 7 /Root 1 0 R /Info 6 0 R >>")

	doc, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, object.Null{}, doc.Resolve(object.Ref{Num: 6}))
	assert.Len(t, doc.Warnings().ByCode(types.WarnObjectUnparsable), 1)
}

func TestLoadIndirectLength(t *testing.T) {
	objs := minimalObjects()
	objs[5] = "<< /Length 7 0 R >>\nstream\nq Q\nendstream"
	objs[7] = "3"
	data := buildPDF(objs, "<< /Size 8 /Root 1 0 R >>")

	doc, err := Load(data)
	require.NoError(t, err)
	stm := doc.Resolve(object.Ref{Num: 5}).(*object.Stream)
	assert.Equal(t, "q Q", string(stm.Data))
}

func TestLoadRejects(t *testing.T) {
	_, err := Load([]byte("hello world, not a pdf"))
	assert.ErrorIs(t, err, types.ErrInvalidPDF)

	objs := minimalObjects()
	objs[7] = "<< /Filter /Standard /V 2 >>"
	data := buildPDF(objs, "<< /Size 8 /Root 1 0 R /Encrypt 7 0 R >>")
	_, err = Load(data)
	assert.ErrorIs(t, err, types.ErrEncrypted)
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, buildPDF(minimalObjects(), "<< /Size 7 /Root 1 0 R >>"), 0o644))

	doc, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())

	_, err = Open(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, types.ErrIOError)
}

func sampleDocument(t *testing.T) *object.Document {
	t.Helper()
	doc := object.NewDocument()
	doc.Version = "1.6"

	content, err := filter.EncodeFlate([]byte("BT /F1 12 Tf (Hi) Tj ET"))
	require.NoError(t, err)
	contentRef := doc.Add(object.NewStream(object.NewDict().Set("Filter", object.Name("FlateDecode")), content))
	font := doc.Add(object.NewDict().
		Set("Type", object.Name("Font")).
		Set("BaseFont", object.Name("ABCDEF+Helvetica Neue")))

	for i := 0; i < 2; i++ {
		doc.AddPage(object.NewDict().
			Set("MediaBox", object.NewArray(object.Integer(0), object.Integer(0), object.Real(612.5), object.Integer(792))).
			Set("Contents", contentRef).
			Set("Resources", object.NewDict().Set("Font", object.NewDict().Set("F1", font))))
	}

	info := doc.Add(object.NewDict().
		Set("Title", object.Str("Paren ( and \\ and \r")).
		Set("Keywords", object.HexStr([]byte{0x00, 0xFE, 0xFF})).
		Set("Trapped", object.Boolean(false)))
	doc.Trailer.Set("Info", info)
	return doc
}

func TestWriteLoadRoundTrip(t *testing.T) {
	layouts := map[string]write.Options{
		"xref table":     {},
		"xref stream":    {XRefStream: true},
		"object streams": {ObjectStreams: true},
	}

	for name, opts := range layouts {
		t.Run(name, func(t *testing.T) {
			src := sampleDocument(t)
			data, err := write.Bytes(src, opts)
			require.NoError(t, err)

			doc, err := Load(data)
			require.NoError(t, err)
			assert.Equal(t, 0, doc.Warnings().Count())
			require.Equal(t, 2, doc.PageCount())

			info, _, ok := doc.Info()
			require.True(t, ok)
			assert.Equal(t, "Paren ( and \\ and \r", string(info.Get("Title").(object.String).Value))
			assert.Equal(t, object.HexStr([]byte{0x00, 0xFE, 0xFF}), info.Get("Keywords"))
			assert.Equal(t, object.Boolean(false), info.Get("Trapped"))

			page, _, ok := doc.Page(2)
			require.True(t, ok)
			box := page.Get("MediaBox").(*object.Array)
			assert.Equal(t, object.Real(612.5), box.At(2))

			fonts := page.Get("Resources").(*object.Dict).Get("Font").(*object.Dict)
			font, ok := doc.ResolveDict(fonts.Get("F1"))
			require.True(t, ok)
			assert.Equal(t, object.Name("ABCDEF+Helvetica Neue"), font.Get("BaseFont"))

			stm := doc.Resolve(page.Get("Contents")).(*object.Stream)
			decoded, err := stm.Bytes(true)
			require.NoError(t, err)
			assert.Equal(t, "BT /F1 12 Tf (Hi) Tj ET", string(decoded))
		})
	}
}
