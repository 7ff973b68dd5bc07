package compare

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benedoc-inc/pdfcmp/core/filter"
	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

func dict(kv ...interface{}) *object.Dict {
	d := object.NewDict()
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(object.Name(kv[i].(string)), kv[i+1].(object.Object))
	}
	return d
}

func many() Options { return Options{Limit: 100} }

// compareDicts compares two dictionaries of throwaway documents.
func compareDicts(t *testing.T, l, r *object.Dict, opts Options) *Result {
	t.Helper()
	res, err := CompareDictionaries(object.NewDocument(), object.NewDocument(), l, r, "test", opts)
	require.NoError(t, err)
	return res
}

func messages(res *Result) []string {
	var out []string
	for _, d := range res.Differences() {
		out = append(out, d.Message)
	}
	return out
}

// cyclic builds A -Kid-> B -Back-> A, with pad unused objects first so
// object numbers differ between documents.
func cyclic(pad int, label string) (*object.Document, object.Ref) {
	doc := object.NewDocument()
	for i := 0; i < pad; i++ {
		doc.Add(object.NewDict())
	}
	a := doc.Add(object.NewDict())
	b := doc.Add(dict("Back", a, "Label", object.Str(label)))
	doc.Set(a, dict("Kid", b, "Type", object.Name("Node")))
	return doc, a
}

func TestReflexiveOnCycle(t *testing.T) {
	doc, root := cyclic(0, "x")
	res, err := CompareGraphs(doc, doc, root, root, many())
	require.NoError(t, err)
	assert.True(t, res.OK(), messages(res))
}

func TestCyclesAcrossDocuments(t *testing.T) {
	left, lroot := cyclic(0, "x")
	right, rroot := cyclic(3, "x")
	res, err := CompareGraphs(left, right, lroot, rroot, many())
	require.NoError(t, err)
	assert.True(t, res.OK(), messages(res))

	right, rroot = cyclic(3, "y")
	res, err = CompareGraphs(left, right, lroot, rroot, many())
	require.NoError(t, err)
	require.Len(t, res.Differences(), 1)
	d := res.Differences()[0]
	assert.Equal(t, "2 0 R -> 5 0 R/Label@0", d.Path.String(), "path re-anchors at the inner reference pair")
}

func TestKindMismatch(t *testing.T) {
	res := compareDicts(t, dict("X", dict("A", object.Integer(1))), dict("X", object.Integer(3)), many())
	require.Len(t, res.Differences(), 1)
	d := res.Differences()[0]
	assert.Equal(t, "type mismatch: expected Dictionary, found Number", d.Message)
	assert.Equal(t, "test/X", d.Path.String())
}

func TestIndirectVersusDirect(t *testing.T) {
	doc := object.NewDocument()
	ref := doc.Add(object.Integer(1))
	res, err := CompareDictionaries(doc, doc, dict("A", ref), dict("A", object.Integer(1)), "test", many())
	require.NoError(t, err)
	require.Len(t, res.Differences(), 1)
	assert.True(t, strings.HasPrefix(res.Differences()[0].Message, "expected indirect object 1 0 R"))

	res, err = CompareDictionaries(doc, doc, dict("A", object.Integer(1)), dict("A", ref), "test", many())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Differences()[0].Message, "expected direct object"))
}

func TestMissingValues(t *testing.T) {
	res := compareDicts(t, dict("A", object.Integer(1)), dict(), many())
	assert.Equal(t, []string{"missing object: expected 1, found none"}, messages(res))

	res = compareDicts(t, dict(), dict("A", object.Integer(1)), many())
	assert.Equal(t, []string{"unexpected object: expected none, found 1"}, messages(res))
}

func TestDanglingReferenceIsNull(t *testing.T) {
	left := object.NewDocument()
	right := object.NewDocument()
	res, err := CompareDictionaries(left, right, dict("A", object.Ref{Num: 9}), dict("A", object.Ref{Num: 3}), "test", many())
	require.NoError(t, err)
	assert.True(t, res.OK())
}

func TestArrayLengths(t *testing.T) {
	l := object.NewArray(object.Integer(1), object.Integer(2), object.Integer(3))
	r := object.NewArray(object.Integer(1), object.Integer(2))
	res := compareDicts(t, dict("K", l), dict("K", r), many())
	assert.Equal(t, []string{"array lengths are different: expected 3, found 2"}, messages(res))
	assert.Equal(t, "test/K", res.Differences()[0].Path.String())
}

func TestArrayElements(t *testing.T) {
	l := object.NewArray(object.Integer(1), object.Name("A"), object.Real(2.5))
	r := object.NewArray(object.Real(1), object.Name("B"), object.Real(2.5))
	res := compareDicts(t, dict("K", l), dict("K", r), many())
	require.Len(t, res.Differences(), 1, "integer 1 equals real 1.0")
	assert.Equal(t, "values are different: expected /A, found /B", res.Differences()[0].Message)
	assert.Equal(t, "test/K[1]", res.Differences()[0].Path.String())
}

func TestCapacityBound(t *testing.T) {
	l, r := object.NewDict(), object.NewDict()
	for i := 0; i < 50; i++ {
		key := object.Name(fmt.Sprintf("K%02d", i))
		l.Set(key, object.Integer(i))
		r.Set(key, object.Integer(i+1))
	}

	res := compareDicts(t, l, r, Options{Limit: 1})
	assert.Len(t, res.Differences(), 1)
	assert.True(t, res.LimitReached())
	assert.Equal(t, "test/K00", res.Differences()[0].Path.String())

	res = compareDicts(t, l, r, many())
	assert.Len(t, res.Differences(), 50)
	assert.False(t, res.LimitReached())
}

func TestNumberTreeFlattening(t *testing.T) {
	flat := object.NewArray(
		object.Integer(1), object.Name("A"),
		object.Integer(2), object.Name("B"),
		object.Integer(3), object.Name("C"))

	split := func(first, second *object.Array) (*object.Document, *object.Dict) {
		doc := object.NewDocument()
		k1 := doc.Add(dict("Nums", first))
		k2 := doc.Add(dict("Nums", second))
		return doc, dict("PageLabels", dict("Kids", object.NewArray(k1, k2)))
	}

	left := object.NewDocument()
	leftCat := dict("PageLabels", dict("Nums", flat))

	t.Run("split differently", func(t *testing.T) {
		right, rightCat := split(
			object.NewArray(object.Integer(1), object.Name("A")),
			object.NewArray(object.Integer(2), object.Name("B"), object.Integer(3), object.Name("C")))
		res, err := CompareDictionaries(left, right, leftCat, rightCat, "catalog", many())
		require.NoError(t, err)
		assert.True(t, res.OK(), messages(res))
	})

	t.Run("key carried to next sibling", func(t *testing.T) {
		right, rightCat := split(
			object.NewArray(object.Integer(1), object.Name("A"), object.Integer(2)),
			object.NewArray(object.Name("B"), object.Integer(3), object.Name("C")))
		res, err := CompareDictionaries(left, right, leftCat, rightCat, "catalog", many())
		require.NoError(t, err)
		assert.True(t, res.OK(), messages(res))
		assert.NotEmpty(t, res.Warnings.ByCode(types.WarnDanglingTreeKey))
	})

	t.Run("different content", func(t *testing.T) {
		right, rightCat := split(
			object.NewArray(object.Integer(1), object.Name("A")),
			object.NewArray(object.Integer(2), object.Name("X"), object.Integer(3), object.Name("C")))
		res, err := CompareDictionaries(left, right, leftCat, rightCat, "catalog", many())
		require.NoError(t, err)
		require.Len(t, res.Differences(), 1)
		assert.Equal(t, "catalog/PageLabels[3]", res.Differences()[0].Path.String())
	})

	t.Run("dangling key on one side", func(t *testing.T) {
		l := dict("PageLabels", dict("Nums", object.NewArray(object.Integer(1), object.Name("A"), object.Integer(2))))
		r := dict("PageLabels", dict("Nums", object.NewArray(object.Integer(1), object.Name("A"))))
		res := compareDicts(t, l, r, many())
		assert.Equal(t, []string{"number tree has a dangling key: expected 2, found none"}, messages(res))
	})

	t.Run("leaf kids are not followed", func(t *testing.T) {
		right := object.NewDocument()
		extra := right.Add(dict("Nums", object.NewArray(object.Integer(4), object.Name("D"))))
		rightCat := dict("PageLabels", dict("Nums", flat, "Kids", object.NewArray(extra)))
		res, err := CompareDictionaries(left, right, leftCat, rightCat, "catalog", many())
		require.NoError(t, err)
		assert.True(t, res.OK(), messages(res))
	})

	t.Run("matching dangling keys", func(t *testing.T) {
		l := dict("PageLabels", dict("Nums", object.NewArray(object.Integer(1), object.Name("A"), object.Integer(2))))
		res := compareDicts(t, l, l, many())
		assert.True(t, res.OK())
	})
}

func TestFontSubsetNames(t *testing.T) {
	font := func(name string) *object.Dict {
		return dict("Type", object.Name("Font"), "BaseFont", object.Name(name))
	}
	tests := []struct {
		left, right string
		equal       bool
	}{
		{"ABCDEF+Helvetica", "ZZZZZZ+Helvetica", true},
		{"ABCDEF+Helvetica", "ABCDEF+Times", false},
		{"ABCDEF+Helvetica", "Helvetica", false},
		{"Helvetica", "Helvetica", true},
		{"Helvetica", "ZZZZZZ+Helvetica", false},
	}
	for _, tt := range tests {
		t.Run(tt.left+" vs "+tt.right, func(t *testing.T) {
			res := compareDicts(t, font(tt.left), font(tt.right), many())
			assert.Equal(t, tt.equal, res.OK(), messages(res))
		})
	}
}

func TestStreamByteDiff(t *testing.T) {
	left := bytes.Repeat([]byte("a"), 100)
	right := append([]byte(nil), left...)
	right[42] = 'b'

	res := compareDicts(t,
		dict("Contents", object.NewStream(nil, left)),
		dict("Contents", object.NewStream(nil, right)), many())
	require.Len(t, res.Differences(), 1)
	d := res.Differences()[0]

	last, ok := d.Path.Last()
	require.True(t, ok)
	assert.Equal(t, Offset(42), last)
	assert.Equal(t, "test/Contents@42", d.Path.String())
	assert.Contains(t, d.Message, "total number of different bytes: 1")
	assert.Contains(t, d.Message, `found "aaaaaaaaaabaaaaaaaaaa"`)
}

func TestStreamLengthDiff(t *testing.T) {
	res := compareDicts(t,
		dict("S", object.NewStream(nil, []byte("hello world"))),
		dict("S", object.NewStream(nil, []byte("hello"))), many())
	require.Len(t, res.Differences(), 1)
	assert.Contains(t, res.Differences()[0].Message, "stream lengths are different: expected 11 bytes, found 5 bytes")
	assert.Equal(t, "test/S@5", res.Differences()[0].Path.String())
}

func TestStreamEncodingIgnored(t *testing.T) {
	payload := []byte("BT /F1 12 Tf (Hello) Tj ET")
	compressed, err := filter.EncodeFlate(payload)
	require.NoError(t, err)

	l := object.NewStream(dict("Filter", object.Name("FlateDecode"), "Length", object.Integer(len(compressed))), compressed)
	r := object.NewStream(dict("Length", object.Integer(len(payload))), payload)
	res := compareDicts(t, dict("S", l), dict("S", r), many())
	assert.True(t, res.OK(), messages(res))

	// Other dictionary entries still count once the payloads match.
	r.Dict.Set("Subtype", object.Name("Form"))
	res = compareDicts(t, dict("S", l), dict("S", r), many())
	assert.Equal(t, []string{"unexpected object: expected none, found /Form"}, messages(res))
	assert.Equal(t, "test/S/Subtype", res.Differences()[0].Path.String())
}

func TestUndecodableStreamComparedRaw(t *testing.T) {
	bad := object.NewStream(dict("Filter", object.Name("FlateDecode")), []byte{0x07, 0x00, 0x01})
	res := compareDicts(t, dict("S", bad), dict("S", bad), many())
	assert.True(t, res.OK())
	assert.Len(t, res.Warnings.ByCode(types.WarnStreamUndecodable), 2)
}

func TestStringCharDiff(t *testing.T) {
	res := compareDicts(t, dict("T", object.Str("Hello World")), dict("T", object.Str("Hello Wurld")), many())
	require.Len(t, res.Differences(), 1)
	d := res.Differences()[0]
	assert.Equal(t, "test/T@7", d.Path.String())
	assert.Contains(t, d.Message, "total number of different characters: 1")

	res = compareDicts(t, dict("T", object.Str("Title")), dict("T", object.Str("Titles")), many())
	require.Len(t, res.Differences(), 1)
	assert.Contains(t, res.Differences()[0].Message, "expected 5 characters, found 6 characters")
	assert.Contains(t, res.Differences()[0].Message, "edit distance 1")
}

func TestStringEncodingResolved(t *testing.T) {
	res := compareDicts(t, dict("T", object.Str("AB")), dict("T", object.HexStr([]byte("AB"))), many())
	assert.True(t, res.OK(), "hex and literal forms of the same bytes")

	utf16 := object.HexStr([]byte{0xFE, 0xFF, 0x00, 'A', 0x00, 'B'})
	res = compareDicts(t, dict("T", object.Str("AB")), dict("T", utf16), many())
	assert.True(t, res.OK(), "UTF-16 and single byte text with the same characters")
}

func TestStringOddLengthUTF16(t *testing.T) {
	even := object.HexStr([]byte{0xFE, 0xFF, 0x00, 'A'})
	odd := object.HexStr([]byte{0xFE, 0xFF, 0x00, 'A', 'B'})

	res := compareDicts(t, dict("T", even), dict("T", odd), many())
	require.Len(t, res.Differences(), 1)
	assert.Contains(t, res.Differences()[0].Message, "expected 1 characters, found 2 characters")

	res = compareDicts(t, dict("T", odd), dict("T", object.HexStr([]byte{0xFE, 0xFF, 0x00, 'A', 'C'})), many())
	require.Len(t, res.Differences(), 1)
	assert.Equal(t, "test/T@1", res.Differences()[0].Path.String())

	res = compareDicts(t, dict("T", odd), dict("T", odd), many())
	assert.True(t, res.OK())
}

func TestExcludedKeys(t *testing.T) {
	base := func() *object.Dict { return dict("Type", object.Name("Annot"), "Rect", object.NewArray()) }

	tests := []struct {
		name  string
		key   string
		opts  Options
		equal bool
	}{
		{"ModDate", "ModDate", many(), true},
		{"Parent", "Parent", many(), true},
		{"P", "P", many(), true},
		{"unlisted key", "Foo", many(), false},
		{"caller excluded", "Foo", Options{ExcludedKeys: []object.Name{"Foo"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := base().Set(object.Name(tt.key), object.Str("one"))
			r := base().Set(object.Name(tt.key), object.Str("two"))
			res := compareDicts(t, l, r, tt.opts)
			assert.Equal(t, tt.equal, res.OK(), messages(res))
		})
	}
}

func TestExcludedKeysAreNotInherited(t *testing.T) {
	l := dict("Sub", dict("Foo", object.Integer(1)))
	r := dict("Sub", dict("Foo", object.Integer(2)))
	res := compareDicts(t, l, r, Options{ExcludedKeys: []object.Name{"Foo"}})
	assert.False(t, res.OK())
}

func TestSaltIgnoredOnlyWhenBothPresent(t *testing.T) {
	res := compareDicts(t, dict("Salt", object.Str("a")), dict("Salt", object.Str("b")), many())
	assert.True(t, res.OK())

	res = compareDicts(t, dict("Salt", object.Str("a")), dict(), many())
	assert.False(t, res.OK())
}

// paged builds a three page document with pad unused objects first and an
// /OpenAction pointing at page target.
func paged(pad, target int, rotate map[int]int) *object.Document {
	doc := object.NewDocument()
	for i := 0; i < pad; i++ {
		doc.Add(object.NewDict())
	}
	for n := 1; n <= 3; n++ {
		page := dict("MediaBox", object.NewArray(object.Integer(0), object.Integer(0), object.Integer(612), object.Integer(792)))
		if r, ok := rotate[n]; ok {
			page.Set("Rotate", object.Integer(r))
		}
		doc.AddPage(page)
	}
	cat, _, _ := doc.Catalog()
	cat.Set("OpenAction", object.NewArray(doc.Pages()[target-1], object.Name("Fit")))
	return doc
}

func TestPageReferencesCompareByPosition(t *testing.T) {
	left := paged(0, 3, nil)
	right := paged(4, 3, map[int]int{3: 90})
	lcat, _, _ := left.Catalog()
	rcat, _, _ := right.Catalog()
	opts := Options{Limit: 10, ExcludedKeys: []object.Name{"Pages"}}

	res, err := CompareDictionaries(left, right, lcat, rcat, "catalog", opts)
	require.NoError(t, err)
	assert.True(t, res.OK(), messages(res))

	res, err = CompareGraphs(left, right, left.Pages()[2], right.Pages()[2], opts)
	require.NoError(t, err)
	assert.True(t, res.OK(), "a page reached by reference is matched by position")

	// Compared directly, the page dictionaries differ.
	lp, _, _ := left.Page(3)
	rp, _, _ := right.Page(3)
	res, err = CompareDictionaries(left, right, lp, rp, "page 3", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"unexpected object: expected none, found 90"}, messages(res))

	other := paged(0, 2, nil)
	ocat, _, _ := other.Catalog()
	res, err = CompareDictionaries(left, other, lcat, ocat, "catalog", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"page references are different: expected page 3, found page 2"}, messages(res))
}

func TestPageReferenceToNonPage(t *testing.T) {
	left := paged(0, 1, nil)
	right := object.NewDocument()
	notPage := right.Add(dict("Type", object.Name("Annot")))
	res, err := CompareGraphs(left, right, left.Pages()[0], notPage, many())
	require.NoError(t, err)
	require.Len(t, res.Differences(), 1)
	assert.True(t, strings.HasPrefix(res.Differences()[0].Message, "type mismatch: expected page"))
}

func TestNoRootIdentity(t *testing.T) {
	doc := object.NewDocument()
	_, err := CompareGraphs(doc, doc, dict(), dict(), many())
	assert.ErrorIs(t, err, types.ErrNoRootIdentity)

	_, err = CompareDictionaries(doc, doc, dict(), dict(), "", many())
	assert.ErrorIs(t, err, types.ErrNoRootIdentity)
}
