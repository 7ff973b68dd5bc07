// Package compare walks two PDF object graphs in lock-step and reports where
// they differ.
//
// A run owns a Tracker, which records the path to the node pair under
// comparison, and a Collector, which keeps a bounded list of differences.
// Indirect references re-anchor the path at the reference pair, so a
// difference reads "12 0 R -> 14 0 R/Resources/Font" rather than a path from
// the document root. A reference pair already being expanded higher up the
// stack compares equal; this is what terminates the walk on cyclic graphs.
package compare

import (
	"bytes"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

// keys never compared: parent back-pointers and the modification date
var alwaysIgnored = map[object.Name]bool{
	"Parent":  true,
	"P":       true,
	"ModDate": true,
}

// keys holding subset font names (ABCDEF+Name)
var fontNameKeys = map[object.Name]bool{
	"BaseFont": true,
	"FontName": true,
}

// stream dictionary keys that only describe the encoding
var encodingKeys = map[object.Name]bool{
	"Filter":      true,
	"Length":      true,
	"DecodeParms": true,
}

type comparator struct {
	left, right object.Resolver
	path        *Tracker
	out         *Collector
	opts        Options
	log         *slog.Logger
	warnings    *types.WarningCollector
}

func newComparator(left, right object.Resolver, anchor string, opts Options) *comparator {
	return &comparator{
		left:     left,
		right:    right,
		path:     NewTracker(anchor),
		out:      NewCollector(opts.Limit),
		opts:     opts,
		log:      opts.Logger,
		warnings: types.NewWarningCollector(),
	}
}

func (c *comparator) fail(format string, args ...interface{}) bool {
	c.out.AddError(c.path.Snapshot(), fmt.Sprintf(format, args...))
	return false
}

func (c *comparator) failAt(offset int, message string) bool {
	c.path.PushOffset(offset)
	c.out.AddError(c.path.Snapshot(), message)
	c.path.Pop()
	return false
}

// compare reports whether l and r are equivalent. Absent values are nil.
// excluded applies to the keys of l and r only, never to nested
// dictionaries.
func (c *comparator) compare(l, r object.Object, excluded map[object.Name]bool) bool {
	switch {
	case l == nil && r == nil:
		return true
	case r == nil:
		return c.fail("missing object: expected %s, found none", object.Short(l))
	case l == nil:
		return c.fail("unexpected object: expected none, found %s", object.Short(r))
	}

	lref, lIsRef := l.(object.Ref)
	rref, rIsRef := r.(object.Ref)
	switch {
	case lIsRef && !rIsRef:
		return c.fail("expected indirect object %s, found direct object %s", lref, object.Short(r))
	case !lIsRef && rIsRef:
		return c.fail("expected direct object %s, found indirect object %s", object.Short(l), rref)
	case lIsRef && rIsRef:
		if c.path.IsComparing(lref, rref) {
			return true
		}
		restore := c.path.Enter(lref, rref)
		defer restore()
		l, r = c.left.Resolve(lref), c.right.Resolve(rref)
		if ld, ok := l.(*object.Dict); ok && ld.IsType("Page") {
			return c.comparePageRef(lref, rref, r)
		}
	}

	if lk, rk := object.KindOf(l), object.KindOf(r); lk != rk {
		return c.fail("type mismatch: expected %s, found %s", lk, rk)
	}

	switch lv := l.(type) {
	case object.Null:
		return true
	case object.Boolean:
		if lv != r.(object.Boolean) {
			return c.fail("values are different: expected %s, found %s", lv, r)
		}
		return true
	case object.Integer, object.Real:
		a, _ := object.Number(l)
		b, _ := object.Number(r)
		if a != b {
			return c.fail("values are different: expected %s, found %s", object.Short(l), object.Short(r))
		}
		return true
	case object.Name:
		if lv != r.(object.Name) {
			return c.fail("values are different: expected %s, found %s", lv, r)
		}
		return true
	case object.String:
		return c.compareString(lv, r.(object.String))
	case *object.Array:
		return c.compareArray(lv, r.(*object.Array))
	case *object.Dict:
		return c.compareDict(lv, r.(*object.Dict), excluded, false)
	case *object.Stream:
		return c.compareStream(lv, r.(*object.Stream))
	default:
		return c.fail("unsupported object %T", l)
	}
}

// comparePageRef checks that both references point at the page with the
// same position in their own documents. The page dictionaries themselves are
// not walked.
func (c *comparator) comparePageRef(lref, rref object.Ref, r object.Object) bool {
	if rd, ok := r.(*object.Dict); !ok || !rd.IsType("Page") {
		return c.fail("type mismatch: expected page, found %s", object.Short(r))
	}
	lp, rp := c.left.PageNumber(lref), c.right.PageNumber(rref)
	if lp == 0 || rp == 0 || lp != rp {
		return c.fail("page references are different: expected page %d, found page %d", lp, rp)
	}
	return true
}

func unionKeys(l, r *object.Dict) []object.Name {
	seen := make(map[object.Name]bool, l.Len()+r.Len())
	var keys []object.Name
	for _, d := range []*object.Dict{l, r} {
		for _, k := range d.Keys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	slices.Sort(keys)
	return keys
}

func (c *comparator) compareDict(l, r *object.Dict, excluded map[object.Name]bool, streams bool) bool {
	equal := true
	for _, key := range unionKeys(l, r) {
		if c.out.LimitReached() {
			return false
		}
		if excluded[key] || alwaysIgnored[key] {
			continue
		}
		if key == "Salt" && l.Has(key) && r.Has(key) {
			continue
		}
		if streams && encodingKeys[key] {
			continue
		}

		lv, rv := l.Get(key), r.Get(key)
		c.path.PushKey(key)
		var ok bool
		switch {
		case fontNameKeys[key] && isName(lv) && isName(rv):
			ok = c.compareFontName(lv.(object.Name), rv.(object.Name))
		case numberTreeKeys[key] && isNumberTree(c.left, lv) && isNumberTree(c.right, rv):
			ok = c.compareNumberTrees(lv, rv)
		default:
			ok = c.compare(lv, rv, nil)
		}
		c.path.Pop()
		equal = equal && ok
	}
	return equal
}

func isName(o object.Object) bool {
	_, ok := o.(object.Name)
	return ok
}

// compareFontName ignores the six letter subset tag when the expected name
// has one.
func (c *comparator) compareFontName(l, r object.Name) bool {
	li := strings.IndexByte(string(l), '+')
	if li < 0 {
		if l != r {
			return c.fail("values are different: expected %s, found %s", l, r)
		}
		return true
	}
	ri := strings.IndexByte(string(r), '+')
	if ri < 0 {
		return c.fail("font subset mismatch: expected subset font %s, found %s", l, r)
	}
	if l[li:] != r[ri:] {
		return c.fail("font names are different: expected %s, found %s", l, r)
	}
	return true
}

func (c *comparator) compareNumberTrees(l, r object.Object) bool {
	dangling := func(side string) func(object.Object) {
		return func(key object.Object) {
			c.log.Debug("number tree key without value", "side", side, "key", object.Short(key), "path", c.path.String())
			c.warnings.Addf(types.WarningLevelInfo, types.WarnDanglingTreeKey,
				"number tree at %s has key %s without a value", c.path, object.Short(key))
		}
	}
	lt := flattenNumberTree(c.left, l, dangling("expected"))
	rt := flattenNumberTree(c.right, r, dangling("found"))

	equal := c.compareArray(object.NewArray(lt.entries...), object.NewArray(rt.entries...))
	if c.out.LimitReached() {
		return false
	}
	switch {
	case lt.leftover != nil && rt.leftover != nil:
		equal = c.compare(lt.leftover, rt.leftover, nil) && equal
	case lt.leftover != nil:
		equal = c.fail("number tree has a dangling key: expected %s, found none", object.Short(lt.leftover))
	case rt.leftover != nil:
		equal = c.fail("number tree has a dangling key: expected none, found %s", object.Short(rt.leftover))
	}
	return equal
}

func (c *comparator) compareArray(l, r *object.Array) bool {
	if l.Len() != r.Len() {
		return c.fail("array lengths are different: expected %d, found %d", l.Len(), r.Len())
	}
	equal := true
	for i := 0; i < l.Len(); i++ {
		if c.out.LimitReached() {
			return false
		}
		c.path.PushIndex(i)
		ok := c.compare(l.At(i), r.At(i), nil)
		c.path.Pop()
		equal = equal && ok
	}
	return equal
}

func (c *comparator) compareString(l, r object.String) bool {
	lt, rt := text(l), text(r)
	if string(lt) == string(rt) {
		return true
	}
	at, msg := charDiff(lt, rt, c.opts.CharContext)
	return c.failAt(at, msg)
}

func (c *comparator) compareStream(l, r *object.Stream) bool {
	ld, rd := c.payload(l, "expected"), c.payload(r, "found")
	if !bytes.Equal(ld, rd) {
		at, msg := byteDiff(ld, rd, c.opts.ByteContext)
		return c.failAt(at, msg)
	}
	return c.compareDict(l.Dict, r.Dict, nil, true)
}

// payload decodes a stream for comparison. Undecodable data is compared raw.
func (c *comparator) payload(s *object.Stream, side string) []byte {
	data, err := s.Bytes(true)
	if err != nil {
		c.log.Debug("stream not decodable, comparing raw bytes", "side", side, "path", c.path.String(), "error", err)
		c.warnings.Addf(types.WarningLevelWarning, types.WarnStreamUndecodable,
			"%s stream at %s could not be decoded: %v", side, c.path, err)
		return s.Data
	}
	return data
}
