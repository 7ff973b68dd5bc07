package compare

import (
	"fmt"
	"time"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/types"
)

// Result is the outcome of a comparison run.
type Result struct {
	collector *Collector

	// PageCountMismatch is set when the documents have different page counts.
	PageCountMismatch bool
	LeftPages         int
	RightPages        int
	// DifferingPages lists 1-based pages with at least one structural
	// difference, in page order.
	DifferingPages []int
	// Warnings from comparing; loader warnings are merged in by
	// CompareDocuments.
	Warnings *types.WarningCollector
	// VisualSummary is filled in by callers that ran the visual fallback.
	VisualSummary string
}

// Differences returns the recorded differences in order.
func (r *Result) Differences() []Difference { return r.collector.Differences() }

// OK reports whether the documents are equivalent.
func (r *Result) OK() bool { return r.collector.OK() }

// LimitReached reports whether the run stopped at the configured limit.
func (r *Result) LimitReached() bool { return r.collector.LimitReached() }

func (c *comparator) result() *Result {
	return &Result{collector: c.out, Warnings: c.warnings}
}

func (c *comparator) finish(res *Result, start time.Time) *Result {
	outcome := OutcomeEqual
	if !res.OK() {
		outcome = OutcomeDifferent
	}
	c.log.Debug("comparison finished", "outcome", outcome, "differences", c.out.Len(), "elapsed", time.Since(start))
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveComparison(outcome, c.out.Len(), time.Since(start))
	}
	return res
}

func (c *comparator) abort(err error) error {
	if c.opts.Metrics != nil {
		c.opts.Metrics.ObserveComparison(OutcomeError, 0, 0)
	}
	return err
}

// CompareGraphs compares the graphs below two roots. At least one root must
// be an indirect reference; direct dictionaries have no identity to anchor
// paths at and must go through CompareDictionaries.
func CompareGraphs(left, right object.Resolver, leftRoot, rightRoot object.Object, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	c := newComparator(left, right, "root", opts)
	start := time.Now()
	if !object.IsRef(leftRoot) && !object.IsRef(rightRoot) {
		return nil, c.abort(types.NewPDFError(types.ErrCodeNoRootIdentity, "roots are not indirect references"))
	}
	c.compare(leftRoot, rightRoot, opts.excluded())
	return c.finish(c.result(), start), nil
}

// CompareDictionaries compares two dictionaries directly. anchor names the
// root of every reported path and must not be empty.
func CompareDictionaries(left, right object.Resolver, l, r *object.Dict, anchor string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	c := newComparator(left, right, anchor, opts)
	start := time.Now()
	if anchor == "" {
		return nil, c.abort(types.NewPDFError(types.ErrCodeNoRootIdentity, "no anchor for direct dictionaries"))
	}
	if l == nil || r == nil {
		return nil, c.abort(types.NewPDFError(types.ErrCodeInvalidInput, "nil dictionary"))
	}
	c.compareDict(l, r, opts.excluded(), false)
	return c.finish(c.result(), start), nil
}

// CompareDocuments compares page count, each page, the catalog and the
// document information dictionary, in that order. Each pass stops once the
// difference limit is reached.
func CompareDocuments(left, right *object.Document, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	c := newComparator(left, right, "trailer", opts)
	start := time.Now()
	if left == nil || right == nil {
		return nil, c.abort(types.NewPDFError(types.ErrCodeInvalidInput, "nil document"))
	}

	res := c.result()
	res.LeftPages, res.RightPages = left.PageCount(), right.PageCount()
	c.log.Debug("comparing documents", "left_pages", res.LeftPages, "right_pages", res.RightPages)

	if res.LeftPages != res.RightPages {
		res.PageCountMismatch = true
		c.fail("page counts are different: expected %d, found %d", res.LeftPages, res.RightPages)
	}

	c.comparePages(left, right, res)
	c.compareRoot("catalog", left.Catalog, right.Catalog, opts.excluded(c.catalogExclusions()...))
	if opts.CompareInfo {
		c.compareRoot("info", left.Info, right.Info, opts.excluded("Producer", "CreationDate", "ModDate"))
	}

	res.Warnings.Merge(left.Warnings())
	res.Warnings.Merge(right.Warnings())
	return c.finish(res, start), nil
}

func (c *comparator) catalogExclusions() []object.Name {
	if c.opts.CompareMetadata {
		return []object.Name{"Pages"}
	}
	return []object.Name{"Pages", "Metadata"}
}

// comparePages walks the common pages directly, so the page reference rule
// does not apply at this level.
func (c *comparator) comparePages(left, right *object.Document, res *Result) {
	excluded := c.opts.excluded("Parent")
	for n := 1; n <= min(res.LeftPages, res.RightPages); n++ {
		if c.out.LimitReached() {
			return
		}
		lp, lref, _ := left.Page(n)
		rp, rref, _ := right.Page(n)
		if lp == nil || rp == nil {
			continue
		}
		before := c.out.Len()
		restore := c.path.Enter(lref, rref)
		equal := c.compareDict(lp, rp, excluded, false)
		restore()
		if !equal || c.out.Len() > before {
			res.DifferingPages = append(res.DifferingPages, n)
		}
	}
}

type rootFunc func() (*object.Dict, object.Ref, bool)

func (c *comparator) compareRoot(name string, left, right rootFunc, excluded map[object.Name]bool) {
	if c.out.LimitReached() {
		return
	}
	ld, lref, lok := left()
	rd, rref, rok := right()
	restore := c.path.Anchor(name)
	defer restore()
	switch {
	case !lok && !rok:
		return
	case !rok:
		c.fail("missing %s dictionary", name)
		return
	case !lok:
		c.fail("unexpected %s dictionary %s", name, rref)
		return
	}
	if lref != (object.Ref{}) && rref != (object.Ref{}) {
		enter := c.path.Enter(lref, rref)
		defer enter()
	}
	c.compareDict(ld, rd, excluded, false)
}

// Summary is a one-line description of the result.
func (r *Result) Summary() string {
	if r.OK() {
		return "documents are equivalent"
	}
	s := fmt.Sprintf("%d difference(s)", r.collector.Len())
	if r.LimitReached() {
		s += fmt.Sprintf(" (limit %d reached)", r.collector.Limit())
	}
	if r.PageCountMismatch {
		s += fmt.Sprintf("; page counts %d and %d", r.LeftPages, r.RightPages)
	}
	if len(r.DifferingPages) > 0 {
		s += fmt.Sprintf("; differing pages %v", r.DifferingPages)
	}
	return s
}
