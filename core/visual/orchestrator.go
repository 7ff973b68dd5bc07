// Package visual renders two documents page by page and compares the
// rasters with external tools. It runs after a structural comparison found
// differences, to produce images a person can review.
//
// Two orchestrations must not share an output directory: raster and mask
// files are overwritten.
package visual

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/benedoc-inc/pdfcmp/core/object"
	"github.com/benedoc-inc/pdfcmp/core/parse"
	"github.com/benedoc-inc/pdfcmp/core/write"
	"github.com/benedoc-inc/pdfcmp/types"
)

// Rect is a region in default user space (points, origin bottom left).
type Rect struct {
	X, Y, W, H float64
}

// Input is one side of a visual comparison. Path is rendered as is unless
// regions must be masked; Doc is used when there is no Path or when
// masking.
type Input struct {
	Name string
	Path string
	Doc  *object.Document
}

// Page outcomes passed to Recorder.
const (
	PageEqual     = "equal"
	PageDifferent = "different"
	PageMissing   = "missing"
)

// Recorder receives one observation per compared page.
type Recorder interface {
	ObserveVisualPage(result string)
}

// Orchestrator drives rendering and pixel diffing.
type Orchestrator struct {
	Renderer   Renderer
	Differ     PixelDiffer
	OutputDir  string
	DiffPrefix string // default "diff_"
	Logger     *slog.Logger
	Metrics    Recorder
}

// Result lists the pages whose rasters differ.
type Result struct {
	RunID string
	// DifferingPages is nil when every page renders identically.
	DifferingPages []int
	// Artifacts maps a differing page to its difference image. Pages that
	// exist in only one document have no entry.
	Artifacts map[int]string
	OutputDir string
	// StructuralPages are the pages the caller already knew to differ.
	StructuralPages []int
}

// Summary renders the differing pages and their artifacts.
func (r *Result) Summary() string {
	var b strings.Builder
	if len(r.DifferingPages) == 0 {
		b.WriteString("no visual differences")
		if len(r.StructuralPages) > 0 {
			fmt.Fprintf(&b, " (structural differences on pages %s are not visible)", joinInts(r.StructuralPages))
		}
		b.WriteByte('\n')
		return b.String()
	}
	fmt.Fprintf(&b, "pages differing visually: %s\n", joinInts(r.DifferingPages))
	for _, p := range r.DifferingPages {
		if a, ok := r.Artifacts[p]; ok {
			fmt.Fprintf(&b, "  page %d: %s\n", p, a)
		} else {
			fmt.Fprintf(&b, "  page %d: missing in one document\n", p)
		}
	}
	return b.String()
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = fmt.Sprint(n)
	}
	return strings.Join(s, ", ")
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o *Orchestrator) observe(result string) {
	if o.Metrics != nil {
		o.Metrics.ObserveVisualPage(result)
	}
}

// Compare renders both documents and diffs every page. pages are the pages
// known to differ structurally (nil when only the page count differed);
// they are reported but every page is rendered. ignored maps a 1-based page
// to regions painted black on both sides before rendering.
func (o *Orchestrator) Compare(ctx context.Context, left, right Input, pages []int, ignored map[int][]Rect) (*Result, error) {
	if o.Renderer == nil || o.Differ == nil {
		return nil, types.NewPDFError(types.ErrCodeInvalidInput, "renderer and pixel differ are required")
	}
	if o.OutputDir == "" {
		return nil, types.NewPDFError(types.ErrCodeInvalidInput, "output directory is required")
	}
	if err := os.MkdirAll(o.OutputDir, 0o755); err != nil {
		return nil, types.WrapError(types.ErrCodeIOError, "cannot create output directory", err)
	}

	res := &Result{RunID: uuid.NewString(), OutputDir: o.OutputDir, StructuralPages: pages}
	log := o.logger().With("run_id", res.RunID)
	log.Debug("visual comparison started", "left", left.Name, "right", right.Name, "structural_pages", pages, "masked_pages", len(ignored))

	leftPath, err := o.prepare(left, "cmp_", ignored)
	if err != nil {
		return nil, err
	}
	rightPath, err := o.prepare(right, "out_", ignored)
	if err != nil {
		return nil, err
	}

	var leftImages, rightImages []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leftImages, err = o.Renderer.Render(gctx, leftPath, o.OutputDir, "cmp_"+left.Name)
		return err
	})
	g.Go(func() error {
		var err error
		rightImages, err = o.Renderer.Render(gctx, rightPath, o.OutputDir, "out_"+right.Name)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Debug("rendering failed", "error", err)
		return nil, err
	}

	prefix := o.DiffPrefix
	if prefix == "" {
		prefix = "diff_"
	}
	res.Artifacts = make(map[int]string)
	for i := 0; i < max(len(leftImages), len(rightImages)); i++ {
		page := i + 1
		if i >= len(leftImages) || i >= len(rightImages) {
			res.DifferingPages = append(res.DifferingPages, page)
			o.observe(PageMissing)
			continue
		}
		same, err := sameFile(leftImages[i], rightImages[i])
		if err != nil {
			return nil, err
		}
		if same {
			o.observe(PageEqual)
			continue
		}
		out := filepath.Join(o.OutputDir, fmt.Sprintf("%s%d.png", prefix, page))
		differ, err := o.Differ.Diff(ctx, leftImages[i], rightImages[i], out)
		if err != nil {
			return nil, err
		}
		if !differ {
			o.observe(PageEqual)
			continue
		}
		res.DifferingPages = append(res.DifferingPages, page)
		res.Artifacts[page] = out
		o.observe(PageDifferent)
	}
	log.Debug("visual comparison finished", "differing_pages", res.DifferingPages)
	return res, nil
}

func sameFile(a, b string) (bool, error) {
	da, err := os.ReadFile(a)
	if err != nil {
		return false, types.WrapError(types.ErrCodeIOError, "cannot read raster", err)
	}
	db, err := os.ReadFile(b)
	if err != nil {
		return false, types.WrapError(types.ErrCodeIOError, "cannot read raster", err)
	}
	return bytes.Equal(da, db), nil
}

// prepare returns a file to render for in. With ignored regions the
// document is copied, masked and written to ignore_<name>.pdf; an input
// without a path is written to <prefix><name>.pdf.
func (o *Orchestrator) prepare(in Input, prefix string, ignored map[int][]Rect) (string, error) {
	if len(ignored) == 0 && in.Path != "" {
		return in.Path, nil
	}

	doc, err := o.copyOf(in)
	if err != nil {
		return "", err
	}
	name := prefix + in.Name + ".pdf"
	if len(ignored) > 0 {
		if err := mask(doc, ignored); err != nil {
			return "", err
		}
		name = "ignore_" + in.Name + ".pdf"
	}

	data, err := write.Bytes(doc, write.Options{})
	if err != nil {
		return "", err
	}
	path := filepath.Join(o.OutputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", types.WrapError(types.ErrCodeIOError, "cannot write "+name, err)
	}
	return path, nil
}

// copyOf loads an independent copy of the input so masking never touches
// the caller's document.
func (o *Orchestrator) copyOf(in Input) (*object.Document, error) {
	if in.Path != "" {
		return parse.Open(in.Path, parse.WithLogger(o.logger()))
	}
	if in.Doc == nil {
		return nil, types.NewPDFErrorf(types.ErrCodeInvalidInput, "input %q has neither path nor document", in.Name)
	}
	data, err := write.Bytes(in.Doc, write.Options{})
	if err != nil {
		return nil, err
	}
	return parse.Load(data, parse.WithLogger(o.logger()))
}

// mask paints each region opaque black on top of the page content. Pages
// outside the document are skipped.
func mask(doc *object.Document, ignored map[int][]Rect) error {
	count := doc.PageCount()
	for page, rects := range ignored {
		if page < 1 || page > count || len(rects) == 0 {
			continue
		}
		var content strings.Builder
		for _, r := range rects {
			fmt.Fprintf(&content, "q 0 g %s %s %s %s re f Q\n",
				object.FormatReal(r.X), object.FormatReal(r.Y), object.FormatReal(r.W), object.FormatReal(r.H))
		}
		if err := write.AppendContent(doc, page, []byte(content.String())); err != nil {
			return err
		}
	}
	return nil
}
