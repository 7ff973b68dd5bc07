package object

import (
	"github.com/benedoc-inc/pdfcmp/types"
)

// Pages returns the page references in document order. The page tree is
// walked once and memoized; revisited nodes are skipped with a warning.
func (d *Document) Pages() []Ref {
	if !d.pagesDone {
		d.buildPages()
	}
	return d.pages
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return len(d.Pages())
}

// PageNumber implements Resolver.
func (d *Document) PageNumber(ref Ref) int {
	if !d.pagesDone {
		d.buildPages()
	}
	return d.pageIndex[Ref{Num: ref.Num, Gen: ref.Gen}]
}

// Page returns the dictionary of the 1-based page n.
func (d *Document) Page(n int) (*Dict, Ref, bool) {
	pages := d.Pages()
	if n < 1 || n > len(pages) {
		return nil, Ref{}, false
	}
	dict, ok := d.ResolveDict(pages[n-1])
	return dict, pages[n-1], ok
}

// AddPage appends a page dictionary to the root /Pages node, creating the
// catalog and page tree when missing.
func (d *Document) AddPage(page *Dict) Ref {
	cat, _, ok := d.Catalog()
	if !ok {
		cat = NewDict().Set("Type", Name("Catalog"))
		d.Trailer.Set("Root", d.Add(cat))
	}
	root, ok := cat.Get("Pages").(Ref)
	if !ok {
		root = d.Add(NewDict().Set("Type", Name("Pages")).Set("Kids", NewArray()).Set("Count", Integer(0)))
		cat.Set("Pages", root)
	}
	node, _ := d.ResolveDict(root)
	kids, _ := d.Resolve(node.Get("Kids")).(*Array)
	if kids == nil {
		kids = NewArray()
		node.Set("Kids", kids)
	}
	page.Set("Type", Name("Page")).Set("Parent", root)
	ref := d.Add(page)
	kids.Append(ref)
	count, _ := node.Int("Count")
	node.Set("Count", Integer(count+1))
	d.invalidatePages()
	return ref
}

func (d *Document) invalidatePages() {
	d.pagesDone = false
	d.pages = nil
	d.pageIndex = nil
}

func (d *Document) buildPages() {
	d.pagesDone = true
	d.pages = nil
	d.pageIndex = make(map[Ref]int)

	cat, _, ok := d.Catalog()
	if !ok {
		return
	}
	root, ok := cat.Get("Pages").(Ref)
	if !ok {
		return
	}
	visited := make(map[Ref]bool)
	d.walkPages(root, visited)
}

func (d *Document) walkPages(ref Ref, visited map[Ref]bool) {
	if visited[ref] {
		d.warnings.Addf(types.WarningLevelWarning, types.WarnPageTreeCycle,
			"page tree node %d %d R visited twice", ref.Num, ref.Gen).WithContext("object", ref.Num)
		return
	}
	visited[ref] = true

	node, ok := d.ResolveDict(ref)
	if !ok {
		return
	}
	kids, hasKids := d.Resolve(node.Get("Kids")).(*Array)
	if node.IsType("Pages") || (hasKids && !node.IsType("Page")) {
		for _, kid := range kids.Items() {
			if kidRef, ok := kid.(Ref); ok {
				d.walkPages(kidRef, visited)
			}
		}
		return
	}
	d.pages = append(d.pages, ref)
	d.pageIndex[ref] = len(d.pages)
}
