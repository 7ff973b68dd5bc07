package object

import (
	"sort"

	"github.com/benedoc-inc/pdfcmp/types"
)

// Resolver is the read side of a document that the comparator needs:
// dereferencing and page identity.
type Resolver interface {
	// Resolve dereferences o when it is a Ref and returns it unchanged
	// otherwise. A dangling reference resolves to Null.
	Resolve(o Object) Object
	// PageNumber returns the 1-based index of ref in the page list, or 0.
	PageNumber(ref Ref) int
}

// Source supplies indirect objects on demand. The parser implements it so
// that a document only parses the objects a comparison actually touches.
type Source interface {
	// Numbers lists every object number the source can supply.
	Numbers() []int
	// Load parses object num. ok is false when the source has no such object.
	Load(num int) (obj Object, gen int, ok bool)
}

type entry struct {
	obj Object
	gen int
}

// Document is an arena of indirect objects plus the trailer that anchors the
// graph. Objects added with Add or Set take precedence over the Source.
type Document struct {
	Version string
	Trailer *Dict

	objects  map[int]entry
	source   Source
	next     int // next free object number, 0 until first needed
	warnings *types.WarningCollector

	pages     []Ref
	pageIndex map[Ref]int
	pagesDone bool
}

// NewDocument returns an empty document with an empty trailer.
func NewDocument() *Document {
	return &Document{
		Version:  "1.7",
		Trailer:  NewDict(),
		objects:  make(map[int]entry),
		warnings: types.NewWarningCollector(),
	}
}

// NewDocumentFromSource returns a document that loads objects lazily.
func NewDocumentFromSource(version string, trailer *Dict, src Source, warnings *types.WarningCollector) *Document {
	d := NewDocument()
	d.Version = version
	if trailer != nil {
		d.Trailer = trailer
	}
	d.source = src
	if warnings != nil {
		d.warnings = warnings
	}
	return d
}

// Warnings returns the document's warning collector.
func (d *Document) Warnings() *types.WarningCollector {
	return d.warnings
}

// Add stores obj under the next free object number.
func (d *Document) Add(obj Object) Ref {
	if d.next == 0 {
		d.next = 1
		if nums := d.ObjectNumbers(); len(nums) > 0 {
			d.next = nums[len(nums)-1] + 1
		}
	}
	num := d.next
	d.next++
	d.objects[num] = entry{obj: obj}
	d.invalidatePages()
	return Ref{Num: num}
}

// Set stores obj under ref, replacing anything there.
func (d *Document) Set(ref Ref, obj Object) {
	d.objects[ref.Num] = entry{obj: obj, gen: ref.Gen}
	if d.next != 0 && ref.Num >= d.next {
		d.next = ref.Num + 1
	}
	d.invalidatePages()
}

// Lookup returns the object with number ref.Num. The generation is not
// checked: producers routinely disagree with their own xref about it.
func (d *Document) Lookup(ref Ref) (Object, bool) {
	if e, ok := d.objects[ref.Num]; ok {
		return e.obj, true
	}
	if d.source == nil {
		return nil, false
	}
	obj, gen, ok := d.source.Load(ref.Num)
	if !ok {
		return nil, false
	}
	d.objects[ref.Num] = entry{obj: obj, gen: gen}
	return obj, true
}

// Resolve implements Resolver.
func (d *Document) Resolve(o Object) Object {
	ref, ok := o.(Ref)
	if !ok {
		return o
	}
	obj, found := d.Lookup(ref)
	if !found || obj == nil {
		return Null{}
	}
	return obj
}

// ResolveDict resolves o and returns it as a dictionary. A stream yields its
// dictionary.
func (d *Document) ResolveDict(o Object) (*Dict, bool) {
	switch v := d.Resolve(o).(type) {
	case *Dict:
		return v, true
	case *Stream:
		return v.Dict, true
	}
	return nil, false
}

// Generation returns the generation number stored for num.
func (d *Document) Generation(num int) int {
	if _, ok := d.Lookup(Ref{Num: num}); !ok {
		return 0
	}
	return d.objects[num].gen
}

// ObjectNumbers returns all object numbers in ascending order.
func (d *Document) ObjectNumbers() []int {
	seen := make(map[int]struct{}, len(d.objects))
	for n := range d.objects {
		seen[n] = struct{}{}
	}
	if d.source != nil {
		for _, n := range d.source.Numbers() {
			seen[n] = struct{}{}
		}
	}
	nums := make([]int, 0, len(seen))
	for n := range seen {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Catalog returns the document catalog (trailer /Root) and its reference.
func (d *Document) Catalog() (*Dict, Ref, bool) {
	ref, _ := d.Trailer.Get("Root").(Ref)
	cat, ok := d.ResolveDict(d.Trailer.Get("Root"))
	return cat, ref, ok
}

// Info returns the document information dictionary, if any.
func (d *Document) Info() (*Dict, Ref, bool) {
	ref, _ := d.Trailer.Get("Info").(Ref)
	info, ok := d.ResolveDict(d.Trailer.Get("Info"))
	return info, ref, ok
}
