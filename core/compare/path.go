package compare

import (
	"encoding/json"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/benedoc-inc/pdfcmp/core/object"
)

// SegmentKind identifies one step of a Path.
type SegmentKind int

const (
	SegmentKey    SegmentKind = iota // dictionary key
	SegmentIndex                     // array index
	SegmentOffset                    // byte or character offset
)

// Segment is one step from a node to its child.
type Segment struct {
	Kind  SegmentKind
	Key   object.Name
	Index int // array index or offset
}

// Key returns a dictionary-key segment.
func Key(name object.Name) Segment { return Segment{Kind: SegmentKey, Key: name} }

// Index returns an array-index segment.
func Index(i int) Segment { return Segment{Kind: SegmentIndex, Index: i} }

// Offset returns a byte or character offset segment.
func Offset(n int) Segment { return Segment{Kind: SegmentOffset, Index: n} }

func (s Segment) String() string {
	switch s.Kind {
	case SegmentKey:
		return "/" + string(s.Key)
	case SegmentIndex:
		return "[" + strconv.Itoa(s.Index) + "]"
	default:
		return "@" + strconv.Itoa(s.Index)
	}
}

func (s Segment) field() (string, interface{}) {
	switch s.Kind {
	case SegmentKey:
		return "key", string(s.Key)
	case SegmentIndex:
		return "index", s.Index
	default:
		return "offset", s.Index
	}
}

// MarshalJSON renders the segment as {"key": ...}, {"index": ...} or
// {"offset": ...}.
func (s Segment) MarshalJSON() ([]byte, error) {
	name, value := s.field()
	return json.Marshal(map[string]interface{}{name: value})
}

// MarshalYAML uses the same single-entry map as JSON.
func (s Segment) MarshalYAML() (interface{}, error) {
	name, value := s.field()
	return map[string]interface{}{name: value}, nil
}

// MarshalXML renders the segment as an element named after its kind.
func (s Segment) MarshalXML(e *xml.Encoder, _ xml.StartElement) error {
	name, value := s.field()
	return e.EncodeElement(value, xml.StartElement{Name: xml.Name{Local: name}})
}

// Path locates a node: an anchor (a reference pair or a named root such as
// "catalog") followed by the steps taken from it.
type Path struct {
	Anchor   string    `json:"anchor" yaml:"anchor" xml:"anchor,attr"`
	Segments []Segment `json:"segments" yaml:"segments" xml:"segment"`
}

func (p Path) String() string {
	var b strings.Builder
	b.WriteString(p.Anchor)
	for _, s := range p.Segments {
		b.WriteString(s.String())
	}
	return b.String()
}

// Last returns the final segment, if any.
func (p Path) Last() (Segment, bool) {
	if len(p.Segments) == 0 {
		return Segment{}, false
	}
	return p.Segments[len(p.Segments)-1], true
}

type refPair struct {
	left, right object.Ref
}

// Tracker records how the comparator reached the current pair of nodes. It
// also holds the reference pairs currently being expanded on the active
// recursion stack. A Tracker belongs to one comparison run.
type Tracker struct {
	anchor string
	segs   []Segment
	active map[refPair]bool
}

// NewTracker returns a tracker rooted at anchor.
func NewTracker(anchor string) *Tracker {
	return &Tracker{anchor: anchor, active: make(map[refPair]bool)}
}

func (t *Tracker) push(s Segment) { t.segs = append(t.segs, s) }

// PushKey descends into a dictionary value.
func (t *Tracker) PushKey(k object.Name) { t.push(Key(k)) }

// PushIndex descends into an array element.
func (t *Tracker) PushIndex(i int) { t.push(Index(i)) }

// PushOffset marks a position inside a byte or character payload.
func (t *Tracker) PushOffset(n int) { t.push(Offset(n)) }

// Pop removes the last segment. Popping an empty path is a no-op.
func (t *Tracker) Pop() {
	if len(t.segs) > 0 {
		t.segs = t.segs[:len(t.segs)-1]
	}
}

// Depth returns the number of segments below the current anchor.
func (t *Tracker) Depth() int { return len(t.segs) }

// IsComparing reports whether the pair is already being expanded further up
// the active stack.
func (t *Tracker) IsComparing(left, right object.Ref) bool {
	return t.active[refPair{left, right}]
}

// Enter re-anchors the path at the reference pair and marks the pair active.
// The returned func restores the previous anchor and path and releases the
// pair; callers must run it on every exit path.
func (t *Tracker) Enter(left, right object.Ref) (restore func()) {
	return t.reanchor(left.String()+" -> "+right.String(), &refPair{left, right})
}

// Anchor re-anchors the path at a named root without touching the active
// pairs.
func (t *Tracker) Anchor(name string) (restore func()) {
	return t.reanchor(name, nil)
}

func (t *Tracker) reanchor(anchor string, pair *refPair) func() {
	prevAnchor, prevSegs := t.anchor, t.segs
	t.anchor, t.segs = anchor, nil
	if pair != nil {
		t.active[*pair] = true
	}
	return func() {
		if pair != nil {
			delete(t.active, *pair)
		}
		t.anchor, t.segs = prevAnchor, prevSegs
	}
}

// Snapshot copies the current path.
func (t *Tracker) Snapshot() Path {
	return Path{Anchor: t.anchor, Segments: append([]Segment(nil), t.segs...)}
}

func (t *Tracker) String() string { return t.Snapshot().String() }
