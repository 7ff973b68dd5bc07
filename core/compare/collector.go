package compare

import "strings"

// DefaultLimit is the collector capacity used when none is configured.
const DefaultLimit = 1

// Difference is one recorded inequality. It is never modified after it is
// stored.
type Difference struct {
	Message string `json:"message" yaml:"message" xml:"message"`
	Path    Path   `json:"path" yaml:"path" xml:"path"`
}

// Collector keeps differences in insertion order up to a fixed capacity.
type Collector struct {
	limit int
	diffs []Difference
}

// NewCollector returns a collector holding at most limit records. A limit
// below 1 selects DefaultLimit.
func NewCollector(limit int) *Collector {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Collector{limit: limit}
}

// AddError records a difference. It does nothing once the limit is reached.
func (c *Collector) AddError(path Path, message string) {
	if c.LimitReached() {
		return
	}
	c.diffs = append(c.diffs, Difference{Message: message, Path: path})
}

// OK reports whether no difference was recorded.
func (c *Collector) OK() bool { return len(c.diffs) == 0 }

// LimitReached reports whether the collector is full.
func (c *Collector) LimitReached() bool { return len(c.diffs) >= c.limit }

// Len returns the number of recorded differences.
func (c *Collector) Len() int { return len(c.diffs) }

// Limit returns the capacity.
func (c *Collector) Limit() int { return c.limit }

// Differences returns the records in insertion order.
func (c *Collector) Differences() []Difference {
	return append([]Difference(nil), c.diffs...)
}

// Report renders every record as "message\npath\n---" blocks.
func (c *Collector) Report() string {
	var b strings.Builder
	for _, d := range c.diffs {
		b.WriteString(d.Message)
		b.WriteByte('\n')
		b.WriteString(d.Path.String())
		b.WriteString("\n---\n")
	}
	return b.String()
}
