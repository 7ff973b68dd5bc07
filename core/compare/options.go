package compare

import (
	"io"
	"log/slog"
	"time"

	"github.com/benedoc-inc/pdfcmp/core/object"
)

const (
	DefaultByteContext = 10
	DefaultCharContext = 15
)

// Recorder receives one observation per finished comparison run.
// internal/metrics implements it.
type Recorder interface {
	ObserveComparison(outcome string, differences int, elapsed time.Duration)
}

// Outcomes passed to Recorder.
const (
	OutcomeEqual     = "equal"
	OutcomeDifferent = "different"
	OutcomeError     = "error"
)

// Options configures a comparison run.
type Options struct {
	// Limit is the maximum number of differences collected (default 1).
	Limit int
	// ByteContext and CharContext are the context window widths on each
	// side of the first difference in streams and strings.
	ByteContext int
	CharContext int
	// ExcludedKeys are skipped in the top-level dictionaries of a run.
	ExcludedKeys []object.Name
	// CompareMetadata includes the catalog /Metadata stream.
	CompareMetadata bool
	// CompareInfo compares the document information dictionary, ignoring
	// producer and date entries.
	CompareInfo bool

	Logger  *slog.Logger
	Metrics Recorder
}

// DefaultOptions returns the options used by the CLI when nothing is
// configured.
func DefaultOptions() Options {
	return Options{
		Limit:       DefaultLimit,
		ByteContext: DefaultByteContext,
		CharContext: DefaultCharContext,
		CompareInfo: true,
	}
}

func (o Options) withDefaults() Options {
	if o.Limit < 1 {
		o.Limit = DefaultLimit
	}
	if o.ByteContext <= 0 {
		o.ByteContext = DefaultByteContext
	}
	if o.CharContext <= 0 {
		o.CharContext = DefaultCharContext
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

func (o Options) excluded(extra ...object.Name) map[object.Name]bool {
	set := make(map[object.Name]bool, len(o.ExcludedKeys)+len(extra))
	for _, k := range o.ExcludedKeys {
		set[k] = true
	}
	for _, k := range extra {
		set[k] = true
	}
	return set
}
