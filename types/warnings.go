package types

import (
	"fmt"
	"log/slog"
	"sort"
)

// WarningLevel is the severity of a Warning.
type WarningLevel string

const (
	WarningLevelInfo    WarningLevel = "info"
	WarningLevelWarning WarningLevel = "warning"
)

// WarningCode identifies what kind of damage or oddity was tolerated.
type WarningCode string

const (
	WarnXRefRecovered     WarningCode = "XREF_RECOVERED"     // objects located by scanning the file body
	WarnObjectUnparsable  WarningCode = "OBJECT_UNPARSABLE"  // reads as null
	WarnStreamUndecodable WarningCode = "STREAM_UNDECODABLE" // raw bytes compared instead
	WarnDanglingTreeKey   WarningCode = "DANGLING_TREE_KEY"  // odd-length /Nums
	WarnPageTreeCycle     WarningCode = "PAGE_TREE_CYCLE"
)

// Warning records something a load or a comparison worked around. Unlike a
// PDFError it never stops the run; unlike a difference it says nothing about
// whether the documents match.
type Warning struct {
	Level   WarningLevel
	Code    WarningCode
	Message string
	Context map[string]interface{}
}

func (w *Warning) Error() string {
	return fmt.Sprintf("[%s] %s: %s", w.Level, w.Code, w.Message)
}

// WithContext attaches a key such as the object number and returns w.
func (w *Warning) WithContext(key string, value interface{}) *Warning {
	if w.Context == nil {
		w.Context = make(map[string]interface{})
	}
	w.Context[key] = value
	return w
}

// LogValue lets a warning be passed to slog as a single grouped attribute.
func (w *Warning) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("level", string(w.Level)),
		slog.String("code", string(w.Code)),
		slog.String("message", w.Message),
	}
	keys := make([]string, 0, len(w.Context))
	for k := range w.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, w.Context[k]))
	}
	return slog.GroupValue(attrs...)
}

// WarningCollector gathers the warnings of one load or one comparison.
// It is not safe for concurrent use. A nil collector drops everything.
type WarningCollector struct {
	warnings []*Warning
}

func NewWarningCollector() *WarningCollector {
	return &WarningCollector{}
}

// Addf records a warning and returns it so the caller can attach context.
func (wc *WarningCollector) Addf(level WarningLevel, code WarningCode, format string, args ...interface{}) *Warning {
	w := &Warning{Level: level, Code: code, Message: fmt.Sprintf(format, args...)}
	if wc != nil {
		wc.warnings = append(wc.warnings, w)
	}
	return w
}

// Merge appends the warnings of other, which is left unchanged.
func (wc *WarningCollector) Merge(other *WarningCollector) {
	if wc == nil || other == nil {
		return
	}
	wc.warnings = append(wc.warnings, other.warnings...)
}

func (wc *WarningCollector) Warnings() []*Warning {
	if wc == nil {
		return nil
	}
	return wc.warnings
}

func (wc *WarningCollector) Count() int {
	return len(wc.Warnings())
}

// ByCode returns the warnings carrying code, in the order they were added.
func (wc *WarningCollector) ByCode(code WarningCode) []*Warning {
	var out []*Warning
	for _, w := range wc.Warnings() {
		if w.Code == code {
			out = append(out, w)
		}
	}
	return out
}
