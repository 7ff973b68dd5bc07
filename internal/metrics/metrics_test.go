package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benedoc-inc/pdfcmp/core/compare"
	"github.com/benedoc-inc/pdfcmp/core/visual"
)

var (
	_ compare.Recorder = (*Metrics)(nil)
	_ visual.Recorder  = (*Metrics)(nil)
)

func TestObserveComparison(t *testing.T) {
	m := New()
	m.ObserveComparison(compare.OutcomeDifferent, 3, 20*time.Millisecond)
	m.ObserveComparison(compare.OutcomeEqual, 0, time.Millisecond)
	m.ObserveComparison(compare.OutcomeDifferent, 2, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.comparisons.WithLabelValues(compare.OutcomeDifferent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.comparisons.WithLabelValues(compare.OutcomeEqual)))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.differences))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestObserveVisualPage(t *testing.T) {
	m := New()
	m.ObserveVisualPage(visual.PageEqual)
	m.ObserveVisualPage(visual.PageDifferent)
	m.ObserveVisualPage(visual.PageDifferent)

	expected := `
# HELP pdfcmp_visual_pages_total Pages compared by the visual fallback by result
# TYPE pdfcmp_visual_pages_total counter
pdfcmp_visual_pages_total{result="different"} 2
pdfcmp_visual_pages_total{result="equal"} 1
`
	require.NoError(t, testutil.CollectAndCompare(m.visualPages, strings.NewReader(expected)))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveComparison(compare.OutcomeEqual, 0, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.comparisons.WithLabelValues(compare.OutcomeEqual)))
}

func TestWriteToTextfile(t *testing.T) {
	m := New()
	m.ObserveComparison(compare.OutcomeDifferent, 4, 50*time.Millisecond)

	path := filepath.Join(t.TempDir(), "pdfcmp.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `pdfcmp_comparisons_total{outcome="different"} 1`)
	assert.Contains(t, out, "pdfcmp_differences_total 4")
	assert.Contains(t, out, "pdfcmp_compare_duration_seconds_count 1")
}
