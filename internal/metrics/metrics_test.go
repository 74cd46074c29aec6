package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/dlvscan/internal/types"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordFetchAttempt(1, errors.New("timeout"))
	m.RecordFetchAttempt(2, errors.New("blocked"))
	m.RecordFetchAttempt(3, nil)
	m.RecordRows(types.NormalizeStats{Total: 10, Kept: 7, DroppedParse: 2, DroppedRange: 1})
	m.SetSelected(3)
	m.SetConfidence(types.ConfidencePartial)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("success")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Rows.WithLabelValues("kept")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Rows.WithLabelValues("dropped_parse")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rows.WithLabelValues("dropped_range")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SelectedRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolverConfidence))
}

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()
	start := time.Unix(1_700_000_000, 0)

	m.ObserveRun(start, start.Add(1500*time.Millisecond), false)
	assert.Equal(t, 1.5, testutil.ToFloat64(m.RunDuration))
	assert.Zero(t, testutil.ToFloat64(m.LastSuccess))

	m.ObserveRun(start, start.Add(2*time.Second), true)
	assert.Equal(t, float64(start.Add(2*time.Second).Unix()), testutil.ToFloat64(m.LastSuccess))
}

func TestMetrics_RegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.SetSelected(5)

	assert.Equal(t, 5.0, testutil.ToFloat64(a.SelectedRows))
	assert.Zero(t, testutil.ToFloat64(b.SelectedRows))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.SetSelected(2)
	m.SetConfidence(types.ConfidenceFull)

	path := filepath.Join(t.TempDir(), "dlvscan.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, "dlvscan_selected_rows 2"), out)
	assert.True(t, strings.Contains(out, "dlvscan_resolver_confidence 2"), out)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFetchAttempt(1, nil)
		m.RecordRows(types.NormalizeStats{Kept: 1})
		m.SetSelected(1)
		m.SetConfidence(types.ConfidenceFull)
		m.ObserveRun(time.Now(), time.Now(), true)
	})
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.Nil(t, m.Registry())
}
