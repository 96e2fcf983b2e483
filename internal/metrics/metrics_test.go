package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordOperation(t *testing.T) {
	m := New()
	m.RecordOperation("commit", nil, 10*time.Millisecond)
	m.RecordOperation("commit", errors.New("boom"), time.Millisecond)
	m.RecordOperation("commit", nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("commit", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("commit", "error")))
}

func TestMetrics_RecordSnapshot(t *testing.T) {
	m := New()
	m.RecordSnapshot(true, 100)
	m.RecordSnapshot(false, 100)
	m.RecordSnapshot(true, 50)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SnapshotsStored))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotsDeduped))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.SnapshotBytes))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordOperation("x", nil, time.Second)
	m.RecordCommit()
	m.RecordConflict()
	m.RecordSnapshot(true, 1)
	m.RecordDiffField("added")
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.RecordCommit()
	m.RecordConflict()

	path := filepath.Join(t.TempDir(), "rgit.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rgit_commits_total 1")
	assert.Contains(t, string(data), "rgit_commit_conflicts_total 1")
}
