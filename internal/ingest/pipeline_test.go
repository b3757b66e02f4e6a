package ingest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonepulse/clonepulse/internal/badge"
	"github.com/clonepulse/clonepulse/internal/dataset"
	"github.com/clonepulse/clonepulse/internal/github"
)

type fakeSource struct {
	snapshot *github.TrafficSnapshot
	err      error
}

func (f *fakeSource) FetchClones(_ context.Context, _, _ string) (*github.TrafficSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.snapshot, nil
}

func rawRow(ts, count, uniques string) github.RawClone {
	return github.RawClone{
		Timestamp: json.RawMessage(ts),
		Count:     json.RawMessage(count),
		Uniques:   json.RawMessage(uniques),
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// june3rd is the injected clock for most tests: both sample days are past.
func june3rd() time.Time {
	return time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
}

func newTestPipeline(t *testing.T, source github.Source) (*Pipeline, string, string) {
	t.Helper()

	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "fetch_clones.json")
	store := dataset.NewStore(datasetPath, false, quietLogger())

	p := New(Config{
		Source:   source,
		Store:    store,
		BadgeDir: dir,
		Logger:   quietLogger(),
		Now:      june3rd,
	})

	return p, datasetPath, dir
}

func sampleSnapshot() *github.TrafficSnapshot {
	return &github.TrafficSnapshot{Clones: []github.RawClone{
		rawRow(`"2024-06-01T00:00:00Z"`, "10", "5"),
		rawRow(`"2024-06-02T00:00:00Z"`, "20", "8"),
	}}
}

func TestPipeline_Run(t *testing.T) {
	p, datasetPath, badgeDir := newTestPipeline(t, &fakeSource{snapshot: sampleSnapshot()})

	result, err := p.Run(context.Background(), "octocat", "hello-world")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 2, result.Merged)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 2, result.Days)
	assert.Equal(t, 30, result.TotalClones)
	assert.Equal(t, 13, result.UniqueClones)

	require.NotNil(t, result.Marker)
	assert.Equal(t, "2024-06-02", result.Marker.Date)
	assert.Equal(t, "Daily max: 20", result.Marker.Label)

	store := dataset.NewStore(datasetPath, false, quietLogger())
	ds, err := store.Load()
	require.NoError(t, err)

	assert.Equal(t, 30, ds.TotalClones)
	assert.Equal(t, 13, ds.UniqueClones)
	require.Len(t, ds.Daily, 2)
	require.Len(t, ds.Annotations, 1)
	assert.True(t, ds.Annotations[0].IsRecordMarker())

	counter := readBadge(t, filepath.Join(badgeDir, badge.CounterFile))
	assert.Equal(t, "30", counter.Message)

	milestone := readBadge(t, filepath.Join(badgeDir, badge.MilestoneFile))
	assert.Equal(t, "Coming soon...", milestone.Message)
}

func TestPipeline_Run_SkipsInvalidEntry(t *testing.T) {
	snapshot := &github.TrafficSnapshot{Clones: []github.RawClone{
		rawRow(`"2024-06-01T00:00:00Z"`, `"not-a-number"`, "10"),
	}}
	p, datasetPath, badgeDir := newTestPipeline(t, &fakeSource{snapshot: snapshot})

	result, err := p.Run(context.Background(), "octocat", "hello-world")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 0, result.Merged)
	assert.Equal(t, 1, result.Skipped)
	assert.Nil(t, result.Marker)

	// A run with nothing mergeable still writes a complete snapshot.
	store := dataset.NewStore(datasetPath, false, quietLogger())
	ds, err := store.Load()
	require.NoError(t, err)

	assert.Empty(t, ds.Daily)
	assert.Zero(t, ds.TotalClones)
	assert.Zero(t, ds.UniqueClones)
	assert.Empty(t, ds.Annotations)

	counter := readBadge(t, filepath.Join(badgeDir, badge.CounterFile))
	assert.Equal(t, "0", counter.Message)
}

func TestPipeline_Run_RowValidationTable(t *testing.T) {
	tests := []struct {
		name string
		row  github.RawClone
	}{
		{name: "unparseable timestamp", row: rawRow(`"last tuesday"`, "1", "1")},
		{name: "numeric timestamp", row: rawRow("1717200000", "1", "1")},
		{name: "missing timestamp", row: github.RawClone{Count: json.RawMessage("1"), Uniques: json.RawMessage("1")}},
		{name: "fractional count", row: rawRow(`"2024-06-01T00:00:00Z"`, "1.5", "1")},
		{name: "negative count", row: rawRow(`"2024-06-01T00:00:00Z"`, "-3", "1")},
		{name: "string uniques", row: rawRow(`"2024-06-01T00:00:00Z"`, "1", `"many"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := &github.TrafficSnapshot{Clones: []github.RawClone{tt.row}}
			p, _, _ := newTestPipeline(t, &fakeSource{snapshot: snapshot})

			result, err := p.Run(context.Background(), "octocat", "hello-world")
			require.NoError(t, err)

			assert.Equal(t, 1, result.Skipped)
			assert.Equal(t, 0, result.Merged)
		})
	}
}

func TestPipeline_Run_FutureTimestampAborts(t *testing.T) {
	snapshot := &github.TrafficSnapshot{Clones: []github.RawClone{
		rawRow(`"2024-06-01T00:00:00Z"`, "10", "5"),
		rawRow(`"2024-06-09T00:00:00Z"`, "1", "1"),
	}}
	p, datasetPath, _ := newTestPipeline(t, &fakeSource{snapshot: snapshot})

	_, err := p.Run(context.Background(), "octocat", "hello-world")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFutureTimestamp)
	assert.Contains(t, err.Error(), "row 1")

	// Nothing was persisted.
	_, statErr := os.Stat(datasetPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_Run_SourceErrorAborts(t *testing.T) {
	p, datasetPath, _ := newTestPipeline(t, &fakeSource{err: github.ErrNoCloneData})

	_, err := p.Run(context.Background(), "octocat", "hello-world")
	require.Error(t, err)
	assert.ErrorIs(t, err, github.ErrNoCloneData)

	_, statErr := os.Stat(datasetPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_Run_Idempotent(t *testing.T) {
	p, datasetPath, _ := newTestPipeline(t, &fakeSource{snapshot: sampleSnapshot()})

	_, err := p.Run(context.Background(), "octocat", "hello-world")
	require.NoError(t, err)

	first, err := os.ReadFile(datasetPath)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), "octocat", "hello-world")
	require.NoError(t, err)

	second, err := os.ReadFile(datasetPath)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestPipeline_Run_MergesWithExistingHistory(t *testing.T) {
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "fetch_clones.json")
	store := dataset.NewStore(datasetPath, false, quietLogger())

	seed := &dataset.Dataset{
		Daily: []dataset.DailyRecord{{
			Timestamp: time.Date(2024, 5, 30, 0, 0, 0, 0, time.UTC),
			Count:     40,
			Uniques:   12,
		}},
	}
	seed.RecomputeTotals()
	require.NoError(t, store.Save(seed))

	p := New(Config{
		Source:   &fakeSource{snapshot: sampleSnapshot()},
		Store:    store,
		BadgeDir: dir,
		Logger:   quietLogger(),
		Now:      june3rd,
	})

	result, err := p.Run(context.Background(), "octocat", "hello-world")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Days)
	assert.Equal(t, 70, result.TotalClones)
	assert.Equal(t, 25, result.UniqueClones)

	// The seeded May spike stays the record.
	require.NotNil(t, result.Marker)
	assert.Equal(t, "2024-05-30", result.Marker.Date)
	assert.Equal(t, "Daily max: 40", result.Marker.Label)
}

func readBadge(t *testing.T, path string) badge.Badge {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var b badge.Badge
	require.NoError(t, json.Unmarshal(data, &b))

	return b
}
