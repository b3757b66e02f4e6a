package badge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateMilestone(t *testing.T) {
	tests := []struct {
		name    string
		total   int
		message string
		color   string
	}{
		{name: "zero total", total: 0, message: "Coming soon...", color: "lightgrey"},
		{name: "just below first tier", total: 499, message: "Coming soon...", color: "lightgrey"},
		{name: "first tier boundary", total: 500, message: "500+ clones", color: "goldenrod"},
		{name: "inside first tier", total: 999, message: "500+ clones", color: "goldenrod"},
		{name: "second tier boundary", total: 1000, message: "1k+ clones", color: "orange"},
		{name: "inside second tier", total: 1999, message: "1k+ clones", color: "orange"},
		{name: "top tier boundary", total: 2000, message: "2k+ clones", color: "red"},
		{name: "far above top tier", total: 48315, message: "2k+ clones", color: "red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateMilestone(tt.total)

			assert.Equal(t, "milestone", got.Label)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.color, got.Color)
		})
	}
}

func TestEvaluateMilestone_TierNeverRegresses(t *testing.T) {
	rank := map[string]int{
		"Coming soon...": 0,
		"500+ clones":    1,
		"1k+ clones":     2,
		"2k+ clones":     3,
	}

	prev := 0
	for total := 0; total <= 2500; total += 50 {
		tier, ok := rank[EvaluateMilestone(total).Message]
		require.True(t, ok, "unknown tier message at total %d", total)
		assert.GreaterOrEqual(t, tier, prev, "tier regressed at total %d", total)
		prev = tier
	}
}

func TestCounterBadge(t *testing.T) {
	got := CounterBadge(530)

	assert.Equal(t, Badge{Label: "# clones", Message: "530", Color: "blue"}, got)
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badges")

	err := WriteAll(dir, 1234)
	require.NoError(t, err)

	counter := readBadge(t, filepath.Join(dir, CounterFile))
	assert.Equal(t, Badge{Label: "# clones", Message: "1234", Color: "blue"}, counter)

	milestone := readBadge(t, filepath.Join(dir, MilestoneFile))
	assert.Equal(t, "1k+ clones", milestone.Message)
	assert.Equal(t, "orange", milestone.Color)
}

func TestWriteAll_OverwritesPreviousRun(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteAll(dir, 499))
	require.NoError(t, WriteAll(dir, 500))

	milestone := readBadge(t, filepath.Join(dir, MilestoneFile))
	assert.Equal(t, "500+ clones", milestone.Message)
}

func readBadge(t *testing.T, path string) Badge {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var b Badge
	require.NoError(t, json.Unmarshal(data, &b))

	return b
}
