package dashboard

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonepulse/clonepulse/internal/dataset"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRenderer_WriteChart(t *testing.T) {
	output := filepath.Join(t.TempDir(), "site", "weekly_clones.html")
	r := NewRenderer(output, quietLogger())

	anns := []dataset.Annotation{{Date: "2024-06-17", Label: "launch"}}
	err := r.WriteChart(sampleWindow(), anns)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "Weekly Clone Metrics (Reported on Following Monday)")
	assert.Contains(t, html, "launch")
}

func TestRenderer_WritePlaceholder(t *testing.T) {
	output := filepath.Join(t.TempDir(), "weekly_clones.html")
	r := NewRenderer(output, quietLogger())

	err := r.WritePlaceholder(InsufficientDataMessage)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "Not enough data to generate a dashboard.")
	assert.Contains(t, html, "data needed.")
	assert.Contains(t, html, "Weekly Clone Metrics")
}

func TestRenderer_PlaceholderReplacesChart(t *testing.T) {
	output := filepath.Join(t.TempDir(), "weekly_clones.html")
	r := NewRenderer(output, quietLogger())

	require.NoError(t, r.WriteChart(sampleWindow(), nil))
	require.NoError(t, r.WritePlaceholder(EmptyWindowMessage))

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "No data in the selected window.")
	assert.NotContains(t, html, "Total Clones")
}

func TestNoDataForYearMessage(t *testing.T) {
	assert.Equal(t, "No data for year 2023.", NoDataForYearMessage("2023"))
	assert.Equal(t, "No data for year 2023.", NoDataForYearMessage(" 2023 "))
}
