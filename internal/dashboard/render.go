package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/clonepulse/clonepulse/internal/dataset"
	"github.com/clonepulse/clonepulse/internal/weekly"
)

const dirPerm = 0o750

//go:embed templates/placeholder.html
var templateFS embed.FS

var (
	placeholderTmpl *template.Template
	templatesOnce   sync.Once
	errTemplates    error
)

func getPlaceholderTemplate() (*template.Template, error) {
	templatesOnce.Do(func() {
		var parseErr error

		placeholderTmpl, parseErr = template.ParseFS(templateFS, "templates/placeholder.html")
		if parseErr != nil {
			errTemplates = fmt.Errorf("parsing placeholder template: %w", parseErr)
		}
	})

	return placeholderTmpl, errTemplates
}

type placeholderData struct {
	Title   string
	Message string
}

// Renderer writes the report artifact. Every report run produces exactly one
// output file at the configured path, whether it is a chart or a
// placeholder, so downstream links never dangle.
type Renderer struct {
	output string
	logger *slog.Logger
}

// NewRenderer returns a renderer writing to output. A nil logger falls back
// to the process default.
func NewRenderer(output string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Renderer{output: output, logger: logger}
}

// Output returns the artifact path.
func (r *Renderer) Output() string {
	return r.output
}

// WriteChart renders the weekly series with its annotations to the output
// file.
func (r *Renderer) WriteChart(w weekly.Window, anns []dataset.Annotation) error {
	line := BuildChart(w, anns)

	err := r.writeHTML(line.Render)
	if err != nil {
		return err
	}

	r.logger.Info("dashboard rendered",
		"weeks", len(w.Buckets),
		"annotations", len(anns),
		"output", r.output)

	return nil
}

// WritePlaceholder renders a page carrying message instead of a chart.
func (r *Renderer) WritePlaceholder(message string) error {
	tmpl, err := getPlaceholderTemplate()
	if err != nil {
		return err
	}

	data := placeholderData{Title: pageTitle, Message: message}

	err = r.writeHTML(func(w io.Writer) error {
		return tmpl.Execute(w, data)
	})
	if err != nil {
		return err
	}

	r.logger.Info("placeholder dashboard rendered",
		"reason", message,
		"output", r.output)

	return nil
}

func (r *Renderer) writeHTML(render func(io.Writer) error) error {
	dir := filepath.Dir(r.output)
	if dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(r.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	if err := render(file); err != nil {
		file.Close()

		return fmt.Errorf("render dashboard: %w", err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	return nil
}
