package dataset

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
	"github.com/xeipuuv/gojsonschema"
)

// File permissions match the rest of the artifact writers.
const (
	filePerm = 0o600
	dirPerm  = 0o750
)

// backupSuffix names the compressed previous-snapshot file kept next to
// the dataset.
const backupSuffix = ".prev.lz4"

// tmpSuffix names the staging file a save goes through before the rename.
const tmpSuffix = ".tmp"

//go:embed schema.json
var schemaBytes []byte

// ErrSchema indicates the dataset file does not match the expected shape.
var ErrSchema = errors.New("dataset does not match schema")

// Store persists the dataset as a single indented JSON snapshot. Every save
// rewrites the whole file; when backups are enabled the previous snapshot
// survives one run as an LZ4-compressed sibling.
type Store struct {
	path   string
	backup bool
	logger *slog.Logger
}

// NewStore creates a store for the dataset at path.
func NewStore(path string, backup bool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{path: path, backup: backup, logger: logger}
}

// Path returns the dataset file location.
func (s *Store) Path() string {
	return s.path
}

// storedDataset mirrors Dataset with raw annotations so one malformed
// annotation entry drops individually instead of failing the whole load.
type storedDataset struct {
	TotalClones  int               `json:"total_clones"`
	UniqueClones int               `json:"unique_clones"`
	Daily        []DailyRecord     `json:"daily"`
	Annotations  []json.RawMessage `json:"annotations"`
}

// Load reads the dataset snapshot. A missing file is the first-run case and
// yields an empty dataset. Anything else that prevents a faithful read of
// the daily history is an error; malformed annotation entries are dropped
// with a warning instead.
func (s *Store) Load() (*Dataset, error) {
	data, readErr := os.ReadFile(s.path)
	if readErr != nil {
		if errors.Is(readErr, fs.ErrNotExist) {
			return &Dataset{}, nil
		}

		return nil, fmt.Errorf("read dataset: %w", readErr)
	}

	shapeErr := validateShape(data)
	if shapeErr != nil {
		return nil, shapeErr
	}

	var stored storedDataset

	unmarshalErr := json.Unmarshal(data, &stored)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal dataset: %w", unmarshalErr)
	}

	return &Dataset{
		TotalClones:  stored.TotalClones,
		UniqueClones: stored.UniqueClones,
		Daily:        stored.Daily,
		Annotations:  s.decodeAnnotations(stored.Annotations),
	}, nil
}

// Save writes the dataset as a complete snapshot, backing up the previous
// one first when enabled.
func (s *Store) Save(ds *Dataset) error {
	dir := filepath.Dir(s.path)

	mkErr := os.MkdirAll(dir, dirPerm)
	if mkErr != nil {
		return fmt.Errorf("create dataset dir: %w", mkErr)
	}

	if s.backup {
		s.backupPrevious()
	}

	// daily and annotations are always arrays on disk, never null.
	snapshot := *ds
	if snapshot.Daily == nil {
		snapshot.Daily = []DailyRecord{}
	}

	if snapshot.Annotations == nil {
		snapshot.Annotations = []Annotation{}
	}

	data, marshalErr := json.MarshalIndent(snapshot, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("marshal dataset: %w", marshalErr)
	}

	// Stage next to the target so the rename never crosses filesystems.
	tmpPath := s.path + tmpSuffix

	writeErr := os.WriteFile(tmpPath, data, filePerm)
	if writeErr != nil {
		return fmt.Errorf("write dataset: %w", writeErr)
	}

	renameErr := os.Rename(tmpPath, s.path)
	if renameErr != nil {
		return fmt.Errorf("rename dataset: %w", renameErr)
	}

	return nil
}

// backupPrevious compresses the current snapshot to <path>.prev.lz4.
// Backup failure never blocks the save; the dataset itself is the contract.
func (s *Store) backupPrevious() {
	prev, readErr := os.ReadFile(s.path)
	if readErr != nil {
		if !errors.Is(readErr, fs.ErrNotExist) {
			s.logger.Warn("skipping dataset backup", "err", readErr)
		}

		return
	}

	out, createErr := os.OpenFile(s.path+backupSuffix, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if createErr != nil {
		s.logger.Warn("skipping dataset backup", "err", createErr)

		return
	}

	zw := lz4.NewWriter(out)

	_, writeErr := zw.Write(prev)
	if writeErr == nil {
		writeErr = zw.Close()
	} else {
		_ = zw.Close()
	}

	closeErr := out.Close()

	if writeErr != nil || closeErr != nil {
		s.logger.Warn("dataset backup incomplete", "write_err", writeErr, "close_err", closeErr)
	}
}

func validateShape(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(schemaBytes)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate dataset: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(details, "; "))
}

// decodeAnnotations decodes annotation entries one by one, dropping
// malformed ones with a warning.
func (s *Store) decodeAnnotations(raw []json.RawMessage) []Annotation {
	if raw == nil {
		return nil
	}

	anns := make([]Annotation, 0, len(raw))

	for i, item := range raw {
		var ann Annotation

		unmarshalErr := json.Unmarshal(item, &ann)
		if unmarshalErr != nil {
			s.logger.Warn("dropping malformed annotation", "index", i, "err", unmarshalErr)

			continue
		}

		if ann.Date == "" || ann.Label == "" {
			s.logger.Warn("dropping malformed annotation", "index", i, "reason", "missing date or label")

			continue
		}

		_, dateErr := ann.ParseDate()
		if dateErr != nil {
			s.logger.Warn("dropping malformed annotation", "index", i, "date", ann.Date, "err", dateErr)

			continue
		}

		anns = append(anns, ann)
	}

	return anns
}
