// Package loader feeds idea seed files from a directory into the queue.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nugget-pipeline/internal/apperrors"
	"github.com/nugget-pipeline/internal/models"
	"github.com/nugget-pipeline/internal/slug"
	"github.com/nugget-pipeline/internal/validation"
	"github.com/rs/zerolog"
)

// TemplateFile is the example seed kept alongside real ones; never loaded
const TemplateFile = "TEMPLATE.json"

// Enqueuer is the part of the pipeline the loader writes through
type Enqueuer interface {
	EnqueueSeed(ctx context.Context, seed *models.IdeaSeed) (string, error)
	GetIdea(ctx context.Context, slug string) (*models.Idea, error)
}

// FileStatus is the outcome of loading one file
type FileStatus string

const (
	StatusLoaded  FileStatus = "loaded"
	StatusSkipped FileStatus = "skipped"
	StatusFailed  FileStatus = "failed"
)

// FileResult reports what happened to one seed file
type FileResult struct {
	File    string     `json:"file"`
	Slug    string     `json:"slug,omitempty"`
	Status  FileStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// Summary counts the results of a directory load
type Summary struct {
	Results []FileResult `json:"results"`
	Loaded  int          `json:"loaded"`
	Skipped int          `json:"skipped"`
	Failed  int          `json:"failed"`
}

func (s *Summary) add(r FileResult) {
	s.Results = append(s.Results, r)
	switch r.Status {
	case StatusLoaded:
		s.Loaded++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// Options tunes a Loader
type Options struct {
	// Overwrite re-enqueues seeds whose idea already exists in a non-terminal state
	Overwrite bool
}

// Loader reads seed files and enqueues them
type Loader struct {
	target Enqueuer
	opts   Options
	log    zerolog.Logger
}

// New creates a Loader writing to target
func New(target Enqueuer, opts Options, log zerolog.Logger) *Loader {
	return &Loader{
		target: target,
		opts:   opts,
		log:    log.With().Str("component", "loader").Logger(),
	}
}

// SeedFiles lists the *.json seed files of dir in name order
func SeedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !isSeedFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isSeedFile(name string) bool {
	return strings.HasSuffix(name, ".json") && name != TemplateFile
}

// LoadDir loads every seed file in dir. A bad file is reported in the
// summary and does not stop the others; store failures do.
func (l *Loader) LoadDir(ctx context.Context, dir string) (*Summary, error) {
	files, err := SeedFiles(dir)
	if err != nil {
		return nil, err
	}

	l.log.Info().Str("dir", dir).Int("files", len(files)).Msg("Loading idea seeds")

	summary := &Summary{Results: make([]FileResult, 0, len(files))}
	for _, path := range files {
		result, err := l.LoadFile(ctx, path)
		if err != nil {
			return summary, err
		}
		summary.add(result)
	}

	l.log.Info().
		Int("loaded", summary.Loaded).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("Idea seeds loaded")
	return summary, nil
}

// LoadFile loads one seed file. The returned error is set only for store
// failures; everything else is described by the FileResult.
func (l *Loader) LoadFile(ctx context.Context, path string) (FileResult, error) {
	result := FileResult{File: filepath.Base(path)}

	raw, err := os.ReadFile(path)
	if err != nil {
		return l.failed(result, err), nil
	}

	seed, err := validation.DecodeSeed(raw)
	if err != nil {
		return l.failed(result, err), nil
	}
	result.Slug = slug.Make(seed.Title)

	if !l.opts.Overwrite && result.Slug != "" {
		existing, err := l.target.GetIdea(ctx, result.Slug)
		switch {
		case err == nil:
			result.Status = StatusSkipped
			result.Message = fmt.Sprintf("already queued (%s)", existing.Status)
			return result, nil
		case !apperrors.Is(err, apperrors.ErrNotFound):
			return result, err
		}
	}

	if _, err := l.target.EnqueueSeed(ctx, seed); err != nil {
		if apperrors.Is(err, apperrors.ErrStoreUnavailable) {
			return result, err
		}
		return l.failed(result, err), nil
	}

	result.Status = StatusLoaded
	result.Message = "added to queue"
	l.log.Info().Str("file", result.File).Str("slug", result.Slug).Msg("Idea loaded")
	return result, nil
}

func (l *Loader) failed(result FileResult, err error) FileResult {
	result.Status = StatusFailed
	result.Message = err.Error()
	l.log.Warn().Err(err).Str("file", result.File).Msg("Idea seed rejected")
	return result
}
