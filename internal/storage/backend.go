// Package storage persists analysis reports so earlier runs can be listed,
// compared and served without re-analyzing.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/sweepy-go/internal/analysis"
)

// ErrNotFound is returned when a requested report does not exist.
var ErrNotFound = errors.New("report not found")

// Stats summarizes one analysis run.
type Stats struct {
	Files        int     `json:"files"`
	Edges        int     `json:"edges"`
	ParseErrors  int     `json:"parse_errors"`
	Reachable    int     `json:"reachable"`
	Unreachable  int     `json:"unreachable"`
	Unused       int     `json:"unused"`
	DurationSecs float64 `json:"duration_secs"`
}

// Report is a stored analysis run.
type Report struct {
	// ID is a random UUID assigned by NewReport.
	ID string `json:"id"`

	// Root is the analyzed directory.
	Root string `json:"root"`

	// CreatedAt is the UTC time the report was created.
	CreatedAt time.Time `json:"created_at"`

	// Entrypoints are the root-relative entrypoints used.
	Entrypoints []string `json:"entrypoints"`

	Stats  Stats            `json:"stats"`
	Result *analysis.Result `json:"result"`
}

// NewReport creates a report with a fresh ID and timestamp.
func NewReport(root string, entrypoints []string, result *analysis.Result, stats Stats) *Report {
	stats.Reachable = len(result.ReachableFiles)
	stats.Unused = len(result.UnusedExports)
	return &Report{
		ID:          uuid.NewString(),
		Root:        root,
		CreatedAt:   time.Now().UTC(),
		Entrypoints: entrypoints,
		Stats:       stats,
		Result:      result,
	}
}

// ReportStore defines the interface for report storage implementations.
//
// Implementations must be thread-safe and support concurrent access.
type ReportStore interface {
	// Initialize opens or creates the store at the given path.
	// If readOnly is true, the store is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the store.
	Close() error

	// SaveReport stores a report and makes it the latest.
	SaveReport(ctx context.Context, r *Report) error

	// GetReport returns the report with the given ID, or ErrNotFound.
	GetReport(ctx context.Context, id string) (*Report, error)

	// LatestReport returns the most recently created report, or ErrNotFound.
	LatestReport(ctx context.Context) (*Report, error)

	// ListReports returns up to limit reports, newest first. A limit of zero
	// or less returns every report.
	ListReports(ctx context.Context, limit int) ([]*Report, error)

	// DeleteReport removes a report. Deleting a missing report returns ErrNotFound.
	DeleteReport(ctx context.Context, id string) error

	// Prune keeps the newest keep reports and deletes the rest, returning
	// the number deleted.
	Prune(ctx context.Context, keep int) (int, error)
}
