package ingestion

import (
	"github.com/Benny93/sweepy-go/internal/analysis"
	"github.com/Benny93/sweepy-go/internal/storage"
)

// Report converts a pipeline run into a storable report.
func (r *PipelineResult) Report(root string) *storage.Report {
	return storage.NewReport(root, r.Entrypoints, r.Result, storage.Stats{
		Files:        r.Files,
		Edges:        r.Edges,
		ParseErrors:  r.ParseErrors,
		Unreachable:  len(analysis.UnreachableFiles(r.Table, r.Result)),
		DurationSecs: r.DurationSecs,
	})
}
