package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"subtrans/internal/persistence"
)

// HistoryStore records finished runs. The watch scanner also consults
// it to skip inputs that were already translated, even when the output
// file has since been moved away.
type HistoryStore interface {
	RecordRun(ctx context.Context, run persistence.RunRecord) error
	HasCompleted(ctx context.Context, sourcePath, targetLang string) (bool, error)
}

// BuildRunRecord turns the outcome of a run into a history row.
func BuildRunRecord(config TranslatorConfig, report *RunReport, runErr error) persistence.RunRecord {
	now := time.Now().UTC()
	run := persistence.RunRecord{
		ID:         uuid.NewString(),
		SourcePath: config.InputPath,
		OutputPath: config.ResolvedOutputPath(),
		SourceLang: config.SourceLanguage,
		TargetLang: config.TargetLanguage,
		Status:     persistence.RunCompleted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if report != nil {
		run.OutputPath = report.OutputPath
		run.SourceLang = report.SourceLanguage
		run.TotalLines = report.TotalLines
		run.TotalBatches = report.TotalBatches
		run.ResumedBatches = report.ResumedBatches
		run.Duration = report.Duration
	}
	if runErr != nil {
		run.Status = persistence.RunFailed
		run.Error = runErr.Error()
	}
	return run
}
