package service

import (
	"fmt"
	"strings"
	"time"

	"subtrans/internal/subtitle"
)

// RunState tracks where a translation run is in its lifecycle.
type RunState int

const (
	StateInit RunState = iota
	StateResuming
	StateTranslating
	StateCompleted
	StateFailed
)

func (s RunState) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateResuming:
		return "Resuming"
	case StateTranslating:
		return "Translating"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// TranslatorConfig contains translator configuration
type TranslatorConfig struct {
	InputPath      string
	TargetLanguage string
	SourceLanguage string
	BatchSize      int

	// OutputPath may be empty (derive from the input), an existing
	// directory, or an exact file path.
	OutputPath string

	Bilingual bool
	Restart   bool
}

func (c TranslatorConfig) Validate() error {
	if strings.TrimSpace(c.InputPath) == "" {
		return NewError(ErrConfig, "input path is required")
	}
	if strings.TrimSpace(c.TargetLanguage) == "" {
		return NewError(ErrConfig, "target language is required")
	}
	if c.BatchSize <= 0 {
		return NewError(ErrConfig, fmt.Sprintf("batch size must be positive, got %d", c.BatchSize))
	}
	return nil
}

// ResolvedOutputPath applies the output naming rules to this run.
func (c TranslatorConfig) ResolvedOutputPath() string {
	return ResolveOutputPath(c.InputPath, c.TargetLanguage, c.OutputPath)
}

// RunReport summarizes a completed translation run.
type RunReport struct {
	InputPath      string
	OutputPath     string
	SourceLanguage string
	TargetLanguage string

	TotalLines     int
	TotalBatches   int
	ResumedBatches int
	CharCount      int

	Duration time.Duration
}

// countCharacters calculates total subtitle characters
func countCharacters(lines []subtitle.Line) int {
	total := 0
	for _, line := range lines {
		total += len(line.Text)
	}
	return total
}
