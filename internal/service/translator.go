package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/gofrs/flock"

	"subtrans/internal/progress"
	"subtrans/internal/retry"
	"subtrans/internal/subtitle"
	"subtrans/internal/translator"
	"subtrans/pkg/log"
)

// progressStore is the slice of the progress package the driver uses.
type progressStore interface {
	Load(sourcePath string) *progress.Record
	Save(record *progress.Record) error
	Clear(sourcePath string) error
}

// SubTranslator drives one subtitle file through batch translation:
// read, split, resume, translate with retries, checkpoint after every
// batch, write the final file.
type SubTranslator struct {
	config TranslatorConfig

	reader     subtitle.Reader
	writer     subtitle.Writer
	translator translator.Translator
	progress   progressStore
	retry      retry.Policy

	state RunState
}

type Option func(*SubTranslator)

func WithProgressStore(store progressStore) Option {
	return func(t *SubTranslator) { t.progress = store }
}

func WithRetryPolicy(policy retry.Policy) Option {
	return func(t *SubTranslator) { t.retry = policy }
}

func WithReader(reader subtitle.Reader) Option {
	return func(t *SubTranslator) { t.reader = reader }
}

func WithWriter(writer subtitle.Writer) Option {
	return func(t *SubTranslator) { t.writer = writer }
}

// NewTranslator creates a new translator instance
func NewTranslator(config TranslatorConfig, batchTranslator translator.Translator, opts ...Option) (*SubTranslator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if batchTranslator == nil {
		return nil, NewError(ErrConfig, "translator not set")
	}

	t := &SubTranslator{
		config:     config,
		reader:     subtitle.NewReader(),
		writer:     subtitle.NewWriter(config.Bilingual),
		translator: batchTranslator,
		progress:   progress.NewFileStore(),
		retry:      retry.DefaultPolicy(),
		state:      StateInit,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// State returns the driver's current lifecycle state.
func (t *SubTranslator) State() RunState {
	return t.state
}

func (t *SubTranslator) setState(state RunState) {
	if t.state == state {
		return
	}
	log.Debug("Run state %s -> %s", t.state, state)
	t.state = state
}

// LockPath returns the lock file guarding concurrent runs on the same
// input.
func LockPath(inputPath string) string {
	return inputPath + ".progress.lock"
}

// Translate runs the whole pipeline for the configured input file.
// Batches execute strictly in order and the checkpoint on disk only
// ever advances, so a failed or interrupted run can be re-invoked
// with the same arguments to resume where it stopped.
func (t *SubTranslator) Translate(ctx context.Context) (*RunReport, error) {
	begin := time.Now()

	lock := flock.New(LockPath(t.config.InputPath))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, WrapError(err, ErrLocked, fmt.Sprintf("failed to acquire lock for %s", t.config.InputPath))
	}
	if !locked {
		return nil, NewError(ErrLocked, fmt.Sprintf("another run is already translating %s", t.config.InputPath)).
			WithContext("lock", LockPath(t.config.InputPath))
	}
	defer func() { _ = lock.Unlock() }()

	file, err := t.readInput()
	if err != nil {
		t.setState(StateFailed)
		return nil, err
	}
	log.Info("Loaded %d subtitles from %s. Target language: %s", len(file.Lines), t.config.InputPath, t.config.TargetLanguage)
	if t.config.SourceLanguage == "" {
		if name := subtitle.LanguageName(file.Language); name != "" {
			log.Info("Detected source language: %s", name)
		}
	}

	outputPath := t.config.ResolvedOutputPath()
	batches := translator.Split(file.Lines, t.config.BatchSize)

	record, startBatch := t.loadProgress(file, batches)
	if startBatch > 0 {
		log.Info("Resuming: %d/%d batches already translated", startBatch, len(batches))
	}

	for i := startBatch; i < len(batches); i++ {
		t.setState(StateTranslating)
		batch := batches[i]
		log.Info("Translating batch %d/%d (lines %s)", i+1, len(batches), batch.RangeLabel())

		var translated []string
		attempts, err := t.retry.Do(ctx, func(ctx context.Context) error {
			out, opErr := t.translator.TranslateBatch(ctx, batch)
			if opErr != nil {
				return opErr
			}
			translated = out
			return nil
		})
		if err != nil {
			t.setState(StateFailed)
			return nil, NewBatchError(i, batch.RangeLabel(), attempts, err)
		}

		applyBatch(file.Lines, batch, translated)

		record.MarkCompleted(i, translated)
		if err := t.progress.Save(record); err != nil {
			t.setState(StateFailed)
			return nil, WrapError(err, ErrFileWrite, "failed to save progress")
		}
	}

	if err := t.writer.Write(outputPath, file); err != nil {
		t.setState(StateFailed)
		return nil, WrapError(err, ErrFileWrite, fmt.Sprintf("failed to save translation results to %s", outputPath))
	}
	if len(batches) > 0 {
		if err := t.progress.Clear(t.config.InputPath); err != nil {
			log.Warn("Failed to remove progress file: %v", err)
		}
	}
	t.setState(StateCompleted)
	log.Info("Translation completed! File saved to: %s", outputPath)

	return &RunReport{
		InputPath:      t.config.InputPath,
		OutputPath:     outputPath,
		SourceLanguage: t.sourceLanguageName(file),
		TargetLanguage: t.config.TargetLanguage,
		TotalLines:     len(file.Lines),
		TotalBatches:   len(batches),
		ResumedBatches: startBatch,
		CharCount:      countCharacters(file.Lines),
		Duration:       time.Since(begin),
	}, nil
}

func (t *SubTranslator) readInput() (*subtitle.File, error) {
	file, err := t.reader.Read(t.config.InputPath)
	if err == nil {
		return file, nil
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, WrapError(err, ErrFileNotFound, fmt.Sprintf("file not found: %s", t.config.InputPath))
	case errors.Is(err, fs.ErrPermission):
		return nil, WrapError(err, ErrFileRead, fmt.Sprintf("cannot read file: %s", t.config.InputPath))
	default:
		return nil, WrapError(err, ErrParse, fmt.Sprintf("unable to parse SRT file: %s", t.config.InputPath))
	}
}

// loadProgress decides where the run starts. A record that does not
// match this run's input, batch size, target language and batch count
// is ignored entirely, never partially trusted. Stored translations
// of completed batches are re-applied so the final output is built
// without re-requesting them.
func (t *SubTranslator) loadProgress(file *subtitle.File, batches []translator.Batch) (*progress.Record, int) {
	fresh := progress.NewRecord(t.config.InputPath, t.config.BatchSize, t.config.TargetLanguage, len(batches))

	if t.config.Restart {
		if err := t.progress.Clear(t.config.InputPath); err != nil {
			log.Warn("Failed to remove old progress file: %v", err)
		}
		return fresh, 0
	}

	record := t.progress.Load(t.config.InputPath)
	if record == nil {
		return fresh, 0
	}
	if !record.Matches(t.config.InputPath, t.config.BatchSize, t.config.TargetLanguage, len(batches)) {
		log.Warn("Progress record does not match this run configuration, restarting from the beginning")
		return fresh, 0
	}
	if record.LastCompletedBatch < 0 {
		return record, 0
	}

	t.setState(StateResuming)
	for i := 0; i <= record.LastCompletedBatch; i++ {
		stored, ok := record.CompletedLines(i, batches[i].Size())
		if !ok {
			log.Warn("Progress record is missing lines for batch %d, restarting from the beginning", i+1)
			return fresh, 0
		}
		applyBatch(file.Lines, batches[i], stored)
	}
	return record, record.LastCompletedBatch + 1
}

func (t *SubTranslator) sourceLanguageName(file *subtitle.File) string {
	if t.config.SourceLanguage != "" {
		return t.config.SourceLanguage
	}
	return subtitle.LanguageName(file.Language)
}

func applyBatch(lines []subtitle.Line, batch translator.Batch, translated []string) {
	for j, text := range translated {
		lines[batch.Start+j].TranslatedText = text
	}
}
