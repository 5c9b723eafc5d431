package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"subtrans/internal/config"
	"subtrans/internal/llm"
	"subtrans/internal/translator"
	"subtrans/pkg/file"
	"subtrans/pkg/icron"
	"subtrans/pkg/log"
)

// WatchService periodically scans the configured directories for
// subtitle files without a translation and runs them through the
// batch pipeline, one file at a time.
type WatchService struct {
	cfg             config.Config
	cron            *cron.Cron
	history         HistoryStore
	lastTriggerTime time.Time

	translateFile func(ctx context.Context, inputPath string) error
}

type WatchOption func(*WatchService)

// WithHistory makes the scanner skip files recorded as completed and
// record the outcome of new runs.
func WithHistory(store HistoryStore) WatchOption {
	return func(s *WatchService) { s.history = store }
}

func withTranslateFunc(fn func(ctx context.Context, inputPath string) error) WatchOption {
	return func(s *WatchService) { s.translateFile = fn }
}

func NewWatchService(cfg config.Config, c *cron.Cron, opts ...WatchOption) *WatchService {
	s := &WatchService{
		cfg:  cfg,
		cron: c,
	}
	s.translateFile = s.runFile
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var singleflightGroup singleflight.Group

// Schedule registers the periodic scan with the cron runner. An
// overlapping trigger while a sweep is still running joins the
// in-flight sweep instead of starting a second one.
func (s *WatchService) Schedule(ctx context.Context) error {
	log.Info("Scheduling watch runs: %s", s.cfg.Watch.CronExpr)

	runFunc := func() {
		_, _, _ = singleflightGroup.Do("run", func() (any, error) {
			s.sweep(ctx)
			return nil, nil
		})
	}
	_, err := s.cron.AddFunc(s.cfg.Watch.CronExpr, runFunc)
	return err
}

// RunOnce performs a single sweep outside the cron schedule.
func (s *WatchService) RunOnce(ctx context.Context) error {
	triggered := time.Now()
	for _, dir := range s.cfg.Watch.Dirs {
		if err := s.run(ctx, dir); err != nil {
			return err
		}
	}
	s.lastTriggerTime = triggered
	return nil
}

func (s *WatchService) sweep(ctx context.Context) {
	triggered := time.Now()
	for _, dir := range s.cfg.Watch.Dirs {
		log.Info("Scanning dir %s", dir)
		if err := s.run(ctx, dir); err != nil {
			log.Error("Failed to run in dir %s: %v", dir, err)
		}
	}
	s.lastTriggerTime = triggered
}

func (s *WatchService) run(ctx context.Context, dir string) error {
	candidates, err := s.findCandidates(ctx, dir)
	if err != nil {
		return err
	}
	log.Info("Found %d subtitle files to translate in %s", len(candidates), dir)

	for _, input := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.translateFile(ctx, input); err != nil {
			log.Error("Failed to translate %s: %v", input, err)
		}
	}
	return nil
}

// findCandidates returns subtitle files under dir that were modified
// since the last trigger and do not have a translation yet.
func (s *WatchService) findCandidates(ctx context.Context, dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory %s does not exist", dir)
	}

	startTime, err := s.startTime()
	if err != nil {
		return nil, fmt.Errorf("failed to get start time: %w", err)
	}
	log.Info("Searching subtitle files modified after %v", startTime)

	recentFiles, err := file.FindRecentAfter(dir, startTime)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent files: %w", err)
	}

	target := s.cfg.Translate.TargetLanguage
	translatedSuffix := "." + cleanLanguage(target) + ".srt"

	var candidates []string
	for _, path := range recentFiles {
		if strings.ToLower(filepath.Ext(path)) != ".srt" {
			continue
		}
		// Skip files this tool produced itself.
		if strings.HasSuffix(filepath.Base(path), translatedSuffix) {
			continue
		}
		if _, err := os.Stat(ResolveOutputPath(path, target, s.cfg.Translate.OutputPath)); err == nil {
			log.Debug("Translation already exists for %s", path)
			continue
		}
		if s.history != nil {
			done, err := s.history.HasCompleted(ctx, path, target)
			if err != nil {
				log.Warn("Failed to check run history for %s: %v", path, err)
			} else if done {
				log.Debug("Run history already has %s", path)
				continue
			}
		}
		candidates = append(candidates, path)
	}
	return candidates, nil
}

// startTime returns the modification cutoff for the scan. The first
// sweep after startup widens the window to a week when the schedule
// fires frequently, so files added while the service was down are
// still picked up.
func (s *WatchService) startTime() (time.Time, error) {
	if s.lastTriggerTime.IsZero() {
		cronSchedule, err := icron.GetTriggerInfo(s.cfg.Watch.CronExpr, time.Now())
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to get cron schedule: %w", err)
		}

		if time.Now().Add(-24 * time.Hour).Before(cronSchedule.Last) {
			return time.Now().Add(-24 * 7 * time.Hour), nil
		}
		return cronSchedule.Last, nil
	}

	return s.lastTriggerTime, nil
}

func (s *WatchService) runFile(ctx context.Context, inputPath string) error {
	client, err := llm.NewClient(&llm.Config{
		APIKey:      s.cfg.LLM.APIKey,
		BaseURL:     s.cfg.LLM.BaseURL,
		Model:       s.cfg.LLM.Model,
		MaxTokens:   s.cfg.LLM.MaxTokens,
		Temperature: s.cfg.LLM.Temperature,
		Timeout:     s.cfg.LLM.Timeout,
	})
	if err != nil {
		return WrapError(err, ErrConfig, "failed to create LLM client")
	}

	batchTranslator := translator.NewLLMTranslator(
		client,
		s.cfg.Translate.SourceLanguage,
		s.cfg.Translate.TargetLanguage,
		s.cfg.LLM.WarmupDuration(),
	)

	translatorConfig := TranslatorConfig{
		InputPath:      inputPath,
		TargetLanguage: s.cfg.Translate.TargetLanguage,
		SourceLanguage: s.cfg.Translate.SourceLanguage,
		BatchSize:      s.cfg.Translate.BatchSize,
		OutputPath:     s.cfg.Translate.OutputPath,
		Bilingual:      s.cfg.Translate.Bilingual,
	}
	driver, err := NewTranslator(translatorConfig, batchTranslator)
	if err != nil {
		return err
	}

	report, err := driver.Translate(ctx)
	if s.history != nil {
		if herr := s.history.RecordRun(ctx, BuildRunRecord(translatorConfig, report, err)); herr != nil {
			log.Warn("Failed to record run history: %v", herr)
		}
	}
	if err != nil {
		return err
	}
	log.Info("Translated %s in %s (%d lines)", inputPath, report.Duration.Round(time.Millisecond), report.TotalLines)
	return nil
}
