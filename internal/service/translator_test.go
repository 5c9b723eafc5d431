package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"subtrans/internal/llm"
	"subtrans/internal/progress"
	"subtrans/internal/retry"
	"subtrans/internal/subtitle"
	"subtrans/internal/translator"
)

// Mock implementations
type mockBatchTranslator struct {
	mock.Mock
}

func (m *mockBatchTranslator) TranslateBatch(ctx context.Context, batch translator.Batch) ([]string, error) {
	args := m.Called(ctx, batch)
	if ret := args.Get(0); ret != nil {
		return ret.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// funcTranslator scripts per-batch behavior and records which batches
// were requested.
type funcTranslator struct {
	fn       func(batch translator.Batch) ([]string, error)
	requests []int
}

func (f *funcTranslator) TranslateBatch(_ context.Context, batch translator.Batch) ([]string, error) {
	f.requests = append(f.requests, batch.Index)
	return f.fn(batch)
}

func echoBatch(batch translator.Batch) ([]string, error) {
	out := make([]string, 0, batch.Size())
	for _, line := range batch.Lines {
		out = append(out, subtitle.FlattenText(line.Text))
	}
	return out, nil
}

// failingProgressStore rejects every save.
type failingProgressStore struct{}

func (failingProgressStore) Load(string) *progress.Record { return nil }
func (failingProgressStore) Save(*progress.Record) error  { return errors.New("disk full") }
func (failingProgressStore) Clear(string) error           { return nil }

func writeSRT(t *testing.T, dir, name string, count int) string {
	t.Helper()
	var sb strings.Builder
	for i := 1; i <= count; i++ {
		sb.WriteString(fmt.Sprintf("%d\n00:00:%02d,000 --> 00:00:%02d,500\nline %d\n\n", i, i, i, i))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func instantRetry() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

func TestTranslate_SingleBatchSuccess(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 3)

	mockTrans := &mockBatchTranslator{}
	mockTrans.On("TranslateBatch", mock.Anything, mock.AnythingOfType("translator.Batch")).
		Return([]string{"eins", "zwei", "drei"}, nil).Once()

	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
		Bilingual:      true,
	}, mockTrans)
	require.NoError(t, err)

	report, err := driver.Translate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, StateCompleted, driver.State())
	assert.Equal(t, 3, report.TotalLines)
	assert.Equal(t, 1, report.TotalBatches)
	assert.Equal(t, 0, report.ResumedBatches)
	assert.Equal(t, "German", report.TargetLanguage)

	wantOutput := filepath.Join(filepath.Dir(input), "movie.German.srt")
	assert.Equal(t, wantOutput, report.OutputPath)

	content, err := os.ReadFile(wantOutput)
	require.NoError(t, err)
	assert.Contains(t, string(content), "eins\nline 1")
	assert.Contains(t, string(content), "drei\nline 3")

	// Progress file is removed once the run completes.
	_, err = os.Stat(progress.PathFor(input))
	assert.True(t, os.IsNotExist(err))

	mockTrans.AssertExpectations(t)
}

func TestTranslate_FailedBatchKeepsCheckpoint(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 25)

	trans := &funcTranslator{fn: func(batch translator.Batch) ([]string, error) {
		if batch.Index == 1 {
			return nil, &llm.StatusError{StatusCode: 500, Body: "boom"}
		}
		return echoBatch(batch)
	}}

	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, trans, WithRetryPolicy(instantRetry()))
	require.NoError(t, err)

	report, err := driver.Translate(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Equal(t, StateFailed, driver.State())

	assert.True(t, IsErrorType(err, ErrBatchTranslation))
	assert.Contains(t, err.Error(), "batch 2 (lines 11-20) failed after 3 attempts")

	// Batch 0 once, batch 1 three times (retries), batch 2 never.
	assert.Equal(t, []int{0, 1, 1, 1}, trans.requests)

	// No output was written.
	_, statErr := os.Stat(filepath.Join(filepath.Dir(input), "movie.German.srt"))
	assert.True(t, os.IsNotExist(statErr))

	// The checkpoint survives the failure.
	record := progress.NewFileStore().Load(input)
	require.NotNil(t, record)
	assert.Equal(t, 0, record.LastCompletedBatch)
	assert.Equal(t, 3, record.TotalBatches)
}

func TestTranslate_ResumeSkipsCompletedBatches(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 25)

	// First run fails on the second batch.
	failing := &funcTranslator{fn: func(batch translator.Batch) ([]string, error) {
		if batch.Index == 1 {
			return nil, &llm.StatusError{StatusCode: 503}
		}
		return echoBatch(batch)
	}}
	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, failing, WithRetryPolicy(instantRetry()))
	require.NoError(t, err)
	_, err = driver.Translate(context.Background())
	require.Error(t, err)

	// Second run with the same arguments resumes after batch 0.
	resumed := &funcTranslator{fn: echoBatch}
	driver, err = NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, resumed, WithRetryPolicy(instantRetry()))
	require.NoError(t, err)

	report, err := driver.Translate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, resumed.requests, "completed batches must never be re-requested")
	assert.Equal(t, 1, report.ResumedBatches)
	assert.Equal(t, 3, report.TotalBatches)
	assert.Equal(t, StateCompleted, driver.State())

	// The resumed run still produces a full output file.
	content, err := os.ReadFile(report.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "line 1")
	assert.Contains(t, string(content), "line 25")

	_, statErr := os.Stat(progress.PathFor(input))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTranslate_MismatchedBatchSizeRestarts(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 25)

	failing := &funcTranslator{fn: func(batch translator.Batch) ([]string, error) {
		if batch.Index == 1 {
			return nil, &llm.StatusError{StatusCode: 500}
		}
		return echoBatch(batch)
	}}
	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, failing, WithRetryPolicy(instantRetry()))
	require.NoError(t, err)
	_, err = driver.Translate(context.Background())
	require.Error(t, err)

	// Same input, different batch size: the old record must be ignored.
	fresh := &funcTranslator{fn: echoBatch}
	driver, err = NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      5,
	}, fresh, WithRetryPolicy(instantRetry()))
	require.NoError(t, err)

	report, err := driver.Translate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2, 3, 4}, fresh.requests)
	assert.Equal(t, 0, report.ResumedBatches)
	assert.Equal(t, 5, report.TotalBatches)
}

func TestTranslate_RestartFlagIgnoresCheckpoint(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 12)

	failing := &funcTranslator{fn: func(batch translator.Batch) ([]string, error) {
		if batch.Index == 1 {
			return nil, &llm.StatusError{StatusCode: 500}
		}
		return echoBatch(batch)
	}}
	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, failing, WithRetryPolicy(instantRetry()))
	require.NoError(t, err)
	_, err = driver.Translate(context.Background())
	require.Error(t, err)

	restarted := &funcTranslator{fn: echoBatch}
	driver, err = NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
		Restart:        true,
	}, restarted, WithRetryPolicy(instantRetry()))
	require.NoError(t, err)

	report, err := driver.Translate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, restarted.requests)
	assert.Equal(t, 0, report.ResumedBatches)
}

func TestTranslate_EchoRoundTrip(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 4)

	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      2,
		Bilingual:      true,
	}, &funcTranslator{fn: echoBatch})
	require.NoError(t, err)

	report, err := driver.Translate(context.Background())
	require.NoError(t, err)

	out, err := subtitle.NewReader().Read(report.OutputPath)
	require.NoError(t, err)
	require.Len(t, out.Lines, 4)
	for i, line := range out.Lines {
		want := fmt.Sprintf("line %d\nline %d", i+1, i+1)
		assert.Equal(t, want, line.Text, "echo translation keeps the source line")
	}
}

func TestTranslate_RerunProducesIdenticalOutput(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 7)

	run := func() []byte {
		driver, err := NewTranslator(TranslatorConfig{
			InputPath:      input,
			TargetLanguage: "German",
			BatchSize:      3,
			Bilingual:      true,
		}, &funcTranslator{fn: echoBatch})
		require.NoError(t, err)

		report, err := driver.Translate(context.Background())
		require.NoError(t, err)

		content, err := os.ReadFile(report.OutputPath)
		require.NoError(t, err)
		return content
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}

func TestTranslate_NonTransientErrorFailsFast(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 5)

	trans := &funcTranslator{fn: func(translator.Batch) ([]string, error) {
		return nil, errors.New("no choices in response")
	}}
	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, trans, WithRetryPolicy(instantRetry()))
	require.NoError(t, err)

	_, err = driver.Translate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 1 attempts")
	assert.Len(t, trans.requests, 1)
}

func TestTranslate_EmptyInputCompletes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.srt")
	require.NoError(t, os.WriteFile(input, nil, 0o644))

	trans := &funcTranslator{fn: echoBatch}
	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, trans)
	require.NoError(t, err)

	report, err := driver.Translate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, driver.State())
	assert.Equal(t, 0, report.TotalBatches)
	assert.Empty(t, trans.requests)

	// An empty output file is still produced.
	info, err := os.Stat(report.OutputPath)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	_, statErr := os.Stat(progress.PathFor(input))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTranslate_MissingInput(t *testing.T) {
	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      filepath.Join(t.TempDir(), "missing.srt"),
		TargetLanguage: "German",
		BatchSize:      10,
	}, &funcTranslator{fn: echoBatch})
	require.NoError(t, err)

	_, err = driver.Translate(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrFileNotFound))
}

func TestTranslate_ProgressSaveFailureIsFatal(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 3)

	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, &funcTranslator{fn: echoBatch}, WithProgressStore(failingProgressStore{}))
	require.NoError(t, err)

	_, err = driver.Translate(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrFileWrite))
}

func TestTranslate_LockedInputRefusesSecondRun(t *testing.T) {
	input := writeSRT(t, t.TempDir(), "movie.srt", 3)

	held := flock.New(LockPath(input))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = held.Unlock() }()

	driver, err := NewTranslator(TranslatorConfig{
		InputPath:      input,
		TargetLanguage: "German",
		BatchSize:      10,
	}, &funcTranslator{fn: echoBatch})
	require.NoError(t, err)

	_, err = driver.Translate(context.Background())
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrLocked))
}

func TestNewTranslator_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewTranslator(TranslatorConfig{TargetLanguage: "German", BatchSize: 10}, &funcTranslator{fn: echoBatch})
	assert.True(t, IsErrorType(err, ErrConfig), "missing input path")

	_, err = NewTranslator(TranslatorConfig{InputPath: "a.srt", BatchSize: 10}, &funcTranslator{fn: echoBatch})
	assert.True(t, IsErrorType(err, ErrConfig), "missing target language")

	_, err = NewTranslator(TranslatorConfig{InputPath: "a.srt", TargetLanguage: "German", BatchSize: 0}, &funcTranslator{fn: echoBatch})
	assert.True(t, IsErrorType(err, ErrConfig), "non-positive batch size")

	_, err = NewTranslator(TranslatorConfig{InputPath: "a.srt", TargetLanguage: "German", BatchSize: 10}, nil)
	assert.True(t, IsErrorType(err, ErrConfig), "nil translator")
}
