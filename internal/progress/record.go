package progress

import "time"

// Record captures how far a translation run got, at batch granularity.
// It also stores the translated lines of every finished batch, so a
// resumed run can rebuild prior output without re-requesting anything.
type Record struct {
	SourcePath         string           `json:"source_path"`
	BatchSize          int              `json:"batch_size"`
	TargetLang         string           `json:"target_lang"`
	LastCompletedBatch int              `json:"last_completed_batch"` // -1 when none
	TotalBatches       int              `json:"total_batches"`
	Batches            map[int][]string `json:"batches,omitempty"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewRecord creates an empty record for a fresh run.
func NewRecord(sourcePath string, batchSize int, targetLang string, totalBatches int) *Record {
	return &Record{
		SourcePath:         sourcePath,
		BatchSize:          batchSize,
		TargetLang:         targetLang,
		LastCompletedBatch: -1,
		TotalBatches:       totalBatches,
		Batches:            make(map[int][]string),
	}
}

// MarkCompleted stores batch i's translated lines and advances the
// checkpoint. The checkpoint never moves backwards.
func (r *Record) MarkCompleted(batchIndex int, lines []string) {
	if r.Batches == nil {
		r.Batches = make(map[int][]string)
	}
	r.Batches[batchIndex] = lines
	if batchIndex > r.LastCompletedBatch {
		r.LastCompletedBatch = batchIndex
	}
	r.UpdatedAt = time.Now().UTC()
}

// Matches reports whether this record may seed a resume of a run with
// the given shape. A mismatch on any field means the record belongs to
// a different configuration and must be ignored entirely, never
// partially trusted: a different batch size alone would desynchronize
// every offset.
func (r *Record) Matches(sourcePath string, batchSize int, targetLang string, totalBatches int) bool {
	if r == nil {
		return false
	}
	return r.SourcePath == sourcePath &&
		r.BatchSize == batchSize &&
		r.TargetLang == targetLang &&
		r.TotalBatches == totalBatches &&
		r.LastCompletedBatch >= -1 &&
		r.LastCompletedBatch < totalBatches
}

// CompletedLines returns the stored translation of finished batch i,
// but only when it holds exactly want lines.
func (r *Record) CompletedLines(batchIndex, want int) ([]string, bool) {
	if r == nil || batchIndex > r.LastCompletedBatch {
		return nil, false
	}
	lines, ok := r.Batches[batchIndex]
	if !ok || len(lines) != want {
		return nil, false
	}
	return lines, true
}

// Completed reports whether every batch has finished.
func (r *Record) Completed() bool {
	return r != nil && r.TotalBatches > 0 && r.LastCompletedBatch == r.TotalBatches-1
}
