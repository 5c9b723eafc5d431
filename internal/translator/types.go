package translator

import (
	"context"
	"fmt"

	"subtrans/internal/subtitle"
)

// Batch is a contiguous, order-preserving slice of subtitle lines.
// Start and End are offsets into the full line sequence; Index is the
// zero-based batch ordinal.
type Batch struct {
	Index int
	Start int
	End   int
	Lines []subtitle.Line
}

// Size returns the number of lines in the batch.
func (b Batch) Size() int {
	return len(b.Lines)
}

// RangeLabel renders the 1-based entry range for log and error
// messages, e.g. "11-20".
func (b Batch) RangeLabel() string {
	return fmt.Sprintf("%d-%d", b.Start+1, b.End)
}

// Translator turns one batch into translated lines, exactly one per
// source line.
type Translator interface {
	TranslateBatch(ctx context.Context, batch Batch) ([]string, error)
}
