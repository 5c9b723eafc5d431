package translator

import (
	"fmt"
	"strings"

	"subtrans/internal/subtitle"
)

// DefaultBatchSize is the number of lines sent per request when the
// configuration does not say otherwise.
const DefaultBatchSize = 10

const systemPrompt = "You are a professional subtitle translator."

// Split partitions lines into fixed-size batches. Given N lines and
// size B it produces ceil(N/B) batches covering all lines exactly once
// in order; the last batch may be shorter. A batchSize below 1 is
// treated as 1.
func Split(lines []subtitle.Line, batchSize int) []Batch {
	if batchSize < 1 {
		batchSize = 1
	}
	if len(lines) == 0 {
		return nil
	}

	batches := make([]Batch, 0, (len(lines)+batchSize-1)/batchSize)
	for start := 0; start < len(lines); start += batchSize {
		end := min(start+batchSize, len(lines))
		batches = append(batches, Batch{
			Index: len(batches),
			Start: start,
			End:   end,
			Lines: lines[start:end],
		})
	}
	return batches
}

// buildPrompt renders the request payload for one batch. Lines are
// numbered 1..k locally, independent of their SRT ordinals, so the
// model sees a compact numbering scheme the reconciler can key on.
func buildPrompt(sources []string, sourceLang, targetLang string) string {
	var prompt strings.Builder

	if sourceLang != "" {
		fmt.Fprintf(&prompt, "Translate the following numbered subtitle lines from %s into %s.\n\n", sourceLang, targetLang)
	} else {
		fmt.Fprintf(&prompt, "Translate the following numbered subtitle lines into %s.\n\n", targetLang)
	}

	prompt.WriteString("STRICT RULES:\n")
	prompt.WriteString("1. Return ONLY the translated lines, keeping the same \"N. \" numbering.\n")
	fmt.Fprintf(&prompt, "2. Output exactly %d lines, one per input line.\n", len(sources))
	prompt.WriteString("3. Do not merge, split, reorder, or omit lines.\n")
	prompt.WriteString("4. Do not add explanations, notes, or markdown.\n\n")

	for i, text := range sources {
		fmt.Fprintf(&prompt, "%d. %s\n", i+1, text)
	}

	return prompt.String()
}
