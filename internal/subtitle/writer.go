package subtitle

import (
	"bufio"
	"fmt"
	"os"
	"time"
)

// SRTWriter writes SRT subtitle files. With Bilingual set, each cue's
// text region carries the translated line first and the flattened
// source line second.
type SRTWriter struct {
	Bilingual bool
}

// NewWriter creates a new subtitle file writer
func NewWriter(bilingual bool) Writer {
	return &SRTWriter{Bilingual: bilingual}
}

// Write renders the subtitle file to the given path
func (w *SRTWriter) Write(path string, subtitle *File) error {
	if subtitle == nil {
		return fmt.Errorf("subtitle data is empty")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	for _, line := range subtitle.Lines {
		fmt.Fprintf(writer, "%d\n", line.Index)
		fmt.Fprintf(writer, "%s --> %s\n", formatDuration(line.StartTime), formatDuration(line.EndTime))
		fmt.Fprintf(writer, "%s\n\n", w.renderText(line))
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// renderText builds a cue's text region. Untranslated cues fall back to
// their source text.
func (w *SRTWriter) renderText(line Line) string {
	if line.TranslatedText == "" {
		return line.Text
	}
	if w.Bilingual {
		return line.TranslatedText + "\n" + FlattenText(line.Text)
	}
	return line.TranslatedText
}

// formatDuration formats time.Duration into the SRT timestamp form
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}
