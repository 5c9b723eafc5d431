package subtitle

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Reader is the interface for reading subtitle files
type Reader interface {
	Read(path string) (*File, error)
}

// Writer is the interface for writing subtitle files
type Writer interface {
	Write(path string, subtitle *File) error
}

// Line represents a single subtitle cue
type Line struct {
	Index          int           // cue ordinal from the source file
	StartTime      time.Duration // start time
	EndTime        time.Duration // end time
	Text           string        // source text, may span multiple lines
	TranslatedText string        // translated text, set once per cue
}

// File represents a parsed subtitle file
type File struct {
	Lines    []Line
	Path     string
	Language language.Tag
	Format   string // e.g. SRT
}

// FlattenText collapses a multi-line cue text into a single line so it
// can travel through line-oriented prompts and bilingual cue blocks.
func FlattenText(text string) string {
	text = strings.ReplaceAll(text, "\r", "")
	parts := strings.Split(text, "\n")
	kept := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// LanguageName returns the English display name of a detected language,
// or empty for the undetermined tag.
func LanguageName(tag language.Tag) string {
	if tag == language.Und {
		return ""
	}
	return display.English.Languages().Name(tag)
}
