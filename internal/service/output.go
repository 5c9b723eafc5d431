package service

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// cleanLanguage reduces a language name to the characters safe in a
// filename suffix, e.g. "Brazilian Portuguese" -> "BrazilianPortuguese".
func cleanLanguage(lang string) string {
	var sb strings.Builder
	for _, r := range lang {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// DefaultOutputName returns the output filename used when none is
// given: the input stem plus the cleaned target language, e.g.
// "movie.srt" + "German" -> "movie.German.srt".
func DefaultOutputName(inputPath, targetLang string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "." + cleanLanguage(targetLang) + ".srt"
}

// ResolveOutputPath decides where the translated file goes. An empty
// output argument places the default name next to the input. An
// argument naming an existing directory (or ending with a path
// separator) places the default name inside it. Anything else is used
// verbatim as the output file path.
func ResolveOutputPath(inputPath, targetLang, output string) string {
	defaultName := DefaultOutputName(inputPath, targetLang)
	if output == "" {
		return filepath.Join(filepath.Dir(inputPath), defaultName)
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, defaultName)
	}
	if strings.HasSuffix(output, string(os.PathSeparator)) || strings.HasSuffix(output, "/") {
		return filepath.Join(output, defaultName)
	}
	return output
}
