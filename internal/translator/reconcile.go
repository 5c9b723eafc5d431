package translator

import (
	"regexp"
	"strconv"
	"strings"

	"subtrans/pkg/log"
)

// numberedLineRE matches the local numbering prefixes the prompt asks
// for, plus common variants models produce: "3. text", "3) text",
// "3: text", "3 - text", "[3] text". A bare leading number without a
// delimiter is left alone so translations that start with a number
// survive intact.
var numberedLineRE = regexp.MustCompile(`^\s*(?:\[(\d+)\]|(\d+)\s*[.):-])\s*`)

// splitNumberPrefix strips a numbering prefix from a reply line,
// returning the parsed number and the remaining text.
func splitNumberPrefix(line string) (int, string, bool) {
	m := numberedLineRE.FindStringSubmatch(line)
	if m == nil {
		return 0, line, false
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, line, false
	}
	return n, line[len(m[0]):], true
}

// Reconcile parses a raw model reply against the batch's source lines
// and always returns exactly len(sources) translated lines. Numbered
// reply lines land in their numbered slot; the rest fill remaining
// slots in order. Missing lines are padded with the corresponding
// source text as a visible fallback, surplus lines are dropped. A shape
// mismatch never fails the batch.
func Reconcile(raw string, sources []string) []string {
	expected := len(sources)
	out := make([]string, expected)
	filled := make([]bool, expected)

	var overflow []string
	parsed := 0
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		parsed++

		n, rest, ok := splitNumberPrefix(line)
		if ok && n >= 1 && n <= expected {
			if !filled[n-1] {
				out[n-1] = rest
				filled[n-1] = true
			} else {
				// duplicate number, keep the content for positional fill
				overflow = append(overflow, rest)
			}
			continue
		}
		// out-of-range numbers are more likely part of the translation
		// than our numbering, so the line is kept whole
		overflow = append(overflow, line)
	}

	next := 0
	for i := range out {
		if filled[i] {
			continue
		}
		if next < len(overflow) {
			out[i] = overflow[next]
			filled[i] = true
			next++
		}
	}

	if dropped := len(overflow) - next; dropped > 0 {
		log.Warn("model returned %d lines for a %d-line batch, dropping %d extra", parsed, expected, dropped)
	}

	missing := 0
	for i := range out {
		if !filled[i] {
			out[i] = sources[i]
			missing++
		}
	}
	if missing > 0 {
		log.Warn("model returned %d lines for a %d-line batch, keeping source text for %d missing", parsed, expected, missing)
	}

	return out
}
