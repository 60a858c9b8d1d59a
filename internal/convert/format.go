package convert

import (
	"regexp"
	"strings"
)

// pageBreak separates the text of consecutive pages before line splitting.
const pageBreak = "\n"

var embeddedBreaks = regexp.MustCompile("[\r\n\v\f\u0085\u2028\u2029]+")

// Format encodes page texts as delimited rows: one row per non-blank line,
// each wrapped in the text delimiter with embedded text delimiters escaped.
// It never emits a trailing line delimiter; no lines yields an empty result.
func Format(pages []string, cfg DelimiterConfig) []byte {
	text := strings.Join(pages, pageBreak)
	lines := strings.Split(text, "\n")

	var b strings.Builder
	rows := 0
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if rows > 0 {
			b.WriteString(cfg.LineDelimiter)
		}
		b.WriteString(cfg.TextDelimiter)
		b.WriteString(encodeField(line, cfg))
		b.WriteString(cfg.TextDelimiter)
		rows++
	}
	return []byte(b.String())
}

func encodeField(line string, cfg DelimiterConfig) string {
	escaped := strings.ReplaceAll(line, cfg.TextDelimiter, cfg.EscapeCharacter+cfg.TextDelimiter)
	return embeddedBreaks.ReplaceAllString(escaped, " ")
}

// CountRows returns the number of rows Format would emit for pages.
func CountRows(pages []string) int {
	n := 0
	for _, line := range strings.Split(strings.Join(pages, pageBreak), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
