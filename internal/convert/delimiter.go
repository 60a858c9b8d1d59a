package convert

import (
	"fmt"
	"unicode/utf8"

	"github.com/spherical-ai/doc-converter/internal/domain"
)

// Line delimiters accepted by the formatter.
const (
	LineDelimiterLF   = "\n"
	LineDelimiterCRLF = "\r\n"
)

// DelimiterConfig controls how extracted lines are encoded.
type DelimiterConfig struct {
	// FieldDelimiter separates fields within a row. Every source line is a
	// single field today, so it is validated and carried but not emitted.
	FieldDelimiter  string `json:"fieldDelimiter"`
	TextDelimiter   string `json:"textDelimiter"`
	LineDelimiter   string `json:"lineDelimiter"`
	EscapeCharacter string `json:"escapeCharacter"`
}

// DefaultDelimiters returns the CSV defaults.
func DefaultDelimiters() DelimiterConfig {
	return DelimiterConfig{
		FieldDelimiter:  ",",
		TextDelimiter:   `"`,
		LineDelimiter:   LineDelimiterLF,
		EscapeCharacter: `"`,
	}
}

// WithDefaults fills unset fields from DefaultDelimiters.
func (c DelimiterConfig) WithDefaults() DelimiterConfig {
	d := DefaultDelimiters()
	if c.FieldDelimiter == "" {
		c.FieldDelimiter = d.FieldDelimiter
	}
	if c.TextDelimiter == "" {
		c.TextDelimiter = d.TextDelimiter
	}
	if c.LineDelimiter == "" {
		c.LineDelimiter = d.LineDelimiter
	}
	if c.EscapeCharacter == "" {
		c.EscapeCharacter = d.EscapeCharacter
	}
	return c
}

// Validate requires single-character field, text and escape delimiters and a
// LF or CRLF line delimiter.
func (c DelimiterConfig) Validate() error {
	for _, f := range []struct {
		name, value string
	}{
		{"fieldDelimiter", c.FieldDelimiter},
		{"textDelimiter", c.TextDelimiter},
		{"escapeCharacter", c.EscapeCharacter},
	} {
		if utf8.RuneCountInString(f.value) != 1 || !utf8.ValidString(f.value) {
			return domain.InvalidInput(fmt.Sprintf("%s must be exactly one character", f.name), nil)
		}
		if f.value == "\n" || f.value == "\r" {
			return domain.InvalidInput(fmt.Sprintf("%s cannot be a line break", f.name), nil)
		}
	}

	if c.LineDelimiter != LineDelimiterLF && c.LineDelimiter != LineDelimiterCRLF {
		return domain.InvalidInput(`lineDelimiter must be "\n" or "\r\n"`, nil)
	}
	return nil
}

// ParseLineDelimiter accepts the literal delimiters plus their escaped and
// named spellings, which is what form fields usually carry.
func ParseLineDelimiter(s string) (string, error) {
	switch s {
	case "":
		return "", nil
	case "\n", `\n`, "lf", "LF":
		return LineDelimiterLF, nil
	case "\r\n", `\r\n`, "crlf", "CRLF":
		return LineDelimiterCRLF, nil
	default:
		return "", domain.InvalidInput(`lineDelimiter must be "\n" or "\r\n"`, nil)
	}
}
