package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		cfg   DelimiterConfig
		want  string
	}{
		{
			name:  "one row per non-blank line across pages",
			pages: []string{"Alpha\nBeta\nGamma\n", "Delta"},
			cfg:   DefaultDelimiters(),
			want:  "\"Alpha\"\n\"Beta\"\n\"Gamma\"\n\"Delta\"",
		},
		{
			name:  "text delimiter is escaped",
			pages: []string{`He said "hi"`},
			cfg:   DefaultDelimiters(),
			want:  `"He said ""hi"""`,
		},
		{
			name:  "whitespace-only lines are dropped",
			pages: []string{"one\n   \n\t\ntwo"},
			cfg:   DefaultDelimiters(),
			want:  "\"one\"\n\"two\"",
		},
		{
			name:  "carriage returns are stripped from line ends",
			pages: []string{"one\r\ntwo\r\n"},
			cfg:   DefaultDelimiters(),
			want:  "\"one\"\n\"two\"",
		},
		{
			name:  "embedded breaks collapse to a space",
			pages: []string{"left\rright\fend"},
			cfg:   DefaultDelimiters(),
			want:  `"left right end"`,
		},
		{
			name:  "crlf line delimiter",
			pages: []string{"a\nb"},
			cfg:   DelimiterConfig{FieldDelimiter: ";", TextDelimiter: "'", LineDelimiter: "\r\n", EscapeCharacter: `\`},
			want:  "'a'\r\n'b'",
		},
		{
			name:  "custom escape character",
			pages: []string{"it's"},
			cfg:   DelimiterConfig{FieldDelimiter: ",", TextDelimiter: "'", LineDelimiter: "\n", EscapeCharacter: `\`},
			want:  `'it\'s'`,
		},
		{
			name:  "leading and inner whitespace is kept",
			pages: []string{"  indented  text"},
			cfg:   DefaultDelimiters(),
			want:  `"  indented  text"`,
		},
		{
			name:  "no pages",
			pages: nil,
			cfg:   DefaultDelimiters(),
			want:  "",
		},
		{
			name:  "only blank text",
			pages: []string{"\n\n", "   "},
			cfg:   DefaultDelimiters(),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.pages, tt.cfg)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestFormat_NoTrailingDelimiter(t *testing.T) {
	got := string(Format([]string{"a\nb\n\n"}, DefaultDelimiters()))
	assert.NotEqual(t, byte('\n'), got[len(got)-1])
}

func TestCountRows(t *testing.T) {
	assert.Equal(t, 4, CountRows([]string{"Alpha\nBeta\nGamma\n", "Delta"}))
	assert.Equal(t, 0, CountRows([]string{" \n\t"}))
	assert.Equal(t, 0, CountRows(nil))
}
