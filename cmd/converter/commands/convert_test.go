package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = parseDuration("-1h")
	assert.Error(t, err)

	_, err = parseDuration("soon")
	assert.Error(t, err)
}

func TestConvertCommand_RejectsNonPDF(t *testing.T) {
	input := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(input, []byte("plain text"), 0o644))

	rootCmd.SetArgs([]string{"--no-color", "convert", input})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not a PDF")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(input), "notes.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestConvertCommand_RejectsBadLineDelimiter(t *testing.T) {
	input := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(input, []byte("%PDF-1.4"), 0o644))

	rootCmd.SetArgs([]string{"--no-color", "convert", "--line-delimiter", "tab", input})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		convertLineEnd = "lf"
	})

	assert.Error(t, Execute())
}

func TestSweepCommand_RejectsShortGrace(t *testing.T) {
	t.Setenv("AUTH_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("CONFIG_PATH", "")

	for _, grace := range []string{"0s", "1m"} {
		rootCmd.SetArgs([]string{"--no-color", "sweep", "--dry-run", "--grace", grace})
		rootCmd.SetOut(&bytes.Buffer{})
		rootCmd.SetErr(&bytes.Buffer{})

		err := Execute()
		require.Error(t, err, grace)
		assert.Contains(t, err.Error(), "below the minimum")
	}

	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		sweepGrace = ""
		sweepDryRun = false
	})
}
