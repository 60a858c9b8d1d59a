package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/doc-converter/cmd/converter/ui"
	"github.com/spherical-ai/doc-converter/internal/convert"
	"github.com/spherical-ai/doc-converter/internal/domain"
	"github.com/spherical-ai/doc-converter/internal/registry"
)

var (
	convertOutput  string
	convertTimeout string
	convertDelims  convert.DelimiterConfig
	convertLineEnd string
)

var convertCmd = &cobra.Command{
	Use:   "convert <input.pdf>",
	Short: "Convert a local PDF into a delimited file",
	Long: `Extract the text of a local PDF and write one quoted row per non-blank
line. The output defaults to the input name with a .csv extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	defaults := convert.DefaultDelimiters()
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output path (default: input name with .csv)")
	convertCmd.Flags().StringVar(&convertTimeout, "timeout", "60s", "conversion timeout")
	convertCmd.Flags().StringVar(&convertDelims.FieldDelimiter, "field-delimiter", defaults.FieldDelimiter, "field delimiter")
	convertCmd.Flags().StringVar(&convertDelims.TextDelimiter, "text-delimiter", defaults.TextDelimiter, "text delimiter")
	convertCmd.Flags().StringVar(&convertDelims.EscapeCharacter, "escape", defaults.EscapeCharacter, "escape character for the text delimiter")
	convertCmd.Flags().StringVar(&convertLineEnd, "line-delimiter", "lf", "line delimiter (lf or crlf)")
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]

	timeout, err := parseDuration(convertTimeout)
	if err != nil {
		return fmt.Errorf("invalid --timeout: %w", err)
	}

	lineDelimiter, err := convert.ParseLineDelimiter(convertLineEnd)
	if err != nil {
		return err
	}
	cfg := convertDelims
	cfg.LineDelimiter = lineDelimiter
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	doc, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if !convert.DetectPDF(doc) {
		return domain.InvalidInput(fmt.Sprintf("%s is not a PDF", input), nil)
	}

	output := convertOutput
	if output == "" {
		output = filepath.Join(filepath.Dir(input), registry.DerivedName(input))
	}

	pipeline := convert.NewPipeline(convert.NewFitzExtractor(), timeout, newLogger(os.Stderr))

	spin := ui.NewSpinner(fmt.Sprintf("Converting %s", filepath.Base(input)))
	spin.Start()
	result, err := pipeline.Convert(cmd.Context(), doc, cfg)
	spin.Stop()
	if err != nil {
		ui.Error("Conversion failed: %s", domain.MessageOf(err))
		return err
	}

	if err := os.WriteFile(output, result.Data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	ui.Success("Converted %s", filepath.Base(input))
	ui.Field("Output", output)
	ui.Field("Pages", result.PageCount)
	ui.Field("Rows", result.RowCount)
	ui.Field("Bytes", len(result.Data))
	ui.Field("Checksum", registry.Checksum(result.Data))
	if ui.Verbose() {
		ui.Field("Duration", result.Duration)
	}
	if result.RowCount == 0 {
		ui.Warn("No text was found; the output file is empty")
	}
	return nil
}
