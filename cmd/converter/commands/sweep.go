package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/doc-converter/cmd/converter/ui"
	"github.com/spherical-ai/doc-converter/internal/blobstore"
	"github.com/spherical-ai/doc-converter/internal/config"
	"github.com/spherical-ai/doc-converter/internal/registry"
	"github.com/spherical-ai/doc-converter/internal/service"
)

var (
	sweepGrace  string
	sweepDryRun bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete artifact blobs that no identity references",
	Long: `Scan the blob store for artifacts that are not referenced by any identity
and delete them. Blobs younger than the grace period are left alone so that
in-flight conversions are not affected.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVar(&sweepGrace, "grace", "", "minimum blob age to delete (default: conversion.sweep_grace_after)")
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "report orphans without deleting them")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	grace := cfg.Conversion.SweepGraceAfter
	if sweepGrace != "" {
		if grace, err = parseDuration(sweepGrace); err != nil {
			return fmt.Errorf("invalid --grace: %w", err)
		}
	}
	if floor := cfg.Conversion.MinSweepGrace(); grace < floor {
		return fmt.Errorf("invalid --grace: %s is below the minimum %s (conversion timeout plus %s)",
			grace, floor, config.SweepGraceMargin)
	}

	rt, err := service.Open(cmd.Context(), cfg, newLogger(os.Stderr))
	if err != nil {
		return err
	}
	defer rt.Close()

	var bar *ui.ProgressBar
	report, err := rt.Sweep(cmd.Context(), registry.SweepOptions{
		GraceAfter: grace,
		DryRun:     sweepDryRun,
		OnScan: func(total int) {
			bar = ui.NewProgressBar(int64(total), "Scanning blobs")
		},
		OnBlob: func(info blobstore.BlobInfo, orphan bool) {
			bar.Add(1)
		},
	})
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		ui.Error("Sweep failed: %v", err)
		return err
	}

	if sweepDryRun {
		ui.Success("Dry run: %d of %d blobs are orphaned", len(report.Orphaned), report.Scanned)
		for _, id := range report.Orphaned {
			fmt.Fprintf(os.Stdout, "  %s\n", id)
		}
		return nil
	}

	ui.Success("Deleted %d orphaned blobs (%d scanned)", report.Deleted, report.Scanned)
	if report.Failed > 0 {
		ui.Warn("%d blobs could not be deleted", report.Failed)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must not be negative")
	}
	return d, nil
}
