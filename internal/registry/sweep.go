package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spherical-ai/doc-converter/internal/blobstore"
	"github.com/spherical-ai/doc-converter/internal/domain"
)

// SweepOptions controls an orphan sweep.
type SweepOptions struct {
	// GraceAfter protects blobs younger than this; a conversion that just
	// wrote its bytes may not have appended its reference yet. Values below
	// the registry's minimum are rejected.
	GraceAfter time.Duration
	DryRun     bool

	// OnScan receives the number of blobs found; OnBlob is called for each
	// one as it is examined.
	OnScan func(total int)
	OnBlob func(info blobstore.BlobInfo, orphan bool)
}

// SweepReport summarizes a sweep.
type SweepReport struct {
	Scanned  int
	Orphaned []string
	Deleted  int
	Failed   int
}

// Sweep deletes blobs that no identity references and that are older than
// the grace period.
func (r *Registry) Sweep(ctx context.Context, opts SweepOptions) (*SweepReport, error) {
	if opts.GraceAfter < r.minSweepGrace {
		return nil, domain.InvalidInput(
			fmt.Sprintf("sweep grace %s is below the minimum %s", opts.GraceAfter, r.minSweepGrace), nil)
	}

	referenced, err := r.identities.ArtifactIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list referenced artifacts: %w", err)
	}

	blobs, err := r.blobs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	if opts.OnScan != nil {
		opts.OnScan(len(blobs))
	}

	cutoff := r.now().Add(-opts.GraceAfter)
	report := &SweepReport{}

	for _, info := range blobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		_, used := referenced[info.ID]
		orphan := !used && info.CreatedAt.Before(cutoff)
		if opts.OnBlob != nil {
			opts.OnBlob(info, orphan)
		}
		if !orphan {
			continue
		}

		report.Orphaned = append(report.Orphaned, info.ID)
		if opts.DryRun {
			continue
		}

		err := r.blobs.Delete(ctx, info.ID)
		if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			report.Failed++
			r.logger.Warn().Err(err).Str("artifact_id", info.ID).Msg("Failed to delete orphaned blob")
			continue
		}
		report.Deleted++
	}

	r.logger.Info().
		Int("scanned", report.Scanned).
		Int("orphaned", len(report.Orphaned)).
		Int("deleted", report.Deleted).
		Int("failed", report.Failed).
		Bool("dry_run", opts.DryRun).
		Msg("Sweep complete")

	return report, nil
}
