package scheduler

import (
	"context"
	"fmt"
	"time"
)

// Job names.
const (
	JobUploadSweep = "upload_sweep"
	JobTokenPurge  = "token_purge"
)

// UploadReferencer lists the upload file names still in use.
type UploadReferencer interface {
	ReferencedUploads(ctx context.Context) (map[string]bool, error)
}

// Sweeper deletes unreferenced uploads older than a grace period.
type Sweeper interface {
	Sweep(referenced map[string]bool, grace time.Duration) (int, error)
}

// Purger deletes revocation entries for tokens that have expired anyway.
type Purger interface {
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// UploadSweep removes uploaded images no profile points at, such as the
// previous image after an update or files left by an interrupted request.
func UploadSweep(profiles UploadReferencer, storage Sweeper, grace time.Duration) JobFunc {
	return func(ctx context.Context) (string, error) {
		refs, err := profiles.ReferencedUploads(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to list referenced uploads: %w", err)
		}
		removed, err := storage.Sweep(refs, grace)
		if err != nil {
			return "", err
		}
		if removed == 0 {
			return "", nil
		}
		return fmt.Sprintf("Removed %d orphaned upload(s)", removed), nil
	}
}

// TokenPurge drops expired entries from the token denylist.
func TokenPurge(p Purger) JobFunc {
	return func(ctx context.Context) (string, error) {
		_, err := p.Purge(ctx, time.Now())
		return "", err
	}
}
