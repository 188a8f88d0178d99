package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweep removes files that no profile references and that are older than
// grace. The grace period protects uploads whose profile write is still in
// flight. It returns the number of files removed.
func (s *Storage) Sweep(referenced map[string]bool, grace time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	cutoff := s.now().Add(-grace)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || referenced[e.Name()] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			log.Warn().Err(err).Str("file", e.Name()).Msg("Failed to remove orphaned upload")
			continue
		}
		removed++
	}
	return removed, nil
}
