// Package watch observes the data root and extracts sessions as they arrive.
// Shard files are appended over a session's lifetime, so a session is only
// extracted once its directory has stayed quiet for a settle period.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jmeyers/combatlog/internal/pipeline"
)

// Run watches dataDir until ctx is cancelled, extracting each session whose
// directory has been idle for the settle duration.
func Run(ctx context.Context, dataDir string, settle time.Duration, opts pipeline.Options) error {
	if settle <= 0 {
		settle = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dataDir); err != nil {
		return fmt.Errorf("watch data dir: %w", err)
	}

	// Watch session dirs that already exist; new ones are added as they
	// appear.
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return fmt.Errorf("read data dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(dataDir, e.Name())); err != nil {
				logger.Warn("cannot watch session dir",
					zap.String("dir", e.Name()), zap.Error(err))
			}
		}
	}

	// session dir -> last observed activity
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			dir := sessionDir(dataDir, ev.Name)
			if dir == "" {
				continue
			}
			pending[dir] = time.Now()
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						logger.Warn("cannot watch session dir",
							zap.String("dir", ev.Name), zap.Error(err))
					}
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case now := <-ticker.C:
			for dir, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, dir)
				res := pipeline.Session(dir, opts)
				if res.Err != nil {
					logger.Error("session failed",
						zap.String("session", res.SessionID), zap.Error(res.Err))
					continue
				}
				logger.Info("session extracted",
					zap.String("session", res.SessionID),
					zap.Int("rp_tuples", res.RPTuples),
					zap.Int("narration_tuples", res.NarrationTuples),
					zap.Int("tagged_tuples", res.TaggedTuples))
			}
		}
	}
}

// sessionDir maps a filesystem event path to the session directory it
// belongs to, or empty when the path is outside any session.
func sessionDir(dataDir, path string) string {
	rel, err := filepath.Rel(dataDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	first := rel
	for i := 0; i < len(rel); i++ {
		if os.IsPathSeparator(rel[i]) {
			first = rel[:i]
			break
		}
	}
	if first == "" {
		return ""
	}
	return filepath.Join(dataDir, first)
}
