// Package discover locates session directories under the raw data root.
package discover

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Sessions returns every session directory under dataDir in name order.
// Sessions carry no cross-session ordering requirement; name order just
// keeps batch runs reproducible.
func Sessions(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(dataDir, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// SessionID returns the identifier a session directory is named by.
func SessionID(dir string) string {
	return filepath.Base(filepath.Clean(dir))
}
