package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigDir returns the combatlog config directory path.
// Uses $XDG_CONFIG_HOME/combatlog if set, otherwise ~/.config/combatlog.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "combatlog")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "combatlog")
}

// WriteDefault writes a default config.toml pointing at dataDir and outDir.
// Returns the config file path. Skips if config.toml already exists.
func WriteDefault(dataDir, outDir string) (string, error) {
	dir := ConfigDir()
	path := filepath.Join(dir, "config.toml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // already exists
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	content := fmt.Sprintf(`data_dir = %q
out_dir = %q
workers = 0
chunk_size = 10

[rp]
enabled = true
include_automation = false

[narration]
enabled = true

[tagger]
enabled = true
min_tokens = 5
bot_author_id = "261302296103747584"

[index]
enabled = true
path = "~/combatlog/index.db"

[watch]
settle_seconds = 30
`, CompressHome(dataDir), CompressHome(outDir))

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}

	return path, nil
}

// CompressHome replaces $HOME prefix with ~/ for portable config values.
func CompressHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home+"/") {
		return "~/" + path[len(home)+1:]
	}
	if path == home {
		return "~"
	}
	return path
}
