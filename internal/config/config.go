// Package config loads combatlog configuration from TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all combatlog configuration.
type Config struct {
	DataDir   string `toml:"data_dir"`
	OutDir    string `toml:"out_dir"`
	Workers   int    `toml:"workers"`
	ChunkSize int    `toml:"chunk_size"`

	RP        RPConfig        `toml:"rp"`
	Narration NarrationConfig `toml:"narration"`
	Tagger    TaggerConfig    `toml:"tagger"`
	Index     IndexConfig     `toml:"index"`
	Watch     WatchConfig     `toml:"watch"`
}

type RPConfig struct {
	Enabled bool `toml:"enabled"`
	// IncludeAutomation records automation runs and state updates on the
	// command side, attributed through their triggering messages.
	IncludeAutomation bool `toml:"include_automation"`
}

type NarrationConfig struct {
	Enabled bool `toml:"enabled"`
}

type TaggerConfig struct {
	Enabled bool `toml:"enabled"`
	// MinTokens drops utterances shorter than this many words.
	MinTokens int `toml:"min_tokens"`
	// BotAuthorID marks the bot's own author id; its messages are never
	// tagged as utterances.
	BotAuthorID string `toml:"bot_author_id"`
}

type IndexConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type WatchConfig struct {
	// SettleSeconds is how long a session directory must stay quiet before
	// watch mode extracts it.
	SettleSeconds int `toml:"settle_seconds"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:   "~/combatlog/data",
		OutDir:    "~/combatlog/extract",
		Workers:   0, // GOMAXPROCS
		ChunkSize: 10,
		RP: RPConfig{
			Enabled:           true,
			IncludeAutomation: false,
		},
		Narration: NarrationConfig{
			Enabled: true,
		},
		Tagger: TaggerConfig{
			Enabled:     true,
			MinTokens:   5,
			BotAuthorID: "261302296103747584",
		},
		Index: IndexConfig{
			Enabled: true,
			Path:    "~/combatlog/index.db",
		},
		Watch: WatchConfig{
			SettleSeconds: 30,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	// Expand ~ in paths
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.OutDir = expandHome(cfg.OutDir)
	cfg.Index.Path = expandHome(cfg.Index.Path)

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "combatlog", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "combatlog", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
