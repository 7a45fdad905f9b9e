package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/suykerbuyk/tracegraph/internal/cluster"
)

// Config holds all tracegraph configuration.
type Config struct {
	Threshold int `toml:"threshold"`

	Render  RenderConfig  `toml:"render"`
	Catalog CatalogConfig `toml:"catalog"`
	Archive ArchiveConfig `toml:"archive"`
}

// RenderConfig selects the layout engine and output shape.
type RenderConfig struct {
	Engine string `toml:"engine"`
	Format string `toml:"format"`
	Size   string `toml:"size"`
	DPI    int    `toml:"dpi"`
}

// CatalogConfig controls the build-history database. An empty path means
// per-output-dir (<outdir>/catalog.db); a set path is shared across runs.
type CatalogConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type ArchiveConfig struct {
	Compress bool `toml:"compress"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Threshold: cluster.DefaultThreshold,
		Render: RenderConfig{
			Engine: "fdp",
			Format: "svg",
			Size:   "20,20",
			DPI:    100,
		},
		Catalog: CatalogConfig{
			Enabled: true,
		},
		Archive: ArchiveConfig{
			Compress: true,
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

	cfg.Catalog.Path = expandHome(cfg.Catalog.Path)

	return cfg, nil
}

// ConfigDir returns the tracegraph config directory path.
// Uses $XDG_CONFIG_HOME/tracegraph if set, otherwise ~/.config/tracegraph.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tracegraph")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tracegraph")
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "tracegraph", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "tracegraph", "config.toml"))
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

// CompressHome replaces the $HOME prefix with ~/ for display.
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
