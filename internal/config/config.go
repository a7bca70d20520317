package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all revisit configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Bookmarks BookmarksConfig `toml:"bookmarks"`
	Cards     CardsConfig     `toml:"cards"`
	Favicons  FaviconsConfig  `toml:"favicons"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type BookmarksConfig struct {
	Path   string `toml:"path"`
	Format string `toml:"format"` // "chrome" or "netscape"
}

type CardsConfig struct {
	SessionSize int `toml:"session_size"`
}

type FaviconsConfig struct {
	CacheCapacity int `toml:"cache_capacity"`
	TTLDays       int `toml:"ttl_days"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38411,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		Bookmarks: BookmarksConfig{
			Format: "chrome",
		},
		Cards: CardsConfig{
			SessionSize: 3,
		},
		Favicons: FaviconsConfig{
			CacheCapacity: 200,
			TTLDays:       120,
		},
	}
}

// DefaultPath returns the default config file location: ~/.revisit/config.toml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".revisit", "config.toml"), nil
}

// Load reads the config file at path, falling back to defaults for a
// missing file. An empty path means the default location. Values absent
// from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
