// Package config loads Pyrite's global configuration file, the settings
// that must be known before any knowledge base or index is opened.
// Per-KB schema lives in internal/schema instead: that file is
// content-addressed by KB path and needs yaml.Node round-tripping, while
// this one is a single process-wide settings file read through a viper
// loaded once through viper for startup settings, separate from the
// per-file yaml.Node editing internal/frontmatter uses for entry content.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/viper"
)

// KnowledgeBase is one entry of the knowledge_bases list.
type KnowledgeBase struct {
	Name        string `mapstructure:"name"`
	Path        string `mapstructure:"path"`
	KBType      string `mapstructure:"kb_type"`
	Description string `mapstructure:"description"`
	ReadOnly    bool   `mapstructure:"read_only"`
	Remote      bool   `mapstructure:"remote"`
	Repo        string `mapstructure:"repo"`
	RepoSubpath string `mapstructure:"repo_subpath"`
	Shortname   string `mapstructure:"shortname"`
	Ephemeral   bool   `mapstructure:"ephemeral"`
	TTL         string `mapstructure:"ttl"`
	CreatedAtTS string `mapstructure:"created_at_ts"`
}

// AuthSettings is the settings.auth sub-object.
type AuthSettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Mode    string `mapstructure:"mode"`
}

// Settings is the settings block of the global config.
type Settings struct {
	IndexPath          string       `mapstructure:"index_path"`
	WorkspacePath      string       `mapstructure:"workspace_path"`
	Host               string       `mapstructure:"host"`
	Port               int          `mapstructure:"port"`
	APIKey             string       `mapstructure:"api_key"`
	CORSOrigins        []string     `mapstructure:"cors_origins"`
	RateLimitPerMinute int          `mapstructure:"rate_limit_per_minute"`
	RateLimitBurst     int          `mapstructure:"rate_limit_burst"`
	EmbeddingModel     string       `mapstructure:"embedding_model"`
	EmbeddingDimensions int         `mapstructure:"embedding_dimensions"`
	SearchMode         string       `mapstructure:"search_mode"`
	SearchBackend      string       `mapstructure:"search_backend"`
	DatabaseURL        string       `mapstructure:"database_url"`
	Auth               AuthSettings `mapstructure:"auth"`
}

// Config is the parsed shape of pyrite.yaml. GitHubAuth is deliberately
// absent: it lives in a sibling file with 0600 permissions (see
// github_auth.go) rather than this one, so a pyrite.yaml that ends up
// checked into a repo or shared with a teammate never carries a token.
type Config struct {
	Version        int             `mapstructure:"version"`
	KnowledgeBases []KnowledgeBase `mapstructure:"knowledge_bases"`
	Repositories   []string        `mapstructure:"repositories"`
	Subscriptions  []string        `mapstructure:"subscriptions"`
	Settings       Settings        `mapstructure:"settings"`

	path string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", 1)
	v.SetDefault("settings.index_path", ".pyrite/index.db")
	v.SetDefault("settings.workspace_path", ".")
	v.SetDefault("settings.host", "127.0.0.1")
	v.SetDefault("settings.port", 8787)
	v.SetDefault("settings.search_mode", "fts")
	v.SetDefault("settings.search_backend", "sqlite")
	v.SetDefault("settings.rate_limit_per_minute", 120)
	v.SetDefault("settings.rate_limit_burst", 30)
}

// Load reads pyrite.yaml from path through a fresh viper instance,
// applying defaults for any key the file omits. A missing file is not an
// error — Load returns an all-defaults Config, so a repo that hasn't
// been initialized yet still gets a usable zero state rather than a
// hard failure. Each call gets its own viper.Viper rather than a shared
// package-level instance, since nothing here needs to query viper
// directly by key across calls; a self-contained Config per call avoids
// one Load call's state leaking into the next.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	cfg.path = path
	return &cfg, nil
}

// Path returns the file cfg was loaded from.
func (c *Config) Path() string {
	return c.path
}

// GitHubAuthPath returns the sibling path github_auth.go's Load/Save use
// for this config file: same directory, fixed name, so the two files are
// always found together regardless of where pyrite.yaml itself lives.
func (c *Config) GitHubAuthPath() string {
	return filepath.Join(filepath.Dir(c.path), "github_auth.yaml")
}
