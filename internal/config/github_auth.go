package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GitHubAuth holds the token Pyrite uses for GitHub-backed knowledge
// bases (remote: true entries with a repo set). Kept in its own file
// rather than inside Config/pyrite.yaml so the token is never written
// into a config a user might check into version control or hand to a
// teammate.
type GitHubAuth struct {
	Token     string `yaml:"token"`
	TokenType string `yaml:"token_type,omitempty"`
}

// LoadGitHubAuth reads the sibling auth file for cfg, returning a zero
// value (not an error) if it doesn't exist yet.
func LoadGitHubAuth(cfg *Config) (*GitHubAuth, error) {
	data, err := os.ReadFile(cfg.GitHubAuthPath()) // #nosec G304 -- path derived from cfg's own directory
	if os.IsNotExist(err) {
		return &GitHubAuth{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read github auth: %w", err)
	}

	var auth GitHubAuth
	if err := yaml.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("config: parse github auth: %w", err)
	}
	return &auth, nil
}

// SaveGitHubAuth writes auth to cfg's sibling file with 0600 permissions,
// so the token survives only with owner-readable access.
func SaveGitHubAuth(cfg *Config, auth *GitHubAuth) error {
	data, err := yaml.Marshal(auth)
	if err != nil {
		return fmt.Errorf("config: marshal github auth: %w", err)
	}
	if err := os.WriteFile(cfg.GitHubAuthPath(), data, 0600); err != nil {
		return fmt.Errorf("config: write github auth: %w", err)
	}
	return nil
}
