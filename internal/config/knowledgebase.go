package config

import (
	"path/filepath"
	"time"

	"github.com/markramm/pyrite/internal/entrymodel"
)

// ToEntryModel resolves kb into the entrymodel.KB shape kbservice.RegisterKB
// expects. A relative Path is resolved against workspaceRoot (settings.
// workspace_path), so knowledge base paths stay relative to the project
// root rather than absolute.
func (kb KnowledgeBase) ToEntryModel(workspaceRoot string) *entrymodel.KB {
	root := kb.Path
	if !filepath.IsAbs(root) {
		root = filepath.Join(workspaceRoot, root)
	}

	out := &entrymodel.KB{
		Name:        kb.Name,
		RootPath:    root,
		Type:        kb.KBType,
		Description: kb.Description,
		ReadOnly:    kb.ReadOnly,
		Shortname:   kb.Shortname,
		Ephemeral:   kb.Ephemeral,
		RepoName:    kb.Repo,
	}
	if kb.TTL != "" {
		if d, err := time.ParseDuration(kb.TTL); err == nil {
			out.TTL = d
		}
	}
	if kb.CreatedAtTS != "" {
		if t, err := time.Parse(time.RFC3339, kb.CreatedAtTS); err == nil {
			out.CreatedAtTS = t
		}
	}
	return out
}

// ResolvedKnowledgeBases returns every configured KB converted to
// entrymodel.KB, ready for RegisterKB, resolved against the config's own
// workspace_path.
func (c *Config) ResolvedKnowledgeBases() []*entrymodel.KB {
	out := make([]*entrymodel.KB, 0, len(c.KnowledgeBases))
	for _, kb := range c.KnowledgeBases {
		out = append(out, kb.ToEntryModel(c.Settings.WorkspacePath))
	}
	return out
}
