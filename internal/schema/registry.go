// Package schema loads and caches the per-knowledge-base kb.yaml schema
// file, and validates entry field maps against it.
package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/markramm/pyrite/internal/entrymodel"
)

const schemaFileName = "kb.yaml"

// rawSchema mirrors kb.yaml's on-disk shape for unmarshaling; Registry
// converts it into entrymodel.Schema, the shape the rest of the engine
// consumes.
type rawSchema struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Types       map[string]rawTypeDef  `yaml:"types"`
	Policies    map[string]any         `yaml:"policies"`
	Validation  rawValidationPolicy    `yaml:"validation"`
	Directories []string               `yaml:"directories"`
}

type rawTypeDef struct {
	Description  string                `yaml:"description"`
	Required     []string              `yaml:"required"`
	Optional     []string              `yaml:"optional"`
	Subdirectory string                `yaml:"subdirectory"`
	Fields       map[string]rawFieldDef `yaml:"fields"`
	AllowOther   bool                  `yaml:"allow_other"`
}

type rawFieldDef struct {
	Type       string   `yaml:"type"`
	Enum       []string `yaml:"enum"`
	Min        *float64 `yaml:"min"`
	Max        *float64 `yaml:"max"`
	TargetType string   `yaml:"target_type"`
	Pattern    string   `yaml:"pattern"`
	AllowOther bool     `yaml:"allow_other"`
}

type rawValidationPolicy struct {
	Enforce   bool     `yaml:"enforce"`
	QAOnWrite bool     `yaml:"qa_on_write"`
	Rules     []string `yaml:"rules"`
}

type cacheEntry struct {
	schema  *entrymodel.Schema
	modTime time.Time
}

// Registry loads kb.yaml once per KB root and caches it, invalidating
// automatically when the file's mtime changes underneath it.
type Registry struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewRegistry returns an empty schema cache.
func NewRegistry() *Registry {
	return &Registry{cache: map[string]cacheEntry{}}
}

// Load returns the schema for the KB rooted at root, reading and parsing
// kb.yaml only when it hasn't been cached yet or has changed on disk since
// the last load. A KB with no kb.yaml is valid and gets a nil schema,
// meaning "no declared types, no enforced policy".
func (r *Registry) Load(root string) (*entrymodel.Schema, error) {
	path := filepath.Join(root, schemaFileName)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("schema: stat %s: %w", path, err)
	}

	r.mu.Lock()
	if cached, ok := r.cache[root]; ok && cached.modTime.Equal(info.ModTime()) {
		r.mu.Unlock()
		return cached.schema, nil
	}
	r.mu.Unlock()

	data, err := os.ReadFile(path) // #nosec G304 -- path built from caller-supplied KB root
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}

	var raw rawSchema
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("schema: parse %s: %w", path, err)
	}

	s := convert(&raw)

	r.mu.Lock()
	r.cache[root] = cacheEntry{schema: s, modTime: info.ModTime()}
	r.mu.Unlock()

	return s, nil
}

// Invalidate drops the cached schema for root, forcing the next Load to
// re-read it regardless of mtime, for a kb.yaml rewritten within the same
// filesystem timestamp resolution window. No code in this module calls it.
func (r *Registry) Invalidate(root string) {
	r.mu.Lock()
	delete(r.cache, root)
	r.mu.Unlock()
}

func convert(raw *rawSchema) *entrymodel.Schema {
	s := &entrymodel.Schema{
		Name:        raw.Name,
		Description: raw.Description,
		Policies:    raw.Policies,
		Directories: raw.Directories,
		Validation: entrymodel.ValidationPolicy{
			Enforce:   raw.Validation.Enforce,
			QAOnWrite: raw.Validation.QAOnWrite,
			Rules:     raw.Validation.Rules,
		},
	}
	if len(raw.Types) > 0 {
		s.Types = make(map[string]entrymodel.TypeDef, len(raw.Types))
		for name, t := range raw.Types {
			td := entrymodel.TypeDef{
				Description:  t.Description,
				Required:     t.Required,
				Optional:     t.Optional,
				Subdirectory: t.Subdirectory,
				AllowOther:   t.AllowOther,
			}
			if len(t.Fields) > 0 {
				td.Fields = make(map[string]entrymodel.FieldDef, len(t.Fields))
				for fname, f := range t.Fields {
					td.Fields[fname] = entrymodel.FieldDef{
						Type:       f.Type,
						Enum:       f.Enum,
						Min:        f.Min,
						Max:        f.Max,
						TargetType: f.TargetType,
						Pattern:    f.Pattern,
						AllowOther: f.AllowOther,
					}
				}
			}
			s.Types[name] = td
		}
	}
	return s
}
