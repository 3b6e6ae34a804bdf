// Package repository implements file-level CRUD for entries within one
// knowledge base: locating a file by id, writing with subdirectory
// inference, listing, and deleting. It knows nothing about the derived
// SQLite index; the write-path orchestration that keeps the two in sync
// lives in package kbservice.
package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/markramm/pyrite/internal/entrymodel"
	"github.com/markramm/pyrite/internal/frontmatter"
	"github.com/markramm/pyrite/internal/lockfile"
)

// ErrReadOnly is returned by every write operation against a read-only KB.
var ErrReadOnly = errors.New("repository: knowledge base is read-only")

// ErrNotFound is returned when an id has no corresponding file.
var ErrNotFound = errors.New("repository: entry not found")

// Repository is the file-level CRUD surface for one KB root.
type Repository struct {
	kb *entrymodel.KB
}

// New returns a Repository bound to kb's root path.
func New(kb *entrymodel.KB) *Repository {
	return &Repository{kb: kb}
}

// Save writes entry to disk, inferring its subdirectory from the schema
// (or a type-name default), creating parent directories as needed, and
// bumping updated_at. now is passed in rather than read from the clock so
// callers control timestamp granularity and tests stay deterministic.
func (r *Repository) Save(entry entrymodel.Entry, now time.Time) (string, error) {
	if r.kb.ReadOnly {
		return "", ErrReadOnly
	}

	existingPath, err := r.Find(entry.ID())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}

	path := existingPath
	if path == "" {
		path = r.pathFor(entry)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("repository: create directory for %s: %w", entry.ID(), err)
	}

	created := entry.CreatedAt()
	if created.IsZero() {
		created = now
	}
	entry.SetTimestamps(created, now)
	entry.SetFilePath(path)

	fm := entry.ToFrontmatter()
	var prior *frontmatter.Document
	if existingPath != "" {
		if raw, readErr := os.ReadFile(existingPath); readErr == nil { // #nosec G304 -- path resolved within KB root
			if parsed, parseErr := frontmatter.Parse(raw); parseErr == nil {
				prior = parsed
			}
		}
	}

	out, err := frontmatter.Serialize(fm, prior)
	if err != nil {
		return "", fmt.Errorf("repository: serialize %s: %w", entry.ID(), err)
	}

	if err := writeLocked(path, out); err != nil {
		return "", fmt.Errorf("repository: write %s: %w", path, err)
	}

	return path, nil
}

// pathFor computes the on-disk path for a newly created entry, using the
// schema's declared subdirectory for the entry's type when present, and a
// pluralized type-name default otherwise.
func (r *Repository) pathFor(entry entrymodel.Entry) string {
	subdir := ""
	if td, ok := r.kb.Schema.LookupType(entry.EntryType()); ok && td.Subdirectory != "" {
		subdir = td.Subdirectory
	} else {
		subdir = defaultSubdirectory(entry.EntryType())
	}
	return filepath.Join(r.kb.RootPath, subdir, entry.ID()+".md")
}

func defaultSubdirectory(entryType string) string {
	if entryType == "" {
		return ""
	}
	return entryType + "s"
}

// Find probes the KB root and every non-hidden subdirectory for "<id>.md",
// returning the path without reading or parsing the file.
func (r *Repository) Find(id string) (string, error) {
	want := id + ".md"
	var found string

	err := filepath.WalkDir(r.kb.RootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != r.kb.RootPath && isHidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == want {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("repository: find %s: %w", id, err)
	}
	if found == "" {
		return "", ErrNotFound
	}
	return found, nil
}

// Load probes for id's file and, if found, parses it into a frontmatter
// document plus the resolved path. Variant construction (field map ->
// concrete Entry) happens one layer up, in kbservice, since it needs the
// KB's schema and the entrymodel factory.
func (r *Repository) Load(id string) (*frontmatter.Document, string, error) {
	path, err := r.Find(id)
	if err != nil {
		return nil, "", err
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- path resolved via Find within KB root
	if err != nil {
		return nil, "", fmt.Errorf("repository: read %s: %w", path, err)
	}
	doc, err := frontmatter.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("repository: parse %s: %w", path, err)
	}
	return doc, path, nil
}

// Delete removes id's file, reporting whether a file was actually found
// and removed.
func (r *Repository) Delete(id string) (bool, error) {
	if r.kb.ReadOnly {
		return false, ErrReadOnly
	}
	path, err := r.Find(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("repository: delete %s: %w", path, err)
	}
	return true, nil
}

// Listing is one file discovered by List.
type Listing struct {
	Path string
	Doc  *frontmatter.Document
}

// List walks the KB root recursively, skipping hidden directories and any
// path component matching "*template*", and yields every Markdown file's
// parsed document alongside its path.
func (r *Repository) List() ([]Listing, error) {
	var out []Listing
	err := filepath.WalkDir(r.kb.RootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != r.kb.RootPath && (isHidden(d.Name()) || isTemplateName(d.Name())) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(d.Name()) != ".md" || isTemplateName(d.Name()) {
			return nil
		}
		raw, err := os.ReadFile(path) // #nosec G304 -- path discovered via WalkDir under KB root
		if err != nil {
			return fmt.Errorf("repository: read %s: %w", path, err)
		}
		doc, err := frontmatter.Parse(raw)
		if err != nil {
			return fmt.Errorf("repository: parse %s: %w", path, err)
		}
		out = append(out, Listing{Path: path, Doc: doc})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// writeLocked writes data to path under an exclusive advisory lock, so two
// concurrent writers of the same file (in this process or another) can't
// interleave with a partial write; the file is truncated only once the
// lock is held. The lock is process-advisory only, the same guarantee
// package lockfile's flock wrapper provides.
func writeLocked(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304 -- path resolved within KB root
	if err != nil {
		return err
	}
	defer f.Close()

	if err := lockfile.FlockExclusiveBlocking(f); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	defer lockfile.FlockUnlock(f)

	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isTemplateName(name string) bool {
	return strings.Contains(strings.ToLower(name), "template")
}
