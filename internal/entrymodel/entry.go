package entrymodel

import "time"

// Entry is the uniform interface every entry variant satisfies.
// Concrete variants embed Base and add type-specific fields;
// unregistered type names fall through to Generic.
type Entry interface {
	EntryType() string
	ID() string
	KBName() string
	Title() string
	Body() string
	Tags() []string
	Sources() []Source
	Links() []Link
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Attribution() Attribution
	Metadata() map[string]any

	// ToFrontmatter returns the declared, ordered field map for
	// serialization. Order matters: it drives the YAML key order on
	// first write (subsequent writes preserve the on-disk order via
	// the frontmatter codec's round-trip path).
	ToFrontmatter() *FrontmatterDoc

	// SetTimestamps is used by the repository/service write path to
	// stamp created/updated times; it never reorders ToFrontmatter's
	// output.
	SetTimestamps(created, updated time.Time)
	SetAttribution(a Attribution)
	SetFilePath(path string)
	FilePath() string
}

// FrontmatterDoc is an ordered field map plus the body, the serialization
// contract ToFrontmatter produces. Keys preserves insertion order;
// Fields holds the values keyed by the same names.
type FrontmatterDoc struct {
	Keys   []string
	Fields map[string]any
	Body   string
}

// Set appends key (if new) and assigns the value, preserving declared
// field order for keys added in the order callers expect (required
// fields, then optional, then metadata passthrough).
func (d *FrontmatterDoc) Set(key string, value any) {
	if d.Fields == nil {
		d.Fields = make(map[string]any)
	}
	if _, exists := d.Fields[key]; !exists {
		d.Keys = append(d.Keys, key)
	}
	d.Fields[key] = value
}

// Base holds the fields common to every entry variant and implements the
// shared parts of the Entry interface. Variants embed Base and override
// EntryType/ToFrontmatter.
type Base struct {
	ID_      string
	KBName_  string
	Title_   string
	Body_    string
	Summary  string
	Tags_    []string
	Sources_ []Source
	Links_   []Link
	Created  time.Time
	Updated  time.Time
	Path     string
	Meta     map[string]any
	Attrib   Attribution
}

func (b *Base) ID() string             { return b.ID_ }
func (b *Base) KBName() string         { return b.KBName_ }
func (b *Base) Title() string          { return b.Title_ }
func (b *Base) Body() string           { return b.Body_ }
func (b *Base) Tags() []string         { return b.Tags_ }
func (b *Base) Sources() []Source      { return b.Sources_ }
func (b *Base) Links() []Link          { return b.Links_ }
func (b *Base) CreatedAt() time.Time   { return b.Created }
func (b *Base) UpdatedAt() time.Time   { return b.Updated }
func (b *Base) Attribution() Attribution { return b.Attrib }
func (b *Base) FilePath() string       { return b.Path }

func (b *Base) Metadata() map[string]any {
	if b.Meta == nil {
		return map[string]any{}
	}
	return b.Meta
}

func (b *Base) SetTimestamps(created, updated time.Time) {
	if b.Created.IsZero() {
		b.Created = created
	}
	b.Updated = updated
}

func (b *Base) SetAttribution(a Attribution) {
	// created_by is preserved once set; modified_by always overwritten.
	if b.Attrib.CreatedBy == "" {
		b.Attrib.CreatedBy = a.CreatedBy
	}
	b.Attrib.ModifiedBy = a.ModifiedBy
}

func (b *Base) SetFilePath(path string) { b.Path = path }

// baseFrontmatter builds the common leading fields shared by every variant:
// id, title, type, tags, summary, sources, links, then caller-supplied
// type-specific fields, then metadata passthrough.
func (b *Base) baseFrontmatter(entryType string) *FrontmatterDoc {
	doc := &FrontmatterDoc{Fields: map[string]any{}, Body: b.Body_}
	doc.Set("id", b.ID_)
	doc.Set("title", b.Title_)
	doc.Set("type", entryType)
	if len(b.Tags_) > 0 {
		doc.Set("tags", b.Tags_)
	}
	if b.Summary != "" {
		doc.Set("summary", b.Summary)
	}
	if len(b.Sources_) > 0 {
		doc.Set("sources", b.Sources_)
	}
	if len(b.Links_) > 0 {
		doc.Set("links", b.Links_)
	}
	return doc
}

func (b *Base) finishFrontmatter(doc *FrontmatterDoc) *FrontmatterDoc {
	if b.Attrib.CreatedBy != "" {
		doc.Set("created_by", b.Attrib.CreatedBy)
	}
	if b.Attrib.ModifiedBy != "" {
		doc.Set("modified_by", b.Attrib.ModifiedBy)
	}
	for k, v := range b.Meta {
		doc.Set(k, v)
	}
	return doc
}
