package entrymodel

// Note is the plainest entry variant: title + body + tags, no extra
// required fields. Most KB types that don't need a richer shape use this.
type Note struct{ Base }

func (n *Note) EntryType() string { return "note" }
func (n *Note) ToFrontmatter() *FrontmatterDoc {
	return n.finishFrontmatter(n.baseFrontmatter("note"))
}

// Event carries a day-granularity date and an importance rank.
type Event struct {
	Base
	Date       string // YYYY-MM-DD
	Importance int    // 1-10
}

func (e *Event) EntryType() string { return "event" }
func (e *Event) ToFrontmatter() *FrontmatterDoc {
	doc := e.baseFrontmatter("event")
	doc.Set("date", e.Date)
	if e.Importance != 0 {
		doc.Set("importance", e.Importance)
	}
	return e.finishFrontmatter(doc)
}

// Person represents an individual referenced across a KB.
type Person struct {
	Base
	Aliases []string
}

func (p *Person) EntryType() string { return "person" }
func (p *Person) ToFrontmatter() *FrontmatterDoc {
	doc := p.baseFrontmatter("person")
	if len(p.Aliases) > 0 {
		doc.Set("aliases", p.Aliases)
	}
	return p.finishFrontmatter(doc)
}

// Org represents an organization, much like Person but without aliases
// being the primary identity aid (kept anyway since wikilink resolution
// checks it generically for every variant's metadata).
type Org struct{ Base }

func (o *Org) EntryType() string { return "org" }
func (o *Org) ToFrontmatter() *FrontmatterDoc {
	return o.finishFrontmatter(o.baseFrontmatter("org"))
}

// Task carries the workflow-relevant fields for a task entry.
type Task struct {
	Base
	Status       TaskStatus
	Assignee     string
	ParentTask   string
	Dependencies []string
	Evidence     []string
	Priority     int
	DueDate      string
	AgentContext map[string]any
}

func (t *Task) EntryType() string { return "task" }
func (t *Task) ToFrontmatter() *FrontmatterDoc {
	doc := t.baseFrontmatter("task")
	doc.Set("status", string(t.Status))
	if t.Assignee != "" {
		doc.Set("assignee", t.Assignee)
	}
	if t.ParentTask != "" {
		doc.Set("parent_task", t.ParentTask)
	}
	if len(t.Dependencies) > 0 {
		doc.Set("dependencies", t.Dependencies)
	}
	if len(t.Evidence) > 0 {
		doc.Set("evidence", t.Evidence)
	}
	if t.Priority != 0 {
		doc.Set("priority", t.Priority)
	}
	if t.DueDate != "" {
		doc.Set("due_date", t.DueDate)
	}
	if len(t.AgentContext) > 0 {
		doc.Set("agent_context", t.AgentContext)
	}
	return t.finishFrontmatter(doc)
}

// Collection groups other entries by reference (its Links), e.g. a reading
// list or a project index page.
type Collection struct{ Base }

func (c *Collection) EntryType() string { return "collection" }
func (c *Collection) ToFrontmatter() *FrontmatterDoc {
	return c.finishFrontmatter(c.baseFrontmatter("collection"))
}

// QAAssessment records a quality-review pass over another entry.
type QAAssessment struct {
	Base
	TargetID string
	Score    float64
	Issues   []string
}

func (q *QAAssessment) EntryType() string { return "qa-assessment" }
func (q *QAAssessment) ToFrontmatter() *FrontmatterDoc {
	doc := q.baseFrontmatter("qa-assessment")
	doc.Set("target_id", q.TargetID)
	doc.Set("score", q.Score)
	if len(q.Issues) > 0 {
		doc.Set("issues", q.Issues)
	}
	return q.finishFrontmatter(doc)
}

// Generic is the fallback variant for type names not in the core set and
// not contributed by a registered plugin constructor. It preserves an
// arbitrary frontmatter map verbatim.
type Generic struct {
	Base
	TypeName string
	Raw      map[string]any
}

func (g *Generic) EntryType() string { return g.TypeName }
func (g *Generic) ToFrontmatter() *FrontmatterDoc {
	doc := g.baseFrontmatter(g.TypeName)
	for k, v := range g.Raw {
		doc.Set(k, v)
	}
	return g.finishFrontmatter(doc)
}
