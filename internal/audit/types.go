package audit

import "time"

// Scope of a change log entry.
const (
	ScopeOrganization = "organization"
	ScopeUser         = "user"
)

// Action labels attached to entries.
type Action string

const (
	ActionSet    Action = "set"    // whole permission set replaced
	ActionUpdate Action = "update" // single flag changed
	ActionReset  Action = "reset"  // inheritance restored
)

// Actor is the already-authenticated identity a mutation is attributed to.
// Authentication itself happens in the calling layer.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Change is one field-level difference carried by an entry. From and To are
// nil when the key was unset on that side.
type Change struct {
	Key  string `json:"key"`
	From *bool  `json:"from"`
	To   *bool  `json:"to"`
}

// Entry is an immutable, append-only record of one permission mutation.
// Entries are created once at mutation time and never updated or deleted;
// organizations and users do not reference them.
type Entry struct {
	ID        string    `json:"id"`
	Scope     string    `json:"scope"`
	OrgID     string    `json:"org_id"`
	OrgName   string    `json:"org_name,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	UserName  string    `json:"user_name,omitempty"`
	Actor     Actor     `json:"actor"`
	Action    Action    `json:"action"`
	Changes   []Change  `json:"changes"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChangedKeys returns the entry's changed-key index in change order.
func (e Entry) ChangedKeys() []string {
	keys := make([]string, 0, len(e.Changes))
	for _, c := range e.Changes {
		keys = append(keys, c.Key)
	}
	return keys
}

// Query filters entry retrieval. All fields are optional and freely
// combinable; the zero value matches the full log.
type Query struct {
	OrgID   string
	UserID  string
	ActorID string
	Key     string // matches entries whose changed-key index contains Key
	Scope   string
	Since   time.Time
	Until   time.Time
}

// Page is one newest-first slice of the log. NextCursor is opaque; pass it
// back to continue, empty means the log is exhausted.
type Page struct {
	Entries    []Entry `json:"entries"`
	NextCursor string  `json:"next_cursor,omitempty"`
}
