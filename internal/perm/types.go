package perm

import "time"

// Scope says whether an operation targets an organization or a single user.
type Scope string

const (
	ScopeOrganization Scope = "organization"
	ScopeUser         Scope = "user"
)

// ParseScope validates a raw scope name.
func ParseScope(raw string) (Scope, error) {
	switch Scope(raw) {
	case ScopeOrganization, ScopeUser:
		return Scope(raw), nil
	}
	return "", errInvalidf("unknown scope %q", raw)
}

// Flags is a possibly partial snapshot of capability values keyed by
// permission key. A missing key means "unset", not false.
type Flags map[Key]bool

func (f Flags) clone() Flags {
	if f == nil {
		return nil
	}
	out := make(Flags, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Set is a fully resolved permission set for one scope.
type Set struct {
	Flags            Flags     `json:"flags"`
	LastUpdated      time.Time `json:"last_updated,omitzero"`
	InheritedFromOrg bool      `json:"inherited_from_org"`
}

// Has reports the value of one flag in the resolved set.
func (s Set) Has(key Key) bool {
	return s.Flags[key]
}

// Organization owns the default capability grant for its members. Perms is
// nil until an administrator has stored a set; the schema default applies
// until then.
type Organization struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Perms          Flags      `json:"perms,omitempty"`
	PermsUpdatedAt *time.Time `json:"perms_updated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// User belongs to exactly one organization and optionally carries a stored
// override. While InheritedFromOrg is true the override is dormant: its bytes
// stay in the store but the organization's grant is what applies.
type User struct {
	ID               string     `json:"id"`
	OrganizationID   string     `json:"organization_id"`
	Email            string     `json:"email"`
	DisplayName      string     `json:"display_name"`
	Override         Flags      `json:"override,omitempty"`
	InheritedFromOrg bool       `json:"inherited_from_org"`
	PermsUpdatedAt   *time.Time `json:"perms_updated_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
