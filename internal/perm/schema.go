package perm

// Schema is the canonical key list plus default values. It is an immutable
// configuration value passed to whatever needs it; callers never mutate a
// shared package-level default.
type Schema struct {
	keys     []Key
	defaults Flags
}

// NewSchema builds a schema over the canonical key list with the given
// defaults. Keys missing from defaults start false; keys outside the
// canonical list are ignored.
func NewSchema(defaults Flags) Schema {
	d := make(Flags, len(allKeys))
	for _, k := range allKeys {
		d[k] = defaults[k]
	}
	return Schema{keys: allKeys, defaults: d}
}

// DefaultSchema returns the production schema: read-side flags granted by
// default, everything destructive or administrative off.
func DefaultSchema() Schema {
	return NewSchema(Flags{
		KeyViewIncidents: true,
		KeyViewReports:   true,
		KeyViewQuotes:    true,
	})
}

// Keys returns the schema's canonical key order.
func (s Schema) Keys() []Key {
	out := make([]Key, len(s.keys))
	copy(out, s.keys)
	return out
}

// DefaultFlags returns a fresh copy of the schema defaults.
func (s Schema) DefaultFlags() Flags {
	return s.defaults.clone()
}

// HomeSet is the code-fixed permission set of the home organization: every
// capability granted. The mutation service refuses to touch it, so it never
// lives in the store.
func (s Schema) HomeSet() Set {
	flags := make(Flags, len(s.keys))
	for _, k := range s.keys {
		flags[k] = true
	}
	return Set{Flags: flags, InheritedFromOrg: true}
}
