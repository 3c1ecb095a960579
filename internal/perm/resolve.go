package perm

// Resolve combines organization defaults with an optional per-user override
// into the final capability set. Pure and total: nil inputs degrade to the
// schema defaults, and the merge order is always
//
//	schema default -> organization flags -> user override
//
// so keys missing from an active override fall back to the organization's
// current value. Changing that order silently changes effective authorization
// for any organization with non-default permissions.
func (s Schema) Resolve(user *User, org *Organization) Set {
	flags := s.DefaultFlags()
	out := Set{Flags: flags, InheritedFromOrg: true}

	if org != nil && org.Perms != nil {
		overlay(flags, org.Perms)
		if org.PermsUpdatedAt != nil {
			out.LastUpdated = *org.PermsUpdatedAt
		}
	}

	if user != nil && !user.InheritedFromOrg && user.Override != nil {
		overlay(flags, user.Override)
		out.InheritedFromOrg = false
		if user.PermsUpdatedAt != nil {
			out.LastUpdated = *user.PermsUpdatedAt
		}
	}
	return out
}

// overlay copies the known keys of src over dst. Keys outside the schema are
// dropped rather than propagated.
func overlay(dst, src Flags) {
	for k := range src {
		if _, ok := dst[k]; ok {
			dst[k] = src[k]
		}
	}
}
