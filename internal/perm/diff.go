package perm

// Change records one field-level difference between two permission
// snapshots. From and To are nil when the key was unset on that side; unset
// is distinct from false.
type Change struct {
	Key  Key   `json:"key"`
	From *bool `json:"from"`
	To   *bool `json:"to"`
}

// Diff computes the minimal field-level changes between two possibly partial
// snapshots. Output follows the schema's canonical key order, an entry is
// emitted only under strict inequality (nil vs false counts as a change), and
// the inputs are never modified.
func (s Schema) Diff(before, after Flags) []Change {
	var changes []Change
	for _, k := range s.keys {
		from := lookup(before, k)
		to := lookup(after, k)
		if equalValue(from, to) {
			continue
		}
		changes = append(changes, Change{Key: k, From: from, To: to})
	}
	return changes
}

func lookup(f Flags, k Key) *bool {
	if f == nil {
		return nil
	}
	v, ok := f[k]
	if !ok {
		return nil
	}
	return &v
}

func equalValue(a, b *bool) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
