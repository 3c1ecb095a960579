package perm

import "testing"

func TestDiffCanonicalOrder(t *testing.T) {
	schema := DefaultSchema()
	before := Flags{KeyManageUsers: false, KeyViewIncidents: true}
	after := Flags{KeyManageUsers: true, KeyViewIncidents: false}

	changes := schema.Diff(before, after)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Key != KeyViewIncidents || changes[1].Key != KeyManageUsers {
		t.Fatalf("changes must follow canonical key order: %v", changes)
	}
}

func TestDiffUnsetVersusFalse(t *testing.T) {
	schema := DefaultSchema()

	changes := schema.Diff(nil, Flags{KeyViewQuotes: false})
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.From != nil {
		t.Fatalf("unset side must be nil, got %v", *c.From)
	}
	if c.To == nil || *c.To != false {
		t.Fatalf("set-to-false side must be a false pointer, got %v", c.To)
	}
}

func TestDiffEqualSnapshots(t *testing.T) {
	schema := DefaultSchema()
	snap := Flags{KeyViewIncidents: true, KeyManageUsers: false}
	if changes := schema.Diff(snap, snap.clone()); len(changes) != 0 {
		t.Fatalf("equal snapshots must diff empty, got %v", changes)
	}
	if changes := schema.Diff(nil, nil); len(changes) != 0 {
		t.Fatalf("nil snapshots must diff empty, got %v", changes)
	}
}

func TestDiffLeavesInputsUntouched(t *testing.T) {
	schema := DefaultSchema()
	before := Flags{KeyViewIncidents: true}
	after := Flags{KeyViewIncidents: false}
	_ = schema.Diff(before, after)
	if !before[KeyViewIncidents] || after[KeyViewIncidents] {
		t.Fatal("diff must not modify its inputs")
	}
	if len(before) != 1 || len(after) != 1 {
		t.Fatal("diff must not grow its inputs")
	}
}
