package perm

import (
	"testing"
	"time"
)

func TestResolveDefaultsOnly(t *testing.T) {
	schema := DefaultSchema()
	set := schema.Resolve(nil, nil)

	if !set.InheritedFromOrg {
		t.Fatal("expected inherited set with no inputs")
	}
	if !set.Has(KeyViewIncidents) || !set.Has(KeyViewReports) || !set.Has(KeyViewQuotes) {
		t.Fatalf("read defaults must be on: %v", set.Flags)
	}
	if set.Has(KeyManageUsers) || set.Has(KeyDeleteIncidents) {
		t.Fatalf("administrative defaults must be off: %v", set.Flags)
	}
	if len(set.Flags) != len(AllKeys()) {
		t.Fatalf("resolved set must cover every key, got %d", len(set.Flags))
	}
}

func TestResolveOrgOverlay(t *testing.T) {
	schema := DefaultSchema()
	ts := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	org := &Organization{
		ID:             "org-1",
		Perms:          Flags{KeyViewQuotes: false, KeyManageUsers: true},
		PermsUpdatedAt: &ts,
	}

	set := schema.Resolve(nil, org)
	if set.Has(KeyViewQuotes) {
		t.Fatal("org flag must win over schema default")
	}
	if !set.Has(KeyManageUsers) {
		t.Fatal("org grant must apply")
	}
	if !set.Has(KeyViewIncidents) {
		t.Fatal("keys missing from org flags keep the schema default")
	}
	if !set.InheritedFromOrg {
		t.Fatal("org-only resolution stays inherited")
	}
	if !set.LastUpdated.Equal(ts) {
		t.Fatalf("expected org timestamp, got %v", set.LastUpdated)
	}
}

func TestResolveUserOverrideWins(t *testing.T) {
	schema := DefaultSchema()
	orgTS := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	userTS := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	org := &Organization{
		ID:             "org-1",
		Perms:          Flags{KeyViewQuotes: false},
		PermsUpdatedAt: &orgTS,
	}
	user := &User{
		ID:               "user-1",
		OrganizationID:   "org-1",
		Override:         Flags{KeyGenerateAIReports: true},
		InheritedFromOrg: false,
		PermsUpdatedAt:   &userTS,
	}

	set := schema.Resolve(user, org)
	if set.InheritedFromOrg {
		t.Fatal("active override ends inheritance")
	}
	if !set.Has(KeyGenerateAIReports) {
		t.Fatal("override flag must apply")
	}
	if set.Has(KeyViewQuotes) {
		t.Fatal("keys missing from the override fall back to the org value")
	}
	if !set.LastUpdated.Equal(userTS) {
		t.Fatalf("expected user timestamp, got %v", set.LastUpdated)
	}
}

func TestResolveDormantOverrideIgnored(t *testing.T) {
	schema := DefaultSchema()
	user := &User{
		ID:               "user-1",
		Override:         Flags{KeyManageUsers: true},
		InheritedFromOrg: true,
	}

	set := schema.Resolve(user, nil)
	if !set.InheritedFromOrg {
		t.Fatal("inherited user stays inherited")
	}
	if set.Has(KeyManageUsers) {
		t.Fatal("dormant override bytes must not leak into the resolved set")
	}
}

func TestResolveDropsUnknownKeys(t *testing.T) {
	schema := DefaultSchema()
	org := &Organization{
		ID:    "org-1",
		Perms: Flags{"launchMissiles": true, KeyViewQuotes: false},
	}

	set := schema.Resolve(nil, org)
	if _, ok := set.Flags["launchMissiles"]; ok {
		t.Fatal("keys outside the schema must be dropped")
	}
	if set.Has(KeyViewQuotes) {
		t.Fatal("known keys still apply")
	}
}

func TestResolveDoesNotMutateInputs(t *testing.T) {
	schema := DefaultSchema()
	org := &Organization{ID: "org-1", Perms: Flags{KeyViewQuotes: false}}
	user := &User{
		ID:               "user-1",
		Override:         Flags{KeyManageUsers: true},
		InheritedFromOrg: false,
	}

	_ = schema.Resolve(user, org)
	if len(org.Perms) != 1 {
		t.Fatalf("org flags mutated: %v", org.Perms)
	}
	if len(user.Override) != 1 {
		t.Fatalf("user override mutated: %v", user.Override)
	}
}

func TestHomeSetGrantsEverything(t *testing.T) {
	set := DefaultSchema().HomeSet()
	for _, k := range AllKeys() {
		if !set.Has(k) {
			t.Fatalf("home set must grant %s", k)
		}
	}
}
