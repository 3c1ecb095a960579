package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"sentra.org/internal/audit"
)

func auditColumns() []string {
	return []string{
		"id", "scope", "org_id", "org_name", "user_id", "user_name",
		"actor_id", "actor_name", "action", "changes", "note", "created_at",
	}
}

func TestAuditInsert(t *testing.T) {
	store, mock := newMockStore(t)
	on := true
	entry := &audit.Entry{
		ID:        "01h-entry",
		Scope:     audit.ScopeUser,
		OrgID:     "org-1",
		OrgName:   "Acme",
		UserID:    "user-1",
		Actor:     audit.Actor{ID: "admin-1"},
		Action:    audit.ActionUpdate,
		Changes:   []audit.Change{{Key: "viewQuotes", To: &on}},
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("insert into audit_entries").
		WithArgs(
			entry.ID, entry.Scope, entry.OrgID, sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			entry.Actor.ID, sqlmock.AnyArg(),
			"update", sqlmock.AnyArg(), []byte(`["viewQuotes"]`), sqlmock.AnyArg(), entry.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	expectationsMet(t, mock)
}

func TestAuditInsertDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("insert into audit_entries").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	entry := &audit.Entry{
		ID: "01h-entry", Scope: audit.ScopeOrganization, OrgID: "org-1",
		Actor: audit.Actor{ID: "admin-1"}, Action: audit.ActionSet,
	}
	if err := store.Insert(context.Background(), entry); !errors.Is(err, audit.ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry for duplicate id, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestAuditSelectNoFilters(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select id, scope, org_id").
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows(auditColumns()).
			AddRow("02", "organization", "org-1", "Acme", "", "", "admin-1", "", "set", []byte(`[]`), "", now).
			AddRow("01", "user", "org-1", "Acme", "user-1", "Alice", "admin-1", "Root", "update",
				[]byte(`[{"key":"viewQuotes","from":true,"to":false}]`), "tightened", now))

	entries, err := store.Select(context.Background(), audit.Query{}, 100, "")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].ID != "02" || entries[1].ID != "01" {
		t.Fatalf("order not preserved: %v", entries)
	}
	e := entries[1]
	if len(e.Changes) != 1 || e.Changes[0].Key != "viewQuotes" {
		t.Fatalf("changes not decoded: %v", e.Changes)
	}
	if e.Changes[0].From == nil || !*e.Changes[0].From || e.Changes[0].To == nil || *e.Changes[0].To {
		t.Fatalf("change values not decoded: %+v", e.Changes[0])
	}
	if e.Note != "tightened" || e.UserName != "Alice" {
		t.Fatalf("nullable columns not scanned: %+v", e)
	}
	expectationsMet(t, mock)
}

func TestAuditSelectCombinedFilters(t *testing.T) {
	store, mock := newMockStore(t)
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	// Placeholder order follows the filter build order.
	mock.ExpectQuery("select id, scope, org_id").
		WithArgs("org-1", "user-1", "admin-1", "user", []byte(`"viewQuotes"`), since, until, "03-cursor", 50).
		WillReturnRows(sqlmock.NewRows(auditColumns()))

	q := audit.Query{
		OrgID:   "org-1",
		UserID:  "user-1",
		ActorID: "admin-1",
		Scope:   "user",
		Key:     "viewQuotes",
		Since:   since,
		Until:   until,
	}
	entries, err := store.Select(context.Background(), q, 50, "03-cursor")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
	expectationsMet(t, mock)
}

func TestAuditSelectCursorOnly(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, scope, org_id").
		WithArgs("05-cursor", 10).
		WillReturnRows(sqlmock.NewRows(auditColumns()))

	if _, err := store.Select(context.Background(), audit.Query{}, 10, "05-cursor"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	expectationsMet(t, mock)
}
