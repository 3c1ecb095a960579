package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"sentra.org/internal/perm"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateOrganization(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("insert into organizations").
		WithArgs(sqlmock.AnyArg(), "Acme", nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	org := perm.Organization{Name: "Acme"}
	if err := store.CreateOrganization(context.Background(), &org); err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if org.ID == "" {
		t.Fatal("expected generated id")
	}
	if !org.CreatedAt.Equal(now) {
		t.Fatalf("timestamps not scanned: %v", org.CreatedAt)
	}
	expectationsMet(t, mock)
}

func TestCreateOrganizationConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into organizations").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	org := perm.Organization{ID: "org-1", Name: "Acme"}
	if err := store.CreateOrganization(context.Background(), &org); !errors.Is(err, perm.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestGetOrganizationNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, name, perms").
		WithArgs("org-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "perms", "perms_updated_at", "created_at", "updated_at"}))

	if _, err := store.GetOrganization(context.Background(), "org-missing"); !errors.Is(err, perm.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestGetOrganizationDecodesFlags(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select id, name, perms").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "perms", "perms_updated_at", "created_at", "updated_at"}).
			AddRow("org-1", "Acme", []byte(`{"viewQuotes":false,"manageUsers":true}`), now, now, now))

	org, err := store.GetOrganization(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	if org.Perms[perm.KeyViewQuotes] || !org.Perms[perm.KeyManageUsers] {
		t.Fatalf("flags not decoded: %v", org.Perms)
	}
	if org.PermsUpdatedAt == nil {
		t.Fatal("expected permission timestamp")
	}
	expectationsMet(t, mock)
}

func TestGetOrganizationNullFlags(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("select id, name, perms").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "perms", "perms_updated_at", "created_at", "updated_at"}).
			AddRow("org-1", "Acme", nil, nil, now, now))

	org, err := store.GetOrganization(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	if org.Perms != nil {
		t.Fatalf("SQL NULL must decode to a nil flag map, got %v", org.Perms)
	}
	expectationsMet(t, mock)
}

func TestCreateUserForeignKey(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	user := perm.User{ID: "u1", OrganizationID: "org-gone", Email: "a@b.c", InheritedFromOrg: true}
	if err := store.CreateUser(context.Background(), &user); !errors.Is(err, perm.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing organization, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCreateUserConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	user := perm.User{ID: "u1", OrganizationID: "org-1", Email: "a@b.c"}
	if err := store.CreateUser(context.Background(), &user); !errors.Is(err, perm.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestSaveOrgPermissions(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("update organizations").
		WithArgs("org-1", sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.SaveOrgPermissions(context.Background(), "org-1", perm.Flags{perm.KeyViewQuotes: false}, now)
	if err != nil {
		t.Fatalf("SaveOrgPermissions: %v", err)
	}
	expectationsMet(t, mock)
}

func TestSaveOrgPermissionsMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update organizations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SaveOrgPermissions(context.Background(), "org-gone", perm.Flags{}, time.Now())
	if !errors.Is(err, perm.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero rows, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestSaveUserOverrideMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SaveUserOverride(context.Background(), "ghost", perm.Flags{}, time.Now())
	if !errors.Is(err, perm.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestSetUsersInheritedCount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectExec("update users").
		WithArgs("org-1", now).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.SetUsersInherited(context.Background(), "org-1", now)
	if err != nil {
		t.Fatalf("SetUsersInherited: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 rows, got %d", n)
	}
	expectationsMet(t, mock)
}
