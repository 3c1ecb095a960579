package perm

import (
	"context"
	"time"
)

// Store describes persistence operations required by the permission
// subsystem. Every write touches a single record except SetUsersInherited,
// which the implementation must apply as one batched write over the
// organization's member set.
type Store interface {
	CreateOrganization(ctx context.Context, org *Organization) error
	GetOrganization(ctx context.Context, id string) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)

	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context, organizationID string) ([]User, error)

	// SaveOrgPermissions replaces the organization's stored set and refreshes
	// its permission timestamp.
	SaveOrgPermissions(ctx context.Context, orgID string, flags Flags, updatedAt time.Time) error

	// SaveUserOverride replaces the user's stored override, forces the
	// inheritance flag off and refreshes the permission timestamp.
	SaveUserOverride(ctx context.Context, userID string, flags Flags, updatedAt time.Time) error

	// SetUserInherited flips the user's inheritance flag without touching the
	// stored override bytes.
	SetUserInherited(ctx context.Context, userID string, inherited bool, updatedAt time.Time) error

	// SetUsersInherited flips inheritance back on for every member of the
	// organization in one write and reports how many users were touched.
	SetUsersInherited(ctx context.Context, orgID string, updatedAt time.Time) (int, error)
}
