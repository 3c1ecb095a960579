package perm

import (
	"context"
	"strings"
)

// Directory provides the minimal organization/user management surface the
// admin API needs. Validation lives here; persistence is delegated to Store.
type Directory struct {
	store Store
}

func NewDirectory(store Store) (*Directory, error) {
	if store == nil {
		return nil, errInvalidf("store is required")
	}
	return &Directory{store: store}, nil
}

func (d *Directory) CreateOrganization(ctx context.Context, name string) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, errInvalidf("organization name is required")
	}
	org := Organization{Name: name}
	if err := d.store.CreateOrganization(ctx, &org); err != nil {
		return Organization{}, err
	}
	return org, nil
}

func (d *Directory) ListOrganizations(ctx context.Context) ([]Organization, error) {
	return d.store.ListOrganizations(ctx)
}

func (d *Directory) GetOrganization(ctx context.Context, id string) (Organization, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Organization{}, errInvalidf("organization_id is required")
	}
	return d.store.GetOrganization(ctx, id)
}

func (d *Directory) CreateUser(ctx context.Context, organizationID, email, displayName string) (User, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return User{}, errInvalidf("organization_id is required")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, errInvalidf("valid email is required")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = email
	}
	if _, err := d.store.GetOrganization(ctx, organizationID); err != nil {
		return User{}, err
	}
	user := User{
		OrganizationID:   organizationID,
		Email:            email,
		DisplayName:      displayName,
		InheritedFromOrg: true,
	}
	if err := d.store.CreateUser(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (d *Directory) ListUsers(ctx context.Context, organizationID string) ([]User, error) {
	organizationID = strings.TrimSpace(organizationID)
	if organizationID == "" {
		return nil, errInvalidf("organization_id is required")
	}
	return d.store.ListUsers(ctx, organizationID)
}

func (d *Directory) GetUser(ctx context.Context, userID string) (User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, errInvalidf("user_id is required")
	}
	return d.store.GetUser(ctx, userID)
}
