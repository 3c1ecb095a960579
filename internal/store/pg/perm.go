package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sentra.org/internal/ids"
	"sentra.org/internal/perm"
)

var _ perm.Store = (*Store)(nil)

func (s *Store) CreateOrganization(ctx context.Context, org *perm.Organization) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if org.ID == "" {
		org.ID = ids.New()
	}
	permsJSON, err := marshalFlags(org.Perms)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (id, name, perms, perms_updated_at)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, org.ID, org.Name, permsJSON, org.PermsUpdatedAt)
	if err := row.Scan(&org.CreatedAt, &org.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return perm.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (perm.Organization, error) {
	if s.db == nil {
		return perm.Organization{}, errors.New("database connection unavailable")
	}
	var (
		org      perm.Organization
		rawPerms []byte
	)
	err := s.db.QueryRowContext(ctx, `
		select id, name, perms, perms_updated_at, created_at, updated_at
		from organizations
		where id = $1
	`, id).Scan(&org.ID, &org.Name, &rawPerms, &org.PermsUpdatedAt, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return perm.Organization{}, perm.ErrNotFound
	}
	if err != nil {
		return perm.Organization{}, err
	}
	if org.Perms, err = unmarshalFlags(rawPerms); err != nil {
		return perm.Organization{}, err
	}
	return org, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]perm.Organization, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, perms, perms_updated_at, created_at, updated_at
		from organizations
		order by name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []perm.Organization
	for rows.Next() {
		var (
			org      perm.Organization
			rawPerms []byte
		)
		if err := rows.Scan(&org.ID, &org.Name, &rawPerms, &org.PermsUpdatedAt, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		if org.Perms, err = unmarshalFlags(rawPerms); err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) CreateUser(ctx context.Context, user *perm.User) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	if user.ID == "" {
		user.ID = ids.New()
	}
	overrideJSON, err := marshalFlags(user.Override)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, organization_id, email, display_name, override, inherited_from_org, perms_updated_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, user.ID, user.OrganizationID, user.Email, user.DisplayName, overrideJSON, user.InheritedFromOrg, user.PermsUpdatedAt)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return perm.ErrConflict
			case pgErrForeignKeyViolation:
				return perm.ErrNotFound
			}
		}
		return err
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (perm.User, error) {
	if s.db == nil {
		return perm.User{}, errors.New("database connection unavailable")
	}
	var (
		user        perm.User
		rawOverride []byte
	)
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, email, display_name, override, inherited_from_org, perms_updated_at, created_at, updated_at
		from users
		where id = $1
	`, id).Scan(&user.ID, &user.OrganizationID, &user.Email, &user.DisplayName, &rawOverride, &user.InheritedFromOrg, &user.PermsUpdatedAt, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return perm.User{}, perm.ErrNotFound
	}
	if err != nil {
		return perm.User{}, err
	}
	if user.Override, err = unmarshalFlags(rawOverride); err != nil {
		return perm.User{}, err
	}
	return user, nil
}

func (s *Store) ListUsers(ctx context.Context, organizationID string) ([]perm.User, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, email, display_name, override, inherited_from_org, perms_updated_at, created_at, updated_at
		from users
		where organization_id = $1
		order by email
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []perm.User
	for rows.Next() {
		var (
			user        perm.User
			rawOverride []byte
		)
		if err := rows.Scan(&user.ID, &user.OrganizationID, &user.Email, &user.DisplayName, &rawOverride, &user.InheritedFromOrg, &user.PermsUpdatedAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		if user.Override, err = unmarshalFlags(rawOverride); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) SaveOrgPermissions(ctx context.Context, orgID string, flags perm.Flags, updatedAt time.Time) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	permsJSON, err := marshalFlags(flags)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update organizations
		set perms = $2, perms_updated_at = $3, updated_at = now()
		where id = $1
	`, orgID, permsJSON, updatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) SaveUserOverride(ctx context.Context, userID string, flags perm.Flags, updatedAt time.Time) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	overrideJSON, err := marshalFlags(flags)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		update users
		set override = $2, inherited_from_org = false, perms_updated_at = $3, updated_at = now()
		where id = $1
	`, userID, overrideJSON, updatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) SetUserInherited(ctx context.Context, userID string, inherited bool, updatedAt time.Time) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update users
		set inherited_from_org = $2, perms_updated_at = $3, updated_at = now()
		where id = $1
	`, userID, inherited, updatedAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) SetUsersInherited(ctx context.Context, orgID string, updatedAt time.Time) (int, error) {
	if s.db == nil {
		return 0, errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `
		update users
		set inherited_from_org = true, perms_updated_at = $2, updated_at = now()
		where organization_id = $1
	`, orgID, updatedAt)
	if err != nil {
		return 0, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(aff), nil
}

func requireRow(res sql.Result) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return perm.ErrNotFound
	}
	return nil
}

// marshalFlags keeps a nil flag map as SQL NULL so "never stored" stays
// distinguishable from "stored empty".
func marshalFlags(flags perm.Flags) (any, error) {
	if flags == nil {
		return nil, nil
	}
	data, err := json.Marshal(flags)
	if err != nil {
		return nil, fmt.Errorf("marshal flags: %w", err)
	}
	return data, nil
}

func unmarshalFlags(raw []byte) (perm.Flags, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var flags perm.Flags
	if err := json.Unmarshal(raw, &flags); err != nil {
		return nil, fmt.Errorf("decode flags: %w", err)
	}
	return flags, nil
}
