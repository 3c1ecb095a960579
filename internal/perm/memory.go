package perm

import (
	"context"
	"sort"
	"sync"
	"time"

	"sentra.org/internal/ids"
)

// InMemoryStore implements Store with in-process concurrency safety. Used by
// tests and the smoke binary; production deployments use the Postgres store.
type InMemoryStore struct {
	mu    sync.RWMutex
	orgs  map[string]Organization
	users map[string]User
}

// NewInMemoryStore creates an empty directory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orgs:  make(map[string]Organization),
		users: make(map[string]User),
	}
}

func (s *InMemoryStore) CreateOrganization(ctx context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	if _, ok := s.orgs[org.ID]; ok {
		return ErrConflict
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	s.orgs[org.ID] = cloneOrg(*org)
	return nil
}

func (s *InMemoryStore) GetOrganization(ctx context.Context, id string) (Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return Organization{}, ErrNotFound
	}
	return cloneOrg(org), nil
}

func (s *InMemoryStore) ListOrganizations(ctx context.Context) ([]Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		out = append(out, cloneOrg(org))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemoryStore) CreateUser(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = ids.New()
	}
	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	if _, ok := s.orgs[user.OrganizationID]; !ok {
		return ErrNotFound
	}
	for _, existing := range s.users {
		if existing.OrganizationID == user.OrganizationID && existing.Email == user.Email {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *InMemoryStore) GetUser(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

func (s *InMemoryStore) ListUsers(ctx context.Context, organizationID string) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []User
	for _, user := range s.users {
		if user.OrganizationID == organizationID {
			out = append(out, cloneUser(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *InMemoryStore) SaveOrgPermissions(ctx context.Context, orgID string, flags Flags, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return ErrNotFound
	}
	org.Perms = flags.clone()
	ts := updatedAt
	org.PermsUpdatedAt = &ts
	org.UpdatedAt = time.Now().UTC()
	s.orgs[orgID] = org
	return nil
}

func (s *InMemoryStore) SaveUserOverride(ctx context.Context, userID string, flags Flags, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.Override = flags.clone()
	user.InheritedFromOrg = false
	ts := updatedAt
	user.PermsUpdatedAt = &ts
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}

func (s *InMemoryStore) SetUserInherited(ctx context.Context, userID string, inherited bool, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.InheritedFromOrg = inherited
	ts := updatedAt
	user.PermsUpdatedAt = &ts
	user.UpdatedAt = time.Now().UTC()
	s.users[userID] = user
	return nil
}

func (s *InMemoryStore) SetUsersInherited(ctx context.Context, orgID string, updatedAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, user := range s.users {
		if user.OrganizationID != orgID {
			continue
		}
		user.InheritedFromOrg = true
		ts := updatedAt
		user.PermsUpdatedAt = &ts
		user.UpdatedAt = time.Now().UTC()
		s.users[id] = user
		n++
	}
	return n, nil
}

func cloneOrg(org Organization) Organization {
	org.Perms = org.Perms.clone()
	if org.PermsUpdatedAt != nil {
		ts := *org.PermsUpdatedAt
		org.PermsUpdatedAt = &ts
	}
	return org
}

func cloneUser(user User) User {
	user.Override = user.Override.clone()
	if user.PermsUpdatedAt != nil {
		ts := *user.PermsUpdatedAt
		user.PermsUpdatedAt = &ts
	}
	return user
}
