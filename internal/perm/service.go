package perm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sentra.org/internal/audit"
	"sentra.org/internal/obs"
)

// Recorder receives one change log entry per mutation. Satisfied by
// *audit.Log.
type Recorder interface {
	Append(ctx context.Context, entry *audit.Entry) error
}

// Service applies permission mutations. Every mutation reads the current
// state, computes the diff, writes the new state, then appends an audit
// entry. The state write and the log append are two separate writes: a crash
// between them leaves the permission change applied with no entry, which is
// an accepted data-completeness gap, not a correctness defect. Concurrent
// writers are last-write-wins.
type Service struct {
	schema    Schema
	store     Store
	log       Recorder
	homeOrgID string
	now       func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the mutation service. homeOrgID names the protected
// organization whose permissions are fixed in code.
func NewService(schema Schema, store Store, log Recorder, homeOrgID string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errInvalidf("store is required")
	}
	if log == nil {
		return nil, errInvalidf("audit log is required")
	}
	homeOrgID = strings.TrimSpace(homeOrgID)
	if homeOrgID == "" {
		return nil, errInvalidf("home organization id is required")
	}
	s := &Service{
		schema:    schema,
		store:     store,
		log:       log,
		homeOrgID: homeOrgID,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Schema returns the schema the service resolves against.
func (s *Service) Schema() Schema { return s.schema }

// HomeOrgID returns the protected organization id.
func (s *Service) HomeOrgID() string { return s.homeOrgID }

// SetFlag writes one boolean flag on the target's permission set. The
// current effective flags are materialized, the one key is applied over
// them, and the full result is stored: on user scope this promotes the user
// out of inheritance, and the stored override becomes a deliberate full
// replacement snapshot rather than a partial patch.
func (s *Service) SetFlag(ctx context.Context, actor audit.Actor, scope Scope, targetID string, key Key, value bool, note string) error {
	if _, err := ParseKey(string(key)); err != nil {
		return err
	}
	switch scope {
	case ScopeOrganization:
		return s.setOrgFlags(ctx, actor, targetID, func(effective Flags) Flags {
			after := effective.clone()
			after[key] = value
			return after
		}, audit.ActionUpdate, note)
	case ScopeUser:
		return s.setUserFlags(ctx, actor, targetID, func(effective Flags) Flags {
			after := effective.clone()
			after[key] = value
			return after
		}, audit.ActionUpdate, note)
	}
	return errInvalidf("unknown scope %q", scope)
}

// SetPermissions replaces the target's whole permission set in one write.
func (s *Service) SetPermissions(ctx context.Context, actor audit.Actor, scope Scope, targetID string, flags Flags, note string) error {
	for k := range flags {
		if _, err := ParseKey(string(k)); err != nil {
			return err
		}
	}
	apply := func(effective Flags) Flags {
		after := effective.clone()
		overlay(after, flags)
		return after
	}
	switch scope {
	case ScopeOrganization:
		return s.setOrgFlags(ctx, actor, targetID, apply, audit.ActionSet, note)
	case ScopeUser:
		return s.setUserFlags(ctx, actor, targetID, apply, audit.ActionSet, note)
	}
	return errInvalidf("unknown scope %q", scope)
}

func (s *Service) setOrgFlags(ctx context.Context, actor audit.Actor, orgID string, apply func(Flags) Flags, action audit.Action, note string) error {
	if orgID == s.homeOrgID {
		return fmt.Errorf("%w: home organization permissions are fixed", ErrForbidden)
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return err
	}

	effective := s.schema.Resolve(nil, &org).Flags
	after := apply(effective)
	changes := s.schema.Diff(effective, after)

	now := s.now().UTC()
	if err := s.store.SaveOrgPermissions(ctx, org.ID, after, now); err != nil {
		return err
	}
	obs.CountPermissionMutation(string(ScopeOrganization), string(action))
	return s.log.Append(ctx, &audit.Entry{
		Scope:   audit.ScopeOrganization,
		OrgID:   org.ID,
		OrgName: org.Name,
		Actor:   actor,
		Action:  action,
		Changes: toAuditChanges(changes),
		Note:    note,
	})
}

func (s *Service) setUserFlags(ctx context.Context, actor audit.Actor, userID string, apply func(Flags) Flags, action audit.Action, note string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	org, err := s.orgForUser(ctx, user)
	if err != nil {
		return err
	}

	effective := s.effective(user, org).Flags
	after := apply(effective)
	changes := s.schema.Diff(effective, after)

	now := s.now().UTC()
	if err := s.store.SaveUserOverride(ctx, user.ID, after, now); err != nil {
		return err
	}
	obs.CountPermissionMutation(string(ScopeUser), string(action))
	return s.log.Append(ctx, &audit.Entry{
		Scope:    audit.ScopeUser,
		OrgID:    user.OrganizationID,
		OrgName:  orgName(org),
		UserID:   user.ID,
		UserName: user.DisplayName,
		Actor:    actor,
		Action:   action,
		Changes:  toAuditChanges(changes),
		Note:     note,
	})
}

// ApplyOrgDefaults restores inheritance for every member of the
// organization in one batched write. Stored overrides stay in place: only
// the inheritance flag and the timestamp move, so a dormant override
// resurfaces if the flag is later flipped back. Returns the number of users
// touched.
func (s *Service) ApplyOrgDefaults(ctx context.Context, actor audit.Actor, orgID string, note string) (int, error) {
	if orgID == s.homeOrgID {
		return 0, fmt.Errorf("%w: home organization permissions are fixed", ErrForbidden)
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if org.Perms == nil {
		return 0, fmt.Errorf("%w: organization has no stored permission set to apply", ErrInvalidState)
	}

	now := s.now().UTC()
	n, err := s.store.SetUsersInherited(ctx, org.ID, now)
	if err != nil {
		return 0, err
	}
	obs.CountPermissionMutation(string(ScopeOrganization), string(audit.ActionReset))

	// Bulk operation: one symbolic change instead of a per-user diff list.
	inherited := true
	err = s.log.Append(ctx, &audit.Entry{
		Scope:   audit.ScopeOrganization,
		OrgID:   org.ID,
		OrgName: org.Name,
		Actor:   actor,
		Action:  audit.ActionReset,
		Changes: []audit.Change{{Key: "inheritedFromOrg", To: &inherited}},
		Note:    noteWithCount(note, n),
	})
	if err != nil {
		return n, err
	}
	return n, nil
}

// ResetUser restores inheritance for a single user. The stored override is
// untouched; only the flag and the timestamp move.
func (s *Service) ResetUser(ctx context.Context, actor audit.Actor, userID string, note string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	org, err := s.orgForUser(ctx, user)
	if err != nil {
		return err
	}

	before := s.effective(user, org).Flags
	inheritedUser := user
	inheritedUser.InheritedFromOrg = true
	after := s.effective(inheritedUser, org).Flags
	changes := s.schema.Diff(before, after)

	now := s.now().UTC()
	if err := s.store.SetUserInherited(ctx, user.ID, true, now); err != nil {
		return err
	}
	obs.CountPermissionMutation(string(ScopeUser), string(audit.ActionReset))
	return s.log.Append(ctx, &audit.Entry{
		Scope:    audit.ScopeUser,
		OrgID:    user.OrganizationID,
		OrgName:  orgName(org),
		UserID:   user.ID,
		UserName: user.DisplayName,
		Actor:    actor,
		Action:   audit.ActionReset,
		Changes:  toAuditChanges(changes),
		Note:     note,
	})
}

// EffectiveForUser loads the user and their organization and resolves the
// user's effective permission set. Members of the home organization get the
// code-fixed full grant.
func (s *Service) EffectiveForUser(ctx context.Context, userID string) (Set, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return Set{}, err
	}
	if user.OrganizationID == s.homeOrgID {
		return s.schema.HomeSet(), nil
	}
	org, err := s.orgForUser(ctx, user)
	if err != nil {
		return Set{}, err
	}
	return s.effective(user, org), nil
}

// EffectiveForOrganization resolves the organization's default grant.
func (s *Service) EffectiveForOrganization(ctx context.Context, orgID string) (Set, error) {
	if orgID == s.homeOrgID {
		return s.schema.HomeSet(), nil
	}
	org, err := s.store.GetOrganization(ctx, orgID)
	if err != nil {
		return Set{}, err
	}
	return s.schema.Resolve(nil, &org), nil
}

func (s *Service) effective(user User, org *Organization) Set {
	return s.schema.Resolve(&user, org)
}

// orgForUser tolerates a dangling organization reference: the resolver
// degrades to schema defaults when the organization record is missing.
func (s *Service) orgForUser(ctx context.Context, user User) (*Organization, error) {
	org, err := s.store.GetOrganization(ctx, user.OrganizationID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

func orgName(org *Organization) string {
	if org == nil {
		return ""
	}
	return org.Name
}

func toAuditChanges(changes []Change) []audit.Change {
	out := make([]audit.Change, 0, len(changes))
	for _, c := range changes {
		out = append(out, audit.Change{Key: string(c.Key), From: c.From, To: c.To})
	}
	return out
}

func noteWithCount(note string, n int) string {
	suffix := fmt.Sprintf("applied to %d users", n)
	if note == "" {
		return suffix
	}
	return note + " (" + suffix + ")"
}
