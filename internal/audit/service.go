package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sentra.org/internal/ids"
	"sentra.org/internal/obs"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

var (
	ErrInvalidEntry = errors.New("audit: invalid entry")
	ErrInvalidQuery = errors.New("audit: invalid query")
)

// Store persists entries. Select must return newest-first, strictly below the
// cursor when one is given.
type Store interface {
	Insert(ctx context.Context, entry *Entry) error
	Select(ctx context.Context, q Query, limit int, cursor string) ([]Entry, error)
}

// Log is the append-only change log service. Entries arrive fully formed from
// the mutation service; Log assigns identity and creation time and persists
// them.
type Log struct {
	store Store
	now   func() time.Time
	newID func() string
}

// LogOption configures Log behavior.
type LogOption func(*Log)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) LogOption {
	return func(l *Log) {
		if fn != nil {
			l.now = fn
		}
	}
}

// WithIDFunc overrides entry identifier generation (useful for tests).
func WithIDFunc(fn func() string) LogOption {
	return func(l *Log) {
		if fn != nil {
			l.newID = fn
		}
	}
}

func NewLog(store Store, opts ...LogOption) (*Log, error) {
	if store == nil {
		return nil, errors.New("audit: store is required")
	}
	l := &Log{store: store, now: time.Now, newID: ids.New}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Append validates the entry, assigns id and creation timestamp, and persists
// it as a new immutable record.
func (l *Log) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrInvalidEntry)
	}
	if entry.Scope != ScopeOrganization && entry.Scope != ScopeUser {
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidEntry, entry.Scope)
	}
	switch entry.Action {
	case ActionSet, ActionUpdate, ActionReset:
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEntry, entry.Action)
	}
	if strings.TrimSpace(entry.Actor.ID) == "" {
		return fmt.Errorf("%w: actor id is required", ErrInvalidEntry)
	}
	if strings.TrimSpace(entry.OrgID) == "" {
		return fmt.Errorf("%w: org id is required", ErrInvalidEntry)
	}
	if entry.Scope == ScopeUser && strings.TrimSpace(entry.UserID) == "" {
		return fmt.Errorf("%w: user id is required for user scope", ErrInvalidEntry)
	}

	entry.ID = l.newID()
	entry.CreatedAt = l.now().UTC()
	if err := l.store.Insert(ctx, entry); err != nil {
		return err
	}
	obs.CountAuditEntry(entry.Scope, string(entry.Action))
	return nil
}

// Query returns one newest-first page matching the filters. An empty filter
// set pages over the full log. The cursor is the id of the last entry of the
// previous page; ids are time-sortable, so strict descending order holds
// across pages.
func (l *Log) Query(ctx context.Context, q Query, limit int, cursor string) (Page, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && q.Until.Before(q.Since) {
		return Page{}, fmt.Errorf("%w: until precedes since", ErrInvalidQuery)
	}
	if q.Scope != "" && q.Scope != ScopeOrganization && q.Scope != ScopeUser {
		return Page{}, fmt.Errorf("%w: unknown scope %q", ErrInvalidQuery, q.Scope)
	}

	entries, err := l.store.Select(ctx, q, limit, strings.TrimSpace(cursor))
	if err != nil {
		return Page{}, err
	}
	page := Page{Entries: entries}
	if len(entries) == limit {
		page.NextCursor = entries[len(entries)-1].ID
	}
	return page, nil
}
