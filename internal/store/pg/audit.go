package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sentra.org/internal/audit"
)

var _ audit.Store = (*Store)(nil)

// Insert appends one audit entry. The entry id is assigned by the audit
// package before it reaches the store.
func (s *Store) Insert(ctx context.Context, entry *audit.Entry) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	changesJSON, err := json.Marshal(entry.Changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	keysJSON, err := json.Marshal(entry.ChangedKeys())
	if err != nil {
		return fmt.Errorf("marshal changed keys: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_entries
			(id, scope, org_id, org_name, user_id, user_name, actor_id, actor_name, action, changes, changed_keys, note, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		entry.ID, entry.Scope, entry.OrgID, nullIfEmpty(entry.OrgName),
		nullIfEmpty(entry.UserID), nullIfEmpty(entry.UserName),
		entry.Actor.ID, nullIfEmpty(entry.Actor.Name),
		string(entry.Action), changesJSON, keysJSON, nullIfEmpty(entry.Note), entry.CreatedAt,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return audit.ErrInvalidEntry
		}
		return err
	}
	return nil
}

// Select returns entries matching the query, newest first. The entry id is
// the pagination cursor: ids are time-ordered ULIDs, so "older than the
// cursor" is a plain id comparison.
func (s *Store) Select(ctx context.Context, q audit.Query, limit int, cursor string) ([]audit.Entry, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}

	var (
		where []string
		args  []any
		idx   = 1
	)
	add := func(clause string, value any) {
		where = append(where, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}

	if q.OrgID != "" {
		add("org_id = $%d", q.OrgID)
	}
	if q.UserID != "" {
		add("user_id = $%d", q.UserID)
	}
	if q.ActorID != "" {
		add("actor_id = $%d", q.ActorID)
	}
	if q.Scope != "" {
		add("scope = $%d", q.Scope)
	}
	if q.Key != "" {
		keyJSON, err := json.Marshal(q.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal key filter: %w", err)
		}
		add("changed_keys @> $%d", keyJSON)
	}
	if !q.Since.IsZero() {
		add("created_at >= $%d", q.Since)
	}
	if !q.Until.IsZero() {
		add("created_at < $%d", q.Until)
	}
	if cursor != "" {
		add("id < $%d", cursor)
	}

	query := `
		select id, scope, org_id, coalesce(org_name, ''), coalesce(user_id, ''), coalesce(user_name, ''),
			actor_id, coalesce(actor_name, ''), action, changes, coalesce(note, ''), created_at
		from audit_entries`
	if len(where) > 0 {
		query += "\n\t\twhere " + strings.Join(where, " and ")
	}
	query += fmt.Sprintf("\n\t\torder by id desc\n\t\tlimit $%d", idx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var (
			entry      audit.Entry
			rawChanges []byte
		)
		if err := rows.Scan(
			&entry.ID, &entry.Scope, &entry.OrgID, &entry.OrgName,
			&entry.UserID, &entry.UserName,
			&entry.Actor.ID, &entry.Actor.Name,
			&entry.Action, &rawChanges, &entry.Note, &entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(rawChanges) > 0 {
			if err := json.Unmarshal(rawChanges, &entry.Changes); err != nil {
				return nil, fmt.Errorf("decode changes: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
