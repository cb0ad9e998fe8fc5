package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/welile/tenants-hub/drafts"
	"github.com/welile/tenants-hub/finance"
)

// =============================================================================
// DRAFT STORE (drafts.Store interface)
// =============================================================================

// Load returns finance.ErrDraftNotFound when nothing is saved under key.
func (s *Store) Load(ctx context.Context, key string) (drafts.TenantDraft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM drafts WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, finance.ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	return drafts.Unmarshal([]byte(payload))
}

// Save replaces whatever is stored under key.
func (s *Store) Save(ctx context.Context, key string, draft drafts.TenantDraft) error {
	payload, err := drafts.Marshal(draft)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (key, kind, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			kind = excluded.kind,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, key, string(draft.Kind()), string(payload), time.Now().UTC().Format(timestampLayout))
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// Clear is a no-op for unknown keys.
func (s *Store) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to clear draft: %w", err)
	}
	return nil
}
