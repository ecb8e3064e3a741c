package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/goalbot/internal/domain"
)

const (
	identityColumns = `id, chat_id, username, verification_code, user_id`

	insertIdentityQuery = `INSERT INTO tg_users (chat_id, username)
VALUES (?, ?)
ON CONFLICT (chat_id) DO NOTHING`

	identityByChatQuery = `SELECT ` + identityColumns + ` FROM tg_users WHERE chat_id = ?`

	setCodeQuery = `UPDATE tg_users
SET verification_code = ?, updated = CURRENT_TIMESTAMP
WHERE id = ? AND user_id IS NULL`

	linkByCodeQuery = `UPDATE tg_users
SET user_id = ?, verification_code = NULL, updated = CURRENT_TIMESTAMP
WHERE verification_code = ? AND user_id IS NULL
RETURNING ` + identityColumns
)

// IdentityRepository persists chat identities (tg_users).
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository binds the repository to db.
func NewIdentityRepository(db *sqlx.DB) (*IdentityRepository, error) {
	if err := requireDB(db); err != nil {
		return nil, err
	}
	return &IdentityRepository{db: db}, nil
}

// GetOrCreate returns the identity for chatID, inserting an unlinked one on
// first contact. Concurrent first contacts converge on the same row.
func (r *IdentityRepository) GetOrCreate(ctx context.Context, chatID int64, username string) (domain.ChatIdentity, error) {
	var name any
	if username != "" {
		name = username
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(insertIdentityQuery), chatID, name); err != nil {
		return domain.ChatIdentity{}, fmt.Errorf("storage: create identity: %w", err)
	}
	return r.GetByChatID(ctx, chatID)
}

// GetByChatID loads the identity of chatID or returns ErrNotFound.
func (r *IdentityRepository) GetByChatID(ctx context.Context, chatID int64) (domain.ChatIdentity, error) {
	var ident domain.ChatIdentity
	err := r.db.GetContext(ctx, &ident, r.db.Rebind(identityByChatQuery), chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChatIdentity{}, ErrNotFound
	}
	if err != nil {
		return domain.ChatIdentity{}, fmt.Errorf("storage: get identity: %w", err)
	}
	return ident, nil
}

// SetVerificationCode replaces the pending code of an unlinked identity.
func (r *IdentityRepository) SetVerificationCode(ctx context.Context, identityID int64, code string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(setCodeQuery), code, identityID)
	if err != nil {
		return fmt.Errorf("storage: set verification code: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: set verification code: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkByCode binds the identity holding code to accountID and clears the
// code in one statement. It returns ErrNotFound when no unlinked identity
// holds code.
func (r *IdentityRepository) LinkByCode(ctx context.Context, code string, accountID int64) (domain.ChatIdentity, error) {
	var ident domain.ChatIdentity
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(linkByCodeQuery), accountID, code).StructScan(&ident)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ChatIdentity{}, ErrNotFound
	}
	if err != nil {
		return domain.ChatIdentity{}, fmt.Errorf("storage: link identity: %w", err)
	}
	return ident, nil
}
