package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
)

// CreateCode inserts a new active connection code.
func (s *Store) CreateCode(ctx context.Context, code storage.ConnectCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	value := strings.TrimSpace(code.Code)
	ownerUserID := strings.TrimSpace(code.OwnerUserID)
	communityID := strings.TrimSpace(code.CommunityID)
	if value == "" {
		return fmt.Errorf("code is required")
	}
	if ownerUserID == "" {
		return fmt.Errorf("owner user id is required")
	}
	if communityID == "" {
		return fmt.Errorf("community id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO connect_codes (code, owner_user_id, community_id, active, created_at, deactivated_at)
		 VALUES (?, ?, ?, 1, ?, 0)`,
		value,
		ownerUserID,
		communityID,
		toMillis(code.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create code: %w", err)
	}
	return nil
}

// GetCodeByValue returns the active code with the given value.
func (s *Store) GetCodeByValue(ctx context.Context, code string) (storage.ConnectCode, error) {
	if err := ctx.Err(); err != nil {
		return storage.ConnectCode{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ConnectCode{}, fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return storage.ConnectCode{}, fmt.Errorf("code is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT code, owner_user_id, community_id, active, created_at, deactivated_at
		 FROM connect_codes
		 WHERE code = ? AND active = 1`,
		code,
	)
	return scanCode(row)
}

// GetActiveCodeForOwner returns the owner's active code in a community.
func (s *Store) GetActiveCodeForOwner(ctx context.Context, ownerUserID string, communityID string) (storage.ConnectCode, error) {
	if err := ctx.Err(); err != nil {
		return storage.ConnectCode{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ConnectCode{}, fmt.Errorf("storage is not configured")
	}
	ownerUserID = strings.TrimSpace(ownerUserID)
	communityID = strings.TrimSpace(communityID)
	if ownerUserID == "" {
		return storage.ConnectCode{}, fmt.Errorf("owner user id is required")
	}
	if communityID == "" {
		return storage.ConnectCode{}, fmt.Errorf("community id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT code, owner_user_id, community_id, active, created_at, deactivated_at
		 FROM connect_codes
		 WHERE owner_user_id = ? AND community_id = ? AND active = 1`,
		ownerUserID,
		communityID,
	)
	return scanCode(row)
}

// DeactivateCode retires an active code. The row is kept for audit.
func (s *Store) DeactivateCode(ctx context.Context, code string, deactivatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("code is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE connect_codes
		 SET active = 0, deactivated_at = ?
		 WHERE code = ? AND active = 1`,
		toMillis(deactivatedAt),
		code,
	)
	if err != nil {
		return fmt.Errorf("deactivate code: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate code: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanCode(row *sql.Row) (storage.ConnectCode, error) {
	var (
		record        storage.ConnectCode
		active        int
		createdAt     int64
		deactivatedAt int64
	)
	err := row.Scan(
		&record.Code,
		&record.OwnerUserID,
		&record.CommunityID,
		&active,
		&createdAt,
		&deactivatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ConnectCode{}, storage.ErrNotFound
		}
		return storage.ConnectCode{}, fmt.Errorf("scan code: %w", err)
	}
	record.Active = active != 0
	record.CreatedAt = fromMillis(createdAt)
	record.DeactivatedAt = fromMillis(deactivatedAt)
	return record, nil
}
