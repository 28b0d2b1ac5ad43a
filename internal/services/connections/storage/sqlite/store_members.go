package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
)

// PutMember upserts one community membership.
func (s *Store) PutMember(ctx context.Context, member storage.MemberRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	communityID := strings.TrimSpace(member.CommunityID)
	userID := strings.TrimSpace(member.UserID)
	if communityID == "" {
		return fmt.Errorf("community id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO community_members (community_id, user_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(community_id, user_id) DO NOTHING`,
		communityID,
		userID,
		toMillis(member.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("put member: %w", err)
	}
	return nil
}

// IsMember reports whether a user belongs to a community.
func (s *Store) IsMember(ctx context.Context, communityID string, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	userID = strings.TrimSpace(userID)
	if communityID == "" {
		return false, fmt.Errorf("community id is required")
	}
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}

	var found int
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT 1 FROM community_members WHERE community_id = ? AND user_id = ?`,
		communityID,
		userID,
	)
	if err := row.Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("is member: %w", err)
	}
	return true, nil
}

// DeleteMember removes one community membership.
func (s *Store) DeleteMember(ctx context.Context, communityID string, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	userID = strings.TrimSpace(userID)
	if communityID == "" {
		return fmt.Errorf("community id is required")
	}
	if userID == "" {
		return fmt.Errorf("user id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM community_members WHERE community_id = ? AND user_id = ?`,
		communityID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}
