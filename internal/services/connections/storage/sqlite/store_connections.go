package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
)

const connectionColumns = `id, user_a_id, user_b_id, community_id, request_id, created_at`

// CreateConnection inserts a connection. The pair unique index arbitrates
// concurrent approvals of the same pair.
func (s *Store) CreateConnection(ctx context.Context, record storage.ConnectionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("connection id is required")
	}
	userA := strings.TrimSpace(record.UserAID)
	userB := strings.TrimSpace(record.UserBID)
	if userA == "" || userB == "" {
		return fmt.Errorf("both user ids are required")
	}
	if userB < userA {
		userA, userB = userB, userA
	}
	if userA == userB {
		return fmt.Errorf("connection users must differ")
	}
	if strings.TrimSpace(record.CommunityID) == "" {
		return fmt.Errorf("community id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO user_connections (`+connectionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		userA,
		userB,
		record.CommunityID,
		strings.TrimSpace(record.RequestID),
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create connection: %w", err)
	}
	return nil
}

// GetConnectionBetween returns the connection between two users in a
// community, regardless of argument ordering.
func (s *Store) GetConnectionBetween(ctx context.Context, communityID string, userAID string, userBID string) (storage.ConnectionRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ConnectionRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ConnectionRecord{}, fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	userAID = strings.TrimSpace(userAID)
	userBID = strings.TrimSpace(userBID)
	if communityID == "" {
		return storage.ConnectionRecord{}, fmt.Errorf("community id is required")
	}
	if userAID == "" || userBID == "" {
		return storage.ConnectionRecord{}, fmt.Errorf("both user ids are required")
	}
	if userBID < userAID {
		userAID, userBID = userBID, userAID
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+connectionColumns+`
		 FROM user_connections
		 WHERE community_id = ? AND user_a_id = ? AND user_b_id = ?`,
		communityID,
		userAID,
		userBID,
	)
	var (
		record    storage.ConnectionRecord
		createdAt int64
	)
	err := row.Scan(
		&record.ID,
		&record.UserAID,
		&record.UserBID,
		&record.CommunityID,
		&record.RequestID,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ConnectionRecord{}, storage.ErrNotFound
		}
		return storage.ConnectionRecord{}, fmt.Errorf("get connection: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// ListConnectionsForUser returns one page of connections involving the user
// on either side of the pair.
func (s *Store) ListConnectionsForUser(ctx context.Context, userID string, filter storage.ListFilter, pageSize int, pageToken string) (storage.ConnectionPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.ConnectionPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ConnectionPage{}, fmt.Errorf("storage is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.ConnectionPage{}, fmt.Errorf("user id is required")
	}
	if pageSize <= 0 {
		return storage.ConnectionPage{}, fmt.Errorf("page size must be greater than zero")
	}

	query := `SELECT ` + connectionColumns + `
		 FROM user_connections
		 WHERE (user_a_id = ? OR user_b_id = ?)`
	args := []any{userID, userID}
	if pageToken = strings.TrimSpace(pageToken); pageToken != "" {
		query += ` AND id > ?`
		args = append(args, pageToken)
	}
	if strings.TrimSpace(filter.Where) != "" {
		query += ` AND (` + filter.Where + `)`
		args = append(args, filter.Args...)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.ConnectionPage{}, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	page := storage.ConnectionPage{
		Connections: make([]storage.ConnectionRecord, 0, pageSize),
	}
	for rows.Next() {
		var (
			record    storage.ConnectionRecord
			createdAt int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.UserAID,
			&record.UserBID,
			&record.CommunityID,
			&record.RequestID,
			&createdAt,
		); err != nil {
			return storage.ConnectionPage{}, fmt.Errorf("list connections: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		page.Connections = append(page.Connections, record)
	}
	if err := rows.Err(); err != nil {
		return storage.ConnectionPage{}, fmt.Errorf("list connections: %w", err)
	}
	if len(page.Connections) > pageSize {
		page.NextPageToken = page.Connections[pageSize-1].ID
		page.Connections = page.Connections[:pageSize]
	}
	return page, nil
}
