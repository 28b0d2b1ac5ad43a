package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/request"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
)

const requestColumns = `id, community_id, initiator_user_id, requester_user_id, status, created_at, responded_at, expires_at`

// CreateRequest inserts a pending connection request. The partial unique
// index on pending pairs arbitrates concurrent redemptions.
func (s *Store) CreateRequest(ctx context.Context, record storage.RequestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("request id is required")
	}
	if strings.TrimSpace(record.CommunityID) == "" {
		return fmt.Errorf("community id is required")
	}
	if strings.TrimSpace(record.InitiatorID) == "" || strings.TrimSpace(record.RequesterID) == "" {
		return fmt.Errorf("initiator and requester user ids are required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO connection_requests (`+requestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.CommunityID,
		record.InitiatorID,
		record.RequesterID,
		request.StatusLabel(record.Status),
		toMillis(record.CreatedAt),
		toMillis(record.RespondedAt),
		toMillis(record.ExpiresAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetRequest returns one request by ID.
func (s *Store) GetRequest(ctx context.Context, requestID string) (storage.RequestRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RequestRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RequestRecord{}, fmt.Errorf("storage is not configured")
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return storage.RequestRecord{}, fmt.Errorf("request id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+requestColumns+` FROM connection_requests WHERE id = ?`,
		requestID,
	)
	return scanRequestRow(row)
}

// FindPendingBetween returns the pending request between two users in a
// community, checking both directions.
func (s *Store) FindPendingBetween(ctx context.Context, communityID string, userAID string, userBID string) (storage.RequestRecord, error) {
	return s.findRequestBetween(ctx, communityID, userAID, userBID, request.StatusPending, "ASC")
}

// FindRejectedBetween returns the most recent rejected request between two
// users in a community, checking both directions.
func (s *Store) FindRejectedBetween(ctx context.Context, communityID string, userAID string, userBID string) (storage.RequestRecord, error) {
	return s.findRequestBetween(ctx, communityID, userAID, userBID, request.StatusRejected, "DESC")
}

func (s *Store) findRequestBetween(ctx context.Context, communityID string, userAID string, userBID string, status request.Status, order string) (storage.RequestRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RequestRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RequestRecord{}, fmt.Errorf("storage is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	userAID = strings.TrimSpace(userAID)
	userBID = strings.TrimSpace(userBID)
	if communityID == "" {
		return storage.RequestRecord{}, fmt.Errorf("community id is required")
	}
	if userAID == "" || userBID == "" {
		return storage.RequestRecord{}, fmt.Errorf("both user ids are required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+requestColumns+`
		 FROM connection_requests
		 WHERE community_id = ? AND status = ?
		   AND ((initiator_user_id = ? AND requester_user_id = ?)
		     OR (initiator_user_id = ? AND requester_user_id = ?))
		 ORDER BY created_at `+order+`
		 LIMIT 1`,
		communityID,
		request.StatusLabel(status),
		userAID,
		userBID,
		userBID,
		userAID,
	)
	return scanRequestRow(row)
}

// UpdateRequestStatus transitions a request between statuses with a
// compare-and-swap on the expected current status.
func (s *Store) UpdateRequestStatus(ctx context.Context, requestID string, from request.Status, to request.Status, respondedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return fmt.Errorf("request id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE connection_requests
		 SET status = ?, responded_at = ?
		 WHERE id = ? AND status = ?`,
		request.StatusLabel(to),
		toMillis(respondedAt),
		requestID,
		request.StatusLabel(from),
	)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListRequestsForInitiator returns one page of the initiator's requests.
func (s *Store) ListRequestsForInitiator(ctx context.Context, initiatorID string, filter storage.ListFilter, pageSize int, pageToken string) (storage.RequestPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.RequestPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RequestPage{}, fmt.Errorf("storage is not configured")
	}
	initiatorID = strings.TrimSpace(initiatorID)
	if initiatorID == "" {
		return storage.RequestPage{}, fmt.Errorf("initiator user id is required")
	}
	if pageSize <= 0 {
		return storage.RequestPage{}, fmt.Errorf("page size must be greater than zero")
	}

	query := `SELECT ` + requestColumns + `
		 FROM connection_requests
		 WHERE initiator_user_id = ?`
	args := []any{initiatorID}
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
		return storage.RequestPage{}, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	page := storage.RequestPage{
		Requests: make([]storage.RequestRecord, 0, pageSize),
	}
	for rows.Next() {
		record, err := scanRequestRows(rows)
		if err != nil {
			return storage.RequestPage{}, fmt.Errorf("list requests: %w", err)
		}
		page.Requests = append(page.Requests, record)
	}
	if err := rows.Err(); err != nil {
		return storage.RequestPage{}, fmt.Errorf("list requests: %w", err)
	}
	if len(page.Requests) > pageSize {
		page.NextPageToken = page.Requests[pageSize-1].ID
		page.Requests = page.Requests[:pageSize]
	}
	return page, nil
}

// ListExpiredPending returns pending requests whose expiry has passed.
func (s *Store) ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]storage.RequestRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT `+requestColumns+`
		 FROM connection_requests
		 WHERE status = ? AND expires_at <= ?
		 ORDER BY expires_at ASC
		 LIMIT ?`,
		request.StatusLabel(request.StatusPending),
		toMillis(before),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired requests: %w", err)
	}
	defer rows.Close()

	var records []storage.RequestRecord
	for rows.Next() {
		record, err := scanRequestRows(rows)
		if err != nil {
			return nil, fmt.Errorf("list expired requests: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expired requests: %w", err)
	}
	return records, nil
}

func scanRequestRow(row *sql.Row) (storage.RequestRecord, error) {
	var (
		record      storage.RequestRecord
		status      string
		createdAt   int64
		respondedAt int64
		expiresAt   int64
	)
	err := row.Scan(
		&record.ID,
		&record.CommunityID,
		&record.InitiatorID,
		&record.RequesterID,
		&status,
		&createdAt,
		&respondedAt,
		&expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RequestRecord{}, storage.ErrNotFound
		}
		return storage.RequestRecord{}, fmt.Errorf("scan request: %w", err)
	}
	record.Status = request.StatusFromLabel(status)
	record.CreatedAt = fromMillis(createdAt)
	record.RespondedAt = fromMillis(respondedAt)
	record.ExpiresAt = fromMillis(expiresAt)
	return record, nil
}

func scanRequestRows(rows *sql.Rows) (storage.RequestRecord, error) {
	var (
		record      storage.RequestRecord
		status      string
		createdAt   int64
		respondedAt int64
		expiresAt   int64
	)
	err := rows.Scan(
		&record.ID,
		&record.CommunityID,
		&record.InitiatorID,
		&record.RequesterID,
		&status,
		&createdAt,
		&respondedAt,
		&expiresAt,
	)
	if err != nil {
		return storage.RequestRecord{}, err
	}
	record.Status = request.StatusFromLabel(status)
	record.CreatedAt = fromMillis(createdAt)
	record.RespondedAt = fromMillis(respondedAt)
	record.ExpiresAt = fromMillis(expiresAt)
	return record, nil
}
