// Package storage defines persistence contracts for connections service state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/request"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness constraint rejected a write.
var ErrAlreadyExists = errors.New("record already exists")

// ConnectCode stores one owner-scoped connection code. At most one active
// code exists per owner per community, and active code values are unique
// across the whole table.
type ConnectCode struct {
	Code          string
	OwnerUserID   string
	CommunityID   string
	Active        bool
	CreatedAt     time.Time
	DeactivatedAt time.Time // zero while the code is active
}

// RequestRecord stores one connection request.
type RequestRecord struct {
	ID          string
	CommunityID string
	InitiatorID string
	RequesterID string
	Status      request.Status
	CreatedAt   time.Time
	RespondedAt time.Time // zero until a terminal transition
	ExpiresAt   time.Time
}

// RequestPage stores a page of connection requests.
type RequestPage struct {
	Requests      []RequestRecord
	NextPageToken string
}

// ConnectionRecord stores one established connection. The user pair is held
// in canonical ordering so the pair uniqueness constraint sees one row per
// pair per community.
type ConnectionRecord struct {
	ID          string
	UserAID     string
	UserBID     string
	CommunityID string
	RequestID   string
	CreatedAt   time.Time
}

// ConnectionPage stores a page of connections.
type ConnectionPage struct {
	Connections   []ConnectionRecord
	NextPageToken string
}

// MemberRecord stores one community membership.
type MemberRecord struct {
	CommunityID string
	UserID      string
	CreatedAt   time.Time
}

// ListFilter narrows a list query with a SQL fragment compiled from a
// caller-supplied filter expression. A zero value applies no narrowing.
type ListFilter struct {
	Where string
	Args  []any
}

// CodeStore persists connection codes.
type CodeStore interface {
	// CreateCode inserts a new active code. It returns ErrAlreadyExists
	// when the code value collides with another active code or the owner
	// already holds an active code in the community.
	CreateCode(ctx context.Context, code ConnectCode) error
	// GetCodeByValue returns the active code with the given value.
	GetCodeByValue(ctx context.Context, code string) (ConnectCode, error)
	// GetActiveCodeForOwner returns the owner's active code in a community.
	GetActiveCodeForOwner(ctx context.Context, ownerUserID string, communityID string) (ConnectCode, error)
	// DeactivateCode retires an active code, keeping the row for audit.
	DeactivateCode(ctx context.Context, code string, deactivatedAt time.Time) error
}

// RequestStore persists connection requests.
type RequestStore interface {
	// CreateRequest inserts a pending request. It returns ErrAlreadyExists
	// when a pending request already exists for the same community and
	// initiator/requester pair.
	CreateRequest(ctx context.Context, record RequestRecord) error
	GetRequest(ctx context.Context, requestID string) (RequestRecord, error)
	// FindPendingBetween returns the pending request between two users in a
	// community, regardless of which of them initiated it.
	FindPendingBetween(ctx context.Context, communityID string, userAID string, userBID string) (RequestRecord, error)
	// FindRejectedBetween returns the most recent rejected request between
	// two users in a community, regardless of direction.
	FindRejectedBetween(ctx context.Context, communityID string, userAID string, userBID string) (RequestRecord, error)
	// UpdateRequestStatus transitions a request from one status to another.
	// It returns ErrNotFound when the request is missing or no longer in
	// the expected status.
	UpdateRequestStatus(ctx context.Context, requestID string, from request.Status, to request.Status, respondedAt time.Time) error
	// ListRequestsForInitiator returns one page of the initiator's requests,
	// optionally narrowed by filter.
	ListRequestsForInitiator(ctx context.Context, initiatorID string, filter ListFilter, pageSize int, pageToken string) (RequestPage, error)
	// ListExpiredPending returns pending requests whose expiry has passed.
	ListExpiredPending(ctx context.Context, before time.Time, limit int) ([]RequestRecord, error)
}

// ConnectionStore persists established connections.
type ConnectionStore interface {
	// CreateConnection inserts a connection. It returns ErrAlreadyExists
	// when the pair is already connected in the community.
	CreateConnection(ctx context.Context, record ConnectionRecord) error
	// GetConnectionBetween returns the connection between two users in a
	// community, regardless of argument ordering.
	GetConnectionBetween(ctx context.Context, communityID string, userAID string, userBID string) (ConnectionRecord, error)
	// ListConnectionsForUser returns one page of the user's connections,
	// optionally narrowed by filter.
	ListConnectionsForUser(ctx context.Context, userID string, filter ListFilter, pageSize int, pageToken string) (ConnectionPage, error)
}

// MemberStore persists community memberships.
type MemberStore interface {
	PutMember(ctx context.Context, member MemberRecord) error
	IsMember(ctx context.Context, communityID string, userID string) (bool, error)
	DeleteMember(ctx context.Context, communityID string, userID string) error
}

// Store aggregates every persistence concern of the connections service.
type Store interface {
	CodeStore
	RequestStore
	ConnectionStore
	MemberStore
}
