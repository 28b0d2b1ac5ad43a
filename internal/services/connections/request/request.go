// Package request models the connection request lifecycle.
package request

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shawnlauzon/belong-platform/internal/platform/errors"
	"github.com/shawnlauzon/belong-platform/internal/platform/id"
)

// DefaultTTL is how long a pending request stays actionable before the
// expiry sweep retires it.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrEmptyCommunityID indicates a missing community ID.
	ErrEmptyCommunityID = apperrors.New(apperrors.CodeCommunityIDRequired, "community id is required")
	// ErrEmptyInitiatorID indicates a missing initiator (code owner) ID.
	ErrEmptyInitiatorID = apperrors.New(apperrors.CodeUserIDRequired, "initiator user id is required")
	// ErrEmptyRequesterID indicates a missing requester (redeemer) ID.
	ErrEmptyRequesterID = apperrors.New(apperrors.CodeUserIDRequired, "requester user id is required")
	// ErrSelfRequest indicates the initiator and requester are the same user.
	ErrSelfRequest = apperrors.New(apperrors.CodeUserIDRequired, "requester must differ from initiator")
	// ErrNotPending indicates a transition was attempted on a resolved request.
	ErrNotPending = apperrors.New(apperrors.CodeRequestNotPending, "request is not pending")
)

// Status represents the lifecycle status of a connection request.
type Status int

const (
	// StatusUnspecified represents an invalid request status.
	StatusUnspecified Status = iota
	// StatusPending indicates a request is awaiting the initiator's response.
	StatusPending
	// StatusAccepted indicates the initiator approved the request.
	StatusAccepted
	// StatusRejected indicates the initiator declined the request.
	StatusRejected
	// StatusExpired indicates the request passed its expiry before a response.
	StatusExpired
)

// Terminal reports whether no further transitions are permitted.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// Request represents one redemption of a connection code awaiting resolution.
type Request struct {
	ID          string
	CommunityID string
	InitiatorID string
	RequesterID string
	Status      Status
	CreatedAt   time.Time
	RespondedAt time.Time // zero until a terminal transition
	ExpiresAt   time.Time
}

// NewRequestInput describes the metadata needed to create a request.
type NewRequestInput struct {
	CommunityID string
	InitiatorID string
	RequesterID string
	TTL         time.Duration
}

// New creates a pending request with a generated ID and timestamps.
func New(input NewRequestInput, now func() time.Time, idGenerator func() (string, error)) (Request, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeNewRequestInput(input)
	if err != nil {
		return Request{}, err
	}

	requestID, err := idGenerator()
	if err != nil {
		return Request{}, fmt.Errorf("generate request id: %w", err)
	}

	ttl := normalized.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	createdAt := now().UTC()
	return Request{
		ID:          requestID,
		CommunityID: normalized.CommunityID,
		InitiatorID: normalized.InitiatorID,
		RequesterID: normalized.RequesterID,
		Status:      StatusPending,
		CreatedAt:   createdAt,
		ExpiresAt:   createdAt.Add(ttl),
	}, nil
}

// NormalizeNewRequestInput trims and validates request input metadata.
func NormalizeNewRequestInput(input NewRequestInput) (NewRequestInput, error) {
	input.CommunityID = strings.TrimSpace(input.CommunityID)
	if input.CommunityID == "" {
		return NewRequestInput{}, ErrEmptyCommunityID
	}
	input.InitiatorID = strings.TrimSpace(input.InitiatorID)
	if input.InitiatorID == "" {
		return NewRequestInput{}, ErrEmptyInitiatorID
	}
	input.RequesterID = strings.TrimSpace(input.RequesterID)
	if input.RequesterID == "" {
		return NewRequestInput{}, ErrEmptyRequesterID
	}
	if input.InitiatorID == input.RequesterID {
		return NewRequestInput{}, ErrSelfRequest
	}
	return input, nil
}

// Accept transitions a pending request to accepted. Transitions out of any
// other status are state errors.
func Accept(r Request, respondedAt time.Time) (Request, error) {
	if r.Status != StatusPending {
		return Request{}, ErrNotPending
	}
	r.Status = StatusAccepted
	r.RespondedAt = respondedAt.UTC()
	return r, nil
}

// Reject transitions a pending request to rejected. Rejection is terminal.
func Reject(r Request, respondedAt time.Time) (Request, error) {
	if r.Status != StatusPending {
		return Request{}, ErrNotPending
	}
	r.Status = StatusRejected
	r.RespondedAt = respondedAt.UTC()
	return r, nil
}

// Expire transitions a pending request past its expiry to expired.
func Expire(r Request, respondedAt time.Time) (Request, error) {
	if r.Status != StatusPending {
		return Request{}, ErrNotPending
	}
	r.Status = StatusExpired
	r.RespondedAt = respondedAt.UTC()
	return r, nil
}

// Expired reports whether a pending request has passed its expiry.
func (r Request) Expired(now time.Time) bool {
	return r.Status == StatusPending && !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// StatusLabel returns the string label for a request status.
func StatusLabel(status Status) string {
	switch status {
	case StatusPending:
		return "PENDING"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusRejected:
		return "REJECTED"
	case StatusExpired:
		return "EXPIRED"
	default:
		return "UNSPECIFIED"
	}
}

// StatusFromLabel converts a status label to a Status value.
func StatusFromLabel(label string) Status {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "PENDING":
		return StatusPending
	case "ACCEPTED":
		return StatusAccepted
	case "REJECTED":
		return StatusRejected
	case "EXPIRED":
		return StatusExpired
	default:
		return StatusUnspecified
	}
}
