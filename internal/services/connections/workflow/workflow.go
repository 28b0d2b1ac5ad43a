// Package workflow resolves connection code redemptions and request
// decisions against stored state.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shawnlauzon/belong-platform/internal/platform/errors"
	"github.com/shawnlauzon/belong-platform/internal/platform/id"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/code"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/connection"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/membership"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/request"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
)

var (
	// ErrRequestNotFound indicates the request does not exist.
	ErrRequestNotFound = apperrors.New(apperrors.CodeNotFound, "request not found")
	// ErrNotRequestOwner indicates the caller does not own the request.
	ErrNotRequestOwner = apperrors.New(apperrors.CodeRequestNotOwned, "request belongs to another user")
	// ErrRequestNotPending indicates the request was already resolved.
	ErrRequestNotPending = apperrors.New(apperrors.CodeRequestNotPending, "request is not pending")
	// ErrRedeemerRequired indicates a missing redeemer user ID.
	ErrRedeemerRequired = apperrors.New(apperrors.CodeUserIDRequired, "redeemer user id is required")
)

// Outcome classifies the result of a code redemption. Every redemption maps
// to exactly one outcome; only OutcomeRequestCreated mutates state.
type Outcome int

const (
	// OutcomeUnspecified represents an invalid outcome.
	OutcomeUnspecified Outcome = iota
	// OutcomeRequestCreated indicates a pending request was created.
	OutcomeRequestCreated
	// OutcomeCodeInvalid indicates the code failed format validation.
	OutcomeCodeInvalid
	// OutcomeCodeNotFound indicates no active code matches.
	OutcomeCodeNotFound
	// OutcomeSelfRequest indicates the redeemer owns the code.
	OutcomeSelfRequest
	// OutcomeMembershipRequired indicates a party is not a community member.
	OutcomeMembershipRequired
	// OutcomeAlreadyPending indicates an open request already links the pair.
	OutcomeAlreadyPending
	// OutcomeAlreadyConnected indicates the pair is already connected.
	OutcomeAlreadyConnected
	// OutcomePreviouslyRejected indicates a prior request between the pair
	// was rejected.
	OutcomePreviouslyRejected
)

// MessageCode returns the i18n message code for an outcome.
func (o Outcome) MessageCode() string {
	switch o {
	case OutcomeRequestCreated:
		return "CONNECT_REQUEST_CREATED"
	case OutcomeCodeInvalid:
		return "CONNECT_CODE_INVALID"
	case OutcomeCodeNotFound:
		return "CONNECT_CODE_NOT_FOUND"
	case OutcomeSelfRequest:
		return "CONNECT_SELF_REJECTED"
	case OutcomeMembershipRequired:
		return "CONNECT_MEMBERSHIP_REQUIRED"
	case OutcomeAlreadyPending:
		return "CONNECT_ALREADY_PENDING"
	case OutcomeAlreadyConnected:
		return "CONNECT_ALREADY_CONNECTED"
	case OutcomePreviouslyRejected:
		return "CONNECT_PREVIOUSLY_REJECTED"
	default:
		return ""
	}
}

// Created reports whether the redemption produced a new pending request.
func (o Outcome) Created() bool {
	return o == OutcomeRequestCreated
}

// RedeemResult carries the outcome of a redemption. CommunityID identifies
// the code's community for every outcome past code resolution, so a caller
// hitting OutcomeMembershipRequired knows which community to join. Request is
// populated for OutcomeRequestCreated and OutcomeAlreadyPending.
type RedeemResult struct {
	Outcome     Outcome
	CommunityID string
	Request     storage.RequestRecord
}

// DecisionResult carries the resolved request after an approve or reject.
// Connection is populated only on approval.
type DecisionResult struct {
	Request    storage.RequestRecord
	Connection storage.ConnectionRecord
}

// Engine drives the connection request lifecycle.
type Engine struct {
	store storage.Store
	guard *membership.Guard
	now   func() time.Time
	newID func() (string, error)
	ttl   time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithRequestTTL overrides how long new requests stay pending.
func WithRequestTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// New creates a workflow engine backed by the given store.
func New(store storage.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		guard: membership.NewGuard(store),
		now:   time.Now,
		newID: id.NewID,
		ttl:   request.DefaultTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Redeem resolves one code redemption by a user. The checks run in a fixed
// order so every failure reports its most specific cause: format, existence,
// self-use, membership, pending duplicate, existing connection, and prior
// rejection, in that order.
func (e *Engine) Redeem(ctx context.Context, redeemerUserID string, rawCode string) (RedeemResult, error) {
	if e == nil || e.store == nil {
		return RedeemResult{}, fmt.Errorf("storage is not configured")
	}
	redeemerUserID = strings.TrimSpace(redeemerUserID)
	if redeemerUserID == "" {
		return RedeemResult{}, ErrRedeemerRequired
	}

	normalized := code.Normalize(rawCode)
	if !code.Validate(normalized) {
		return RedeemResult{Outcome: OutcomeCodeInvalid}, nil
	}

	connectCode, err := e.store.GetCodeByValue(ctx, normalized)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return RedeemResult{Outcome: OutcomeCodeNotFound}, nil
		}
		return RedeemResult{}, fmt.Errorf("resolve code: %w", err)
	}

	communityID := connectCode.CommunityID
	if connectCode.OwnerUserID == redeemerUserID {
		return RedeemResult{Outcome: OutcomeSelfRequest, CommunityID: communityID}, nil
	}

	// Only the redeemer's membership gates redemption; the code owner's
	// standing is not the redeemer's to fix.
	member, err := e.guard.Check(ctx, communityID, redeemerUserID)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return RedeemResult{Outcome: OutcomeMembershipRequired, CommunityID: communityID}, nil
	}

	pending, err := e.store.FindPendingBetween(ctx, communityID, connectCode.OwnerUserID, redeemerUserID)
	if err == nil {
		return RedeemResult{Outcome: OutcomeAlreadyPending, CommunityID: communityID, Request: pending}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return RedeemResult{}, fmt.Errorf("find pending request: %w", err)
	}

	_, err = e.store.GetConnectionBetween(ctx, communityID, connectCode.OwnerUserID, redeemerUserID)
	if err == nil {
		return RedeemResult{Outcome: OutcomeAlreadyConnected, CommunityID: communityID}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return RedeemResult{}, fmt.Errorf("find connection: %w", err)
	}

	_, err = e.store.FindRejectedBetween(ctx, communityID, connectCode.OwnerUserID, redeemerUserID)
	if err == nil {
		return RedeemResult{Outcome: OutcomePreviouslyRejected, CommunityID: communityID}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return RedeemResult{}, fmt.Errorf("find rejected request: %w", err)
	}

	created, err := request.New(request.NewRequestInput{
		CommunityID: communityID,
		InitiatorID: connectCode.OwnerUserID,
		RequesterID: redeemerUserID,
		TTL:         e.ttl,
	}, e.now, e.newID)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("build request: %w", err)
	}
	record := storage.RequestRecord{
		ID:          created.ID,
		CommunityID: created.CommunityID,
		InitiatorID: created.InitiatorID,
		RequesterID: created.RequesterID,
		Status:      created.Status,
		CreatedAt:   created.CreatedAt,
		ExpiresAt:   created.ExpiresAt,
	}
	if err := e.store.CreateRequest(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Lost a concurrent redemption of the same pair; surface the
			// winner's request.
			pending, findErr := e.store.FindPendingBetween(ctx, record.CommunityID, record.InitiatorID, record.RequesterID)
			if findErr == nil {
				return RedeemResult{Outcome: OutcomeAlreadyPending, CommunityID: communityID, Request: pending}, nil
			}
			return RedeemResult{}, fmt.Errorf("find pending request: %w", findErr)
		}
		return RedeemResult{}, fmt.Errorf("create request: %w", err)
	}
	return RedeemResult{Outcome: OutcomeRequestCreated, CommunityID: communityID, Request: record}, nil
}

// Approve accepts a pending request owned by the caller and establishes the
// connection. The connection is written before the request transitions so an
// interrupted approval never leaves an accepted request without its
// connection; a retried approval converges on the same connection.
func (e *Engine) Approve(ctx context.Context, ownerUserID string, requestID string) (DecisionResult, error) {
	record, err := e.loadOwnedPending(ctx, ownerUserID, requestID)
	if err != nil {
		return DecisionResult{}, err
	}

	conn, err := connection.New(connection.NewConnectionInput{
		UserAID:     record.InitiatorID,
		UserBID:     record.RequesterID,
		CommunityID: record.CommunityID,
		RequestID:   record.ID,
	}, e.now, e.newID)
	if err != nil {
		return DecisionResult{}, fmt.Errorf("build connection: %w", err)
	}
	connRecord := storage.ConnectionRecord{
		ID:          conn.ID,
		UserAID:     conn.UserAID,
		UserBID:     conn.UserBID,
		CommunityID: conn.CommunityID,
		RequestID:   conn.RequestID,
		CreatedAt:   conn.CreatedAt,
	}
	if err := e.store.CreateConnection(ctx, connRecord); err != nil {
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return DecisionResult{}, fmt.Errorf("create connection: %w", err)
		}
		existing, getErr := e.store.GetConnectionBetween(ctx, record.CommunityID, record.InitiatorID, record.RequesterID)
		if getErr != nil {
			return DecisionResult{}, fmt.Errorf("get connection: %w", getErr)
		}
		connRecord = existing
	}

	accepted, err := request.Accept(toDomain(record), e.now())
	if err != nil {
		return DecisionResult{}, ErrRequestNotPending
	}
	if err := e.store.UpdateRequestStatus(ctx, record.ID, record.Status, accepted.Status, accepted.RespondedAt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DecisionResult{}, ErrRequestNotPending
		}
		return DecisionResult{}, fmt.Errorf("accept request: %w", err)
	}
	record.Status = accepted.Status
	record.RespondedAt = accepted.RespondedAt
	return DecisionResult{Request: record, Connection: connRecord}, nil
}

// Reject declines a pending request owned by the caller. Rejection is
// terminal: later redemptions between the pair report the prior rejection.
func (e *Engine) Reject(ctx context.Context, ownerUserID string, requestID string) (DecisionResult, error) {
	record, err := e.loadOwnedPending(ctx, ownerUserID, requestID)
	if err != nil {
		return DecisionResult{}, err
	}

	rejected, err := request.Reject(toDomain(record), e.now())
	if err != nil {
		return DecisionResult{}, ErrRequestNotPending
	}
	if err := e.store.UpdateRequestStatus(ctx, record.ID, record.Status, rejected.Status, rejected.RespondedAt); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return DecisionResult{}, ErrRequestNotPending
		}
		return DecisionResult{}, fmt.Errorf("reject request: %w", err)
	}
	record.Status = rejected.Status
	record.RespondedAt = rejected.RespondedAt
	return DecisionResult{Request: record}, nil
}

func (e *Engine) loadOwnedPending(ctx context.Context, ownerUserID string, requestID string) (storage.RequestRecord, error) {
	if e == nil || e.store == nil {
		return storage.RequestRecord{}, fmt.Errorf("storage is not configured")
	}
	ownerUserID = strings.TrimSpace(ownerUserID)
	if ownerUserID == "" {
		return storage.RequestRecord{}, apperrors.New(apperrors.CodeUserIDRequired, "owner user id is required")
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return storage.RequestRecord{}, apperrors.New(apperrors.CodeRequestIDRequired, "request id is required")
	}

	record, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.RequestRecord{}, ErrRequestNotFound
		}
		return storage.RequestRecord{}, fmt.Errorf("get request: %w", err)
	}
	if record.InitiatorID != ownerUserID {
		return storage.RequestRecord{}, ErrNotRequestOwner
	}
	if record.Status != request.StatusPending {
		return storage.RequestRecord{}, ErrRequestNotPending
	}
	if toDomain(record).Expired(e.now().UTC()) {
		// Lazily retire requests the sweep has not reached yet.
		if expired, expireErr := request.Expire(toDomain(record), e.now()); expireErr == nil {
			if err := e.store.UpdateRequestStatus(ctx, record.ID, record.Status, expired.Status, expired.RespondedAt); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return storage.RequestRecord{}, fmt.Errorf("expire request: %w", err)
			}
		}
		return storage.RequestRecord{}, ErrRequestNotPending
	}
	return record, nil
}

// toDomain rebuilds the domain request from its stored record so status
// transitions run through the request package's rules.
func toDomain(record storage.RequestRecord) request.Request {
	return request.Request{
		ID:          record.ID,
		CommunityID: record.CommunityID,
		InitiatorID: record.InitiatorID,
		RequesterID: record.RequesterID,
		Status:      record.Status,
		CreatedAt:   record.CreatedAt,
		RespondedAt: record.RespondedAt,
		ExpiresAt:   record.ExpiresAt,
	}
}

// ExpireDue transitions pending requests past their expiry to expired and
// returns how many it retired.
func (e *Engine) ExpireDue(ctx context.Context, limit int) (int, error) {
	if e == nil || e.store == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 100
	}
	now := e.now().UTC()
	due, err := e.store.ListExpiredPending(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("list expired requests: %w", err)
	}
	expired := 0
	for _, record := range due {
		retired, err := request.Expire(toDomain(record), now)
		if err != nil {
			continue
		}
		err = e.store.UpdateRequestStatus(ctx, record.ID, record.Status, retired.Status, retired.RespondedAt)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Resolved concurrently; nothing to retire.
				continue
			}
			return expired, fmt.Errorf("expire request %s: %w", record.ID, err)
		}
		expired++
	}
	return expired, nil
}
