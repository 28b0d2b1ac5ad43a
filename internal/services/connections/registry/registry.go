// Package registry manages the lifecycle of connection codes.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shawnlauzon/belong-platform/internal/platform/errors"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/code"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
)

// maxGenerateAttempts bounds collision retries before the registry gives up.
const maxGenerateAttempts = 10

// ErrSpaceExhausted indicates repeated code collisions exhausted the retry
// budget. With an eight character code over a 32 symbol alphabet this only
// happens when generation is broken or the table is pathologically full.
var ErrSpaceExhausted = apperrors.New(apperrors.CodeConnectCodeSpaceExhausted, "connection code space exhausted")

// Registry issues and retires connection codes.
type Registry struct {
	codes    storage.CodeStore
	now      func() time.Time
	generate func() (string, error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the registry clock.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithGenerator overrides code generation.
func WithGenerator(generate func() (string, error)) Option {
	return func(r *Registry) {
		if generate != nil {
			r.generate = generate
		}
	}
}

// New creates a code registry backed by the given store.
func New(codes storage.CodeStore, opts ...Option) *Registry {
	r := &Registry{
		codes:    codes,
		now:      time.Now,
		generate: code.Generate,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreateActiveCode returns the owner's active code in a community,
// creating one when none exists.
func (r *Registry) GetOrCreateActiveCode(ctx context.Context, ownerUserID string, communityID string) (storage.ConnectCode, error) {
	if r == nil || r.codes == nil {
		return storage.ConnectCode{}, fmt.Errorf("code store is not configured")
	}
	ownerUserID = strings.TrimSpace(ownerUserID)
	communityID = strings.TrimSpace(communityID)
	if ownerUserID == "" {
		return storage.ConnectCode{}, apperrors.New(apperrors.CodeUserIDRequired, "owner user id is required")
	}
	if communityID == "" {
		return storage.ConnectCode{}, apperrors.New(apperrors.CodeCommunityIDRequired, "community id is required")
	}

	existing, err := r.codes.GetActiveCodeForOwner(ctx, ownerUserID, communityID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return storage.ConnectCode{}, fmt.Errorf("get active code: %w", err)
	}
	return r.createWithRetry(ctx, ownerUserID, communityID)
}

// Regenerate retires the owner's active code and issues a fresh one. The
// retired code stops resolving immediately.
func (r *Registry) Regenerate(ctx context.Context, ownerUserID string, communityID string) (storage.ConnectCode, error) {
	if r == nil || r.codes == nil {
		return storage.ConnectCode{}, fmt.Errorf("code store is not configured")
	}
	ownerUserID = strings.TrimSpace(ownerUserID)
	communityID = strings.TrimSpace(communityID)
	if ownerUserID == "" {
		return storage.ConnectCode{}, apperrors.New(apperrors.CodeUserIDRequired, "owner user id is required")
	}
	if communityID == "" {
		return storage.ConnectCode{}, apperrors.New(apperrors.CodeCommunityIDRequired, "community id is required")
	}

	existing, err := r.codes.GetActiveCodeForOwner(ctx, ownerUserID, communityID)
	switch {
	case err == nil:
		if err := r.codes.DeactivateCode(ctx, existing.Code, r.now().UTC()); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return storage.ConnectCode{}, fmt.Errorf("deactivate code: %w", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		// Nothing to retire; regeneration degenerates to issuance.
	default:
		return storage.ConnectCode{}, fmt.Errorf("get active code: %w", err)
	}
	return r.createWithRetry(ctx, ownerUserID, communityID)
}

func (r *Registry) createWithRetry(ctx context.Context, ownerUserID string, communityID string) (storage.ConnectCode, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		value, err := r.generate()
		if err != nil {
			return storage.ConnectCode{}, fmt.Errorf("generate code: %w", err)
		}
		record := storage.ConnectCode{
			Code:        value,
			OwnerUserID: ownerUserID,
			CommunityID: communityID,
			Active:      true,
			CreatedAt:   r.now().UTC(),
		}
		err = r.codes.CreateCode(ctx, record)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return storage.ConnectCode{}, fmt.Errorf("create code: %w", err)
		}
		// The collision may be the owner slot rather than the code value
		// when another caller won a concurrent issuance.
		existing, getErr := r.codes.GetActiveCodeForOwner(ctx, ownerUserID, communityID)
		if getErr == nil {
			return existing, nil
		}
		if !errors.Is(getErr, storage.ErrNotFound) {
			return storage.ConnectCode{}, fmt.Errorf("get active code: %w", getErr)
		}
	}
	return storage.ConnectCode{}, ErrSpaceExhausted
}
