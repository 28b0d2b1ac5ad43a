package server

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/shawnlauzon/belong-platform/internal/platform/errors"
	"github.com/shawnlauzon/belong-platform/internal/platform/errors/i18n"
	"github.com/shawnlauzon/belong-platform/internal/platform/pagination"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/filter"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/grant"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/registry"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/workflow"
)

// defaultPageSizes bounds list call page sizes.
var defaultPageSizes = pagination.PageSizeConfig{Default: 50, Max: 200}

// Service exposes the connections business operations.
type Service struct {
	store    storage.Store
	registry *registry.Registry
	engine   *workflow.Engine
	grantCfg grant.Config
	pageCfg  pagination.PageSizeConfig
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithGrantConfig enables identity grant verification.
func WithGrantConfig(cfg grant.Config) ServiceOption {
	return func(s *Service) {
		s.grantCfg = cfg
	}
}

// WithServiceClock overrides the service clock.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the connections service facade over a store.
func NewService(store storage.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		pageCfg: defaultPageSizes,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = registry.New(store, registry.WithClock(s.now))
	s.engine = workflow.New(store, workflow.WithClock(s.now))
	return s
}

// Authenticate verifies an identity grant and returns the acting user's
// claims. It fails when no verifier key is configured.
func (s *Service) Authenticate(token string) (grant.Claims, error) {
	if !s.grantCfg.Configured() {
		return grant.Claims{}, apperrors.New(apperrors.CodeAuthUnauthenticated, "identity verification is not configured")
	}
	return grant.Verify(token, s.grantCfg)
}

// GetConnectCode returns the caller's shareable code for a community,
// issuing one on first use.
func (s *Service) GetConnectCode(ctx context.Context, ownerUserID string, communityID string) (storage.ConnectCode, error) {
	return s.registry.GetOrCreateActiveCode(ctx, ownerUserID, communityID)
}

// RegenerateConnectCode retires the caller's current code and issues a new
// one. Outstanding requests created through the old code are unaffected.
func (s *Service) RegenerateConnectCode(ctx context.Context, ownerUserID string, communityID string) (storage.ConnectCode, error) {
	return s.registry.Regenerate(ctx, ownerUserID, communityID)
}

// RedeemReply carries a redemption outcome with its localized message.
// CommunityID names the code's community for outcomes past code resolution,
// so a membership-required reply can point the caller at the join flow.
type RedeemReply struct {
	Outcome     workflow.Outcome
	CommunityID string
	Message     string
	Request     storage.RequestRecord
}

// RedeemCode resolves a code redemption and renders the outcome message in
// the caller's locale.
func (s *Service) RedeemCode(ctx context.Context, userID string, rawCode string, locale string) (RedeemReply, error) {
	result, err := s.engine.Redeem(ctx, userID, rawCode)
	if err != nil {
		return RedeemReply{}, err
	}
	catalog := i18n.GetCatalog(locale)
	return RedeemReply{
		Outcome:     result.Outcome,
		CommunityID: result.CommunityID,
		Message:     catalog.Format(result.Outcome.MessageCode(), nil),
		Request:     result.Request,
	}, nil
}

// ApproveRequest accepts a pending request owned by the caller and creates
// the connection.
func (s *Service) ApproveRequest(ctx context.Context, ownerUserID string, requestID string) (workflow.DecisionResult, error) {
	return s.engine.Approve(ctx, ownerUserID, requestID)
}

// RejectRequest declines a pending request owned by the caller.
func (s *Service) RejectRequest(ctx context.Context, ownerUserID string, requestID string) (workflow.DecisionResult, error) {
	return s.engine.Reject(ctx, ownerUserID, requestID)
}

// ListRequests returns one page of requests initiated by the caller's codes,
// optionally narrowed by an AIP-160 filter over community_id, requester_id,
// status, and created_at.
func (s *Service) ListRequests(ctx context.Context, initiatorID string, filterStr string, pageSize int, pageToken string) (storage.RequestPage, error) {
	listFilter, err := filter.ParseRequestFilter(filterStr)
	if err != nil {
		return storage.RequestPage{}, apperrors.Wrap(apperrors.CodeFilterInvalid, fmt.Sprintf("invalid request filter: %v", err), err)
	}
	size := pagination.ClampPageSize(pageSize, s.pageCfg)
	return s.store.ListRequestsForInitiator(ctx, initiatorID, listFilter, size, pageToken)
}

// ListConnections returns one page of the caller's connections, optionally
// narrowed by an AIP-160 filter over community_id and created_at.
func (s *Service) ListConnections(ctx context.Context, userID string, filterStr string, pageSize int, pageToken string) (storage.ConnectionPage, error) {
	listFilter, err := filter.ParseConnectionFilter(filterStr)
	if err != nil {
		return storage.ConnectionPage{}, apperrors.Wrap(apperrors.CodeFilterInvalid, fmt.Sprintf("invalid connection filter: %v", err), err)
	}
	size := pagination.ClampPageSize(pageSize, s.pageCfg)
	return s.store.ListConnectionsForUser(ctx, userID, listFilter, size, pageToken)
}

// AddMember records a community membership.
func (s *Service) AddMember(ctx context.Context, communityID string, userID string) error {
	return s.store.PutMember(ctx, storage.MemberRecord{
		CommunityID: communityID,
		UserID:      userID,
		CreatedAt:   s.now().UTC(),
	})
}

// RemoveMember removes a community membership. Existing requests and
// connections are left as-is; future redemptions fail the membership check.
func (s *Service) RemoveMember(ctx context.Context, communityID string, userID string) error {
	return s.store.DeleteMember(ctx, communityID, userID)
}

// ExpireDueRequests retires pending requests past their expiry.
func (s *Service) ExpireDueRequests(ctx context.Context, limit int) (int, error) {
	return s.engine.ExpireDue(ctx, limit)
}
