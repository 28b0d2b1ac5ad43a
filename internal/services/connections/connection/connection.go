// Package connection models bidirectional user connections.
//
// A connection is an unordered pair of users within a community: the pair
// (A, B) is indistinguishable from (B, A), and at most one connection may
// exist per pair per community. Pair normalization gives the storage layer a
// single canonical ordering to constrain.
package connection

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shawnlauzon/belong-platform/internal/platform/errors"
	"github.com/shawnlauzon/belong-platform/internal/platform/id"
)

var (
	// ErrEmptyCommunityID indicates a missing community ID.
	ErrEmptyCommunityID = apperrors.New(apperrors.CodeCommunityIDRequired, "community id is required")
	// ErrEmptyUserID indicates a missing member of the pair.
	ErrEmptyUserID = apperrors.New(apperrors.CodeUserIDRequired, "both user ids are required")
	// ErrSelfPair indicates both members of the pair are the same user.
	ErrSelfPair = apperrors.New(apperrors.CodeUserIDRequired, "connection users must differ")
)

// Connection represents one established link between two community members.
type Connection struct {
	ID          string
	UserAID     string
	UserBID     string
	CommunityID string
	RequestID   string // back-reference to the request that produced it; may be empty
	CreatedAt   time.Time
}

// NormalizePair returns the canonical ordering of an unordered user pair.
func NormalizePair(userA, userB string) (string, string) {
	userA = strings.TrimSpace(userA)
	userB = strings.TrimSpace(userB)
	if userB < userA {
		return userB, userA
	}
	return userA, userB
}

// NewConnectionInput describes the metadata needed to create a connection.
type NewConnectionInput struct {
	UserAID     string
	UserBID     string
	CommunityID string
	RequestID   string
}

// New creates a connection with a normalized pair, generated ID, and timestamp.
func New(input NewConnectionInput, now func() time.Time, idGenerator func() (string, error)) (Connection, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	userA, userB := NormalizePair(input.UserAID, input.UserBID)
	if userA == "" || userB == "" {
		return Connection{}, ErrEmptyUserID
	}
	if userA == userB {
		return Connection{}, ErrSelfPair
	}
	communityID := strings.TrimSpace(input.CommunityID)
	if communityID == "" {
		return Connection{}, ErrEmptyCommunityID
	}

	connectionID, err := idGenerator()
	if err != nil {
		return Connection{}, fmt.Errorf("generate connection id: %w", err)
	}

	return Connection{
		ID:          connectionID,
		UserAID:     userA,
		UserBID:     userB,
		CommunityID: communityID,
		RequestID:   strings.TrimSpace(input.RequestID),
		CreatedAt:   now().UTC(),
	}, nil
}
