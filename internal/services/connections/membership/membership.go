// Package membership checks community membership before connection operations.
package membership

import (
	"context"
	"fmt"
	"strings"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
)

// Guard answers membership questions against the member store.
type Guard struct {
	members storage.MemberStore
}

// NewGuard creates a membership guard backed by the given store.
func NewGuard(members storage.MemberStore) *Guard {
	return &Guard{members: members}
}

// Check reports whether a user belongs to a community.
func (g *Guard) Check(ctx context.Context, communityID string, userID string) (bool, error) {
	if g == nil || g.members == nil {
		return false, fmt.Errorf("member store is not configured")
	}
	communityID = strings.TrimSpace(communityID)
	userID = strings.TrimSpace(userID)
	if communityID == "" || userID == "" {
		return false, nil
	}
	return g.members.IsMember(ctx, communityID, userID)
}
