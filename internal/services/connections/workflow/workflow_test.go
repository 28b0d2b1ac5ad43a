package workflow

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shawnlauzon/belong-platform/internal/services/connections/request"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage"
	"github.com/shawnlauzon/belong-platform/internal/services/connections/storage/sqlite"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type fixture struct {
	store  *sqlite.Store
	engine *Engine
	clock  *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "connections.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	c := &clock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	return &fixture{
		store:  store,
		engine: New(store, WithClock(c.Now)),
		clock:  c,
	}
}

func (f *fixture) addMember(t *testing.T, communityID, userID string) {
	t.Helper()
	err := f.store.PutMember(context.Background(), storage.MemberRecord{
		CommunityID: communityID,
		UserID:      userID,
		CreatedAt:   f.clock.Now(),
	})
	if err != nil {
		t.Fatalf("put member: %v", err)
	}
}

func (f *fixture) addCode(t *testing.T, value, ownerUserID, communityID string) {
	t.Helper()
	err := f.store.CreateCode(context.Background(), storage.ConnectCode{
		Code:        value,
		OwnerUserID: ownerUserID,
		CommunityID: communityID,
		Active:      true,
		CreatedAt:   f.clock.Now(),
	})
	if err != nil {
		t.Fatalf("create code: %v", err)
	}
}

// seedPair wires a standard scenario: user-1 owns code ABCD2345 in
// community-1 and both user-1 and user-2 are members.
func seedPair(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.addMember(t, "community-1", "user-1")
	f.addMember(t, "community-1", "user-2")
	f.addCode(t, "ABCD2345", "user-1", "community-1")
	return f
}

func TestRedeemCreatesPendingRequest(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	result, err := f.engine.Redeem(ctx, "user-2", " abcd2345 ")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.Outcome != OutcomeRequestCreated {
		t.Fatalf("outcome = %v, want request created", result.Outcome)
	}
	if result.CommunityID != "community-1" {
		t.Fatalf("community = %q, want community-1", result.CommunityID)
	}
	if result.Request.InitiatorID != "user-1" || result.Request.RequesterID != "user-2" {
		t.Fatalf("request = %+v", result.Request)
	}
	if result.Request.Status != request.StatusPending {
		t.Fatalf("status = %v", result.Request.Status)
	}
	if want := f.clock.Now().Add(request.DefaultTTL); !result.Request.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", result.Request.ExpiresAt, want)
	}

	stored, err := f.store.GetRequest(ctx, result.Request.ID)
	if err != nil {
		t.Fatalf("get stored request: %v", err)
	}
	if stored.Status != request.StatusPending {
		t.Fatalf("stored status = %v", stored.Status)
	}
}

func TestRedeemOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		seed    func(t *testing.T, f *fixture)
		user    string
		code    string
		outcome Outcome
	}{
		{
			name:    "malformed code",
			user:    "user-2",
			code:    "not a code",
			outcome: OutcomeCodeInvalid,
		},
		{
			name:    "wrong length",
			user:    "user-2",
			code:    "ABCD234",
			outcome: OutcomeCodeInvalid,
		},
		{
			name:    "unknown code",
			user:    "user-2",
			code:    "WXYZ6789",
			outcome: OutcomeCodeNotFound,
		},
		{
			name:    "own code",
			user:    "user-1",
			code:    "ABCD2345",
			outcome: OutcomeSelfRequest,
		},
		{
			name: "redeemer not a member",
			seed: func(t *testing.T, f *fixture) {
				f.addCode(t, "WXYZ6789", "user-1", "community-2")
				f.addMember(t, "community-2", "user-1")
			},
			user:    "user-2",
			code:    "WXYZ6789",
			outcome: OutcomeMembershipRequired,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := seedPair(t)
			if tc.seed != nil {
				tc.seed(t, f)
			}
			result, err := f.engine.Redeem(context.Background(), tc.user, tc.code)
			if err != nil {
				t.Fatalf("redeem: %v", err)
			}
			if result.Outcome != tc.outcome {
				t.Fatalf("outcome = %v, want %v", result.Outcome, tc.outcome)
			}
		})
	}
}

func TestRedeemMembershipRequiredNamesCommunity(t *testing.T) {
	f := newFixture(t)
	f.addMember(t, "community-1", "user-1")
	f.addCode(t, "ABCD2345", "user-1", "community-1")

	result, err := f.engine.Redeem(context.Background(), "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.Outcome != OutcomeMembershipRequired {
		t.Fatalf("outcome = %v, want membership required", result.Outcome)
	}
	// The caller needs the community to start a join flow.
	if result.CommunityID != "community-1" {
		t.Fatalf("community = %q, want community-1", result.CommunityID)
	}
	if result.Request.ID != "" {
		t.Fatalf("unexpected request: %+v", result.Request)
	}
}

func TestRedeemChecksRequesterMembershipOnly(t *testing.T) {
	f := newFixture(t)
	// The code owner has left the community but the redeemer belongs. The
	// redeemer's standing is all that gates redemption.
	f.addMember(t, "community-1", "user-2")
	f.addCode(t, "ABCD2345", "user-1", "community-1")

	result, err := f.engine.Redeem(context.Background(), "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.Outcome != OutcomeRequestCreated {
		t.Fatalf("outcome = %v, want request created", result.Outcome)
	}
	if result.CommunityID != "community-1" {
		t.Fatalf("community = %q, want community-1", result.CommunityID)
	}
}

func TestRedeemSelfCheckPrecedesMembership(t *testing.T) {
	f := newFixture(t)
	// The owner holds a code but is no longer a member; redeeming their own
	// code still reports self-use, not the membership failure.
	f.addCode(t, "ABCD2345", "user-1", "community-1")

	result, err := f.engine.Redeem(context.Background(), "user-1", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if result.Outcome != OutcomeSelfRequest {
		t.Fatalf("outcome = %v, want self request", result.Outcome)
	}
}

func TestRedeemDetectsPendingInEitherDirection(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	first, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if first.Outcome != OutcomeRequestCreated {
		t.Fatalf("outcome = %v", first.Outcome)
	}

	// Same direction duplicate.
	dup, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if dup.Outcome != OutcomeAlreadyPending {
		t.Fatalf("outcome = %v, want already pending", dup.Outcome)
	}
	if dup.CommunityID != "community-1" {
		t.Fatalf("community = %q, want community-1", dup.CommunityID)
	}
	if dup.Request.ID != first.Request.ID {
		t.Fatalf("pending request id = %q, want %q", dup.Request.ID, first.Request.ID)
	}

	// Reverse direction: user-1 redeems user-2's code while the pair has an
	// open request.
	f.addCode(t, "WXYZ6789", "user-2", "community-1")
	reverse, err := f.engine.Redeem(ctx, "user-1", "WXYZ6789")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if reverse.Outcome != OutcomeAlreadyPending {
		t.Fatalf("outcome = %v, want already pending", reverse.Outcome)
	}
}

func TestRedeemAfterApprovalReportsConnected(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	created, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := f.engine.Approve(ctx, "user-1", created.Request.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	again, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if again.Outcome != OutcomeAlreadyConnected {
		t.Fatalf("outcome = %v, want already connected", again.Outcome)
	}
}

func TestRedeemAfterRejectionReportsRejected(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	created, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if _, err := f.engine.Reject(ctx, "user-1", created.Request.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}

	again, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if again.Outcome != OutcomePreviouslyRejected {
		t.Fatalf("outcome = %v, want previously rejected", again.Outcome)
	}

	// The reverse direction is blocked too.
	f.addCode(t, "WXYZ6789", "user-2", "community-1")
	reverse, err := f.engine.Redeem(ctx, "user-1", "WXYZ6789")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if reverse.Outcome != OutcomePreviouslyRejected {
		t.Fatalf("outcome = %v, want previously rejected", reverse.Outcome)
	}
}

func TestApproveEstablishesConnection(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	created, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	f.clock.Advance(time.Hour)

	decision, err := f.engine.Approve(ctx, "user-1", created.Request.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if decision.Request.Status != request.StatusAccepted {
		t.Fatalf("status = %v", decision.Request.Status)
	}
	if !decision.Request.RespondedAt.Equal(f.clock.Now()) {
		t.Fatalf("responded_at = %v", decision.Request.RespondedAt)
	}
	if decision.Connection.RequestID != created.Request.ID {
		t.Fatalf("connection request id = %q", decision.Connection.RequestID)
	}

	// Both orderings resolve the connection.
	if _, err := f.store.GetConnectionBetween(ctx, "community-1", "user-2", "user-1"); err != nil {
		t.Fatalf("get connection: %v", err)
	}

	// A second approval finds the request already resolved.
	if _, err := f.engine.Approve(ctx, "user-1", created.Request.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got %v", err)
	}
}

func TestApproveGuards(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	created, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}

	if _, err := f.engine.Approve(ctx, "user-1", "missing"); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	// Neither the requester nor a third party may decide.
	if _, err := f.engine.Approve(ctx, "user-2", created.Request.ID); !errors.Is(err, ErrNotRequestOwner) {
		t.Fatalf("expected ErrNotRequestOwner, got %v", err)
	}
	if _, err := f.engine.Approve(ctx, "user-3", created.Request.ID); !errors.Is(err, ErrNotRequestOwner) {
		t.Fatalf("expected ErrNotRequestOwner, got %v", err)
	}
	if _, err := f.engine.Reject(ctx, "user-2", created.Request.ID); !errors.Is(err, ErrNotRequestOwner) {
		t.Fatalf("expected ErrNotRequestOwner, got %v", err)
	}
}

func TestRejectLeavesNoConnection(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	created, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	decision, err := f.engine.Reject(ctx, "user-1", created.Request.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if decision.Request.Status != request.StatusRejected {
		t.Fatalf("status = %v", decision.Request.Status)
	}
	if decision.Connection.ID != "" {
		t.Fatalf("unexpected connection: %+v", decision.Connection)
	}
	if _, err := f.store.GetConnectionBetween(ctx, "community-1", "user-1", "user-2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected no connection, got %v", err)
	}

	if _, err := f.engine.Reject(ctx, "user-1", created.Request.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got %v", err)
	}
}

func TestApproveExpiredRequestFails(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	created, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	f.clock.Advance(request.DefaultTTL + time.Minute)

	if _, err := f.engine.Approve(ctx, "user-1", created.Request.ID); !errors.Is(err, ErrRequestNotPending) {
		t.Fatalf("expected ErrRequestNotPending, got %v", err)
	}
	stored, err := f.store.GetRequest(ctx, created.Request.ID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if stored.Status != request.StatusExpired {
		t.Fatalf("status = %v, want expired", stored.Status)
	}
}

func TestExpireDueRetiresOnlyOverdueRequests(t *testing.T) {
	f := seedPair(t)
	f.addMember(t, "community-1", "user-3")
	ctx := context.Background()

	stale, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	f.clock.Advance(request.DefaultTTL - time.Hour)
	fresh, err := f.engine.Redeem(ctx, "user-3", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	f.clock.Advance(2 * time.Hour)

	expired, err := f.engine.ExpireDue(ctx, 50)
	if err != nil {
		t.Fatalf("expire due: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	staleStored, err := f.store.GetRequest(ctx, stale.Request.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if staleStored.Status != request.StatusExpired {
		t.Fatalf("stale status = %v", staleStored.Status)
	}
	freshStored, err := f.store.GetRequest(ctx, fresh.Request.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if freshStored.Status != request.StatusPending {
		t.Fatalf("fresh status = %v", freshStored.Status)
	}
}

func TestExpiredRequestDoesNotBlockRedemption(t *testing.T) {
	f := seedPair(t)
	ctx := context.Background()

	first, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	f.clock.Advance(request.DefaultTTL + time.Minute)
	if _, err := f.engine.ExpireDue(ctx, 50); err != nil {
		t.Fatalf("expire due: %v", err)
	}

	again, err := f.engine.Redeem(ctx, "user-2", "ABCD2345")
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if again.Outcome != OutcomeRequestCreated {
		t.Fatalf("outcome = %v, want request created", again.Outcome)
	}
	if again.Request.ID == first.Request.ID {
		t.Fatal("expected a fresh request after expiry")
	}
}

func TestOutcomeMessageCodes(t *testing.T) {
	cases := map[Outcome]string{
		OutcomeRequestCreated:     "CONNECT_REQUEST_CREATED",
		OutcomeCodeInvalid:        "CONNECT_CODE_INVALID",
		OutcomeCodeNotFound:       "CONNECT_CODE_NOT_FOUND",
		OutcomeSelfRequest:        "CONNECT_SELF_REJECTED",
		OutcomeMembershipRequired: "CONNECT_MEMBERSHIP_REQUIRED",
		OutcomeAlreadyPending:     "CONNECT_ALREADY_PENDING",
		OutcomeAlreadyConnected:   "CONNECT_ALREADY_CONNECTED",
		OutcomePreviouslyRejected: "CONNECT_PREVIOUSLY_REJECTED",
	}
	for outcome, want := range cases {
		if got := outcome.MessageCode(); got != want {
			t.Fatalf("message code for %v = %q, want %q", outcome, got, want)
		}
	}
	if OutcomeUnspecified.MessageCode() != "" {
		t.Fatal("unspecified outcome must have no message code")
	}
	if !OutcomeRequestCreated.Created() || OutcomeAlreadyPending.Created() {
		t.Fatal("Created must be true only for request created")
	}
}
