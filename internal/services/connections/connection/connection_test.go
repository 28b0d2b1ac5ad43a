package connection

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizePairIsOrderIndependent(t *testing.T) {
	a1, b1 := NormalizePair("user-2", "user-1")
	a2, b2 := NormalizePair("user-1", "user-2")
	if a1 != a2 || b1 != b2 {
		t.Fatalf("pair orderings differ: (%q,%q) vs (%q,%q)", a1, b1, a2, b2)
	}
	if a1 != "user-1" || b1 != "user-2" {
		t.Fatalf("canonical pair = (%q,%q), want (user-1,user-2)", a1, b1)
	}
}

func TestNormalizePairTrims(t *testing.T) {
	a, b := NormalizePair("  user-9 ", "user-3\n")
	if a != "user-3" || b != "user-9" {
		t.Fatalf("pair = (%q,%q), want (user-3,user-9)", a, b)
	}
}

func TestNewNormalizesAndValidates(t *testing.T) {
	now := func() time.Time { return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC) }

	conn, err := New(NewConnectionInput{
		UserAID:     "user-9",
		UserBID:     "user-3",
		CommunityID: "community-1",
		RequestID:   "req-1",
	}, now, func() (string, error) { return "conn-1", nil })
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	if conn.UserAID != "user-3" || conn.UserBID != "user-9" {
		t.Fatalf("pair = (%q,%q), want normalized ordering", conn.UserAID, conn.UserBID)
	}
	if conn.RequestID != "req-1" {
		t.Fatalf("request_id = %q", conn.RequestID)
	}
	if !conn.CreatedAt.Equal(now()) {
		t.Fatalf("created_at = %v", conn.CreatedAt)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	cases := []struct {
		name    string
		input   NewConnectionInput
		wantErr error
	}{
		{"missing user", NewConnectionInput{UserAID: "u1", CommunityID: "c1"}, ErrEmptyUserID},
		{"self pair", NewConnectionInput{UserAID: "u1", UserBID: "u1", CommunityID: "c1"}, ErrSelfPair},
		{"missing community", NewConnectionInput{UserAID: "u1", UserBID: "u2"}, ErrEmptyCommunityID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.input, nil, nil)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
