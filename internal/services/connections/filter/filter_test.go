package filter

import (
	"reflect"
	"testing"
	"time"
)

func TestParseRequestFilter_StatusEquals(t *testing.T) {
	cond, err := ParseRequestFilter(`status = "PENDING"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Where != "status = ?" {
		t.Errorf("expected 'status = ?', got %q", cond.Where)
	}
	if len(cond.Args) != 1 || cond.Args[0] != "PENDING" {
		t.Errorf("Args = %v", cond.Args)
	}
}

func TestParseRequestFilter_Empty(t *testing.T) {
	cond, err := ParseRequestFilter(" ")
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Where != "" || cond.Args != nil {
		t.Fatalf("expected empty condition, got %+v", cond)
	}
}

func TestParseRequestFilter_AndOr(t *testing.T) {
	cond, err := ParseRequestFilter(`community_id = "community-1" AND status = "PENDING"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Where != "(community_id = ? AND status = ?)" {
		t.Fatalf("Where = %q", cond.Where)
	}
	if !reflect.DeepEqual(cond.Args, []any{"community-1", "PENDING"}) {
		t.Fatalf("Args = %v", cond.Args)
	}

	cond, err = ParseRequestFilter(`status = "ACCEPTED" OR status = "REJECTED"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Where != "(status = ? OR status = ?)" {
		t.Fatalf("Where = %q", cond.Where)
	}
}

func TestParseRequestFilter_RequesterMapsToColumn(t *testing.T) {
	cond, err := ParseRequestFilter(`requester_id != "user-1"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Where != "requester_user_id != ?" {
		t.Fatalf("Where = %q", cond.Where)
	}
}

func TestParseRequestFilter_TimestampToMillis(t *testing.T) {
	cond, err := ParseRequestFilter(`created_at >= timestamp("2026-03-10T09:00:00Z")`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Where != "created_at >= ?" {
		t.Fatalf("Where = %q", cond.Where)
	}
	want := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC).UnixMilli()
	if len(cond.Args) != 1 || cond.Args[0] != want {
		t.Fatalf("Args = %v, want [%d]", cond.Args, want)
	}
}

func TestParseRequestFilter_UndeclaredField(t *testing.T) {
	if _, err := ParseRequestFilter(`initiator_id = "user-1"`); err == nil {
		t.Fatal("expected error for undeclared field")
	}
}

func TestParseRequestFilter_Malformed(t *testing.T) {
	if _, err := ParseRequestFilter(`status = `); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseConnectionFilter(t *testing.T) {
	cond, err := ParseConnectionFilter(`community_id = "community-1"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Where != "community_id = ?" {
		t.Fatalf("Where = %q", cond.Where)
	}

	// Request-only fields are not declared for connections.
	if _, err := ParseConnectionFilter(`status = "PENDING"`); err == nil {
		t.Fatal("expected error for undeclared field")
	}
}
