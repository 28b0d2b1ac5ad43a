package pagination

import "testing"

func TestClampPageSize(t *testing.T) {
	cfg := PageSizeConfig{Default: 10, Max: 50}

	cases := []struct {
		name  string
		value int
		want  int
	}{
		{"zero uses default", 0, 10},
		{"negative uses default", -5, 10},
		{"within range", 25, 25},
		{"above max clamps", 100, 50},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClampPageSize(tc.value, cfg); got != tc.want {
				t.Fatalf("ClampPageSize(%d) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}

func TestClampPageSizeEmptyConfig(t *testing.T) {
	if got := ClampPageSize(0, PageSizeConfig{}); got != 1 {
		t.Fatalf("expected floor of 1, got %d", got)
	}
}

func TestNormalizeOrderBy(t *testing.T) {
	cfg := OrderByConfig{Default: "created_at desc", Allowed: []string{"created_at desc", "created_at asc"}}

	got, err := NormalizeOrderBy("", cfg)
	if err != nil {
		t.Fatalf("normalize empty: %v", err)
	}
	if got != "created_at desc" {
		t.Fatalf("expected default order, got %q", got)
	}

	got, err = NormalizeOrderBy("created_at asc", cfg)
	if err != nil {
		t.Fatalf("normalize allowed: %v", err)
	}
	if got != "created_at asc" {
		t.Fatalf("expected created_at asc, got %q", got)
	}

	if _, err := NormalizeOrderBy("drop table", cfg); err == nil {
		t.Fatal("expected invalid order_by error")
	}
}
