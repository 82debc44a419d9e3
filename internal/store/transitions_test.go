package store

import "testing"

func TestValidTransition(t *testing.T) {
	cases := []struct {
		action string
		from   string
		valid  bool
	}{
		{"start", "waiting", true},
		{"start", "in-progress", false},
		{"start", "completed", false},
		{"complete", "waiting", true},
		{"complete", "in-progress", true},
		{"complete", "completed", false},
		{"complete_service", "waiting", true},
		{"complete_service", "in-progress", true},
		{"complete_service", "completed", false},
		{"call", "waiting", true},
		{"call", "in-progress", true},
		{"call", "completed", false},
		{"unknown", "waiting", false},
	}

	for _, tt := range cases {
		if got := ValidTransition(tt.action, tt.from); got != tt.valid {
			t.Fatalf("ValidTransition(%q, %q)=%v, want %v", tt.action, tt.from, got, tt.valid)
		}
	}
}
