package id

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	got := New(PrefixRun)
	if !strings.HasPrefix(got, "run_") {
		t.Errorf("New(PrefixRun) = %q, want run_ prefix", got)
	}
	if len(got) < len("run_")+10 {
		t.Errorf("New(PrefixRun) = %q, payload too short", got)
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewRun()
		if seen[id] {
			t.Fatalf("duplicate ID generated: %s", id)
		}
		seen[id] = true
	}
}

func TestHasPrefix(t *testing.T) {
	tests := []struct {
		s      string
		prefix string
		want   bool
	}{
		{NewTemplate(), PrefixTemplate, true},
		{NewRun(), PrefixTemplate, false},
		{"tpl_", PrefixTemplate, false},
		{"", PrefixRun, false},
		{"run_abc", PrefixRun, true},
	}
	for _, tt := range tests {
		if got := HasPrefix(tt.s, tt.prefix); got != tt.want {
			t.Errorf("HasPrefix(%q, %q) = %v, want %v", tt.s, tt.prefix, got, tt.want)
		}
	}
}
