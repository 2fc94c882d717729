package ordernum

import (
	"regexp"
	"testing"
	"time"
)

func TestNewFormat(t *testing.T) {
	at := time.Date(2026, 8, 30, 15, 4, 5, 0, time.UTC)
	got := New(at)

	pattern := regexp.MustCompile(`^ORD-20260830-[0-9A-F]{8}$`)
	if !pattern.MatchString(got) {
		t.Fatalf("unexpected order number format: %q", got)
	}
}

func TestNewUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	at := time.Date(2026, 8, 31, 2, 0, 0, 0, loc)

	got := New(at)
	if got[:12] != "ORD-20260830" {
		t.Fatalf("expected UTC date prefix, got %q", got)
	}
}

func TestNewIsUnlikelyToCollide(t *testing.T) {
	at := time.Now()
	seen := make(map[string]bool, 1000)
	for i := 0; i < 1000; i++ {
		number := New(at)
		if seen[number] {
			t.Fatalf("duplicate order number generated: %q", number)
		}
		seen[number] = true
	}
}
