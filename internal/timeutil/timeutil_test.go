package timeutil

import (
	"testing"
	"time"
)

func TestParseDurationOrDefault(t *testing.T) {
	cases := []struct {
		value string
		def   time.Duration
		want  time.Duration
	}{
		{"5s", time.Minute, 5 * time.Second},
		{"", time.Minute, time.Minute},
		{"  ", time.Minute, time.Minute},
		{"garbage", time.Minute, time.Minute},
		{"1h30m", 0, 90 * time.Minute},
	}
	for _, tc := range cases {
		if got := ParseDurationOrDefault(tc.value, tc.def); got != tc.want {
			t.Fatalf("ParseDurationOrDefault(%q) = %s, want %s", tc.value, got, tc.want)
		}
	}
}

func TestFromMillis(t *testing.T) {
	if got := FromMillis(1500, time.Second); got != 1500*time.Millisecond {
		t.Fatalf("unexpected duration %s", got)
	}
	if got := FromMillis(0, time.Second); got != time.Second {
		t.Fatalf("expected default for zero, got %s", got)
	}
	if got := FromMillis(-10, time.Second); got != time.Second {
		t.Fatalf("expected default for negative, got %s", got)
	}
}

func TestMillis(t *testing.T) {
	if got := Millis(2500 * time.Millisecond); got != 2500 {
		t.Fatalf("unexpected millis %d", got)
	}
}
