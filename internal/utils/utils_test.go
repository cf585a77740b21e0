package utils

import (
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1536, "1.50 KB"},
		{5 * 1024 * 1024, "5.00 MB"},
		{3 * 1024 * 1024 * 1024, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBitrate(t *testing.T) {
	tests := []struct {
		bytes int64
		over  time.Duration
		want  string
	}{
		{0, 0, "0 kbps"},
		{16_000, 2 * time.Second, "64 kbps"},
		{250_000, time.Second, "2.00 Mbps"},
	}
	for _, tt := range tests {
		if got := FormatBitrate(tt.bytes, tt.over); got != tt.want {
			t.Errorf("FormatBitrate(%d, %v) = %q, want %q", tt.bytes, tt.over, got, tt.want)
		}
	}
}

func TestFormatTimeDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 5s"},
		{2*time.Hour + time.Minute, "2h 1m 0s"},
	}
	for _, tt := range tests {
		if got := FormatTimeDuration(tt.in); got != tt.want {
			t.Errorf("FormatTimeDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("user_0123456789ab", 10); got != "user_01..." {
		t.Fatalf("got %q", got)
	}
	if got := TruncateString("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateString("abcdef", 2); got != "ab" {
		t.Fatalf("got %q", got)
	}
}
