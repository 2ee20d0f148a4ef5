package domain

import (
	"testing"
	"time"
)

func TestSessionKeyStableAcrossZones(t *testing.T) {
	utc := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
	bangkok := utc.In(time.FixedZone("UTC+7", 7*3600))

	keyUTC := SessionKey("ABC-123", 7, utc)
	keyZoned := SessionKey("abc-123", 7, bangkok)
	if keyUTC != keyZoned {
		t.Errorf("key differs by zone representation: %q vs %q", keyUTC, keyZoned)
	}
}

func TestSessionKeyIgnoresSubsecondPrecision(t *testing.T) {
	base := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
	withNanos := base.Add(500 * time.Millisecond)

	if SessionKey("ABC-123", 7, base) != SessionKey("ABC-123", 7, withNanos) {
		t.Error("key is sensitive to sub-second precision")
	}
}

func TestSessionKeyDistinguishesComponents(t *testing.T) {
	base := time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)

	key := SessionKey("ABC-123", 7, base)
	if key == SessionKey("ABC-124", 7, base) {
		t.Error("key ignores the plate")
	}
	if key == SessionKey("ABC-123", 8, base) {
		t.Error("key ignores the space")
	}
	if key == SessionKey("ABC-123", 7, base.Add(time.Second)) {
		t.Error("key ignores the start time")
	}
}

func TestNormalizePlate(t *testing.T) {
	cases := []struct{ in, want string }{
		{"abc-123", "ABC-123"},
		{"  ABC-123  ", "ABC-123"},
		{" a1b2 ", "A1B2"},
	}
	for _, tc := range cases {
		if got := NormalizePlate(tc.in); got != tc.want {
			t.Errorf("NormalizePlate(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSessionOpen(t *testing.T) {
	session := ParkingSession{}
	if !session.Open() {
		t.Error("session without exit time reported closed")
	}
	session.ExitTime.SetValid(time.Now())
	if session.Open() {
		t.Error("session with exit time reported open")
	}
}
