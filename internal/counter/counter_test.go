package counter

import (
	"context"
	"testing"
	"time"

	"github.com/Timiochukwu/sentinel/internal/domain"
)

func TestMemoryStoreWindowCounts(t *testing.T) {
	store := NewMemoryStore(24 * time.Hour)
	defer store.Close()

	ctx := context.Background()
	now := time.Now()

	// Three events in the last minute, one two hours old.
	for i := 0; i < 3; i++ {
		if err := store.RecordEvent(ctx, "tenant-001", "user-001", now.Add(-time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if err := store.RecordEvent(ctx, "tenant-001", "user-001", now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	count1m, err := store.CountWindow(ctx, "tenant-001", "user-001", time.Minute)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count1m != 3 {
		t.Errorf("expected 3 events in 1m window, got %d", count1m)
	}

	count24h, _ := store.CountWindow(ctx, "tenant-001", "user-001", 24*time.Hour)
	if count24h != 4 {
		t.Errorf("expected 4 events in 24h window, got %d", count24h)
	}
}

func TestMemoryStoreTenantIsolation(t *testing.T) {
	store := NewMemoryStore(24 * time.Hour)
	defer store.Close()

	ctx := context.Background()
	store.RecordEvent(ctx, "tenant-a", "user-001", time.Now())

	count, _ := store.CountWindow(ctx, "tenant-b", "user-001", time.Hour)
	if count != 0 {
		t.Errorf("tenant-b saw tenant-a's events: %d", count)
	}
}

func TestMemoryStoreDeviceFanOut(t *testing.T) {
	store := NewMemoryStore(24 * time.Hour)
	defer store.Close()

	ctx := context.Background()

	for _, user := range []string{"user-001", "user-002", "user-003"} {
		if _, err := store.TouchDevice(ctx, "tenant-001", "device-abc", user); err != nil {
			t.Fatalf("touch failed: %v", err)
		}
	}

	// Same user again must not raise the count.
	count, err := store.TouchDevice(ctx, "tenant-001", "device-abc", "user-001")
	if err != nil {
		t.Fatalf("touch failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 distinct accounts, got %d", count)
	}
}

func TestMemoryStoreLastLocation(t *testing.T) {
	store := NewMemoryStore(24 * time.Hour)
	defer store.Close()

	ctx := context.Background()

	loc, err := store.GetLastLocation(ctx, "tenant-001", "user-001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loc != nil {
		t.Fatal("expected nil location before any set")
	}

	seen := time.Now().Add(-time.Hour)
	want := domain.Location{Latitude: 6.5244, Longitude: 3.3792, SeenAt: seen}
	if err := store.SetLastLocation(ctx, "tenant-001", "user-001", want); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	loc, err = store.GetLastLocation(ctx, "tenant-001", "user-001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loc == nil {
		t.Fatal("expected location after set")
	}
	if loc.Latitude != want.Latitude || loc.Longitude != want.Longitude {
		t.Errorf("got %+v, want %+v", loc, want)
	}
}

func TestWindowLabels(t *testing.T) {
	cases := map[time.Duration]string{
		time.Minute:      "1m",
		10 * time.Minute: "10m",
		time.Hour:        "1h",
		24 * time.Hour:   "24h",
	}
	for w, want := range cases {
		if got := windowLabel(w); got != want {
			t.Errorf("windowLabel(%v) = %q, want %q", w, got, want)
		}
	}
}
