package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mr1hm/go-trip-alerts/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	db, err := NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	return db
}

func TestSQLiteDB_SettingsDefaults(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	got, err := db.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got != models.DefaultSettings() {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestSQLiteDB_SaveAndGetSettings(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	want := models.DefaultSettings()
	want.Categories.Flood = false
	want.AlertRadiusKm = 10

	if err := db.SaveSettings(ctx, want); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	got, err := db.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestSQLiteDB_LastDeliveredAlertID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	id, err := db.LastDeliveredAlertID(ctx)
	if err != nil {
		t.Fatalf("LastDeliveredAlertID failed: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty id, got %q", id)
	}

	for _, want := range []string{"Flood-2026-01-01T10:00:00Z", "Fire-2026-01-02T10:00:00Z"} {
		if err := db.SetLastDeliveredAlertID(ctx, want); err != nil {
			t.Fatalf("SetLastDeliveredAlertID failed: %v", err)
		}
		got, err := db.LastDeliveredAlertID(ctx)
		if err != nil {
			t.Fatalf("LastDeliveredAlertID failed: %v", err)
		}
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}

func TestSQLiteDB_ConcurrentDedupWrites(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ids := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := db.SetLastDeliveredAlertID(ctx, id); err != nil {
				t.Errorf("SetLastDeliveredAlertID failed: %v", err)
			}
		}(id)
	}
	wg.Wait()

	got, err := db.LastDeliveredAlertID(ctx)
	if err != nil {
		t.Fatalf("LastDeliveredAlertID failed: %v", err)
	}
	found := false
	for _, id := range ids {
		if got == id {
			found = true
		}
	}
	if !found {
		t.Errorf("expected one of %v, got %q", ids, got)
	}
}

func TestSQLiteDB_Notifications(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, title := range []string{"first", "second", "third"} {
		n := &models.Notification{
			ID:        title,
			Title:     title,
			Body:      "body",
			Alert:     models.WeatherAlert{ID: "alert-" + title, EventType: "Flood", Severity: models.AlertSeveritySevere},
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.RecordNotification(ctx, n); err != nil {
			t.Fatalf("RecordNotification failed: %v", err)
		}
	}

	got, err := db.ListNotifications(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].ID != "third" || got[1].ID != "second" {
		t.Errorf("expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Alert.Severity != models.AlertSeveritySevere {
		t.Errorf("expected alert round trip, got %+v", got[0].Alert)
	}

	got, err = db.ListNotifications(ctx, Filter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "first" {
		t.Errorf("expected only 'first' at offset 2, got %+v", got)
	}
}
