package entity

import (
	stderrors "errors"
	"testing"
	"time"
)

func TestSlotKeyRoundTrip(t *testing.T) {
	slot := ResourceSlot{ResourceID: "trainer-1", DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "11:00"}
	if got := slot.Key(); got != "monday-10-00-11-00" {
		t.Fatalf("unexpected key %q", got)
	}
	parsed, err := ParseSlotKey("trainer-1", slot.Key())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != slot {
		t.Fatalf("expected %+v, got %+v", slot, parsed)
	}
}

func TestParseSlotKeyRejectsGarbage(t *testing.T) {
	for _, key := range []string{"", "monday", "funday-10-00-11-00", "monday-11-00-10-00", "monday-25-00-26-00"} {
		if _, err := ParseSlotKey("r", key); !stderrors.Is(err, ErrInvalidSlot) {
			t.Fatalf("%q: expected ErrInvalidSlot, got %v", key, err)
		}
	}
}

func TestWindow(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Madrid")
	slot := ResourceSlot{DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "11:30"}

	date, _ := ParseOccurrence("2025-03-03")
	start, end, err := slot.Window(date, loc)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if start.Hour() != 10 || start.Location() != loc || end.Sub(start) != 90*time.Minute {
		t.Fatalf("unexpected window %s - %s", start, end)
	}

	tuesday, _ := ParseOccurrence("2025-03-04")
	if _, _, err := slot.Window(tuesday, loc); !stderrors.Is(err, ErrWeekdayMismatch) {
		t.Fatalf("expected weekday mismatch, got %v", err)
	}
}

func TestEntryStates(t *testing.T) {
	if !EntryStateNotified.Open() || EntryStateExpired.Open() {
		t.Fatal("open state mismatch")
	}
	if EntryState("bogus").Valid() {
		t.Fatal("unknown state must be invalid")
	}
}
