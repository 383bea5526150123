package policy

import (
	"testing"
	"time"
	"waitlist-service/modules/waitlist/entity"

	"github.com/google/uuid"
)

func entry(class string, at time.Time) entity.WaitlistEntry {
	return entity.WaitlistEntry{ID: uuid.New(), PriorityClass: class, RequestedAt: at}
}

func TestLessOrdersByClassThenTime(t *testing.T) {
	p := New(nil)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	early := entry("normal", base)
	late := entry("normal", base.Add(time.Minute))
	premium := entry("premium", base.Add(time.Hour))

	if !p.Less(&early, &late) {
		t.Fatal("earlier request should come first")
	}
	if !p.Less(&premium, &early) {
		t.Fatal("premium should outrank normal regardless of time")
	}
}

func TestLessTieBreaksOnID(t *testing.T) {
	p := New(nil)
	at := time.Now()
	a := entity.WaitlistEntry{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), PriorityClass: "normal", RequestedAt: at}
	b := entity.WaitlistEntry{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), PriorityClass: "normal", RequestedAt: at}
	if !p.Less(&a, &b) || p.Less(&b, &a) {
		t.Fatal("expected id tie break")
	}
}

func TestUnknownClassRanksLast(t *testing.T) {
	p := New([]string{"vip", "normal"})
	if p.Rank("vip") != 0 || p.Rank("normal") != 1 || p.Rank("mystery") != 2 {
		t.Fatalf("unexpected ranks")
	}
	if !p.Known("VIP") || p.Known("premium") {
		t.Fatal("known mismatch")
	}
}

func TestRenumber(t *testing.T) {
	p := New(nil)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []entity.WaitlistEntry{
		entry("normal", base.Add(2*time.Minute)),
		entry("normal", base),
		entry("high", base.Add(5*time.Minute)),
	}
	entries[0].Priority = 1
	entries[1].Priority = 3
	entries[2].Priority = 4

	p.Renumber(entries)

	if entries[0].PriorityClass != "high" {
		t.Fatalf("high class should lead, got %s", entries[0].PriorityClass)
	}
	for i, e := range entries {
		if e.Priority != i+1 {
			t.Fatalf("position %d has priority %d", i, e.Priority)
		}
	}
	if !entries[1].RequestedAt.Equal(base) {
		t.Fatal("earlier normal entry should be second")
	}
}
