package service

import (
	"context"
	"testing"
	"time"
	"waitlist-service/core/errors"
	"waitlist-service/modules/booking/dto"
	"waitlist-service/modules/booking/entity"
	"waitlist-service/modules/booking/repository"
)

var now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newBookingService() *BookingService {
	return NewBookingService(repository.NewMemoryBookingRepository(), time.UTC, func() time.Time { return now })
}

func book(t *testing.T, s *BookingService, client, date, from, to string) *dto.BookingResponse {
	t.Helper()
	resp, appErr := s.Create(context.Background(), &dto.CreateBookingRequest{
		ResourceID: "court-1",
		ClientID:   client,
		Date:       date,
		StartTime:  from,
		EndTime:    to,
	})
	if appErr != nil {
		t.Fatalf("book %s %s-%s: %v", date, from, to, appErr)
	}
	return resp
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 3, hour, minute, 0, 0, time.UTC)
}

func TestHasConfirmedOverlapBoundaries(t *testing.T) {
	s := newBookingService()
	ctx := context.Background()
	b := book(t, s, "alice", "2025-03-03", "10:00", "11:00")

	tests := []struct {
		name       string
		client     string
		start, end time.Time
		want       bool
	}{
		{name: "same window", client: "alice", start: at(10, 0), end: at(11, 0), want: true},
		{name: "partial overlap", client: "alice", start: at(10, 30), end: at(11, 30), want: true},
		{name: "contained", client: "alice", start: at(10, 15), end: at(10, 45), want: true},
		{name: "touching after", client: "alice", start: at(11, 0), end: at(12, 0), want: false},
		{name: "touching before", client: "alice", start: at(9, 0), end: at(10, 0), want: false},
		{name: "other client", client: "bob", start: at(10, 0), end: at(11, 0), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.HasConfirmedOverlap(ctx, tt.client, tt.start, tt.end)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("overlap = %v, want %v", got, tt.want)
			}
		})
	}

	if ok, appErr := s.SetStatus(ctx, b.ID, entity.BookingStatusCancelled); appErr != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, appErr)
	}
	if got, _ := s.HasConfirmedOverlap(ctx, "alice", at(10, 0), at(11, 0)); got {
		t.Fatal("cancelled booking still overlaps")
	}
}

func TestCreateRejectsTakenOccurrence(t *testing.T) {
	s := newBookingService()
	ctx := context.Background()
	first := book(t, s, "alice", "2025-03-03", "10:00", "11:00")

	book(t, s, "bob", "2025-03-03", "11:00", "12:00")

	_, appErr := s.Create(ctx, &dto.CreateBookingRequest{ResourceID: "court-1", ClientID: "carol", Date: "2025-03-03", StartTime: "10:30", EndTime: "11:30"})
	if appErr == nil || appErr.Code != errors.ErrAlreadyExists {
		t.Fatalf("expected already exists, got %v", appErr)
	}

	// a freed occurrence can be booked again
	if _, appErr := s.SetStatus(ctx, first.ID, entity.BookingStatusNoShow); appErr != nil {
		t.Fatal(appErr)
	}
	book(t, s, "carol", "2025-03-03", "10:00", "11:00")

	if _, appErr := s.Create(ctx, &dto.CreateBookingRequest{ResourceID: "court-1", ClientID: "dave", Date: "2025-03-03", StartTime: "10:00", EndTime: "11:00"}); appErr == nil {
		t.Fatal("double booking accepted")
	}
}

func TestCountInPeriod(t *testing.T) {
	s := newBookingService()
	ctx := context.Background()
	monday := book(t, s, "alice", "2025-03-03", "10:00", "11:00")
	book(t, s, "bob", "2025-03-10", "10:00", "11:00")
	cancelled := book(t, s, "carol", "2025-03-03", "12:00", "13:00")

	voided, appErr := s.CreateFromWaitlist(ctx, &entity.Booking{
		ResourceID: "court-1",
		ClientID:   "dave",
		SlotKey:    "monday-14-00-15-00",
		StartsAt:   at(14, 0),
		EndsAt:     at(15, 0),
	})
	if appErr != nil {
		t.Fatal(appErr)
	}
	_, _ = s.SetStatus(ctx, cancelled.ID, entity.BookingStatusCancelled)
	_, _ = s.SetStatus(ctx, voided.ID, entity.BookingStatusVoided)

	tests := []struct {
		name     string
		from, to time.Time
		want     int
	}{
		{name: "day counts cancelled but not voided", from: at(0, 0), to: at(0, 0).AddDate(0, 0, 1), want: 2},
		{name: "from is inclusive", from: monday.StartsAt, to: at(12, 0), want: 1},
		{name: "to is exclusive", from: at(0, 0), to: monday.StartsAt, want: 0},
		{name: "month", from: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), to: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CountInPeriod(ctx, tt.from, tt.to)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("count = %d, want %d", got, tt.want)
			}
		})
	}

	if voided.Source != entity.BookingSourceWaitlist {
		t.Fatalf("waitlist booking: %+v", voided)
	}
}
