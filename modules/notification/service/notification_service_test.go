package service

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"
	"waitlist-service/core/params"
	absenceEntity "waitlist-service/modules/absence/entity"
	"waitlist-service/modules/notification/dto"
	"waitlist-service/modules/notification/entity"
	"waitlist-service/modules/notification/repository"
	waitlistEntity "waitlist-service/modules/waitlist/entity"

	"github.com/google/uuid"
)

type published struct {
	key string
	msg dto.OutboundMessage
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) PublishJSON(_ context.Context, routingKey string, v any) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{key: routingKey, msg: v.(dto.OutboundMessage)})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func testOffer(channel string) *waitlistEntity.Offer {
	now := time.Now()
	return &waitlistEntity.Offer{
		EntryID:    uuid.New(),
		ResourceID: "court-1",
		ClientID:   "client-a",
		Slot:       waitlistEntity.ResourceSlot{ResourceID: "court-1", DayOfWeek: time.Monday, StartTime: "10:00", EndTime: "11:00"},
		SlotKey:    "monday-10-00-11-00",
		Occurrence: "2030-01-07",
		NotifiedAt: now,
		ExpiresAt:  now.Add(time.Hour),
		Channel:    channel,
	}
}

var firstPage = params.QueryParams{PageNumber: 1, PageSize: 20}

func TestNotifyPublishesExternalChannel(t *testing.T) {
	repo := repository.NewMemoryNotificationRepository()
	pub := &recordingPublisher{}
	svc := NewNotificationService(repo, pub, Options{OfferSecret: "secret", PublicBaseURL: "https://book.example"}, nil)

	offer := testOffer("WhatsApp")
	if err := svc.Notify(context.Background(), offer); err != nil {
		t.Fatal(err)
	}

	if len(pub.sent) != 1 || pub.sent[0].key != "waitlist.offer.whatsapp" {
		t.Fatalf("published: %+v", pub.sent)
	}
	link, _ := pub.sent[0].msg.Data["confirm_url"].(string)
	if !strings.HasPrefix(link, "https://book.example/api/v1/public/offers/confirm?token=") {
		t.Fatalf("confirm url: %q", link)
	}

	inbox, appErr := svc.GetForRecipient(context.Background(), "client-a", firstPage)
	if appErr != nil {
		t.Fatal(appErr)
	}
	if inbox.TotalItems != 1 || inbox.Items[0].Type != entity.TypeWaitlistOffer {
		t.Fatalf("inbox: %+v", inbox)
	}
}

func TestNotifyWithoutBroker(t *testing.T) {
	repo := repository.NewMemoryNotificationRepository()
	svc := NewNotificationService(repo, nil, Options{}, nil)

	if err := svc.Notify(context.Background(), testOffer("email")); !stderrors.Is(err, ErrNoPublisher) {
		t.Fatalf("expected ErrNoPublisher, got %v", err)
	}
	if err := svc.Notify(context.Background(), testOffer(entity.ChannelInApp)); err != nil {
		t.Fatalf("in-app delivery needs no broker: %v", err)
	}

	count, _ := svc.CountUnread(context.Background(), "client-a")
	if count != 2 {
		t.Fatalf("both offers should be in the inbox, got %d", count)
	}
}

func TestNotifyPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: stderrors.New("connection reset")}
	svc := NewNotificationService(repository.NewMemoryNotificationRepository(), pub, Options{}, nil)

	if err := svc.Notify(context.Background(), testOffer("sms")); err == nil {
		t.Fatal("publish failure should be reported")
	}
}

func TestNotifyAbsenceAndMarkRead(t *testing.T) {
	repo := repository.NewMemoryNotificationRepository()
	svc := NewNotificationService(repo, nil, Options{}, nil)

	amount := 15.0
	days := 7
	absence := &absenceEntity.Absence{
		ID:               uuid.New(),
		BookingID:        uuid.New(),
		ClientID:         "client-b",
		Kind:             absenceEntity.AbsenceKindNoShow,
		OccurredAt:       time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC),
		RecordedAt:       time.Date(2030, 1, 7, 12, 0, 0, 0, time.UTC),
		PenaltyKind:      absenceEntity.PenaltyTemporaryBlock,
		PenaltyAmount:    &amount,
		PenaltyBlockDays: &days,
	}
	if err := svc.NotifyAbsence(context.Background(), absence); err != nil {
		t.Fatal(err)
	}

	inbox, _ := svc.GetForRecipient(context.Background(), "client-b", firstPage)
	if inbox.TotalItems != 1 {
		t.Fatalf("inbox: %+v", inbox)
	}
	msg := inbox.Items[0].Message
	if !strings.Contains(msg, "15.00") || !strings.Contains(msg, "2030-01-14") {
		t.Fatalf("message: %q", msg)
	}

	updated, appErr := svc.MarkAsRead(context.Background(), "client-b", []string{inbox.Items[0].ID.String()})
	if appErr != nil || updated != 1 {
		t.Fatalf("mark as read: %d %v", updated, appErr)
	}
	if updated, _ := svc.MarkAsRead(context.Background(), "someone-else", []string{inbox.Items[0].ID.String()}); updated != 0 {
		t.Fatal("other recipients cannot mark the notification")
	}
	if count, _ := svc.CountUnread(context.Background(), "client-b"); count != 0 {
		t.Fatalf("unread: %d", count)
	}
}
