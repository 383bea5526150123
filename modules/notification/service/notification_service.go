package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"time"
	"waitlist-service/core/broker"
	coreEntity "waitlist-service/core/entity"
	"waitlist-service/core/errors"
	"waitlist-service/core/logger"
	"waitlist-service/core/params"
	"waitlist-service/core/utils"
	absenceEntity "waitlist-service/modules/absence/entity"
	"waitlist-service/modules/notification/dto"
	"waitlist-service/modules/notification/entity"
	"waitlist-service/modules/notification/mapper"
	"waitlist-service/modules/notification/repository"
	waitlistEntity "waitlist-service/modules/waitlist/entity"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var ErrNoPublisher = stderrors.New("no broker configured for external channel")

type NotificationServiceInterface interface {
	Create(ctx context.Context, req *dto.CreateNotificationRequest) (*entity.Notification, error)
	GetForRecipient(ctx context.Context, recipientID string, queryParams params.QueryParams) (*dto.NotificationListResponse, *errors.AppError)
	MarkAsRead(ctx context.Context, recipientID string, ids []string) (int, *errors.AppError)
	MarkAllAsRead(ctx context.Context, recipientID string) (int, *errors.AppError)
	CountUnread(ctx context.Context, recipientID string) (int, *errors.AppError)
}

type Options struct {
	OfferSecret   string
	PublicBaseURL string
}

// NotificationService keeps the in-app inbox and hands external channels to the broker.
type NotificationService struct {
	repo      repository.NotificationRepositoryInterface
	publisher broker.Publisher
	opts      Options
	now       func() time.Time
}

func NewNotificationService(repo repository.NotificationRepositoryInterface, publisher broker.Publisher, opts Options, now func() time.Time) *NotificationService {
	if now == nil {
		now = time.Now
	}
	return &NotificationService{repo: repo, publisher: publisher, opts: opts, now: now}
}

func routingKey(kind, channel string) string {
	return "waitlist." + kind + "." + slug.Make(channel)
}

func (s *NotificationService) Create(ctx context.Context, req *dto.CreateNotificationRequest) (*entity.Notification, error) {
	now := s.now().UTC()
	channel := req.Channel
	if channel == "" {
		channel = entity.ChannelInApp
	}
	notif := &entity.Notification{
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		Channel:     channel,
		Data:        entity.JSONB(req.Data),
		BaseEntity: coreEntity.BaseEntity{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := s.repo.Create(ctx, notif); err != nil {
		return nil, err
	}
	return notif, nil
}

// deliver stores the notification and, for external channels, publishes it.
func (s *NotificationService) deliver(ctx context.Context, kind string, req *dto.CreateNotificationRequest) error {
	notif, err := s.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if notif.Channel == entity.ChannelInApp {
		return nil
	}
	if s.publisher == nil {
		return ErrNoPublisher
	}
	if err := s.publisher.PublishJSON(ctx, routingKey(kind, notif.Channel), mapper.ToOutboundMessage(notif)); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (s *NotificationService) confirmURL(offer *waitlistEntity.Offer) string {
	if s.opts.OfferSecret == "" || s.opts.PublicBaseURL == "" {
		return ""
	}
	token, err := utils.GenerateOfferToken(s.opts.OfferSecret, offer.EntryID, offer.ExpiresAt)
	if err != nil {
		logger.Warn("NotificationService:confirmURL:Error", "entry_id", offer.EntryID, "error", err)
		return ""
	}
	return s.opts.PublicBaseURL + "/api/v1/public/offers/confirm?token=" + url.QueryEscape(token)
}

// Notify delivers a waitlist offer on the configured channel.
func (s *NotificationService) Notify(ctx context.Context, offer *waitlistEntity.Offer) error {
	data := map[string]any{
		"entry_id":    offer.EntryID.String(),
		"resource_id": offer.ResourceID,
		"slot_key":    offer.SlotKey,
		"occurrence":  offer.Occurrence,
		"starts_at":   offer.StartsAt,
		"expires_at":  offer.ExpiresAt,
	}
	if link := s.confirmURL(offer); link != "" {
		data["confirm_url"] = link
	}

	err := s.deliver(ctx, "offer", &dto.CreateNotificationRequest{
		RecipientID: offer.ClientID,
		Title:       "A slot opened up",
		Message: fmt.Sprintf("%s %s-%s on %s is available. Confirm before %s.",
			offer.ResourceID, offer.Slot.StartTime, offer.Slot.EndTime, offer.Occurrence,
			offer.ExpiresAt.UTC().Format(time.RFC3339)),
		Type:    entity.TypeWaitlistOffer,
		Channel: offer.Channel,
		Data:    data,
	})
	if err != nil {
		return err
	}
	logger.Info("NotificationService:Notify", "entry_id", offer.EntryID, "client_id", offer.ClientID, "channel", offer.Channel)
	return nil
}

// NotifyAbsence tells the client an absence was recorded and what it costs them.
func (s *NotificationService) NotifyAbsence(ctx context.Context, absence *absenceEntity.Absence) error {
	data := map[string]any{
		"absence_id":   absence.ID.String(),
		"booking_id":   absence.BookingID.String(),
		"kind":         string(absence.Kind),
		"penalty_kind": string(absence.PenaltyKind),
	}
	message := fmt.Sprintf("An absence (%s) was recorded for your booking on %s.", absence.Kind, absence.OccurredAt.UTC().Format("2006-01-02"))
	if fine := absence.Fine(); fine > 0 {
		data["penalty_amount"] = fine
		message += fmt.Sprintf(" A fine of %.2f applies.", fine)
	}
	if until := absence.BlockedUntil(); until != nil {
		data["blocked_until"] = *until
		message += fmt.Sprintf(" Booking is blocked until %s.", until.UTC().Format("2006-01-02"))
	}

	return s.deliver(ctx, "absence", &dto.CreateNotificationRequest{
		RecipientID: absence.ClientID,
		Title:       "Absence recorded",
		Message:     message,
		Type:        entity.TypeAbsenceRecorded,
		Channel:     entity.ChannelInApp,
		Data:        data,
	})
}

func (s *NotificationService) GetForRecipient(ctx context.Context, recipientID string, queryParams params.QueryParams) (*dto.NotificationListResponse, *errors.AppError) {
	page, err := s.repo.GetByRecipient(ctx, recipientID, queryParams)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "get notifications failed", err)
	}
	return mapper.ToNotificationListResponse(page), nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, recipientID string, ids []string) (int, *errors.AppError) {
	n, err := s.repo.MarkAsRead(ctx, recipientID, ids)
	if err != nil {
		return 0, errors.NewAppError(errors.ErrUpdateFailed, "mark as read failed", err)
	}
	return n, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, recipientID string) (int, *errors.AppError) {
	n, err := s.repo.MarkAllAsRead(ctx, recipientID)
	if err != nil {
		return 0, errors.NewAppError(errors.ErrUpdateFailed, "mark all as read failed", err)
	}
	return n, nil
}

func (s *NotificationService) CountUnread(ctx context.Context, recipientID string) (int, *errors.AppError) {
	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, errors.NewAppError(errors.ErrGetFailed, "count unread failed", err)
	}
	return count, nil
}
