package mapper

import (
	"waitlist-service/modules/booking/dto"
	"waitlist-service/modules/booking/entity"
)

func ToBookingResponse(b *entity.Booking) *dto.BookingResponse {
	if b == nil {
		return nil
	}
	return &dto.BookingResponse{
		ID:              b.ID,
		Reference:       b.Reference,
		ResourceID:      b.ResourceID,
		ClientID:        b.ClientID,
		SlotKey:         b.SlotKey,
		StartsAt:        b.StartsAt,
		EndsAt:          b.EndsAt,
		Status:          string(b.Status),
		Source:          string(b.Source),
		WaitlistEntryID: b.WaitlistEntryID,
		CreatedAt:       b.CreatedAt,
	}
}
