package mapper

import (
	"strings"
	"waitlist-service/modules/waitlist/dto"
	"waitlist-service/modules/waitlist/entity"
)

func ToWaitlistEntry(req *dto.AddEntryRequest) *entity.WaitlistEntry {
	class := strings.ToLower(strings.TrimSpace(req.PriorityClass))
	if class == "" {
		class = entity.PriorityClassNormal
	}
	e := &entity.WaitlistEntry{
		ResourceID:    req.ResourceID,
		ClientID:      req.ClientID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		PriorityClass: class,
		Notes:         req.Notes,
	}
	if req.DayOfWeek != nil {
		e.DayOfWeek = *req.DayOfWeek
	}
	e.SlotKey = e.Slot().Key()
	return e
}

func ToEntryResponse(e *entity.WaitlistEntry) *dto.EntryResponse {
	return &dto.EntryResponse{
		ID:                e.ID,
		ResourceID:        e.ResourceID,
		ClientID:          e.ClientID,
		SlotKey:           e.SlotKey,
		DayOfWeek:         e.DayOfWeek,
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		PriorityClass:     e.PriorityClass,
		Priority:          e.Priority,
		State:             string(e.State),
		RequestedAt:       e.RequestedAt,
		NotifiedAt:        e.NotifiedAt,
		ExpiresAt:         e.ExpiresAt,
		ConfirmedAt:       e.ConfirmedAt,
		CancelledAt:       e.CancelledAt,
		OfferedOccurrence: e.OfferedOccurrence,
		AssignedBookingID: e.AssignedBookingID,
		Notes:             e.Notes,
	}
}

func ToEntryResponses(entries []entity.WaitlistEntry) []dto.EntryResponse {
	out := make([]dto.EntryResponse, len(entries))
	for i := range entries {
		out[i] = *ToEntryResponse(&entries[i])
	}
	return out
}

func ToConfigurationResponse(c *entity.Configuration) *dto.ConfigurationResponse {
	return &dto.ConfigurationResponse{
		ResourceID:            c.ResourceID,
		Active:                c.Active,
		ResponseWindowMinutes: c.ResponseWindowMinutes,
		AutoNotify:            c.AutoNotify,
		NotificationChannel:   c.NotificationChannel,
		MaxEntriesPerClient:   c.MaxEntriesPerClient,
		EntryValidityDays:     c.EntryValidityDays,
		UpdatedAt:             c.UpdatedAt,
	}
}

// ApplyConfiguration copies the fields present in req onto c.
func ApplyConfiguration(c *entity.Configuration, req *dto.ConfigurationRequest) {
	if req.Active != nil {
		c.Active = *req.Active
	}
	if req.ResponseWindowMinutes != nil {
		c.ResponseWindowMinutes = *req.ResponseWindowMinutes
	}
	if req.AutoNotify != nil {
		c.AutoNotify = *req.AutoNotify
	}
	if req.NotificationChannel != nil {
		c.NotificationChannel = *req.NotificationChannel
	}
	if req.MaxEntriesPerClient != nil {
		c.MaxEntriesPerClient = *req.MaxEntriesPerClient
	}
	if req.EntryValidityDays != nil {
		c.EntryValidityDays = *req.EntryValidityDays
	}
}

func ToOfferResponse(o *entity.Offer) *dto.OfferResponse {
	if o == nil {
		return nil
	}
	return &dto.OfferResponse{
		EntryID:    o.EntryID,
		ClientID:   o.ClientID,
		SlotKey:    o.SlotKey,
		Occurrence: o.Occurrence,
		NotifiedAt: o.NotifiedAt,
		ExpiresAt:  o.ExpiresAt,
		Channel:    o.Channel,
	}
}
