package mapper

import (
	"waitlist-service/modules/absence/dto"
	"waitlist-service/modules/absence/entity"
)

func ToAbsenceResponse(a *entity.Absence) *dto.AbsenceResponse {
	if a == nil {
		return nil
	}
	return &dto.AbsenceResponse{
		ID:            a.ID,
		BookingID:     a.BookingID,
		ResourceID:    a.ResourceID,
		SlotKey:       a.SlotKey,
		ClientID:      a.ClientID,
		OccurredAt:    a.OccurredAt,
		RecordedAt:    a.RecordedAt,
		Kind:          string(a.Kind),
		Justification: a.Justification,
		Penalty: dto.PenaltyResponse{
			Kind:      string(a.PenaltyKind),
			Amount:    a.PenaltyAmount,
			BlockDays: a.PenaltyBlockDays,
		},
		Notified:    a.Notified,
		NoticeHours: a.NoticeHours,
		ExceptionID: a.ExceptionID,
	}
}

func ToAbsenceResponses(absences []entity.Absence) []dto.AbsenceResponse {
	out := make([]dto.AbsenceResponse, 0, len(absences))
	for i := range absences {
		out = append(out, *ToAbsenceResponse(&absences[i]))
	}
	return out
}

func ToPolicyExceptionResponse(ex *entity.PolicyException) *dto.PolicyExceptionResponse {
	return &dto.PolicyExceptionResponse{
		ID:           ex.ID,
		Scope:        string(ex.Scope),
		Target:       ex.Target,
		NoticeHours:  ex.NoticeHours,
		WaivePenalty: ex.WaivePenalty,
		Active:       ex.Active,
		Description:  ex.Description,
		CreatedAt:    ex.CreatedAt,
	}
}

func ToPolicyResponse(p *entity.Policy) *dto.PolicyResponse {
	resp := &dto.PolicyResponse{
		Active:                      p.Active,
		NoShowFineEnabled:           p.NoShowFineEnabled,
		NoShowFineAmount:            p.NoShowFineAmount,
		LateCancellationFineEnabled: p.LateCancellationFineEnabled,
		LateCancellationFineAmount:  p.LateCancellationFineAmount,
		LateCancellationNoticeHours: p.LateCancellationNoticeHours,
		BlockAfterNoShows:           p.BlockAfterNoShows,
		BlockDays:                   p.BlockDays,
		AlertAfterNoShows:           p.AlertAfterNoShows,
		Exceptions:                  make([]dto.PolicyExceptionResponse, 0, len(p.Exceptions)),
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		resp.UpdatedAt = &t
	}
	for i := range p.Exceptions {
		resp.Exceptions = append(resp.Exceptions, *ToPolicyExceptionResponse(&p.Exceptions[i]))
	}
	return resp
}

// ApplyPolicy copies the set fields of req onto p.
func ApplyPolicy(p *entity.Policy, req *dto.PolicyRequest) {
	if req.Active != nil {
		p.Active = *req.Active
	}
	if req.NoShowFineEnabled != nil {
		p.NoShowFineEnabled = *req.NoShowFineEnabled
	}
	if req.NoShowFineAmount != nil {
		p.NoShowFineAmount = *req.NoShowFineAmount
	}
	if req.LateCancellationFineEnabled != nil {
		p.LateCancellationFineEnabled = *req.LateCancellationFineEnabled
	}
	if req.LateCancellationFineAmount != nil {
		p.LateCancellationFineAmount = *req.LateCancellationFineAmount
	}
	if req.LateCancellationNoticeHours != nil {
		p.LateCancellationNoticeHours = *req.LateCancellationNoticeHours
	}
	if req.BlockAfterNoShows != nil {
		p.BlockAfterNoShows = *req.BlockAfterNoShows
	}
	if req.BlockDays != nil {
		p.BlockDays = *req.BlockDays
	}
	if req.AlertAfterNoShows != nil {
		p.AlertAfterNoShows = *req.AlertAfterNoShows
	}
}

func ToNoShowAlertResponses(alerts []entity.NoShowAlert) []dto.NoShowAlertResponse {
	out := make([]dto.NoShowAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, dto.NoShowAlertResponse{
			ID:           a.ID,
			ClientID:     a.ClientID,
			Level:        string(a.Level),
			NoShows:      a.NoShows,
			LastNoShowAt: a.LastNoShowAt,
			Active:       a.Active,
			CreatedAt:    a.CreatedAt,
			ResolvedAt:   a.ResolvedAt,
		})
	}
	return out
}
