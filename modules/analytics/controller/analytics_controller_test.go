package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"waitlist-service/core/errors"
	"waitlist-service/modules/analytics/dto"

	"github.com/labstack/echo/v4"
)

type stubAnalytics struct {
	from, to time.Time
}

func (s *stubAnalytics) PopularSlots(context.Context, string) ([]dto.PopularSlot, *errors.AppError) {
	return nil, nil
}

func (s *stubAnalytics) AbsenceRate(_ context.Context, from, to time.Time) (*dto.AbsenceRateResponse, *errors.AppError) {
	s.from, s.to = from, to
	return &dto.AbsenceRateResponse{}, nil
}

func (s *stubAnalytics) FinancialImpact(context.Context, time.Time, time.Time) (*dto.FinancialImpactResponse, *errors.AppError) {
	return &dto.FinancialImpactResponse{}, nil
}

func (s *stubAnalytics) Summary(context.Context, string) (*dto.SummaryResponse, *errors.AppError) {
	return &dto.SummaryResponse{}, nil
}

func (s *stubAnalytics) Export(context.Context, time.Time, time.Time, string) (*dto.ExportResponse, *errors.AppError) {
	return &dto.ExportResponse{}, nil
}

func TestGetAbsenceRatePeriod(t *testing.T) {
	svc := &stubAnalytics{}
	ctrl := NewAnalyticsController(svc)
	e := echo.New()
	e.GET("/analytics/absences", ctrl.GetAbsenceRate)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/absences?from=2025-03-01&to=2025-03-31", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if !svc.from.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) || !svc.to.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("range [%s, %s)", svc.from, svc.to)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analytics/absences?period=March", nil))
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "period=YYYY-MM") {
		t.Fatalf("bad period: %d %s", rec.Code, rec.Body.String())
	}
}
