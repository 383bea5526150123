package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"waitlist-service/core/errors"

	"github.com/labstack/echo/v4"
)

func TestErrorResponseStatusMapping(t *testing.T) {
	cases := []struct {
		code   errors.ErrorCode
		status int
	}{
		{errors.ErrDuplicateEntry, http.StatusConflict},
		{errors.ErrQuotaExceeded, http.StatusConflict},
		{errors.ErrOfferExpired, http.StatusConflict},
		{errors.ErrNotFound, http.StatusNotFound},
		{errors.ErrBookingNotFound, http.StatusNotFound},
		{errors.ErrInvalidInput, http.StatusBadRequest},
		{errors.ErrUnauthorized, http.StatusUnauthorized},
		{errors.ErrCreateFailed, http.StatusInternalServerError},
	}

	e := echo.New()
	h := NewBaseController()
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		if err := h.ErrorResponse(c, errors.NewAppError(tc.code, "msg", nil)); err != nil {
			t.Fatalf("ErrorResponse returned %v", err)
		}
		if rec.Code != tc.status {
			t.Fatalf("%s: expected %d, got %d", tc.code, tc.status, rec.Code)
		}

		var body ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Code != tc.code || body.Message != "msg" || body.Status != "error" {
			t.Fatalf("unexpected body %+v", body)
		}
	}
}

func TestErrorResponsePlainError(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = NewBaseController().ErrorResponse(c, http.ErrAbortHandler)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
