package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"waitlist-service/core/config"
	"waitlist-service/modules/absence/dto"
	"waitlist-service/modules/absence/repository"
	"waitlist-service/modules/absence/service"

	"github.com/labstack/echo/v4"
)

type policyEnvelope struct {
	Data dto.PolicyResponse `json:"data"`
}

type exceptionEnvelope struct {
	Data dto.PolicyExceptionResponse `json:"data"`
}

func newPolicyServer() *echo.Echo {
	svc := service.NewPolicyService(repository.NewMemoryPolicyRepository(), config.AbsenceConfig{
		LateCancellationNoticeHours: 24,
		AlertAfterNoShows:           3,
	}, nil)
	ctrl := NewPolicyController(svc)

	e := echo.New()
	e.GET("/absence-policy", ctrl.GetPolicy)
	e.PUT("/absence-policy", ctrl.UpdatePolicy)
	e.POST("/absence-policy/exceptions", ctrl.AddException)
	e.DELETE("/absence-policy/exceptions/:id", ctrl.RemoveException)
	return e
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPolicyRoutes(t *testing.T) {
	e := newPolicyServer()

	rec := serve(e, http.MethodGet, "/absence-policy", "")
	var got policyEnvelope
	if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &got) != nil {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	if !got.Data.Active || got.Data.LateCancellationNoticeHours != 24 || got.Data.UpdatedAt != nil {
		t.Fatalf("defaults: %+v", got.Data)
	}

	rec = serve(e, http.MethodPut, "/absence-policy", `{"late_cancellation_notice_hours": 12, "block_after_no_shows": 2}`)
	got = policyEnvelope{}
	if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &got) != nil {
		t.Fatalf("put: %d %s", rec.Code, rec.Body.String())
	}
	if got.Data.LateCancellationNoticeHours != 12 || got.Data.BlockAfterNoShows != 2 || got.Data.AlertAfterNoShows != 3 || got.Data.UpdatedAt == nil {
		t.Fatalf("updated: %+v", got.Data)
	}

	if rec = serve(e, http.MethodPut, "/absence-policy", `{"block_days": -1}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("negative block days: %d", rec.Code)
	}

	rec = serve(e, http.MethodPost, "/absence-policy/exceptions", `{"scope": "client", "target": "alice", "waive_penalty": true}`)
	var ex exceptionEnvelope
	if rec.Code != http.StatusCreated || json.Unmarshal(rec.Body.Bytes(), &ex) != nil {
		t.Fatalf("add exception: %d %s", rec.Code, rec.Body.String())
	}
	if rec = serve(e, http.MethodPost, "/absence-policy/exceptions", `{"scope": "team", "target": "x"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown scope: %d", rec.Code)
	}

	got = policyEnvelope{}
	rec = serve(e, http.MethodGet, "/absence-policy", "")
	if json.Unmarshal(rec.Body.Bytes(), &got) != nil || len(got.Data.Exceptions) != 1 || got.Data.Exceptions[0].Target != "alice" {
		t.Fatalf("exceptions: %s", rec.Body.String())
	}

	if rec = serve(e, http.MethodDelete, "/absence-policy/exceptions/"+ex.Data.ID.String(), ""); rec.Code != http.StatusNoContent {
		t.Fatalf("remove: %d", rec.Code)
	}
	if rec = serve(e, http.MethodDelete, "/absence-policy/exceptions/"+ex.Data.ID.String(), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("remove twice: %d", rec.Code)
	}
	if rec = serve(e, http.MethodDelete, "/absence-policy/exceptions/nope", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}
