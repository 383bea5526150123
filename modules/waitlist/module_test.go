package waitlist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"waitlist-service/core/config"
	"waitlist-service/core/middleware"
	"waitlist-service/core/utils"
	bookingRepository "waitlist-service/modules/booking/repository"
	bookingService "waitlist-service/modules/booking/service"
	"waitlist-service/modules/waitlist/entity"

	"github.com/labstack/echo/v4"
)

const offerSecret = "offer-secret"

type inbox struct {
	mu     sync.Mutex
	offers []entity.Offer
}

func (n *inbox) Notify(_ context.Context, offer *entity.Offer) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offers = append(n.offers, *offer)
	return nil
}

func newTestModule(t *testing.T) (*echo.Echo, *Module, *inbox) {
	t.Helper()
	cfg := &config.Config{
		App:    config.AppConfig{Timezone: "UTC"},
		Worker: config.WorkerConfig{SweepInterval: time.Minute},
		Offer:  config.OfferConfig{TokenSecret: offerSecret},
		Waitlist: config.WaitlistConfig{
			Active:                true,
			ResponseWindowMinutes: 30,
			AutoNotify:            true,
			NotificationChannel:   "in_app",
			MaxEntriesPerClient:   2,
			EntryValidityDays:     30,
			PriorityClasses:       []string{"premium", "normal"},
		},
	}
	notifier := &inbox{}
	bookings := bookingService.NewBookingService(bookingRepository.NewMemoryBookingRepository(), time.UTC, nil)

	e := echo.New()
	m := Init(e.Group("/api/v1"), middleware.NewMiddleware(""), Deps{
		Config:   cfg,
		Bookings: bookings,
		Notifier: notifier,
	})
	t.Cleanup(m.Close)
	return e, m, notifier
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func entryID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	return body.Data.ID
}

const mondayEntry = `{"resource_id":"court-1","client_id":"%s","day_of_week":1,"start_time":"10:00","end_time":"11:00"}`

func addEntry(t *testing.T, e *echo.Echo, client string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/v1/waitlist/entries", strings.Replace(mondayEntry, "%s", client, 1))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add %s: %d %s", client, rec.Code, rec.Body.String())
	}
	return entryID(t, rec)
}

func TestEntryRoutes(t *testing.T) {
	e, _, _ := newTestModule(t)

	id := addEntry(t, e, "alice")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"get", http.MethodGet, "/api/v1/waitlist/entries/" + id, "", http.StatusOK},
		{"get unknown", http.MethodGet, "/api/v1/waitlist/entries/6f1c1a8e-4d55-4b7e-9a55-0f6a3a1b2c3d", "", http.StatusNotFound},
		{"get bad id", http.MethodGet, "/api/v1/waitlist/entries/nope", "", http.StatusBadRequest},
		{"missing slot fields", http.MethodPost, "/api/v1/waitlist/entries", `{"resource_id":"court-1","client_id":"bob"}`, http.StatusBadRequest},
		{"end before start", http.MethodPost, "/api/v1/waitlist/entries", `{"resource_id":"court-1","client_id":"bob","day_of_week":1,"start_time":"11:00","end_time":"10:00"}`, http.StatusBadRequest},
		{"list", http.MethodGet, "/api/v1/resources/court-1/waitlist?slot=monday-10-00-11-00", "", http.StatusOK},
		{"list bad state", http.MethodGet, "/api/v1/resources/court-1/waitlist?state=pending", "", http.StatusBadRequest},
		{"cancel", http.MethodDelete, "/api/v1/waitlist/entries/" + id, "", http.StatusNoContent},
		{"bad channel", http.MethodPut, "/api/v1/resources/court-1/waitlist/config", `{"notification_channel":"pigeon"}`, http.StatusBadRequest},
		{"free bad slot", http.MethodPost, "/api/v1/resources/court-1/slots/someday/occurrences/2030-01-07/free", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := do(e, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestInactiveWaitlistRejectsEntries(t *testing.T) {
	e, _, _ := newTestModule(t)

	if rec := do(e, http.MethodPut, "/api/v1/resources/court-1/waitlist/config", `{"active":false}`); rec.Code != http.StatusOK {
		t.Fatalf("update config: %d %s", rec.Code, rec.Body.String())
	}
	rec := do(e, http.MethodPost, "/api/v1/waitlist/entries", strings.Replace(mondayEntry, "%s", "alice", 1))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestConfirmThroughOfferLink(t *testing.T) {
	e, m, notifier := newTestModule(t)

	first := addEntry(t, e, "alice")
	addEntry(t, e, "bob")

	rec := do(e, http.MethodPost, "/api/v1/resources/court-1/slots/monday-10-00-11-00/occurrences/2030-01-07/free", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), first) {
		t.Fatalf("free: %d %s", rec.Code, rec.Body.String())
	}
	m.Tracker.Wait()
	if len(notifier.offers) != 1 || notifier.offers[0].ClientID != "alice" {
		t.Fatalf("offers: %+v", notifier.offers)
	}

	if rec := do(e, http.MethodPost, "/api/v1/public/offers/confirm?token=forged", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("forged token: %d", rec.Code)
	}

	offer := notifier.offers[0]
	token, err := utils.GenerateOfferToken(offerSecret, offer.EntryID, offer.ExpiresAt)
	if err != nil {
		t.Fatal(err)
	}
	rec = do(e, http.MethodPost, "/api/v1/public/offers/confirm?token="+token, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "booking_reference") {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/api/v1/public/offers/confirm?token="+token, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second confirm: %d %s", rec.Code, rec.Body.String())
	}
}
