package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"waitlist-service/core/middleware"
	"waitlist-service/modules/notification/dto"
	"waitlist-service/modules/notification/repository"
	"waitlist-service/modules/notification/service"

	"github.com/labstack/echo/v4"
)

func newTestServer(t *testing.T) (*echo.Echo, *service.NotificationService) {
	t.Helper()
	svc := service.NewNotificationService(repository.NewMemoryNotificationRepository(), nil, service.Options{}, nil)
	ctrl := NewNotificationController(svc)
	mw := middleware.NewMiddleware("")

	e := echo.New()
	group := e.Group("/clients/:id/notifications", mw.AuthMiddleware())
	group.GET("", ctrl.GetNotifications)
	group.PUT("/mark-read", ctrl.MarkAsRead)
	return e, svc
}

func TestNotificationRoutes(t *testing.T) {
	e, svc := newTestServer(t)
	if _, err := svc.Create(context.Background(), &dto.CreateNotificationRequest{RecipientID: "client-a", Title: "hi", Message: "hello"}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/clients/client-a/notifications", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total_items":1`) {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "empty ids", body: `{"ids":[]}`, want: http.StatusBadRequest},
		{name: "not a uuid", body: `{"ids":["abc"]}`, want: http.StatusBadRequest},
		{name: "malformed json", body: `{"ids":`, want: http.StatusBadRequest},
		{name: "unknown id", body: `{"ids":["6f1c1a8e-4d55-4b7e-9a55-0f6a3a1b2c3d"]}`, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/clients/client-a/notifications/mark-read", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}
