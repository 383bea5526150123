package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"waitlist-service/core/constants"
	"waitlist-service/core/utils"

	"github.com/labstack/echo/v4"
)

func buildTestApp(secret string) *echo.Echo {
	e := echo.New()
	mw := NewMiddleware(secret)
	g := e.Group("/private", mw.AuthMiddleware())
	g.GET("/ping", func(c echo.Context) error {
		subject := ""
		if data, ok := TokenData(c); ok {
			subject = data.Subject
		}
		return c.String(http.StatusOK, subject)
	})
	return e
}

func TestAuthMiddleware(t *testing.T) {
	e := buildTestApp("testsecret")

	req := httptest.NewRequest(http.MethodGet, "/private/ping", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	token, _ := utils.GenerateSignedToken("testsecret", "staff-1", constants.ScopeTokenAccess, time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/private/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "staff-1" {
		t.Fatalf("expected 200 staff-1, got %d %q", rec.Code, rec.Body.String())
	}

	offerToken, _ := utils.GenerateSignedToken("testsecret", "entry", constants.ScopeTokenOfferConfirm, time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/private/ping", nil)
	req.Header.Set("Authorization", "Bearer "+offerToken)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for offer-scoped token, got %d", rec.Code)
	}
}

func TestAuthMiddlewareDisabled(t *testing.T) {
	e := buildTestApp("")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}
