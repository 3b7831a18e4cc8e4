package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/supplytrack/accounts/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	promoted := domain.NewAccount("admin@example.com", domain.RoleAdmin, "Root", nil, time.Now())

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "echo error", err: echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), wantCode: http.StatusBadRequest, wantMsg: "invalid payload"},
		{name: "validation", err: &domain.ValidationError{Field: domain.FieldAddress}, wantCode: http.StatusUnprocessableEntity, wantMsg: "address is required"},
		{name: "uniqueness", err: &domain.UniquenessError{Field: domain.FieldDisplayName, Value: "Root"}, wantCode: http.StatusConflict, wantMsg: `displayName "Root"`},
		{name: "wrapped uniqueness", err: fmt.Errorf("create: %w", &domain.UniquenessError{Field: domain.FieldAddress, Value: "a"}), wantCode: http.StatusConflict},
		{name: "not found", err: domain.ErrAccountNotFound, wantCode: http.StatusNotFound, wantMsg: "account not found"},
		{name: "credentials", err: domain.ErrInvalidCredentials, wantCode: http.StatusUnauthorized},
		{name: "forbidden", err: domain.ErrForbidden, wantCode: http.StatusForbidden},
		{name: "lock busy", err: fmt.Errorf("create account: %w", domain.ErrLockBusy), wantCode: http.StatusServiceUnavailable},
		{name: "promotion", err: &domain.PromotionError{Account: promoted, Err: errors.New("write conflict")}, wantCode: http.StatusInternalServerError, wantMsg: "admin@example.com"},
		{name: "unexpected", err: errors.New("mongo: connection reset"), wantCode: http.StatusInternalServerError, wantMsg: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/accounts", nil), rec)

			NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if !strings.Contains(body.Error, tt.wantMsg) {
				t.Fatalf("expected message containing %q, got %q", tt.wantMsg, body.Error)
			}
			if tt.name == "unexpected" && strings.Contains(body.Error, "mongo") {
				t.Fatalf("internal detail leaked: %q", body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_CommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.NoContent(http.StatusAccepted)

	NewHTTPErrorHandler(zerolog.Nop())(domain.ErrForbidden, c)

	if rec.Code != http.StatusAccepted || rec.Body.Len() != 0 {
		t.Fatalf("committed response was overwritten: %d %q", rec.Code, rec.Body.String())
	}
}
