package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/supplytrack/accounts/internal/core/ports"
	"github.com/supplytrack/accounts/internal/core/service"
	"github.com/supplytrack/accounts/internal/infrastructure/crypto"
	"github.com/supplytrack/accounts/internal/infrastructure/db/memory"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) (*echo.Echo, *service.AccountStore) {
	t.Helper()
	repo := memory.NewAccountRepository()
	hasher := crypto.NewBcryptHasher(4)
	store := service.NewAccountStore(repo, hasher, zerolog.Nop())
	auth := service.NewAuthService(repo, hasher, testSecret, time.Hour, zerolog.Nop())

	reg := prometheus.NewRegistry()
	e := NewRouter(Deps{
		Accounts:   store,
		Auth:       auth,
		JWTSecret:  testSecret,
		Logger:     zerolog.Nop(),
		Registerer: reg,
		Gatherer:   reg,
	})
	return e, store
}

func do(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo, address, password string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/auth/login", `{"address":"`+address+`","password":"`+password+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", address, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login response: %v %s", err, rec.Body.String())
	}
	return resp.Token
}

func TestRouter_AccountLifecycle(t *testing.T) {
	e, store := newTestRouter(t)

	rec := do(e, http.MethodPost, "/v1/accounts", `{"address":"alice@example.com","role":1,"displayName":"Alice","password":"s3cret","additionalData":{"region":"EU"}}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	want := `{"address":"alice@example.com","role":1,"displayName":"Alice","additionalData":{"region":"EU"}}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Fatalf("create body: got %s, want %s", got, want)
	}

	if rec := do(e, http.MethodPost, "/v1/accounts", `{"address":"alice@example.com","role":2,"displayName":"Other"}`, ""); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate address: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/v1/accounts", `{"address":"bob@example.com","role":2,"displayName":"Alice"}`, ""); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate display name: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/v1/accounts", `{"address":"","role":3,"displayName":"Carol"}`, "")
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "address is required") {
		t.Fatalf("missing address: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodPost, "/v1/accounts", `{"address":"dan@example.com","role":9,"displayName":"Dan"}`, "")
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "role") {
		t.Fatalf("invalid role: %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(e, http.MethodGet, "/v1/accounts/alice@example.com", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated get: %d", rec.Code)
	}

	token := login(t, e, "alice@example.com", "s3cret")
	rec = do(e, http.MethodGet, "/v1/accounts/alice@example.com", "", token)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != want {
		t.Fatalf("get: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodGet, "/v1/accounts/ghost@example.com", "", token); rec.Code != http.StatusNotFound {
		t.Fatalf("get missing: %d", rec.Code)
	}

	if rec := do(e, http.MethodPost, "/auth/login", `{"address":"alice@example.com","password":"wrong"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: %d", rec.Code)
	}

	// Self-service password change, then the old password stops working.
	if rec := do(e, http.MethodPut, "/v1/accounts/alice@example.com/password", `{"password":"n3w"}`, token); rec.Code != http.StatusNoContent {
		t.Fatalf("set password: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/auth/login", `{"address":"alice@example.com","password":"s3cret"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password still valid: %d", rec.Code)
	}
	login(t, e, "alice@example.com", "n3w")

	// Regular accounts cannot mint superusers.
	if rec := do(e, http.MethodPost, "/v1/accounts/superusers", `{"address":"root2@example.com","role":4,"displayName":"Root2","password":"pw"}`, token); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin superuser: %d %s", rec.Code, rec.Body.String())
	}

	if _, err := store.CreateSuperuser(context.Background(), ports.CreateSuperuserInput{
		Address: "root@example.com", Role: 4, DisplayName: "Root", Password: strPtr("rootpw"),
	}); err != nil {
		t.Fatalf("seed superuser: %v", err)
	}
	adminToken := login(t, e, "root@example.com", "rootpw")

	rec = do(e, http.MethodPost, "/v1/accounts/superusers", `{"address":"root2@example.com","role":4,"displayName":"Root2","password":"pw"}`, adminToken)
	if rec.Code != http.StatusCreated || strings.TrimSpace(rec.Body.String()) != `{"address":"root2@example.com","role":4,"displayName":"Root2","additionalData":{}}` {
		t.Fatalf("admin superuser: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/v1/accounts/root2@example.com/permissions?permission=accounts.add_account&module=accounts", "", adminToken)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"hasPermission":true`) {
		t.Fatalf("superuser permissions: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodGet, "/v1/accounts/alice@example.com/permissions?permission=accounts.add_account&module=accounts", "", adminToken)
	if !strings.Contains(rec.Body.String(), `"hasPermission":false`) || !strings.Contains(rec.Body.String(), `"hasModulePermission":true`) {
		t.Fatalf("regular permissions: %s", rec.Body.String())
	}

	// Admins may reset someone else's password; regular accounts may not.
	if rec := do(e, http.MethodPut, "/v1/accounts/alice@example.com/password", `{"password":null}`, adminToken); rec.Code != http.StatusNoContent {
		t.Fatalf("admin reset: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/auth/login", `{"address":"alice@example.com","password":"n3w"}`, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("cleared credential still valid: %d", rec.Code)
	}
	if rec := do(e, http.MethodPut, "/v1/accounts/root@example.com/password", `{"password":"x"}`, token); rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin reset: %d", rec.Code)
	}
}

func TestRouter_RejectsUnusablePasswords(t *testing.T) {
	e, store := newTestRouter(t)

	tests := []struct {
		name     string
		password string
		wantMsg  string
	}{
		{name: "multibyte over 72 bytes", password: strings.Repeat("é", 40), wantMsg: "password must be at most 72 bytes"},
		{name: "empty", password: "", wantMsg: "password"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(map[string]any{
				"address":     fmt.Sprintf("user%d@example.com", i),
				"role":        3,
				"displayName": fmt.Sprintf("User %d", i),
				"password":    tt.password,
			})
			rec := do(e, http.MethodPost, "/v1/accounts", string(body), "")
			if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), tt.wantMsg) {
				t.Fatalf("expected 422 %q, got %d %s", tt.wantMsg, rec.Code, rec.Body.String())
			}
		})
	}

	if n, _ := store.Count(context.Background()); n != 0 {
		t.Fatalf("rejected passwords must not store accounts, count=%d", n)
	}

	if rec := do(e, http.MethodPost, "/v1/accounts", `{"address":"erin@example.com","role":3,"displayName":"Erin","password":"ok"}`, ""); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	token := login(t, e, "erin@example.com", "ok")
	body, _ := json.Marshal(map[string]string{"password": strings.Repeat("ü", 37)})
	if rec := do(e, http.MethodPut, "/v1/accounts/erin@example.com/password", string(body), token); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("set multibyte password: %d %s", rec.Code, rec.Body.String())
	}
	login(t, e, "erin@example.com", "ok")
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	e, _ := newTestRouter(t)

	if rec := do(e, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("readiness should not be routed without checks: %d", rec.Code)
	}

	do(e, http.MethodPost, "/v1/accounts", `{"address":"m@example.com","role":2,"displayName":"M"}`, "")
	rec := do(e, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "requests_total") {
		t.Fatalf("metrics: %d %s", rec.Code, rec.Body.String())
	}
}

func strPtr(s string) *string { return &s }
