package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/connectrh/core-auth/internal/api/middleware"
	"github.com/connectrh/core-auth/internal/core/domain"
	"github.com/connectrh/core-auth/internal/core/ports"
	"github.com/connectrh/core-auth/internal/core/service"
	"github.com/connectrh/core-auth/internal/infrastructure/crypto"
	"github.com/connectrh/core-auth/internal/infrastructure/db/memory"
)

const testKey = "bff-shared-secret"

type testServer struct {
	e     *echo.Echo
	store *memory.Store
}

func newTestServer(t *testing.T, seed bool) *testServer {
	t.Helper()

	store := memory.NewStore()
	users, roles := store.UserRepository(), store.RoleRepository()
	hasher := crypto.NewBcryptHasher(bcrypt.MinCost)

	if seed {
		if err := service.NewSeeder(users, roles, hasher, service.AdminAccount{}, zerolog.Nop()).Run(context.Background()); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	e := NewRouter(Dependencies{
		Validator:      service.NewAuthService(users, roles, hasher, zerolog.Nop()),
		InternalAPIKey: testKey,
		Checks:         map[string]ports.Pinger{"store": store},
		Log:            zerolog.Nop(),
	})
	return &testServer{e: e, store: store}
}

func (s *testServer) do(method, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if key != "" {
		req.Header.Set(middleware.HeaderInternalAPIKey, key)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestRouter_InternalRoutesRequireKey(t *testing.T) {
	srv := newTestServer(t, true)

	cases := []struct {
		name   string
		method string
		path   string
		key    string
		body   string
	}{
		{"status without key", http.MethodGet, "/api/v1/internal/auth/status", "", ""},
		{"status with wrong key", http.MethodGet, "/api/v1/internal/auth/status", "nope", ""},
		{"login without key", http.MethodPost, "/api/v1/internal/auth/login", "", `{"email":"admin@connectrh.com","password":"admin123"}`},
		{"signup without key", http.MethodPost, "/api/v1/internal/auth/signup", "", `{"name":"A","email":"a@x.com","password":"secret1"}`},
		{"unknown internal path", http.MethodGet, "/api/v1/internal/anything", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := srv.do(tc.method, tc.path, tc.key, tc.body)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d (%s)", rec.Code, rec.Body.String())
			}
		})
	}

	if n := srv.store.UserCount(); n != 1 {
		t.Fatalf("rejected signup must not create users, have %d", n)
	}
}

func TestRouter_StatusWithKey(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(http.MethodGet, "/api/v1/internal/auth/status", testKey, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Core Auth Service OK!" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestRouter_PublicPathsIgnoreKey(t *testing.T) {
	srv := newTestServer(t, true)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		if rec := srv.do(http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rec.Code)
		}
	}

	// Outside the internal subtree the key is neither required nor honoured.
	if rec := srv.do(http.MethodGet, "/api/v1/other", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown public path, got %d", rec.Code)
	}
}

func TestRouter_AdminLogin(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(http.MethodPost, "/api/v1/internal/auth/login", testKey,
		`{"email":"admin@connectrh.com","password":"admin123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		UserID      string   `json:"userId"`
		Name        string   `json:"name"`
		Email       string   `json:"email"`
		PhoneNumber string   `json:"phoneNumber"`
		Roles       []string `json:"roles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.UserID == "" || resp.Name != "System Administrator" || resp.PhoneNumber != "11954444380" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if strings.Join(resp.Roles, ",") != "ADMIN,MANAGER" {
		t.Fatalf("expected roles [ADMIN MANAGER], got %v", resp.Roles)
	}
}

func TestRouter_LoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t, true)

	wrongPassword := srv.do(http.MethodPost, "/api/v1/internal/auth/login", testKey,
		`{"email":"admin@connectrh.com","password":"wrong-pass"}`)
	unknownEmail := srv.do(http.MethodPost, "/api/v1/internal/auth/login", testKey,
		`{"email":"ghost@connectrh.com","password":"admin123"}`)

	for _, rec := range []*httptest.ResponseRecorder{wrongPassword, unknownEmail} {
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrongPassword.Body.String(), unknownEmail.Body.String())
	}
	if got := decodeMap(t, wrongPassword)["error"]; got != "invalid credentials" {
		t.Fatalf("unexpected error message %v", got)
	}
}

func TestRouter_LoginValidation(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(http.MethodPost, "/api/v1/internal/auth/login", testKey, `{"email":"not-an-email","password":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRouter_SignupCreatesUserWithDefaultRole(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(http.MethodPost, "/api/v1/internal/auth/signup", testKey,
		`{"name":"Ana","email":"ana@x.com","password":"secret1","phoneNumber":"11999990000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeMap(t, rec)
	if body["id"] == "" || body["name"] != "Ana" || body["email"] != "ana@x.com" || body["phoneNumber"] != "11999990000" {
		t.Fatalf("unexpected payload: %+v", body)
	}
	if _, leaked := body["password"]; leaked {
		t.Fatalf("response leaks password")
	}

	user, err := srv.store.UserRepository().FindByEmail(context.Background(), "ana@x.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got := user.RoleNames(); len(got) != 1 || got[0] != string(domain.RoleUser) {
		t.Fatalf("expected only USER role, got %v", got)
	}
	if user.PasswordHash == "secret1" {
		t.Fatal("password stored in plain text")
	}

	login := srv.do(http.MethodPost, "/api/v1/internal/auth/login", testKey,
		`{"email":"ana@x.com","password":"secret1"}`)
	if login.Code != http.StatusOK {
		t.Fatalf("new user cannot log in: %d", login.Code)
	}
}

func TestRouter_SignupDuplicateEmail(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(http.MethodPost, "/api/v1/internal/auth/signup", testKey,
		`{"name":"Impostor","email":"admin@connectrh.com","password":"secret1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeMap(t, rec)["error"]; got != "email 'admin@connectrh.com' is already registered" {
		t.Fatalf("unexpected error message %v", got)
	}
	if n := srv.store.UserCount(); n != 1 {
		t.Fatalf("expected a single user, have %d", n)
	}
}

func TestRouter_SignupWithoutSeededRole(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/v1/internal/auth/signup", testKey,
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decodeMap(t, rec)["error"]; got != "configuration error: default role USER not found" {
		t.Fatalf("unexpected error message %v", got)
	}
	if n := srv.store.UserCount(); n != 0 {
		t.Fatalf("no user may be created, have %d", n)
	}
}

func TestAccessRules_Order(t *testing.T) {
	rules := AccessRules()
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Prefix != InternalPrefix || rules[0].Authority != domain.AuthorityInternal {
		t.Fatalf("first rule must protect the internal subtree: %+v", rules[0])
	}
	if rules[1].Prefix != "/" || rules[1].Authority != "" {
		t.Fatalf("second rule must permit everything else: %+v", rules[1])
	}
}

func TestRouter_SignupPasswordLimitCountsBytes(t *testing.T) {
	srv := newTestServer(t, true)

	// 40 runes, 80 bytes: short enough by character count, too long for bcrypt.
	password := strings.Repeat("é", 40)
	rec := srv.do(http.MethodPost, "/api/v1/internal/auth/signup", testKey,
		`{"name":"Ana","email":"ana@x.com","password":"`+password+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := decodeMap(t, rec)["error"]; got != "password must be at most 72 bytes" {
		t.Fatalf("unexpected error message %v", got)
	}
	if n := srv.store.UserCount(); n != 1 {
		t.Fatalf("rejected signup must not create users, have %d", n)
	}

	// 36 runes, 72 bytes is still accepted.
	rec = srv.do(http.MethodPost, "/api/v1/internal/auth/signup", testKey,
		`{"name":"Ana","email":"ana@x.com","password":"`+strings.Repeat("é", 36)+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 at the byte limit, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestHTTPErrorHandler_PasswordTooLongFromHasher(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/auth/signup", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop())(fmt.Errorf("create user: hash password: %w", domain.ErrPasswordTooLong), c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeMap(t, rec)["error"]; got != "password must be at most 72 bytes" {
		t.Fatalf("unexpected error message %v", got)
	}
}
