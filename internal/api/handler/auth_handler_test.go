package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/connectrh/core-auth/internal/core/domain"
	"github.com/connectrh/core-auth/internal/core/ports"
)

type stubValidator struct {
	validateFn func(ctx context.Context, email, raw string) (*domain.User, bool, error)
	createFn   func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
}

func (s *stubValidator) ValidateCredentials(ctx context.Context, email, raw string) (*domain.User, bool, error) {
	return s.validateFn(ctx, email, raw)
}

func (s *stubValidator) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func newTestContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestAuthHandler_Status(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/api/v1/internal/auth/status", "")
	h := NewAuthHandler(&stubValidator{}, zerolog.Nop())

	if err := h.Status(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "Core Auth Service OK!" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	stub := &stubValidator{
		validateFn: func(ctx context.Context, email, raw string) (*domain.User, bool, error) {
			if email != "admin@connectrh.com" || raw != "admin123" {
				t.Fatalf("unexpected args: %s %s", email, raw)
			}
			return &domain.User{
				ID:          "u-1",
				Name:        "System Administrator",
				Email:       email,
				PhoneNumber: "11954444380",
				Roles:       []domain.Role{{Name: domain.RoleManager}, {Name: domain.RoleAdmin}},
			}, true, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/api/v1/internal/auth/login",
		`{"email":"admin@connectrh.com","password":"admin123"}`)

	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.UserID != "u-1" || resp.Name != "System Administrator" || resp.PhoneNumber != "11954444380" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if len(resp.Roles) != 2 || resp.Roles[0] != "ADMIN" || resp.Roles[1] != "MANAGER" {
		t.Fatalf("unexpected roles: %v", resp.Roles)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password field: %s", rec.Body.String())
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubValidator{
		validateFn: func(ctx context.Context, email, raw string) (*domain.User, bool, error) {
			return nil, false, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, _ := newTestContext(http.MethodPost, "/api/v1/internal/auth/login",
		`{"email":"admin@connectrh.com","password":"wrong-pass"}`)

	err := h.Login(c)
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_ValidationFailures(t *testing.T) {
	cases := map[string]string{
		"malformed json":   `{"email":`,
		"missing email":    `{"password":"admin123"}`,
		"invalid email":    `{"email":"not-an-email","password":"admin123"}`,
		"short password":   `{"email":"a@b.com","password":"123"}`,
		"missing password": `{"email":"a@b.com"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			stub := &stubValidator{
				validateFn: func(ctx context.Context, email, raw string) (*domain.User, bool, error) {
					t.Fatalf("validator must not be called")
					return nil, false, nil
				},
			}
			h := NewAuthHandler(stub, zerolog.Nop())
			c, _ := newTestContext(http.MethodPost, "/api/v1/internal/auth/login", body)

			if code := httpCode(t, h.Login(c)); code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", code)
			}
		})
	}
}

func TestAuthHandler_Login_StoreError(t *testing.T) {
	boom := errors.New("connection reset")
	stub := &stubValidator{
		validateFn: func(ctx context.Context, email, raw string) (*domain.User, bool, error) {
			return nil, false, boom
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, _ := newTestContext(http.MethodPost, "/api/v1/internal/auth/login",
		`{"email":"a@b.com","password":"secret1"}`)

	if err := h.Login(c); !errors.Is(err, boom) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}

func TestAuthHandler_Signup_Success(t *testing.T) {
	stub := &stubValidator{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			if in.Name != "Ana" || in.Email != "ana@x.com" || in.Password != "secret1" || in.PhoneNumber != "11999990000" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{
				ID:          "u-2",
				Name:        in.Name,
				Email:       in.Email,
				PhoneNumber: in.PhoneNumber,
				Roles:       []domain.Role{{Name: domain.RoleUser}},
			}, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/api/v1/internal/auth/signup",
		`{"name":"Ana","email":"ana@x.com","password":"secret1","phoneNumber":"11999990000"}`)

	if err := h.Signup(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != "u-2" || resp["email"] != "ana@x.com" || resp["phoneNumber"] != "11999990000" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["password"]; ok {
		t.Fatalf("response leaks password")
	}
}

func TestAuthHandler_Signup_DuplicateEmail(t *testing.T) {
	stub := &stubValidator{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			return nil, &domain.DuplicateEmailError{Email: in.Email}
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, rec := newTestContext(http.MethodPost, "/api/v1/internal/auth/signup",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)

	err := h.Signup(c)
	if !errors.Is(err, domain.ErrEmailAlreadyRegistered) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("handler must not write on error, got %s", rec.Body.String())
	}
}

func TestAuthHandler_Signup_ValidationFailure(t *testing.T) {
	stub := &stubValidator{
		createFn: func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, zerolog.Nop())
	c, _ := newTestContext(http.MethodPost, "/api/v1/internal/auth/signup",
		`{"email":"ana@x.com","password":"secret1"}`)

	if code := httpCode(t, h.Signup(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestValidator_UsesJSONFieldNames(t *testing.T) {
	err := NewValidator().Validate(&signupRequest{Email: "ana@x.com", Password: "secret1", PhoneNumber: strings.Repeat("9", 40)})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "name is required") || !strings.Contains(msg, "phoneNumber must be at most 32 characters") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler_Readiness(t *testing.T) {
	h := NewHealthHandler(map[string]ports.Pinger{
		"store": stubPinger{},
		"cache": stubPinger{err: errors.New("dial tcp: refused")},
	})
	c, rec := newTestContext(http.MethodGet, "/health/ready", "")

	if err := h.Readiness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var resp readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Dependencies["store"].Status != "ok" || resp.Dependencies["cache"].Status != "unhealthy" {
		t.Fatalf("unexpected dependencies: %+v", resp.Dependencies)
	}
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(nil)
	c, rec := newTestContext(http.MethodGet, "/health", "")

	if err := h.Liveness(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestValidator_PasswordLimitIsInBytes(t *testing.T) {
	v := NewValidator()
	base := signupRequest{Name: "Ana", Email: "ana@x.com"}

	base.Password = strings.Repeat("é", 36)
	if err := v.Validate(&base); err != nil {
		t.Fatalf("72 bytes must pass: %v", err)
	}

	base.Password = strings.Repeat("é", 37)
	err := v.Validate(&base)
	if err == nil || !strings.Contains(err.Error(), "password must be at most 72 bytes") {
		t.Fatalf("expected byte limit error, got %v", err)
	}
}
