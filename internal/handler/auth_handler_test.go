package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/validator"
)

// --- モック定義 ---

// mockIdentityService はIdentityServiceInterfaceのモック実装。
type mockIdentityService struct {
	registerFn func(ctx context.Context, in validator.RegisterInput) (*model.Identity, error)
	loginFn    func(ctx context.Context, in validator.LoginInput) (string, error)
	calls      int
}

func (m *mockIdentityService) Register(ctx context.Context, in validator.RegisterInput) (*model.Identity, error) {
	m.calls++
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return nil, nil
}

func (m *mockIdentityService) Login(ctx context.Context, in validator.LoginInput) (string, error) {
	m.calls++
	if m.loginFn != nil {
		return m.loginFn(ctx, in)
	}
	return "", nil
}

// --- POST /auth/register テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	svc := &mockIdentityService{
		registerFn: func(ctx context.Context, in validator.RegisterInput) (*model.Identity, error) {
			if in.Email != "a@x.com" {
				t.Errorf("email = %q, want %q", in.Email, "a@x.com")
			}
			return &model.Identity{
				ID:           "11111111-1111-1111-1111-111111111111",
				Email:        in.Email,
				PasswordHash: "$2a$10$hash",
				CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"A@X.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	body := w.Body.String()
	if strings.Contains(body, "secret1") {
		t.Errorf("response must not contain the plaintext password: %s", body)
	}
	env := decodeEnvelope(t, w)
	if !env.Success {
		t.Error("success = false, want true")
	}
	if !strings.Contains(string(env.Data), `"email":"a@x.com"`) {
		t.Errorf("data = %s, want email", env.Data)
	}
}

func TestAuthHandler_Register_ValidationError(t *testing.T) {
	svc := &mockIdentityService{}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"not-an-email","password":"123"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	fields := errorFields(t, decodeEnvelope(t, w))
	if len(fields["email"]) == 0 || len(fields["password"]) == 0 {
		t.Errorf("fields = %v, want email and password errors", fields)
	}
	if svc.calls != 0 {
		t.Errorf("service calls = %d, want 0", svc.calls)
	}
}

func TestAuthHandler_Register_MalformedJSON(t *testing.T) {
	h := NewAuthHandler(&mockIdentityService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if msg := errorMessage(t, decodeEnvelope(t, w)); msg != "invalid request body" {
		t.Errorf("error = %q, want %q", msg, "invalid request body")
	}
}

func TestAuthHandler_Register_EmailTaken(t *testing.T) {
	h := NewAuthHandler(&mockIdentityService{
		registerFn: func(ctx context.Context, in validator.RegisterInput) (*model.Identity, error) {
			return nil, model.NewEmailTakenError()
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// 想定外のエラーはメッセージごと500で返る
func TestAuthHandler_Register_StoreFailure(t *testing.T) {
	h := NewAuthHandler(&mockIdentityService{
		registerFn: func(ctx context.Context, in validator.RegisterInput) (*model.Identity, error) {
			return nil, errors.New("connection refused")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if msg := errorMessage(t, decodeEnvelope(t, w)); msg != "connection refused" {
		t.Errorf("error = %q, want %q", msg, "connection refused")
	}
}

// --- POST /auth/login テスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	h := NewAuthHandler(&mockIdentityService{
		loginFn: func(ctx context.Context, in validator.LoginInput) (string, error) {
			if in.Email != "a@x.com" || in.Password != "secret1" {
				t.Errorf("input = %+v", in)
			}
			return "signed-token", nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com","password":"secret1"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	env := decodeEnvelope(t, w)
	if !env.Success || env.Token != "signed-token" {
		t.Errorf("envelope = %+v, want success with token", env)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockIdentityService{
		loginFn: func(ctx context.Context, in validator.LoginInput) (string, error) {
			return "", model.NewInvalidCredentialsError()
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@x.com","password":"wrong"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	env := decodeEnvelope(t, w)
	if env.Success || env.Token != "" {
		t.Errorf("envelope = %+v, want failure without token", env)
	}
}

func TestAuthHandler_Login_EmptyBody(t *testing.T) {
	svc := &mockIdentityService{}
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(""))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	fields := errorFields(t, decodeEnvelope(t, w))
	if len(fields["email"]) == 0 || len(fields["password"]) == 0 {
		t.Errorf("fields = %v, want email and password errors", fields)
	}
	if svc.calls != 0 {
		t.Errorf("service calls = %d, want 0", svc.calls)
	}
}
