// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/validator"
)

// IdentityServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type IdentityServiceInterface interface {
	Register(ctx context.Context, in validator.RegisterInput) (*model.Identity, error)
	Login(ctx context.Context, in validator.LoginInput) (string, error)
}

// AuthHandler はアカウント登録とログインのHTTPハンドラー。
type AuthHandler struct {
	service IdentityServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service IdentityServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Register はアカウントを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeJSONPayload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	in, err := validator.Register(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	identity, err := h.service.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toIdentityResponse(identity))
}

// Login は資格情報を検証し、トークンを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	payload, err := decodeJSONPayload(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	in, err := validator.Login(payload)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.service.Login(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, middleware.Envelope{
		Success: true,
		Token:   token,
	})
}
