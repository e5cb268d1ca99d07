package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// envelope はテストでレスポンスを読むための汎用形。
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
	Error   json.RawMessage `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return env
}

// errorMessage はerrorが文字列の場合にその値を返す。
func errorMessage(t *testing.T, env envelope) string {
	t.Helper()
	var msg string
	if err := json.Unmarshal(env.Error, &msg); err != nil {
		t.Fatalf("error is not a string: %s", env.Error)
	}
	return msg
}

// errorFields はerrorがフィールドマップの場合にその値を返す。
func errorFields(t *testing.T, env envelope) map[string][]string {
	t.Helper()
	var fields map[string][]string
	if err := json.Unmarshal(env.Error, &fields); err != nil {
		t.Fatalf("error is not a field map: %s", env.Error)
	}
	return fields
}

// withPrincipal はテスト用にリクエストコンテキストへ認証主体を注入するヘルパー。
func withPrincipal(r *http.Request, subjectID string) *http.Request {
	ctx := middleware.ContextWithPrincipal(r.Context(), model.Principal{SubjectID: subjectID, Email: subjectID + "@example.com"})
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}
