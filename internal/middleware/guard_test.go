package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/storefront/internal/model"
)

type ctxMarker string

// TestChain_AllGuardsPass_EnrichedRequestReachesHandler は各Guardが付与した情報がハンドラーに届くことを検証する。
func TestChain_AllGuardsPass_EnrichedRequestReachesHandler(t *testing.T) {
	var order []string
	first := func(r *http.Request) (*http.Request, error) {
		order = append(order, "first")
		return r.WithContext(context.WithValue(r.Context(), ctxMarker("k"), "v")), nil
	}
	second := func(r *http.Request) (*http.Request, error) {
		order = append(order, "second")
		if r.Context().Value(ctxMarker("k")) != "v" {
			t.Error("second guard should see first guard's context")
		}
		return r, nil
	}

	var got any
	handler := Chain(first, second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Context().Value(ctxMarker("k"))
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got != "v" {
		t.Errorf("handler context value = %v, want %q", got, "v")
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v", order)
	}
}

// TestChain_ShortCircuits は失敗したGuard以降が実行されないことを検証する。
func TestChain_ShortCircuits(t *testing.T) {
	secondCalled := false
	handlerCalled := false

	fail := func(r *http.Request) (*http.Request, error) {
		return nil, model.NewNotOwnerError("delete")
	}
	second := func(r *http.Request) (*http.Request, error) {
		secondCalled = true
		return r, nil
	}
	handler := Chain(fail, second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
	if secondCalled || handlerCalled {
		t.Errorf("secondCalled=%v handlerCalled=%v, want both false", secondCalled, handlerCalled)
	}
}

// TestChain_RequireBearer_NoHeader は保護されたルートがヘッダー無しで401となり、ハンドラーが実行されないことを検証する。
func TestChain_RequireBearer_NoHeader(t *testing.T) {
	handlerCalled := false
	handler := Chain(RequireBearer(acceptingVerifier(), nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/products", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if handlerCalled {
		t.Error("handler must not run without a token")
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["success"] != false || body["error"] != "token required" {
		t.Errorf("body = %v", body)
	}
}

func TestChain_NoGuards_PassesThrough(t *testing.T) {
	handler := Chain()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
}
