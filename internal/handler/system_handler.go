package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/model"
)

// HealthChecker は依存サービスの疎通を確認する。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc は関数をHealthCheckerとして扱うアダプタ。
type HealthCheckFunc func(ctx context.Context) error

// Ping はf(ctx)を呼び出す。
func (f HealthCheckFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Root は稼働確認用の固定レスポンスを返す。
// GET /
func Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]bool{"status": true})
}

// Health はデータベースへの疎通を確認する。
// GET /health
func Health(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				middleware.WriteJSON(w, http.StatusServiceUnavailable, middleware.Envelope{
					Success: false,
					Error:   "database unavailable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NotFound は未定義ルートへのレスポンスを返す。
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, model.NewRouteNotFoundError())
}
