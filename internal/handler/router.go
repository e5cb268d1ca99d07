package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
	"github.com/hitoshi/storefront/internal/upload"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	Verifier           middleware.Verifier
	Metrics            metrics.MetricsCollector
	MetricsHandler     http.Handler

	// アカウント
	IdentityService IdentityServiceInterface

	// 商品
	ProductService ProductServiceInterface
	ImageStore     upload.Store
	UploadMaxBytes int64
	// UploadDir が空でなければ /uploads/* で静的配信する（diskバックエンド）。
	UploadDir string

	// ヘルスチェック
	HealthChecker HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// 認証ルートはクライアントIP単位のレート制限、商品の変更系ルートはBearerトークンのGuardを通す。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	r.NotFound(NotFound)
	r.MethodNotAllowed(NotFound)

	authHandler := NewAuthHandler(deps.IdentityService)
	productHandler := NewProductHandler(deps.ProductService, deps.ImageStore, deps.UploadMaxBytes)

	var authFailures middleware.AuthFailureRecorder
	if deps.Metrics != nil {
		authFailures = deps.Metrics
	}
	requireAuth := middleware.Chain(middleware.RequireBearer(deps.Verifier, authFailures))

	// --- 認証不要のルート ---
	r.Get("/", Root)
	r.Get("/health", Health(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if deps.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir))))
	}

	// 登録・ログイン（レート制限付き）
	r.Route("/auth", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.AuthMiddleware())
		}
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// 商品
	r.Route("/products", func(r chi.Router) {
		r.Get("/", productHandler.ListProducts)
		r.Get("/{id}", productHandler.GetProduct)

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", productHandler.CreateProduct)
			r.Patch("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)
		})
	})

	return r
}
