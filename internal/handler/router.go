package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/storefront/internal/metrics"
	"github.com/hitoshi/storefront/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Metrics           metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// ヘルスチェック
	DB Pinger

	// カタログ
	CatalogService CatalogServiceInterface
	UserFinder     UserFinder

	// 保存済みデザイン
	SavedService SavedServiceInterface

	// ユーザー
	UserService  UserServiceInterface
	CookieConfig CookieConfig
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS → CSRF
//	  → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// ヘルスチェック、メトリクス、CSRFトークン取得、カタログ閲覧はセッション不要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	r.Use(middleware.NewSecurityHeadersMiddleware(middleware.SecurityHeadersConfig{HSTS: deps.CSRFConfig.CookieSecure}))
	// CORS ミドルウェアはCSRFより前に適用（プリフライトを通す）
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	catalogHandler := NewCatalogHandler(deps.CatalogService, deps.UserFinder)
	savedHandler := NewSavedHandler(deps.SavedService)
	userHandler := NewUserHandler(deps.UserService, deps.CookieConfig)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Handle("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	r.Get("/api/catalog/designs", catalogHandler.ListDesigns)
	r.Get("/api/catalog/garments", catalogHandler.ListGarments)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// カタログ投稿（保存系レート制限を追加）
		r.With(deps.RateLimiter.SaveMiddleware()).Post("/api/catalog/designs", catalogHandler.CreateDesign)
		r.With(deps.RateLimiter.SaveMiddleware()).Post("/api/catalog/garments", catalogHandler.CreateGarment)

		// 保存済みデザイン
		r.Route("/api/saved-designs", func(r chi.Router) {
			r.Get("/", savedHandler.List)
			r.With(deps.RateLimiter.SaveMiddleware()).Post("/", savedHandler.Create)
			r.Get("/by-product/{productId}", savedHandler.ByProduct)
			r.Delete("/{id}", savedHandler.Delete)
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
