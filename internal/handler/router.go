package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/printpress/internal/metrics"
	"github.com/hitoshi/printpress/internal/middleware"
	"github.com/hitoshi/printpress/internal/repository"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	MetricsGatherer   prometheus.Gatherer // nilの場合は/metricsを公開しない
	UserResolver      middleware.UserResolver
	CORSAllowedOrigin string

	// ヘルスチェック対象
	HealthChecks map[string]repository.Pinger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 見積依頼・お問い合わせ
	QuoteService   QuoteServiceInterface
	ContactService ContactServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (Session)
//
// セッションミドルウェアは認証が必要なルートのグループにのみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, collector))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	quoteHandler := NewQuoteHandler(deps.QuoteService)
	contactHandler := NewContactHandler(deps.ContactService)
	healthHandler := NewHealthHandler(deps.HealthChecks)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)

		r.With(middleware.NewSessionMiddleware(deps.UserResolver)).Get("/user", authHandler.CurrentUser)
	})

	r.Post("/api/contact", contactHandler.Submit)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.UserResolver))

		r.Route("/api/quotes", func(r chi.Router) {
			r.Post("/", quoteHandler.CreateQuote)
			r.Get("/", quoteHandler.ListQuotes)
			r.Get("/{id}", quoteHandler.GetQuote)
		})
	})

	return r
}
