package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/vtboard/internal/metrics"
	"github.com/hitoshi/vtboard/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger      *slog.Logger
	Metrics     metrics.MetricsCollector
	Sessions    middleware.SessionStore
	Cookie      middleware.CookieConfig
	RateLimiter *middleware.RateLimiter

	// 掲示板
	Board    BoardServiceInterface
	Renderer PageRenderer

	// 認証
	Auth AuthServiceInterface

	// 運用
	Health         HealthChecker
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → Gzip → RealIP
//	  → Session → RateLimit → CSRF（掲示板と認証のルートのみ）
//
// /health と /metrics はセッションとCSRFの外に配置する。
func NewRouter(deps *RouterDeps) (http.Handler, error) {
	gzip, err := middleware.NewGzipMiddleware()
	if err != nil {
		return nil, fmt.Errorf("failed to build gzip middleware: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(gzip)
	r.Use(chimw.RealIP)

	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.Health))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	boardHandler := NewBoardHandler(deps.Board, deps.Renderer)
	authHandler := NewAuthHandler(deps.Auth, deps.Cookie, deps.Board, deps.Renderer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.Sessions, deps.Cookie))
		r.Use(deps.RateLimiter.Middleware())
		r.Use(middleware.NewCSRFMiddleware(middleware.CSRFConfig{
			CookieSecure: deps.Cookie.Secure,
			CookieDomain: deps.Cookie.Domain,
		}))

		r.Get("/", boardHandler.Index)

		r.Post("/vtubers", boardHandler.AddVtuber)
		r.Post("/vtubers/{id}/delete", boardHandler.DeleteVtuber)

		r.Post("/posts", boardHandler.CreatePost)
		r.Route("/posts/{id}", func(r chi.Router) {
			r.Post("/delete", boardHandler.DeletePost)
			r.Post("/like", boardHandler.ToggleLike)
			r.Post("/comments", boardHandler.AddComment)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.Login)
			r.Get("/callback", authHandler.Callback)
			r.Post("/logout", authHandler.Logout)
		})
	})

	return r, nil
}
