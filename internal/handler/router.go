// Package handler はwatchモードで公開するローカルステータスサーバーのルーティングを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/wishwall/internal/metrics"
	"github.com/hitoshi/wishwall/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Wall   WallSource
	Logger *slog.Logger
	// Gatherer がnilの場合は/metricsを公開しない。
	Gatherer prometheus.Gatherer
}

// NewRouter はステータスサーバーのchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → Logging → SecurityHeaders
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteNotFound(w)
	})

	h := NewStatusHandler(deps.Wall, logger)
	r.Get("/health", h.Health)
	r.Get("/wishes", h.Wishes)
	r.Post("/refresh", h.Refresh)

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	return r
}
