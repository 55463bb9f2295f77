package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hitoshi/wishwall/internal/handler"
	"github.com/hitoshi/wishwall/internal/wall"
	"github.com/hitoshi/wishwall/internal/worker/refresh"
)

// runWatch は一覧を定期的に読み直して表示する。
// METRICS_ADDRが設定されている場合はステータスサーバーも起動する。
// SIGINTまたはSIGTERMを受信すると停止する。
func (rt *runtime) runWatch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	rt.wall.OnChange(func(s wall.State) {
		if s.Loading || s.Err != nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(rt.out, "--- %s ---\n", time.Now().Format("15:04:05"))
		rt.render.Wishes(s.Wishes, s.Total)
	})

	var server *http.Server
	if rt.cfg.MetricsAddr != "" {
		server = &http.Server{
			Addr: rt.cfg.MetricsAddr,
			Handler: handler.NewRouter(&handler.RouterDeps{
				Wall:     rt.wall,
				Logger:   rt.logger,
				Gatherer: rt.registry,
			}),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			rt.logger.Info("status server starting", slog.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.logger.Error("status server listen error", slog.String("error", err.Error()))
			}
		}()
	}

	// ブロッキング。ctxがキャンセルされると戻る。
	refresh.NewRefresher(rt.wall, rt.logger).Start(ctx, rt.cfg.WatchInterval)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("status server shutdown failed: %w", err)
		}
		rt.logger.Info("status server stopped gracefully")
	}
	return nil
}
