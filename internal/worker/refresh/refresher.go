// Package refresh は祝福一覧の定期再読み込みを提供する。
// watchモードで一定間隔ごとに一覧を取り直す。
package refresh

import (
	"context"
	"log/slog"
	"time"
)

// Loader は一覧の読み込みインターフェース。wall.Controllerが実装する。
type Loader interface {
	Load(ctx context.Context) error
}

// Refresher は一定間隔でLoaderを呼び出す。
// 失敗してもループは止めず、次の間隔で再度読み込む。
type Refresher struct {
	loader Loader
	logger *slog.Logger
}

// NewRefresher はRefresherの新しいインスタンスを生成する。
func NewRefresher(loader Loader, logger *slog.Logger) *Refresher {
	return &Refresher{
		loader: loader,
		logger: logger,
	}
}

// Start はコンテキストがキャンセルされるまで定期的に読み込む。
// 起動直後に1回読み込む。intervalが0以下の場合は30秒を使う。
// 読み込みに連続で失敗している間は待ち時間を延ばし、成功したら元に戻す。
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	r.logger.Info("定期読み込みを開始しました",
		slog.Duration("interval", interval),
	)

	failures := 0
	if !r.RunOnce(ctx) {
		failures++
	}

	timer := time.NewTimer(NextDelay(interval, failures))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("定期読み込みを停止しました")
			return
		case <-timer.C:
			if r.RunOnce(ctx) {
				failures = 0
			} else {
				failures++
			}
			delay := NextDelay(interval, failures)
			if failures > 0 {
				r.logger.Warn("読み込みの間隔を延ばします",
					slog.Int("consecutive_failures", failures),
					slog.Duration("next_delay", delay),
				)
			}
			timer.Reset(delay)
		}
	}
}

// RunOnce は1回読み込む。成功したかどうかを返す。
func (r *Refresher) RunOnce(ctx context.Context) bool {
	start := time.Now()
	if err := r.loader.Load(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		r.logger.Error("一覧の読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return false
	}
	r.logger.Debug("一覧を読み込みました",
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return true
}
