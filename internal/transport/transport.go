// Package transport はバックエンドへの送信リクエストに掛けるミドルウェアを提供する。
// http.RoundTripperを包む形で、リクエストID付与・構造化ログ・メトリクス・
// クライアント側のレート制限を組み合わせる。
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/wishwall/internal/metrics"
)

// HeaderRequestID はリクエストIDのヘッダー名。
const HeaderRequestID = "X-Request-Id"

// defaultRoute はルート名が付いていないリクエストのラベル。
const defaultRoute = "other"

// Middleware はRoundTripperを包む関数。
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc は関数をhttp.RoundTripperとして扱うアダプタ。
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip はhttp.RoundTripperを実装する。
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Chain はbaseにミドルウェアを適用する。先頭のミドルウェアが最も外側になる。
// baseがnilの場合はhttp.DefaultTransportを使う。
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

type routeKey struct{}

// WithRoute はメトリクスとログに使うルート名をコンテキストに設定する。
// パスにIDを含むリクエストでもラベルの種類が増えないようにするためのもの。
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey{}, route)
}

// RouteFromContext はコンテキストのルート名を返す。未設定の場合は"other"。
func RouteFromContext(ctx context.Context) string {
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return defaultRoute
}

// NewRequestIDMiddleware はX-Request-Idが無いリクエストにUUIDを付与する。
// 元のリクエストは変更せず、複製したリクエストに設定する。
func NewRequestIDMiddleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(req)
			}
			clone := req.Clone(req.Context())
			clone.Header.Set(HeaderRequestID, uuid.New().String())
			return next.RoundTrip(clone)
		})
	}
}

// NewLoggingMiddleware は送信リクエストのJSON構造化ログを出力する。
// ログにはmethod、path、route、status、duration_ms、request_idを含む。
// ヘッダーの値（管理者トークンなど）は出力しない。
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

			args := []any{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("route", RouteFromContext(req.Context())),
				slog.Float64("duration_ms", durationMs),
			}
			if id := req.Header.Get(HeaderRequestID); id != "" {
				args = append(args, slog.String("request_id", id))
			}

			if err != nil {
				args = append(args, slog.String("error", err.Error()))
				logger.Log(req.Context(), slog.LevelError, "outgoing_request", args...)
				return nil, err
			}

			args = append(args, slog.Int("status", resp.StatusCode))

			level := slog.LevelInfo
			if resp.StatusCode >= 500 {
				level = slog.LevelError
			} else if resp.StatusCode >= 400 {
				level = slog.LevelWarn
			}
			logger.Log(req.Context(), level, "outgoing_request", args...)

			return resp, nil
		})
	}
}

// NewMetricsMiddleware はリクエスト数・レイテンシ・通信エラーを記録する。
func NewMetricsMiddleware(collector metrics.MetricsCollector) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			route := RouteFromContext(req.Context())
			start := time.Now()
			resp, err := next.RoundTrip(req)
			if err != nil {
				collector.RecordRequestError(route)
				return nil, err
			}
			collector.RecordRequest(route, resp.StatusCode, time.Since(start))
			return resp, nil
		})
	}
}
