package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/wishwall/internal/metrics"
	"github.com/hitoshi/wishwall/internal/model"
)

// レート制限のバケット名
const (
	BucketCreate  = "create"
	BucketLike    = "like"
	BucketGeneral = "general"
)

// RateLimiterConfig はクライアント側のレート制限の設定を保持する。
// 0以下の値はそのバケットの制限を無効にする。
type RateLimiterConfig struct {
	CreatePerHour    int // 祝福の投稿。バックエンドの 10/hour に合わせる
	LikePerHour      int // いいね。バックエンドの 50/hour に合わせる
	GeneralPerMinute int // すべてのリクエスト
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		CreatePerHour:    10,
		LikePerHour:      50,
		GeneralPerMinute: 120,
	}
}

// RateLimiter はバックエンドで429になると分かっている送信を手前で止める。
// 待ち合わせはせず、上限に達した時点でRATE_LIMITEDエラーを返す。
type RateLimiter struct {
	create    *rate.Limiter
	like      *rate.Limiter
	general   *rate.Limiter
	collector metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewRateLimiter は新しいRateLimiterを生成する。
func NewRateLimiter(cfg RateLimiterConfig, collector metrics.MetricsCollector, logger *slog.Logger) *RateLimiter {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &RateLimiter{
		create:    newLimiter(cfg.CreatePerHour, time.Hour),
		like:      newLimiter(cfg.LikePerHour, time.Hour),
		general:   newLimiter(cfg.GeneralPerMinute, time.Minute),
		collector: collector,
		logger:    logger,
		now:       time.Now,
	}
}

func newLimiter(n int, per time.Duration) *rate.Limiter {
	if n <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(n)/per.Seconds()), n)
}

// Bucket はリクエストが属する個別バケット名を返す。個別バケットが無い場合は"general"。
func Bucket(req *http.Request) string {
	if req.Method != http.MethodPost {
		return BucketGeneral
	}
	path := strings.TrimSuffix(req.URL.Path, "/")
	switch {
	case strings.HasSuffix(path, "/like"):
		return BucketLike
	case strings.HasSuffix(path, "/wishes") && !strings.Contains(path, "/admin/"):
		return BucketCreate
	default:
		return BucketGeneral
	}
}

type namedLimiter struct {
	name    string
	limiter *rate.Limiter
}

// Allow は指定バケットと全体バケットの両方に空きがあるかを判定し、あれば1つずつ消費する。
// どちらかが拒否した場合は、もう一方の予約も取り消す。拒否したバケット名を返す。
func (rl *RateLimiter) Allow(bucket string) (string, bool) {
	now := rl.now()

	limiters := []namedLimiter{{BucketGeneral, rl.general}}
	switch bucket {
	case BucketCreate:
		limiters = append(limiters, namedLimiter{BucketCreate, rl.create})
	case BucketLike:
		limiters = append(limiters, namedLimiter{BucketLike, rl.like})
	}

	reservations := make([]*rate.Reservation, 0, len(limiters))
	for _, l := range limiters {
		r := l.limiter.ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			for _, prev := range reservations {
				prev.CancelAt(now)
			}
			return l.name, false
		}
		reservations = append(reservations, r)
	}
	return "", true
}

// Middleware はレート制限を掛けるトランスポートミドルウェアを返す。
func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if denied, ok := rl.Allow(Bucket(req)); !ok {
				rl.collector.RecordRateLimited(denied)
				rl.logger.Warn("rate limit exceeded",
					slog.String("limit_type", denied),
					slog.String("path", req.URL.Path),
				)
				return nil, model.NewRateLimitedError(denied)
			}
			return next.RoundTrip(req)
		})
	}
}
