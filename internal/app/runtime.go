package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/hitoshi/wishwall/internal/api"
	"github.com/hitoshi/wishwall/internal/auth"
	"github.com/hitoshi/wishwall/internal/config"
	"github.com/hitoshi/wishwall/internal/database"
	"github.com/hitoshi/wishwall/internal/identity"
	"github.com/hitoshi/wishwall/internal/metrics"
	"github.com/hitoshi/wishwall/internal/render"
	"github.com/hitoshi/wishwall/internal/repository"
	"github.com/hitoshi/wishwall/internal/security"
	"github.com/hitoshi/wishwall/internal/transport"
	"github.com/hitoshi/wishwall/internal/wall"
)

// runtime はコマンド実行に必要な依存関係をまとめたもの。
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger

	in     *bufio.Reader
	rawIn  io.Reader
	out    io.Writer
	render *render.Renderer

	store   repository.ProfileStore
	closers []func() error

	registry  *prometheus.Registry
	collector *metrics.Collector

	identity *identity.Provider
	tokens   *auth.TokenStore
	client   *api.Client
	admin    *api.AdminClient
	wall     *wall.Controller
}

// newRuntime は設定から全依存関係をワイヤリングする。
func newRuntime(ctx context.Context, cfg *config.Config, lg *slog.Logger, in io.Reader, out io.Writer) (*runtime, error) {
	rt := &runtime{
		cfg:    cfg,
		logger: lg,
		in:     bufio.NewReader(in),
		rawIn:  in,
		out:    out,
		render: render.NewRenderer(out, security.NewTextSanitizer()),
	}

	// 1. プロファイルストア
	store, closer, err := openProfileStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt.store = store
	if closer != nil {
		rt.closers = append(rt.closers, closer)
	}

	// 2. メトリクス
	rt.registry = prometheus.NewRegistry()
	rt.collector = metrics.NewCollector(rt.registry)

	// 3. HTTPクライアント（送信ミドルウェアチェーン付き）
	httpClient, err := newHTTPClient(cfg, rt.collector, lg)
	if err != nil {
		rt.Close()
		return nil, err
	}

	// 4. 識別子・セッション・APIクライアント・状態コントローラ
	rt.identity = identity.NewProvider(store, lg)
	rt.tokens = auth.NewTokenStore(store, lg)
	rt.client = api.NewClient(httpClient, cfg.APIURL, rt.identity, lg)
	rt.admin = api.NewAdminClient(httpClient, cfg.APIURL, rt.tokens, lg)
	rt.wall = wall.NewController(rt.client, cfg.PageSize, rt.collector, lg)

	return rt, nil
}

// newHTTPClient はバックエンド用のHTTPクライアントを組み立てる。
//
// 送信ミドルウェアの実行順序:
//
//	RateLimit → RequestID → Logging → Metrics → base transport
func newHTTPClient(cfg *config.Config, collector metrics.MetricsCollector, lg *slog.Logger) (*http.Client, error) {
	guard := security.NewBackendGuard(cfg.BlockPrivateBackend)
	client, err := guard.NewHTTPClient(cfg.APIURL, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}

	limiter := transport.NewRateLimiter(transport.RateLimiterConfig{
		CreatePerHour:    cfg.RateLimitCreate,
		LikePerHour:      cfg.RateLimitLike,
		GeneralPerMinute: cfg.RateLimitGeneral,
	}, collector, lg)

	client.Transport = transport.Chain(client.Transport,
		limiter.Middleware(),
		transport.NewRequestIDMiddleware(),
		transport.NewLoggingMiddleware(lg),
		transport.NewMetricsMiddleware(collector),
	)
	return client, nil
}

// openProfileStore はURLのスキームに応じたプロファイルストアを開く。
// SQLストアは開く前にマイグレーションを適用する。
func openProfileStore(ctx context.Context, cfg *config.Config) (repository.ProfileStore, func() error, error) {
	storeURL := cfg.ProfileStoreURL

	switch {
	case database.DriverFor(storeURL) != "":
		if err := database.RunMigrations(storeURL); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate profile store: %w", err)
		}
		db, err := database.Open(storeURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to profile store: %w", err)
		}
		return repository.NewSQLProfileRepo(db, cfg.ProfileScope), db.Close, nil

	case strings.HasPrefix(storeURL, "redis://"), strings.HasPrefix(storeURL, "rediss://"):
		opts, err := redis.ParseURL(storeURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to profile store: %w", err)
		}
		return repository.NewRedisProfileRepo(client, cfg.ProfileScope), client.Close, nil

	case strings.HasPrefix(storeURL, "memory://"):
		return repository.NewMemoryProfileRepo(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported profile store url: %s", maskStoreURL(storeURL))
	}
}

// Close はプロファイルストアの接続を閉じる。
func (rt *runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// readLine は入力から1行読む。入力が尽きた場合は空文字列を返す。
func (rt *runtime) readLine() (string, error) {
	line, err := rt.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm は確認プロンプトを表示し、y / yes の場合にtrueを返す。
func (rt *runtime) confirm(prompt string) (bool, error) {
	fmt.Fprintf(rt.out, "%s [y/N]: ", prompt)
	answer, err := rt.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// readPassword は管理者パスワードを読む。端末からの入力はエコーしない。
func (rt *runtime) readPassword(opts LoginOptions) (string, error) {
	if f, ok := rt.rawIn.(*os.File); ok && !opts.PasswordStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(rt.out, "管理员密码: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(rt.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	return rt.readLine()
}
