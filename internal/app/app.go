package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/hitoshi/wishwall/internal/config"
	"github.com/hitoshi/wishwall/internal/database"
	"github.com/hitoshi/wishwall/internal/logger"
	"github.com/hitoshi/wishwall/internal/render"
	"github.com/hitoshi/wishwall/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELに従ったJSON構造化ログをセットアップする。
// ログはwに出力し、CLIの表示とは分ける。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでロガーを作り直す
	lg := logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, lg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析して実行する。argsにはos.Args[1:]を渡す。
// 失敗した場合はエラーを利用者向けにerrOutへ書き出してから返す。
func Run(ctx context.Context, in io.Reader, out, errOut io.Writer, args []string) error {
	err := run(ctx, in, out, errOut, args)
	if err != nil {
		render.NewRenderer(errOut, security.NewTextSanitizer()).Error(err)
	}
	return err
}

func run(ctx context.Context, in io.Reader, out, errOut io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	cfg, lg, err := Init(errOut)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	lg.Debug("starting wishwall",
		slog.String("command", string(cmd)),
		slog.String("api_url", cfg.APIURL),
		slog.String("profile_store", maskStoreURL(cfg.ProfileStoreURL)),
	)

	if cmd == CommandMigrate {
		return runMigrate(cfg, lg)
	}

	rt, err := newRuntime(ctx, cfg, lg, in, out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			lg.Warn("failed to close profile store", slog.String("error", cerr.Error()))
		}
	}()

	return rt.dispatch(ctx, cmd, rest)
}

// runMigrate はプロファイルストアのマイグレーションを実行する。
// SQL以外のストア（redis://, memory://）では何もしない。
func runMigrate(cfg *config.Config, lg *slog.Logger) error {
	if database.DriverFor(cfg.ProfileStoreURL) == "" {
		lg.Info("profile store does not use migrations",
			slog.String("profile_store", maskStoreURL(cfg.ProfileStoreURL)),
		)
		return nil
	}

	lg.Info("running profile store migrations",
		slog.String("profile_store", maskStoreURL(cfg.ProfileStoreURL)),
	)
	if err := database.RunMigrations(cfg.ProfileStoreURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	lg.Info("profile store migrations completed successfully")
	return nil
}

// maskStoreURL はストアURLのパスワードを伏せる。
func maskStoreURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	return u.Redacted()
}

// errCanceled は確認プロンプトで中止したことを表す。
var errCanceled = errors.New("已取消")
