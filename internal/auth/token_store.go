// Package auth は管理者セッション（ベアラートークン）のローカル管理を提供する。
//
// トークンの有効期限・失効はバックエンドが管理する。ここではログイン成功時の保存、
// ログアウトと401受信時の破棄だけを扱う。
package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/wishwall/internal/model"
	"github.com/hitoshi/wishwall/internal/repository"
)

// TokenStore は管理者トークンをプロファイルストアに保存する。
type TokenStore struct {
	store  repository.ProfileStore
	logger *slog.Logger
}

// NewTokenStore はTokenStoreを生成する。
func NewTokenStore(store repository.ProfileStore, logger *slog.Logger) *TokenStore {
	return &TokenStore{store: store, logger: logger}
}

// Token は保存済みのトークンを返す。未ログインの場合は空文字列を返す。
// 読み込みに失敗した場合も空文字列とし、サーバー側の401でログインに誘導する。
func (s *TokenStore) Token(ctx context.Context) string {
	token, found, err := s.store.Get(ctx, model.ProfileKeyAdminToken)
	if err != nil {
		s.logger.Warn("管理者トークンの読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return ""
	}
	if !found {
		return ""
	}
	return token
}

// Set はトークンを保存する。空のトークンはClearと同じ扱い。
func (s *TokenStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}
	if err := s.store.Set(ctx, model.ProfileKeyAdminToken, token); err != nil {
		return fmt.Errorf("failed to save admin token: %w", err)
	}
	return nil
}

// Clear はトークンを破棄する。
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, model.ProfileKeyAdminToken); err != nil {
		return fmt.Errorf("failed to clear admin token: %w", err)
	}
	return nil
}

// LoggedIn はトークンが保存されているかどうかを返す。
func (s *TokenStore) LoggedIn(ctx context.Context) bool {
	return s.Token(ctx) != ""
}
