package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLProfileRepo はSQLite/PostgreSQLを使用したプロファイルリポジトリ。
// プレースホルダはsqlx.Rebindでドライバごとの形式に変換する。
type SQLProfileRepo struct {
	db    *sqlx.DB
	scope string
}

// NewSQLProfileRepo はSQLProfileRepoを生成する。
// scopeが空の場合はDefaultScopeを使用する。
func NewSQLProfileRepo(db *sqlx.DB, scope string) *SQLProfileRepo {
	if scope == "" {
		scope = DefaultScope
	}
	return &SQLProfileRepo{db: db, scope: scope}
}

// Get は指定キーの値を取得する。
func (r *SQLProfileRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.GetContext(ctx, &value,
		r.db.Rebind(`SELECT entry_value FROM profile_entries WHERE scope = ? AND entry_key = ?`),
		r.scope, key,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get profile entry: %w", err)
	}
	return value, true, nil
}

// Set は指定キーに値をUPSERTする。
func (r *SQLProfileRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO profile_entries (scope, entry_key, entry_value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (scope, entry_key) DO UPDATE
		 SET entry_value = excluded.entry_value, updated_at = excluded.updated_at`),
		r.scope, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to set profile entry: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *SQLProfileRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM profile_entries WHERE scope = ? AND entry_key = ?`),
		r.scope, key,
	)
	if err != nil {
		return fmt.Errorf("failed to delete profile entry: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileStore = (*SQLProfileRepo)(nil)
