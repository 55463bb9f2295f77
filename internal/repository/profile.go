// Package repository はデータ永続化のインターフェースを定義する。
//
// クライアント識別子と管理者トークンは「プロファイル」単位のキー・バリューとして保存する。
// ブラウザのlocalStorageに相当し、スコープ（プロファイル名）ごとに独立している。
package repository

import "context"

// ProfileStore はプロファイルスコープ内のキー・バリューの永続化インターフェース。
// 値は構造を持たない単純な文字列として扱う。
type ProfileStore interface {
	// Get は指定キーの値を取得する。見つからない場合はfound=falseを返す。
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set は指定キーに値を保存する。既存の値は上書きされる。
	Set(ctx context.Context, key, value string) error

	// Delete は指定キーを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, key string) error
}

// DefaultScope はスコープ未指定時のプロファイル名。
const DefaultScope = "default"
