package repository

import (
	"context"
	"sync"
)

// MemoryProfileRepo はプロセス内メモリに保持するプロファイルリポジトリ。
// プロセス終了で消えるため、テストと一時利用（memory://）向け。
type MemoryProfileRepo struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryProfileRepo はMemoryProfileRepoを生成する。
func NewMemoryProfileRepo() *MemoryProfileRepo {
	return &MemoryProfileRepo{entries: make(map[string]string)}
}

// Get は指定キーの値を取得する。
func (r *MemoryProfileRepo) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok, nil
}

// Set は指定キーに値を保存する。
func (r *MemoryProfileRepo) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
	return nil
}

// Delete は指定キーを削除する。
func (r *MemoryProfileRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	return nil
}

// compile-time interface check
var _ ProfileStore = (*MemoryProfileRepo)(nil)
