// Package identity はクライアント識別子（疑似匿名の相関トークン）を提供する。
//
// 識別子は認証情報ではない。バックエンドが「この祝福の作成者か」を判定するためだけに使う。
package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/hitoshi/wishwall/internal/model"
	"github.com/hitoshi/wishwall/internal/repository"
)

const (
	// idPrefix は識別子の接頭辞。
	idPrefix = "client_"
	// fragmentLength はランダム部分（base36）の文字数。
	fragmentLength = 9
	// base36Alphabet はランダム部分に使う文字。
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Provider はクライアント識別子を生成・永続化する。
// 最初の呼び出しで生成し、以降はストレージが残っている限り同じ値を返す。
type Provider struct {
	store  repository.ProfileStore
	logger *slog.Logger
	now    func() time.Time // テスト用に差し替え可能

	mu sync.Mutex
}

// NewProvider はProviderの新しいインスタンスを生成する。
func NewProvider(store repository.ProfileStore, logger *slog.Logger) *Provider {
	return &Provider{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ClientID はクライアント識別子を返す。
// ストレージが使えない場合は致命的エラーにせず、その場で生成した値を返す
// （所有者判定が効かなくなるだけで処理は継続できる）。
func (p *Provider) ClientID(ctx context.Context) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, found, err := p.store.Get(ctx, model.ProfileKeyClientID)
	if err != nil {
		p.logger.Warn("クライアント識別子の読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return p.generate()
	}
	if found && id != "" {
		return id
	}

	id = p.generate()
	if err := p.store.Set(ctx, model.ProfileKeyClientID, id); err != nil {
		p.logger.Warn("クライアント識別子の保存に失敗しました",
			slog.String("error", err.Error()),
		)
		return id
	}

	p.logger.Info("クライアント識別子を生成しました", slog.String("client_id", id))
	return id
}

// generate は "client_<base36 9文字>_<unixミリ秒>" 形式の識別子を生成する。
func (p *Provider) generate() string {
	return fmt.Sprintf("%s%s_%d", idPrefix, randomFragment(fragmentLength), p.now().UnixMilli())
}

// randomFragment はbase36のランダム文字列を返す。
func randomFragment(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(base36Alphabet)))
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/randが失敗する環境は想定しないが、時刻由来の値で埋めておく
			idx = big.NewInt(time.Now().UnixNano() % int64(len(base36Alphabet)))
		}
		buf[i] = base36Alphabet[idx.Int64()]
	}
	return string(buf)
}
