// Package wall は祝福ウォールの状態を保持するコントローラを提供する。
// 一覧の唯一の書き手であり、表示層はSnapshotとOnChangeで状態を受け取る。
package wall

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hitoshi/wishwall/internal/metrics"
	"github.com/hitoshi/wishwall/internal/model"
)

// WishAPI は祝福APIの呼び出しインターフェース。
type WishAPI interface {
	ListWishes(ctx context.Context, skip, limit int) (*model.WishList, error)
	CreateWish(ctx context.Context, input model.WishInput) (*model.Wish, error)
	LikeWish(ctx context.Context, id int64) (*model.LikeResult, error)
	DeleteWish(ctx context.Context, id int64) (*model.MessageResult, error)
}

// 変更操作の種類。メトリクスのラベルと二重送信の判定に使う。
const (
	OpCreate = "create"
	OpLike   = "like"
	OpRemove = "remove"
)

// State はある時点のウォールの状態。
// Wishesの要素は共有されるため、読み取り専用として扱うこと。
type State struct {
	Wishes  []*model.Wish
	Total   int
	Loading bool
	Err     error
}

// Find はidに一致する祝福を返す。無い場合はnil。
func (s State) Find(id int64) *model.Wish {
	for _, w := range s.Wishes {
		if w.ID == id {
			return w
		}
	}
	return nil
}

type mutationKey struct {
	op string
	id int64
}

// Controller は祝福一覧を保持し、読み込み・投稿・いいね・削除を仲介する。
// 楽観的更新は行わず、サーバーの応答を受けてから状態を変える。
// いいね成功時は該当する要素だけを新しい値に差し替え、他の要素は同じポインタのまま残す。
type Controller struct {
	api       WishAPI
	collector metrics.MetricsCollector
	logger    *slog.Logger
	pageSize  int

	mu         sync.Mutex
	wishes     []*model.Wish
	total      int
	loading    bool
	err        error
	issuedSeq  uint64
	appliedSeq uint64
	inFlight   map[mutationKey]struct{}
	onChange   func(State)
}

// NewController はControllerの新しいインスタンスを生成する。
// pageSizeが0以下の場合は100件を読み込む。
func NewController(api WishAPI, pageSize int, collector metrics.MetricsCollector, logger *slog.Logger) *Controller {
	if pageSize <= 0 {
		pageSize = 100
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &Controller{
		api:       api,
		collector: collector,
		logger:    logger,
		pageSize:  pageSize,
		wishes:    []*model.Wish{},
		inFlight:  make(map[mutationKey]struct{}),
	}
}

// OnChange は状態が変わるたびに呼ばれるコールバックを設定する。
// コールバックはロックの外で呼ばれる。
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Snapshot は現在の状態を返す。スライスは複製される。
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	return State{
		Wishes:  append([]*model.Wish(nil), c.wishes...),
		Total:   c.total,
		Loading: c.loading,
		Err:     c.err,
	}
}

// commitLocked は状態変更後に呼ぶ。通知はunlock後に行う必要がある。
func (c *Controller) commitLocked() (func(State), State) {
	c.collector.SetWallSize(len(c.wishes))
	return c.onChange, c.snapshotLocked()
}

func notify(fn func(State), s State) {
	if fn != nil {
		fn(s)
	}
}

// Load は一覧を読み込み、成功時に保持している一覧を丸ごと置き換える。
// 読み込み開始時にエラーを消し、失敗時は一覧を変えずに再試行可能なエラーを保持して返す。
// 後から開始した読み込みの結果が既に反映されている場合、古い応答は捨てる。
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	c.issuedSeq++
	seq := c.issuedSeq
	c.loading = true
	c.err = nil
	fn, s := c.commitLocked()
	c.mu.Unlock()
	notify(fn, s)

	list, err := c.api.ListWishes(ctx, 0, c.pageSize)

	c.mu.Lock()
	if seq <= c.appliedSeq {
		c.mu.Unlock()
		c.logger.Debug("古い読み込み結果を破棄しました", slog.Uint64("seq", seq))
		return nil
	}
	c.appliedSeq = seq
	if seq == c.issuedSeq {
		c.loading = false
	}
	if err != nil {
		c.err = model.NewLoadFailedError(err)
	} else {
		wishes := make([]*model.Wish, len(list.Wishes))
		for i := range list.Wishes {
			w := list.Wishes[i]
			wishes[i] = &w
		}
		c.wishes = wishes
		c.total = list.Total
	}
	loadErr := c.err
	fn, s = c.commitLocked()
	c.mu.Unlock()
	notify(fn, s)

	if err != nil {
		c.logger.Error("祝福一覧の読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		return loadErr
	}
	return nil
}

// Submit は入力を検証して投稿し、成功時に返された祝福を先頭に追加する。
// 既存の要素の順序は変えない。失敗時はエラーを返し、一覧は変えない。
func (c *Controller) Submit(ctx context.Context, input model.WishInput) (*model.Wish, error) {
	input.Content = strings.TrimSpace(input.Content)
	input.Name = strings.TrimSpace(input.Name)
	input.Tag = input.Tag.DisplayTag()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	wish, err := c.api.CreateWish(ctx, input)
	c.collector.RecordMutation(OpCreate, err == nil)
	if err != nil {
		c.logger.Warn("祝福の投稿に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.mu.Lock()
	c.wishes = append([]*model.Wish{wish}, c.wishes...)
	c.total++
	fn, s := c.commitLocked()
	c.mu.Unlock()
	notify(fn, s)

	return wish, nil
}

// acquire は同じ祝福への同じ操作が処理中でなければ印を付ける。
func (c *Controller) acquire(op string, id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := mutationKey{op: op, id: id}
	if _, busy := c.inFlight[key]; busy {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

func (c *Controller) release(op string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, mutationKey{op: op, id: id})
}

// Like は祝福にいいねする。サーバーがsuccessを返した場合のみ、該当する祝福のlikesを
// サーバーの値に更新する。失敗はログに残して握りつぶす。
// 更新後のいいね数と、更新したかどうかを返す。
func (c *Controller) Like(ctx context.Context, id int64) (int, bool) {
	if !c.acquire(OpLike, id) {
		c.logger.Info("同じ祝福へのいいねが処理中です", slog.Int64("wish_id", id))
		return 0, false
	}
	defer c.release(OpLike, id)

	result, err := c.api.LikeWish(ctx, id)
	if err != nil {
		c.collector.RecordMutation(OpLike, false)
		c.logger.Warn("いいねに失敗しました",
			slog.Int64("wish_id", id),
			slog.String("error", err.Error()),
		)
		return 0, false
	}
	c.collector.RecordMutation(OpLike, result.Success)
	if !result.Success {
		c.logger.Info("いいねが受け付けられませんでした",
			slog.Int64("wish_id", id),
			slog.String("message", result.Message),
		)
		return 0, false
	}

	c.mu.Lock()
	for i, w := range c.wishes {
		if w.ID == id {
			updated := *w
			updated.Likes = result.Likes
			c.wishes[i] = &updated
			break
		}
	}
	fn, s := c.commitLocked()
	c.mu.Unlock()
	notify(fn, s)

	return result.Likes, true
}

// Remove は自分の祝福を削除し、成功時に該当する祝福だけを一覧から除く。
// 失敗時はバックエンドのメッセージを持つエラーを返し、一覧は変えない。
// 同じ祝福の削除が処理中の場合はmodel.ErrMutationInFlightを返す。
func (c *Controller) Remove(ctx context.Context, id int64) error {
	if !c.acquire(OpRemove, id) {
		return model.ErrMutationInFlight
	}
	defer c.release(OpRemove, id)

	_, err := c.api.DeleteWish(ctx, id)
	c.collector.RecordMutation(OpRemove, err == nil)
	if err != nil {
		c.logger.Warn("祝福の削除に失敗しました",
			slog.Int64("wish_id", id),
			slog.String("error", err.Error()),
		)
		return err
	}

	c.mu.Lock()
	for i, w := range c.wishes {
		if w.ID == id {
			c.wishes = append(c.wishes[:i:i], c.wishes[i+1:]...)
			if c.total > 0 {
				c.total--
			}
			break
		}
	}
	fn, s := c.commitLocked()
	c.mu.Unlock()
	notify(fn, s)

	return nil
}
