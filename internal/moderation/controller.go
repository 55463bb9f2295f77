// Package moderation は管理画面の状態を保持するコントローラを提供する。
package moderation

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hitoshi/wishwall/internal/model"
)

// AdminAPI は管理APIの呼び出しインターフェース。
type AdminAPI interface {
	LoggedIn(ctx context.Context) bool
	Login(ctx context.Context, password string) (*model.LoginResult, error)
	Logout(ctx context.Context) error
	Stats(ctx context.Context) (*model.AdminStats, error)
	ListAllWishes(ctx context.Context, skip, limit int, includeHidden bool) (*model.WishList, error)
	HideWish(ctx context.Context, id int64) (*model.MessageResult, error)
	ShowWish(ctx context.Context, id int64) (*model.MessageResult, error)
	DeleteWish(ctx context.Context, id int64) (*model.MessageResult, error)
}

// ErrUnknownWish は操作対象の祝福が手元の一覧に無いことを表す。
var ErrUnknownWish = errors.New("祝福不存在")

// State は管理画面のある時点の状態。
type State struct {
	LoggedIn bool
	Stats    *model.AdminStats
	Wishes   []*model.Wish
	Loading  bool
	Err      error
	Message  string // 直近の操作結果（"已隐藏" など）
}

// Controller は管理者のログイン状態・集計値・全件一覧を保持する。
// どの操作でもmodel.ErrLoginRequiredを受け取った時点でログアウト状態に戻す。
type Controller struct {
	api           AdminAPI
	logger        *slog.Logger
	pageSize      int
	includeHidden bool

	mu       sync.Mutex
	loggedIn bool
	stats    *model.AdminStats
	wishes   []*model.Wish
	loading  bool
	err      error
	message  string
}

// NewController はControllerの新しいインスタンスを生成する。
// 保存済みトークンの有無からログイン状態を復元する。
func NewController(ctx context.Context, api AdminAPI, pageSize int, logger *slog.Logger) *Controller {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Controller{
		api:           api,
		logger:        logger,
		pageSize:      pageSize,
		includeHidden: true,
		loggedIn:      api.LoggedIn(ctx),
	}
}

// SetIncludeHidden は一覧に非表示の祝福を含めるかどうかを設定する。
func (c *Controller) SetIncludeHidden(include bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.includeHidden = include
}

// Snapshot は現在の状態を返す。
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	var stats *model.AdminStats
	if c.stats != nil {
		copied := *c.stats
		stats = &copied
	}
	return State{
		LoggedIn: c.loggedIn,
		Stats:    stats,
		Wishes:   append([]*model.Wish(nil), c.wishes...),
		Loading:  c.loading,
		Err:      c.err,
		Message:  c.message,
	}
}

// handleErr はエラーを状態に反映する。ログイン必須エラーならログアウト状態にする。
func (c *Controller) handleErr(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if model.IsLoginRequired(err) {
		c.resetLocked()
		c.err = nil
		return err
	}
	c.err = err
	return err
}

func (c *Controller) resetLocked() {
	c.loggedIn = false
	c.stats = nil
	c.wishes = nil
	c.message = ""
}

// Login はパスワードでログインし、成功したら集計値と一覧を読み込む。
func (c *Controller) Login(ctx context.Context, password string) error {
	result, err := c.api.Login(ctx, password)
	if err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}

	if !result.Success || result.Token == "" {
		err := model.NewLoginFailedError(0, result.Message)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.loggedIn = true
	c.err = nil
	c.message = result.Message
	c.mu.Unlock()

	return c.Refresh(ctx)
}

// Logout はログアウトし、保持している状態をすべて破棄する。
func (c *Controller) Logout(ctx context.Context) error {
	err := c.api.Logout(ctx)
	c.mu.Lock()
	c.resetLocked()
	c.err = nil
	c.mu.Unlock()
	return err
}

// Refresh は集計値と全件一覧を並行して取得する。
// どちらかが失敗した場合は状態を変えずにエラーを返す。
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	includeHidden := c.includeHidden
	c.mu.Unlock()

	var (
		wg       sync.WaitGroup
		stats    *model.AdminStats
		list     *model.WishList
		statsErr error
		listErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		stats, statsErr = c.api.Stats(ctx)
	}()
	go func() {
		defer wg.Done()
		list, listErr = c.api.ListAllWishes(ctx, 0, c.pageSize, includeHidden)
	}()
	wg.Wait()

	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()

	// ログイン必須エラーを優先して扱う
	if err := errors.Join(statsErr, listErr); err != nil {
		if model.IsLoginRequired(statsErr) || model.IsLoginRequired(listErr) {
			return c.handleErr(model.ErrLoginRequired)
		}
		c.logger.Error("管理データの読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
		if statsErr != nil {
			return c.handleErr(statsErr)
		}
		return c.handleErr(listErr)
	}

	wishes := make([]*model.Wish, len(list.Wishes))
	for i := range list.Wishes {
		w := list.Wishes[i]
		wishes[i] = &w
	}

	c.mu.Lock()
	c.loggedIn = true
	c.stats = stats
	c.wishes = wishes
	c.err = nil
	c.mu.Unlock()
	return nil
}

// find は呼び出し元がmuを保持している前提。
func (c *Controller) find(id int64) (int, *model.Wish) {
	for i, w := range c.wishes {
		if w.ID == id {
			return i, w
		}
	}
	return -1, nil
}

// ToggleVisibility は表示中なら非表示に、非表示なら表示に切り替える。
// 現在の状態を知る必要があるため、手元の一覧にある祝福だけを対象にする。
func (c *Controller) ToggleVisibility(ctx context.Context, id int64) error {
	c.mu.Lock()
	_, wish := c.find(id)
	c.mu.Unlock()
	if wish == nil {
		return ErrUnknownWish
	}
	return c.SetHidden(ctx, id, !wish.IsHidden)
}

// SetHidden は祝福を指定した表示状態にする。手元の一覧に無い祝福も対象にできる。
// 成功後は集計値と一覧を読み直す。
func (c *Controller) SetHidden(ctx context.Context, id int64, hidden bool) error {
	var (
		result *model.MessageResult
		err    error
	)
	if hidden {
		result, err = c.api.HideWish(ctx, id)
	} else {
		result, err = c.api.ShowWish(ctx, id)
	}
	if err != nil {
		return c.handleErr(err)
	}

	c.logger.Info("祝福の表示状態を変更しました",
		slog.Int64("wish_id", id),
		slog.Bool("hidden", hidden),
	)
	c.applied(ctx, result.Message)
	return nil
}

// Delete は祝福を削除し、成功後は集計値と一覧を読み直す。
func (c *Controller) Delete(ctx context.Context, id int64) error {
	result, err := c.api.DeleteWish(ctx, id)
	if err != nil {
		return c.handleErr(err)
	}

	c.logger.Info("祝福を削除しました", slog.Int64("wish_id", id))
	c.applied(ctx, result.Message)
	return nil
}

// applied は操作の成功を記録し、サーバーの状態を読み直す。
// 読み直しの失敗は状態のErrに残すだけで、呼び出し元には返さない。
func (c *Controller) applied(ctx context.Context, message string) {
	c.mu.Lock()
	c.message = message
	c.err = nil
	c.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("操作後の再読み込みに失敗しました",
			slog.String("error", err.Error()),
		)
	}
}
