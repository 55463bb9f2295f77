package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/wishwall/internal/model"
)

// TokenSource は管理者トークンの保存先。
type TokenSource interface {
	Token(ctx context.Context) string
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// AdminClient は管理者向けAPIのクライアント。
// 401を受け取った時点で保存済みトークンを破棄し、model.ErrLoginRequiredを返す。
type AdminClient struct {
	requester
	tokens TokenSource
}

// NewAdminClient はAdminClientの新しいインスタンスを生成する。
func NewAdminClient(httpClient *http.Client, baseURL string, tokens TokenSource, logger *slog.Logger) *AdminClient {
	return &AdminClient{
		requester: newRequester(httpClient, baseURL, logger),
		tokens:    tokens,
	}
}

// LoggedIn はトークンを保持しているかどうかを返す。有効性はサーバーにしか分からない。
func (c *AdminClient) LoggedIn(ctx context.Context) bool {
	return c.tokens.Token(ctx) != ""
}

// Login はパスワードでログインし、successがtrueでトークンがある場合だけ保存する。
// 失敗時はバックエンドのdetail、無ければ"登录失败"をメッセージとするエラーを返す。
func (c *AdminClient) Login(ctx context.Context, password string) (*model.LoginResult, error) {
	status, body, err := c.send(ctx, RouteAdminLogin, http.MethodPost, "/admin/login", nil, nil,
		model.LoginRequest{Password: password})
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, model.NewLoginFailedError(status, detailFrom(body))
	}

	var result model.LoginResult
	if err := decode(status, body, &result); err != nil {
		return nil, err
	}
	// 2xxでもsuccessがfalse、またはトークンが空ならログイン失敗として扱う
	if !result.Success || result.Token == "" {
		return nil, model.NewLoginFailedError(status, result.Message)
	}
	if err := c.tokens.Set(ctx, result.Token); err != nil {
		return nil, fmt.Errorf("管理者トークンの保存に失敗しました: %w", err)
	}
	return &result, nil
}

// Logout はサーバーにログアウトを通知し、結果に関わらずトークンを破棄する。
// 通知の失敗はログに残すだけで、返すのはトークン破棄の失敗のみ。
func (c *AdminClient) Logout(ctx context.Context) error {
	var result model.MessageResult
	if err := c.do(ctx, RouteAdminLogout, http.MethodPost, "/admin/logout", nil, &result); err != nil {
		c.logger.Warn("ログアウトの通知に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return c.tokens.Clear(ctx)
}

// do は管理者トークンを付けてリクエストを送る。トークンが無い場合も空文字で送る。
func (c *AdminClient) do(ctx context.Context, route, method, path string, query url.Values, out any) error {
	headers := map[string]string{HeaderAdminToken: c.tokens.Token(ctx)}
	status, body, err := c.send(ctx, route, method, path, query, headers, nil)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if err := c.tokens.Clear(ctx); err != nil {
			c.logger.Warn("管理者トークンの破棄に失敗しました",
				slog.String("error", err.Error()),
			)
		}
		return model.ErrLoginRequired
	}
	if !isSuccess(status) {
		return model.NewRequestFailedError(status, detailFrom(body))
	}
	return decode(status, body, out)
}

// Stats は集計値を取得する。
func (c *AdminClient) Stats(ctx context.Context) (*model.AdminStats, error) {
	var stats model.AdminStats
	if err := c.do(ctx, RouteAdminStats, http.MethodGet, "/admin/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListAllWishes は非表示を含む祝福の一覧を取得する。
func (c *AdminClient) ListAllWishes(ctx context.Context, skip, limit int, includeHidden bool) (*model.WishList, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("include_hidden", strconv.FormatBool(includeHidden))

	var list model.WishList
	if err := c.do(ctx, RouteAdminWishes, http.MethodGet, "/admin/wishes", q, &list); err != nil {
		return nil, err
	}
	if list.Wishes == nil {
		list.Wishes = []model.Wish{}
	}
	return &list, nil
}

// HideWish は祝福を非表示にする。
func (c *AdminClient) HideWish(ctx context.Context, id int64) (*model.MessageResult, error) {
	var result model.MessageResult
	if err := c.do(ctx, RouteAdminHide, http.MethodPost, "/admin"+wishPath(id)+"/hide", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ShowWish は非表示の祝福を再表示する。
func (c *AdminClient) ShowWish(ctx context.Context, id int64) (*model.MessageResult, error) {
	var result model.MessageResult
	if err := c.do(ctx, RouteAdminShow, http.MethodPost, "/admin"+wishPath(id)+"/show", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteWish は任意の祝福を削除する。
func (c *AdminClient) DeleteWish(ctx context.Context, id int64) (*model.MessageResult, error) {
	var result model.MessageResult
	if err := c.do(ctx, RouteAdminDelete, http.MethodDelete, "/admin"+wishPath(id), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
