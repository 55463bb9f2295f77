// Package api はお祝いウォールのバックエンドAPIクライアントを提供する。
// 一般利用者向けのClientと、管理者向けのAdminClientを含む。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/wishwall/internal/model"
	"github.com/hitoshi/wishwall/internal/transport"
)

const (
	// HeaderClientID はクライアント識別子のヘッダー名。
	HeaderClientID = "X-Client-Id"
	// HeaderAdminToken は管理者トークンのヘッダー名。
	HeaderAdminToken = "X-Admin-Token"
	// DefaultPageSize は一覧取得のデフォルト件数。
	DefaultPageSize = 100
	// maxResponseBytes はレスポンスボディの読み取り上限。
	maxResponseBytes = 4 << 20
)

// ルート名。メトリクスとログのラベルに使う。
const (
	RouteListWishes  = "wishes.list"
	RouteCreateWish  = "wishes.create"
	RouteLikeWish    = "wishes.like"
	RouteDeleteWish  = "wishes.delete"
	RouteAdminLogin  = "admin.login"
	RouteAdminLogout = "admin.logout"
	RouteAdminStats  = "admin.stats"
	RouteAdminWishes = "admin.wishes"
	RouteAdminHide   = "admin.hide"
	RouteAdminShow   = "admin.show"
	RouteAdminDelete = "admin.delete"
)

// IdentitySource はクライアント識別子を提供する。
type IdentitySource interface {
	ClientID(ctx context.Context) string
}

// requester はバックエンドへのHTTP呼び出しの共通処理。
type requester struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

func newRequester(httpClient *http.Client, baseURL string, logger *slog.Logger) requester {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return requester{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// send はリクエストを送信し、ステータスコードとボディを返す。
// エラーを返すのはリクエストが完了しなかった場合のみで、非2xxはエラーにしない。
func (r requester) send(
	ctx context.Context,
	route, method, path string,
	query url.Values,
	headers map[string]string,
	payload any,
) (int, []byte, error) {
	reqURL := r.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(transport.WithRoute(ctx, route), method, reqURL, body)
	if err != nil {
		return 0, nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		// レート制限などトランスポート層で分類済みのエラーはそのまま返す
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			return 0, nil, apiErr
		}
		r.logger.Error("バックエンドの呼び出しに失敗しました",
			slog.String("route", route),
			slog.String("error", err.Error()),
		)
		return 0, nil, model.NewNetworkError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, model.NewNetworkError(fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err))
	}
	return resp.StatusCode, respBody, nil
}

// isSuccess は2xxかどうかを返す。
func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// detailFrom はエラーボディ { "detail": "..." } からメッセージを取り出す。
// ボディが無い・JSONでない・detailが文字列でない場合は空文字を返す。
func detailFrom(body []byte) string {
	var eb model.ErrorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	return eb.Detail
}

// decode は2xxレスポンスのボディをoutにデコードする。
// ボディが空の場合は何もしない。
func decode(status int, body []byte, out any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		apiErr := model.NewRequestFailedError(status, "")
		apiErr.Err = fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
		return apiErr
	}
	return nil
}

func wishPath(id int64) string {
	return "/wishes/" + strconv.FormatInt(id, 10)
}

// Client は一般利用者向けAPIのクライアント。
// すべてのリクエストにX-Client-Idを付与し、バックエンドが所有者判定に使う。
type Client struct {
	requester
	identity IdentitySource
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLは"/wishes"などのパスの前に付くURL（例: https://example.com/api）。
func NewClient(httpClient *http.Client, baseURL string, identity IdentitySource, logger *slog.Logger) *Client {
	return &Client{
		requester: newRequester(httpClient, baseURL, logger),
		identity:  identity,
	}
}

func (c *Client) do(ctx context.Context, route, method, path string, query url.Values, payload, out any) error {
	return c.doAs(ctx, c.identity.ClientID(ctx), route, method, path, query, payload, out)
}

// doAs はclientIDをX-Client-Idに載せて送る。
func (c *Client) doAs(ctx context.Context, clientID, route, method, path string, query url.Values, payload, out any) error {
	headers := map[string]string{HeaderClientID: clientID}
	status, body, err := c.send(ctx, route, method, path, query, headers, payload)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return model.NewRequestFailedError(status, detailFrom(body))
	}
	return decode(status, body, out)
}

// ListWishes は公開されている祝福の一覧を取得する。
// skipが負の場合は0、limitが0以下の場合はDefaultPageSizeを使う。
func (c *Client) ListWishes(ctx context.Context, skip, limit int) (*model.WishList, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	q := url.Values{}
	q.Set("skip", strconv.Itoa(skip))
	q.Set("limit", strconv.Itoa(limit))

	var list model.WishList
	if err := c.do(ctx, RouteListWishes, http.MethodGet, "/wishes", q, nil, &list); err != nil {
		return nil, err
	}
	if list.Wishes == nil {
		list.Wishes = []model.Wish{}
	}
	return &list, nil
}

// CreateWish は祝福を投稿する。ボディとヘッダーには同じクライアント識別子を載せる。
func (c *Client) CreateWish(ctx context.Context, input model.WishInput) (*model.Wish, error) {
	clientID := c.identity.ClientID(ctx)
	payload := model.CreateWishRequest{
		WishInput: input,
		ClientID:  clientID,
	}
	var wish model.Wish
	if err := c.doAs(ctx, clientID, RouteCreateWish, http.MethodPost, "/wishes", nil, payload, &wish); err != nil {
		return nil, err
	}
	return &wish, nil
}

// LikeWish は祝福にいいねする。いいね数はサーバーの値を返す。
func (c *Client) LikeWish(ctx context.Context, id int64) (*model.LikeResult, error) {
	var result model.LikeResult
	if err := c.do(ctx, RouteLikeWish, http.MethodPost, wishPath(id)+"/like", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteWish は自分の祝福を削除する。所有者でない場合はバックエンドのエラーを返す。
func (c *Client) DeleteWish(ctx context.Context, id int64) (*model.MessageResult, error) {
	var result model.MessageResult
	if err := c.do(ctx, RouteDeleteWish, http.MethodDelete, wishPath(id), nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
