// Package apitest はテスト用のバックエンドの偽実装を提供する。
// httptest.Serverの上でchiルーターを動かし、受け取ったリクエストを記録する。
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/wishwall/internal/model"
)

// AdminPassword は偽バックエンドの管理者パスワード。
const AdminPassword = "lunar-admin"

// 偽バックエンドが返すメッセージ
const (
	DetailNotFound  = "祝福不存在"
	DetailNotOwner  = "只能删除自己的祝福哦"
	DetailForbidden = "需要管理员权限"
	DetailBadLogin  = "密码错误"
)

// RecordedRequest は偽バックエンドが受け取ったリクエスト。
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Backend はバックエンドの偽実装。祝福は新しい順に保持する。
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	wishes   []model.Wish
	nextID   int64
	tokens   map[string]bool
	requests []RecordedRequest
	failures map[string]failure
	delays   map[string]time.Duration
}

type failure struct {
	status int
	body   string
}

// NewBackend は偽バックエンドを起動する。テスト終了時に停止する。
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		nextID:   1,
		tokens:   make(map[string]bool),
		failures: make(map[string]failure),
		delays:   make(map[string]time.Duration),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL は偽バックエンドのベースURLを返す。
func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Get("/wishes", b.listWishes)
	r.Post("/wishes", b.createWish)
	r.Post("/wishes/{id}/like", b.likeWish)
	r.Delete("/wishes/{id}", b.deleteWish)

	r.Post("/admin/login", b.login)
	r.Post("/admin/logout", b.logout)
	r.Group(func(r chi.Router) {
		r.Use(b.requireAdmin)
		r.Get("/admin/stats", b.stats)
		r.Get("/admin/wishes", b.listAllWishes)
		r.Post("/admin/wishes/{id}/hide", b.setHidden(true))
		r.Post("/admin/wishes/{id}/show", b.setHidden(false))
		r.Delete("/admin/wishes/{id}", b.adminDelete)
	})
	return r
}

// Seed は祝福を追加する。引数の順に古いものから追加され、最後の1件が先頭になる。
func (b *Backend) Seed(wishes ...model.Wish) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range wishes {
		if w.ID == 0 {
			w.ID = b.nextID
		}
		if w.ID >= b.nextID {
			b.nextID = w.ID + 1
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = model.Timestamp{Time: time.Now().UTC()}
		}
		b.wishes = append([]model.Wish{w}, b.wishes...)
	}
}

// Wishes は保持している祝福のコピーを返す。
func (b *Backend) Wishes() []model.Wish {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Wish(nil), b.wishes...)
}

// IssueToken は有効な管理者トークンを発行する。
func (b *Backend) IssueToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[token] = true
}

// RevokeTokens はすべての管理者トークンを無効にする（サーバー再起動の再現）。
func (b *Backend) RevokeTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]bool)
}

// FailRoute は"METHOD /path"に一致するリクエストに指定のレスポンスを返させる。
// bodyが空の場合はボディ無しで返す。
func (b *Backend) FailRoute(route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[route] = failure{status: status, body: body}
}

// DelayRoute は"METHOD /path"に一致するリクエストの応答を遅らせる。
func (b *Backend) DelayRoute(route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[route] = d
}

// Requests は受け取ったリクエストのコピーを返す。
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RecordedRequest(nil), b.requests...)
}

// LastRequest は最後に受け取ったリクエストを返す。
func (b *Backend) LastRequest() RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.requests) == 0 {
		return RecordedRequest{}
	}
	return b.requests[len(b.requests)-1]
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = http.NoBody
		}

		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		key := r.Method + " " + r.URL.Path
		f, failing := b.failures[key]
		delay := b.delays[key]
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if failing {
			if f.body == "" {
				w.WriteHeader(f.status)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(f.body))
			return
		}

		next.ServeHTTP(w, r.WithContext(withBody(r.Context(), body)))
	})
}

func (b *Backend) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		ok := b.tokens[r.Header.Get("X-Admin-Token")]
		b.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, DetailForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) listWishes(w http.ResponseWriter, r *http.Request) {
	clientID := r.Header.Get("X-Client-Id")
	b.mu.Lock()
	visible := make([]model.Wish, 0, len(b.wishes))
	for _, wish := range b.wishes {
		if wish.IsHidden {
			continue
		}
		wish.IsOwner = clientID != "" && wish.ClientID == clientID
		wish.ClientID = ""
		visible = append(visible, wish)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, model.WishList{Wishes: paginate(visible, r), Total: len(visible)})
}

func (b *Backend) createWish(w http.ResponseWriter, r *http.Request) {
	var req model.CreateWishRequest
	if err := json.Unmarshal(bodyFrom(r.Context()), &req); err != nil || strings.TrimSpace(req.Content) == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "祝福内容不能为空")
		return
	}
	if !req.Tag.IsValid() {
		req.Tag = model.TagGreeting
	}
	if strings.TrimSpace(req.Name) == "" {
		req.Name = model.DefaultName
	}

	clientID := req.ClientID
	if clientID == "" {
		clientID = r.Header.Get("X-Client-Id")
	}

	b.mu.Lock()
	wish := model.Wish{
		ID:        b.nextID,
		Content:   strings.TrimSpace(req.Content),
		Name:      strings.TrimSpace(req.Name),
		Tag:       req.Tag,
		ClientID:  clientID,
		CreatedAt: model.Timestamp{Time: time.Now().UTC()},
	}
	b.nextID++
	b.wishes = append([]model.Wish{wish}, b.wishes...)
	b.mu.Unlock()

	wish.IsOwner = true
	writeJSON(w, http.StatusOK, wish)
}

func (b *Backend) likeWish(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	b.wishes[idx].Likes++
	likes := b.wishes[idx].Likes
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, model.LikeResult{Success: true, Likes: likes, Message: "点赞成功！"})
}

func (b *Backend) deleteWish(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	if b.wishes[idx].ClientID != r.Header.Get("X-Client-Id") {
		b.mu.Unlock()
		writeDetail(w, http.StatusForbidden, DetailNotOwner)
		return
	}
	b.wishes = append(b.wishes[:idx], b.wishes[idx+1:]...)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, model.MessageResult{Success: true, Message: "删除成功"})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	_ = json.Unmarshal(bodyFrom(r.Context()), &req)
	if req.Password != AdminPassword {
		writeDetail(w, http.StatusUnauthorized, DetailBadLogin)
		return
	}
	token := "token-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	b.IssueToken(token)
	writeJSON(w, http.StatusOK, model.LoginResult{Success: true, Token: token, Message: "登录成功"})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	delete(b.tokens, r.Header.Get("X-Admin-Token"))
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, model.MessageResult{Success: true, Message: "已登出"})
}

func (b *Backend) stats(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stats := model.AdminStats{TotalWishes: len(b.wishes), ByTag: make(map[model.Tag]int)}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for _, wish := range b.wishes {
		stats.TotalLikes += wish.Likes
		stats.ByTag[wish.Tag]++
		if !wish.CreatedAt.Before(today) {
			stats.WishesToday++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (b *Backend) listAllWishes(w http.ResponseWriter, r *http.Request) {
	includeHidden := r.URL.Query().Get("include_hidden") != "false"
	b.mu.Lock()
	all := make([]model.Wish, 0, len(b.wishes))
	for _, wish := range b.wishes {
		if wish.IsHidden && !includeHidden {
			continue
		}
		all = append(all, wish)
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, model.WishList{Wishes: paginate(all, r), Total: len(all)})
}

func (b *Backend) setHidden(hidden bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(w, r)
		if !ok {
			return
		}
		b.mu.Lock()
		idx := b.indexOf(id)
		if idx >= 0 {
			b.wishes[idx].IsHidden = hidden
		}
		b.mu.Unlock()
		if idx < 0 {
			writeDetail(w, http.StatusNotFound, DetailNotFound)
			return
		}
		msg := "已显示"
		if hidden {
			msg = "已隐藏"
		}
		writeJSON(w, http.StatusOK, model.MessageResult{Success: true, Message: msg})
	}
}

func (b *Backend) adminDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	idx := b.indexOf(id)
	if idx >= 0 {
		b.wishes = append(b.wishes[:idx], b.wishes[idx+1:]...)
	}
	b.mu.Unlock()
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, DetailNotFound)
		return
	}
	writeJSON(w, http.StatusOK, model.MessageResult{Success: true, Message: "删除成功"})
}

// indexOf は呼び出し元がmuを保持している前提。
func (b *Backend) indexOf(id int64) int {
	for i, wish := range b.wishes {
		if wish.ID == id {
			return i
		}
	}
	return -1
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid id")
		return 0, false
	}
	return id, true
}

func paginate(wishes []model.Wish, r *http.Request) []model.Wish {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if skip < 0 || skip >= len(wishes) {
		return []model.Wish{}
	}
	end := skip + limit
	if end > len(wishes) {
		end = len(wishes)
	}
	return wishes[skip:end]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorBody{Detail: detail})
}
