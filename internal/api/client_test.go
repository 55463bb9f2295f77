package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/wishwall/internal/api/apitest"
	"github.com/hitoshi/wishwall/internal/model"
)

// fixedIdentity はテスト用の固定クライアント識別子。
type fixedIdentity string

func (f fixedIdentity) ClientID(context.Context) string { return string(f) }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return NewClient(http.DefaultClient, baseURL, fixedIdentity("client_abc123xyz_1700000000000"), testLogger())
}

func TestClient_ListWishes_SendsHeadersAndDefaults(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.Seed(model.Wish{ID: 1, Content: "新年快乐", Name: "小明", Tag: model.TagGreeting, Likes: 2})

	client := newTestClient(t, backend.URL())
	list, err := client.ListWishes(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(list.Wishes) != 1 || list.Wishes[0].ID != 1 || list.Total != 1 {
		t.Errorf("unexpected list: %+v", list)
	}

	req := backend.LastRequest()
	if req.Query != "limit=100&skip=0" {
		t.Errorf("query = %q, want limit=100&skip=0", req.Query)
	}
	if got := req.Header.Get(HeaderClientID); got != "client_abc123xyz_1700000000000" {
		t.Errorf("X-Client-Id = %q", got)
	}
	if got := req.Header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestClient_ListWishes_EmptyListIsNotNil(t *testing.T) {
	backend := apitest.NewBackend(t)
	client := newTestClient(t, backend.URL())

	list, err := client.ListWishes(context.Background(), 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if list.Wishes == nil {
		t.Error("空の一覧はnilではなく空スライスであるべき")
	}
	if backend.LastRequest().Query != "limit=10&skip=5" {
		t.Errorf("query = %q", backend.LastRequest().Query)
	}
}

func TestClient_CreateWish_BodyCarriesClientID(t *testing.T) {
	backend := apitest.NewBackend(t)
	client := newTestClient(t, backend.URL())

	wish, err := client.CreateWish(context.Background(), model.WishInput{Content: "hi", Tag: model.TagGreeting})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wish.ID == 0 || wish.Content != "hi" || wish.Likes != 0 {
		t.Errorf("unexpected wish: %+v", wish)
	}

	var body map[string]any
	if err := json.Unmarshal(backend.LastRequest().Body, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["client_id"] != "client_abc123xyz_1700000000000" {
		t.Errorf("client_id = %v", body["client_id"])
	}
	if body["tag"] != "祝福" || body["content"] != "hi" {
		t.Errorf("unexpected body: %v", body)
	}
}

// countingIdentity は呼ばれるたびに別の識別子を返す（保存に失敗した状態の再現）。
type countingIdentity struct{ calls int }

func (c *countingIdentity) ClientID(context.Context) string {
	c.calls++
	return fmt.Sprintf("client_fresh%04d_1700000000000", c.calls)
}

func TestClient_CreateWish_HeaderAndBodyShareClientID(t *testing.T) {
	backend := apitest.NewBackend(t)
	ids := &countingIdentity{}
	client := NewClient(http.DefaultClient, backend.URL(), ids, testLogger())

	if _, err := client.CreateWish(context.Background(), model.WishInput{Content: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := backend.LastRequest()
	var body model.CreateWishRequest
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if header := req.Header.Get(HeaderClientID); header != body.ClientID {
		t.Errorf("X-Client-Id = %q, body client_id = %q: 同じ識別子であるべき", header, body.ClientID)
	}
	if ids.calls != 1 {
		t.Errorf("ClientID calls = %d, want 1", ids.calls)
	}
}

func TestClient_LikeWish_ReturnsServerCount(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.Seed(model.Wish{ID: 1, Content: "a", Likes: 4})
	client := newTestClient(t, backend.URL())

	result, err := client.LikeWish(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success || result.Likes != 5 {
		t.Errorf("unexpected result: %+v", result)
	}
	if got := backend.LastRequest().Path; got != "/wishes/1/like" {
		t.Errorf("path = %q", got)
	}
}

func TestClient_DeleteWish_NotOwnerSurfacesDetail(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.Seed(model.Wish{ID: 2, Content: "someone else's", ClientID: "client_other_1"})
	client := newTestClient(t, backend.URL())

	_, err := client.DeleteWish(context.Background(), 2)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返るべき: %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != apitest.DetailNotOwner {
		t.Errorf("unexpected error: %+v", apiErr)
	}
	if len(backend.Wishes()) != 1 {
		t.Error("削除されてはならない")
	}
}

func TestClient_NonJSONErrorFallsBackToGenericMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ボディ無し", ""},
		{"HTML", "<html>bad gateway</html>"},
		{"detailが空", `{"detail":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := apitest.NewBackend(t)
			backend.FailRoute("GET /wishes", http.StatusBadGateway, tt.body)
			client := newTestClient(t, backend.URL())

			_, err := client.ListWishes(context.Background(), 0, 0)
			if err == nil || err.Error() != model.DefaultRequestFailedMessage {
				t.Errorf("err = %v, want %s", err, model.DefaultRequestFailedMessage)
			}
		})
	}
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := newTestClient(t, baseURL)
	_, err := client.ListWishes(context.Background(), 0, 0)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorが返るべき: %v", err)
	}
	if apiErr.Code != model.ErrCodeNetwork {
		t.Errorf("Code = %q, want NETWORK_ERROR", apiErr.Code)
	}
	if !model.IsRetryable(err) {
		t.Error("通信エラーは再試行可能であるべき")
	}
}

func TestClient_TrailingSlashInBaseURL(t *testing.T) {
	backend := apitest.NewBackend(t)
	client := newTestClient(t, backend.URL()+"/")

	if _, err := client.ListWishes(context.Background(), 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := backend.LastRequest().Path; got != "/wishes" {
		t.Errorf("path = %q, want /wishes", got)
	}
}
