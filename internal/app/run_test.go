package app

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hitoshi/wishwall/internal/api/apitest"
	"github.com/hitoshi/wishwall/internal/model"
)

func setTestEnv(t *testing.T, apiURL string) {
	t.Helper()
	t.Setenv("WISHWALL_API_URL", apiURL)
	t.Setenv("PROFILE_STORE_URL", "memory://")
	t.Setenv("LOG_LEVEL", "error")
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("WISHWALL_API_URL", "")

	var out, errOut bytes.Buffer
	err := Run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"list"})
	if err == nil {
		t.Fatal("Run with missing env should return error")
	}
	if !strings.Contains(errOut.String(), "WISHWALL_API_URL") {
		t.Errorf("エラーがerrOutに表示されるべき: %q", errOut.String())
	}
}

func TestRun_DefaultCommandListsWishes(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.Seed(
		model.Wish{ID: 1, Content: "马年大吉", Name: "小红", Tag: model.TagGreeting},
		model.Wish{ID: 2, Content: "今年学会了Go", Name: "", Tag: model.TagRetrospective},
	)
	setTestEnv(t, backend.URL())

	var out, errOut bytes.Buffer
	if err := Run(context.Background(), strings.NewReader(""), &out, &errOut, nil); err != nil {
		t.Fatalf("Run() error = %v, stderr = %s", err, errOut.String())
	}

	got := out.String()
	for _, want := range []string{"马年大吉", "今年学会了Go", "神秘人", "2 / 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("出力に %q が含まれるべき:\n%s", want, got)
		}
	}
	if strings.Index(got, "今年学会了Go") > strings.Index(got, "马年大吉") {
		t.Error("新しい祝福が先に表示されるべき")
	}

	req := backend.LastRequest()
	if req.Header.Get("X-Request-Id") == "" {
		t.Error("送信リクエストにX-Request-Idが付与されるべき")
	}
	if !strings.HasPrefix(req.Header.Get("X-Client-Id"), "client_") {
		t.Errorf("X-Client-Id = %q", req.Header.Get("X-Client-Id"))
	}
}

func TestRun_ListFailureShowsRetryableMessage(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.FailRoute("GET /wishes", 500, `{"detail":"db down"}`)
	setTestEnv(t, backend.URL())

	var out, errOut bytes.Buffer
	err := Run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"list"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !model.IsRetryable(err) {
		t.Errorf("読み込み失敗は再試行可能であるべき: %v", err)
	}
	if !strings.Contains(errOut.String(), model.LoadFailedMessage) {
		t.Errorf("stderr = %q, want %q", errOut.String(), model.LoadFailedMessage)
	}
}

func TestRun_MigrateSkipsNonSQLStore(t *testing.T) {
	setTestEnv(t, "http://localhost:8000")

	var out, errOut bytes.Buffer
	if err := Run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"migrate"}); err != nil {
		t.Fatalf("migrate on memory store should be a no-op, got %v", err)
	}
}

func TestRun_UnsupportedStoreURL(t *testing.T) {
	setTestEnv(t, "http://localhost:8000")
	t.Setenv("PROFILE_STORE_URL", "mongodb://localhost")

	var out, errOut bytes.Buffer
	err := Run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"whoami"})
	if err == nil || !strings.Contains(err.Error(), "unsupported profile store url") {
		t.Errorf("error = %v, want unsupported profile store url", err)
	}
}

func TestRun_RejectsNonHTTPBackend(t *testing.T) {
	setTestEnv(t, "ftp://wish.example.com")

	var out, errOut bytes.Buffer
	err := Run(context.Background(), strings.NewReader(""), &out, &errOut, []string{"list"})
	if err == nil || !strings.Contains(err.Error(), "invalid backend url") {
		t.Errorf("error = %v, want invalid backend url", err)
	}
}
