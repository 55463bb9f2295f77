package refresh

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockLoader はLoaderのテスト用モック。
type mockLoader struct {
	calls    atomic.Int32
	loadFunc func(ctx context.Context) error
}

func (m *mockLoader) Load(ctx context.Context) error {
	m.calls.Add(1)
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	return nil
}

// syncBuffer は複数ゴルーチンから書き込まれるログ用バッファ。
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(w *syncBuffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func TestRunOnce_ReportsResult(t *testing.T) {
	var buf syncBuffer
	loader := &mockLoader{}
	r := NewRefresher(loader, newTestLogger(&buf))

	if !r.RunOnce(context.Background()) {
		t.Error("成功時はtrueを返すべき")
	}

	loader.loadFunc = func(context.Context) error { return errors.New("加载失败，请刷新重试") }
	if r.RunOnce(context.Background()) {
		t.Error("失敗時はfalseを返すべき")
	}
	if !strings.Contains(buf.String(), "一覧の読み込みに失敗しました") {
		t.Errorf("失敗はログに残るべき: %s", buf.String())
	}
}

func TestStart_LoadsImmediatelyAndOnTick(t *testing.T) {
	var buf syncBuffer
	loader := &mockLoader{}
	r := NewRefresher(loader, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for loader.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("calls = %d, want >= 3", loader.calls.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("キャンセル後に停止すべき")
	}
	if !strings.Contains(buf.String(), "定期読み込みを停止しました") {
		t.Error("停止ログが出力されるべき")
	}
}

func TestStart_ContinuesAfterFailure(t *testing.T) {
	var buf syncBuffer
	loader := &mockLoader{loadFunc: func(context.Context) error { return errors.New("boom") }}
	r := NewRefresher(loader, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx, 5*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for loader.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("失敗後もループは続くべき")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func TestNextDelay(t *testing.T) {
	interval := time.Minute
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{0, time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{4, 16 * time.Minute},
		{5, 16 * time.Minute},
		{100, 16 * time.Minute},
	}
	for _, tt := range tests {
		if got := NextDelay(interval, tt.failures); got != tt.want {
			t.Errorf("NextDelay(%v, %d) = %v, want %v", interval, tt.failures, got, tt.want)
		}
	}
}

func TestStart_LogsBackoffOnRepeatedFailure(t *testing.T) {
	var buf syncBuffer
	loader := &mockLoader{loadFunc: func(context.Context) error { return errors.New("boom") }}
	r := NewRefresher(loader, newTestLogger(&buf))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx, time.Millisecond)

	deadline := time.After(2 * time.Second)
	for !strings.Contains(buf.String(), "読み込みの間隔を延ばします") {
		select {
		case <-deadline:
			t.Fatalf("バックオフのログが出力されるべき: %s", buf.String())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
