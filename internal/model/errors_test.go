package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewRequestFailedError_UsesDetail(t *testing.T) {
	err := NewRequestFailedError(403, "只能删除自己的祝福哦")
	if err.Error() != "只能删除自己的祝福哦" {
		t.Errorf("Error() = %q", err.Error())
	}
	if err.Status != 403 || err.Code != ErrCodeRequestFailed {
		t.Errorf("unexpected error: %+v", err)
	}
}

func TestNewRequestFailedError_FallsBackToGenericMessage(t *testing.T) {
	err := NewRequestFailedError(500, "")
	if err.Error() != DefaultRequestFailedMessage {
		t.Errorf("Error() = %q, want %q", err.Error(), DefaultRequestFailedMessage)
	}
}

func TestIsLoginRequired_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("get stats: %w", ErrLoginRequired)
	if !IsLoginRequired(wrapped) {
		t.Error("ラップされたErrLoginRequiredを判定できるべき")
	}
	if IsLoginRequired(NewRequestFailedError(401, "x")) {
		t.Error("別のAPIErrorはログイン必須エラーではない")
	}
}

func TestNewNetworkError_UnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError(cause)
	if !errors.Is(err, cause) {
		t.Error("原因エラーにUnwrapできるべき")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"通信エラー", NewNetworkError(errors.New("timeout")), true},
		{"読み込み失敗", NewLoadFailedError(nil), true},
		{"レート制限", NewRateLimitedError("create"), true},
		{"500", NewRequestFailedError(500, ""), true},
		{"429", NewRequestFailedError(429, ""), true},
		{"403", NewRequestFailedError(403, "not owner"), false},
		{"ログイン必須", ErrLoginRequired, false},
		{"検証エラー", ErrEmptyContent, false},
		{"APIError以外", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
