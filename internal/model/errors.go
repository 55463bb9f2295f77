package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（バックエンドのdetailを優先）
	Category string // カテゴリ: auth, validation, request, network
	Action   string // ユーザー向け対処方法
	Status   int    // HTTPステータス。通信エラー時は0
	Err      error  // 原因エラー（通信エラー時）
}

// Error はerrorインターフェースを実装する。
// 画面にそのまま出せるよう、メッセージのみを返す。
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeRequestFailed    = "REQUEST_FAILED"
	ErrCodeNetwork          = "NETWORK_ERROR"
	ErrCodeLoginRequired    = "LOGIN_REQUIRED"
	ErrCodeLoginFailed      = "LOGIN_FAILED"
	ErrCodeValidation       = "VALIDATION_FAILED"
	ErrCodeMutationInFlight = "MUTATION_IN_FLIGHT"
	ErrCodeLoadFailed       = "LOAD_FAILED"
	ErrCodeRateLimited      = "RATE_LIMITED"
)

const (
	// DefaultRequestFailedMessage はエラーボディが無い・読めない場合の汎用メッセージ。
	DefaultRequestFailedMessage = "请求失败"
	// DefaultLoginFailedMessage はログイン失敗時の汎用メッセージ。
	DefaultLoginFailedMessage = "登录失败"
	// LoadFailedMessage は一覧読み込み失敗時に表示する再試行可能なメッセージ。
	LoadFailedMessage = "加载失败，请刷新重试"
)

var (
	// ErrLoginRequired は管理APIが401を返したことを表す。呼び出し元はログイン画面に戻す。
	ErrLoginRequired = &APIError{
		Code:     ErrCodeLoginRequired,
		Message:  "请先登录",
		Category: "auth",
		Action:   "管理者パスワードで再ログインしてください。",
		Status:   401,
	}

	// ErrEmptyContent は本文が空（空白のみ）であることを表す。
	ErrEmptyContent = &APIError{
		Code:     ErrCodeValidation,
		Message:  "祝福内容不能为空",
		Category: "validation",
		Action:   "本文を入力してください。",
	}

	// ErrContentTooLong は本文が上限を超えていることを表す。
	ErrContentTooLong = &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("祝福内容不能超过%d字", MaxContentLength),
		Category: "validation",
		Action:   "本文を短くしてください。",
	}

	// ErrNameTooLong は署名が上限を超えていることを表す。
	ErrNameTooLong = &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("署名不能超过%d字", MaxNameLength),
		Category: "validation",
		Action:   "署名を短くしてください。",
	}

	// ErrMutationInFlight は同じ祝福への同じ操作が処理中であることを表す。
	ErrMutationInFlight = &APIError{
		Code:     ErrCodeMutationInFlight,
		Message:  "操作正在进行中",
		Category: "request",
		Action:   "前の操作の完了を待ってください。",
	}
)

// NewRequestFailedError は非2xxレスポンスからエラーを生成する。
// detailが空の場合は汎用メッセージを使用する。
func NewRequestFailedError(status int, detail string) *APIError {
	if detail == "" {
		detail = DefaultRequestFailedMessage
	}
	return &APIError{
		Code:     ErrCodeRequestFailed,
		Message:  detail,
		Category: "request",
		Action:   "しばらく待ってから再度お試しください。",
		Status:   status,
	}
}

// NewLoginFailedError はログイン失敗エラーを生成する。
func NewLoginFailedError(status int, detail string) *APIError {
	if detail == "" {
		detail = DefaultLoginFailedMessage
	}
	return &APIError{
		Code:     ErrCodeLoginFailed,
		Message:  detail,
		Category: "auth",
		Action:   "パスワードを確認してください。",
		Status:   status,
	}
}

// NewNetworkError は通信エラーを生成する。
func NewNetworkError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeNetwork,
		Message:  fmt.Sprintf("%s: %v", DefaultRequestFailedMessage, err),
		Category: "network",
		Action:   "ネットワーク接続とAPIのURLを確認してください。",
		Err:      err,
	}
}

// NewLoadFailedError は一覧読み込み失敗を表す再試行可能なエラーを生成する。
func NewLoadFailedError(cause error) *APIError {
	return &APIError{
		Code:     ErrCodeLoadFailed,
		Message:  LoadFailedMessage,
		Category: "request",
		Action:   "再読み込みしてください。",
		Err:      cause,
	}
}

// NewRateLimitedError はクライアント側のレート制限で送信を止めたことを表すエラーを生成する。
func NewRateLimitedError(bucket string) *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "发送太频繁啦，休息一下吧~",
		Category: "request",
		Action:   fmt.Sprintf("しばらく待ってから再度お試しください（%s）。", bucket),
	}
}

// IsLoginRequired はerrがログイン必須エラーかどうかを返す。
func IsLoginRequired(err error) bool {
	return errors.Is(err, ErrLoginRequired)
}

// IsRetryable はユーザー操作で再試行する価値があるエラーかどうかを返す。
// 通信エラー、5xx、429、読み込み失敗、クライアント側のレート制限が該当する。
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case ErrCodeNetwork, ErrCodeLoadFailed, ErrCodeRateLimited:
		return true
	case ErrCodeRequestFailed:
		return apiErr.Status == 429 || apiErr.Status >= 500
	default:
		return false
	}
}
