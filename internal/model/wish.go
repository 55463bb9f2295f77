// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentLength は祝福本文の最大文字数（クライアント側で強制）。
	MaxContentLength = 500
	// MaxNameLength は署名の最大文字数。
	MaxNameLength = 50
	// DefaultName は署名が空の場合の表示名。
	DefaultName = "神秘人"
)

// Tag は祝福の種類を表す。ワイヤ上の値はバックエンドの列挙値そのもの。
type Tag string

const (
	// TagGreeting は「祝福」。未知・未指定のタグはこれにフォールバックする。
	TagGreeting Tag = "祝福"
	// TagRetrospective は「回顾」（一年の振り返り）。
	TagRetrospective Tag = "回顾"
	// TagAspiration は「期许」（新年の抱負）。
	TagAspiration Tag = "期许"
)

// Tags は既知のタグ一覧。バックエンドの集計順と同じ並び。
var Tags = []Tag{TagGreeting, TagRetrospective, TagAspiration}

// IsValid は既知のタグかどうかを返す。
func (t Tag) IsValid() bool {
	switch t {
	case TagGreeting, TagRetrospective, TagAspiration:
		return true
	default:
		return false
	}
}

// DisplayTag は表示用のタグを返す。未知・空のタグは祝福として扱う。
func (t Tag) DisplayTag() Tag {
	if t.IsValid() {
		return t
	}
	return TagGreeting
}

// ParseTag はCLIなどから渡された英語名またはワイヤ値をTagに変換する。
// 解釈できない場合は祝福を返す。
func ParseTag(s string) Tag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "greeting", string(TagGreeting):
		return TagGreeting
	case "retrospective", string(TagRetrospective):
		return TagRetrospective
	case "aspiration", string(TagAspiration):
		return TagAspiration
	default:
		return TagGreeting
	}
}

// Wish は祝福1件を表す。サーバーが所有し、クライアントはキャッシュするだけ。
type Wish struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Name      string    `json:"name"`
	Tag       Tag       `json:"tag"`
	Likes     int       `json:"likes"`
	ClientID  string    `json:"client_id,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
	IsHidden  bool      `json:"is_hidden"`
	IsOwner   bool      `json:"is_owner"`
}

// DisplayName は表示用の署名を返す。
func (w *Wish) DisplayName() string {
	if strings.TrimSpace(w.Name) == "" {
		return DefaultName
	}
	return w.Name
}

// WishInput は祝福作成時にUIから受け取る入力。
type WishInput struct {
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
	Tag     Tag    `json:"tag"`
}

// Validate は入力をクライアント側で検証する。
// セキュリティ境界ではなく、明らかに失敗する送信を避けるためのもの。
func (in WishInput) Validate() error {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.Name)) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// CreateWishRequest は POST /wishes のリクエストボディ。
// 入力に加えてクライアント識別子を載せる。
type CreateWishRequest struct {
	WishInput
	ClientID string `json:"client_id"`
}

// WishList は一覧APIのレスポンス。
type WishList struct {
	Wishes []Wish `json:"wishes"`
	Total  int    `json:"total"`
}

// LikeResult は いいねAPIのレスポンス。
// likesはサーバーの値をそのまま採用する。
type LikeResult struct {
	Success bool   `json:"success"`
	Likes   int    `json:"likes"`
	Message string `json:"message,omitempty"`
}

// MessageResult は汎用メッセージレスポンス。
type MessageResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
