// Package security はクライアントのセキュリティ機能を提供する。
//
// TextSanitizer は他の利用者が投稿した本文・署名を端末に表示する前に無害化する。
// BackendGuard は接続先バックエンドのURLを検証し、必要に応じて
// プライベートアドレスへの接続を拒否するHTTPクライアントを生成する。
package security

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はHTMLマークアップと制御文字を取り除き、プレーンテキストにする。
// 端末のエスケープシーケンス（ESCなど）を含む投稿で表示が乗っ取られないようにする。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
// すべてのタグを除去するbluemondayのStrictPolicyを使う。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean はタグを除去し、HTMLエンティティを戻し、改行とタブ以外の制御文字を除去する。
// 空文字列の入力には空文字列を返す。
func (s *TextSanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)
}
