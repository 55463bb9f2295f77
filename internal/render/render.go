// Package render は祝福・集計値を端末向けのテキストに整形する。
// 他の利用者が投稿した文字列はすべてsecurity.TextSanitizerを通してから出力する。
package render

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/hitoshi/wishwall/internal/model"
	"github.com/hitoshi/wishwall/internal/security"
)

// fallbackDate は作成日時が無い祝福に表示する文字列。
const fallbackDate = "2026"

// Renderer は整形したテキストをwriterに書き出す。
type Renderer struct {
	w         io.Writer
	sanitizer *security.TextSanitizer
	loc       *time.Location
}

// NewRenderer はRendererの新しいインスタンスを生成する。日時はローカルタイムで表示する。
func NewRenderer(w io.Writer, sanitizer *security.TextSanitizer) *Renderer {
	return &Renderer{
		w:         w,
		sanitizer: sanitizer,
		loc:       time.Local,
	}
}

// FormatDate は作成日時を "2月16日" の形式にする。ゼロ値の場合は "2026"。
func (r *Renderer) FormatDate(ts model.Timestamp) string {
	if ts.IsZero() {
		return fallbackDate
	}
	t := ts.In(r.loc)
	return fmt.Sprintf("%d月%d日", int(t.Month()), t.Day())
}

// Wish は祝福1件を整形する。
func (r *Renderer) Wish(w *model.Wish) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%s] %s", w.ID, w.Tag.DisplayTag(), r.FormatDate(w.CreatedAt))
	if w.IsOwner {
		b.WriteString(" (mine)")
	}
	if w.IsHidden {
		b.WriteString(" (已隐藏)")
	}
	b.WriteString("\n")
	for _, line := range strings.Split(r.sanitizer.Clean(w.Content), "\n") {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	name := r.sanitizer.Clean(w.DisplayName())
	if strings.TrimSpace(name) == "" {
		name = model.DefaultName
	}
	fmt.Fprintf(&b, "  —— %s  ♥ %d\n", name, w.Likes)
	return b.String()
}

// Wishes は一覧を書き出す。空の場合はその旨を書き出す。
func (r *Renderer) Wishes(wishes []*model.Wish, total int) error {
	if len(wishes) == 0 {
		_, err := fmt.Fprintln(r.w, "还没有祝福，来写下第一条吧")
		return err
	}
	for _, w := range wishes {
		if _, err := fmt.Fprintln(r.w, r.Wish(w)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(r.w, "%d / %d\n", len(wishes), total)
	return err
}

// Stats は管理画面の集計値を書き出す。タグ別件数は既知のタグ順、未知のタグは名前順。
func (r *Renderer) Stats(stats *model.AdminStats) error {
	var b strings.Builder
	fmt.Fprintf(&b, "总祝福数: %d\n", stats.TotalWishes)
	fmt.Fprintf(&b, "总点赞数: %d\n", stats.TotalLikes)
	fmt.Fprintf(&b, "今日新增: %d\n", stats.WishesToday)

	seen := make(map[model.Tag]bool)
	for _, tag := range model.Tags {
		seen[tag] = true
		fmt.Fprintf(&b, "  %s: %d\n", tag, stats.ByTag[tag])
	}
	var others []string
	for tag := range stats.ByTag {
		if !seen[tag] {
			others = append(others, string(tag))
		}
	}
	sort.Strings(others)
	for _, tag := range others {
		fmt.Fprintf(&b, "  %s: %d\n", r.sanitizer.Clean(tag), stats.ByTag[model.Tag(tag)])
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

// Message は操作結果のメッセージを書き出す。
func (r *Renderer) Message(msg string) error {
	_, err := fmt.Fprintln(r.w, r.sanitizer.Clean(msg))
	return err
}

// Error はエラーを利用者向けに書き出す。APIErrorの場合は対処方法も添える。
func (r *Renderer) Error(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) && apiErr.Action != "" {
		_, werr := fmt.Fprintf(r.w, "%s\n  %s\n", r.sanitizer.Clean(apiErr.Message), apiErr.Action)
		return werr
	}
	_, werr := fmt.Fprintln(r.w, r.sanitizer.Clean(err.Error()))
	return werr
}
