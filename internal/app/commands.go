package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hitoshi/wishwall/internal/model"
	"github.com/hitoshi/wishwall/internal/wall"
)

// errLikeNotApplied はいいねが反映されなかったことを表す。
// 詳細な理由はログに出力済み。
var errLikeNotApplied = errors.New("点赞没有成功，请稍后再试")

// dispatch はサブコマンドを実行する。
func (rt *runtime) dispatch(ctx context.Context, cmd Command, args []string) error {
	switch cmd {
	case CommandList:
		return rt.runList(ctx, args)
	case CommandPost:
		return rt.runPost(ctx, args)
	case CommandLike:
		return rt.runLike(ctx, args)
	case CommandDelete:
		return rt.runDelete(ctx, args)
	case CommandWhoami:
		return rt.runWhoami(ctx)
	case CommandWatch:
		return rt.runWatch(ctx)
	case CommandAdmin:
		return rt.runAdmin(ctx, args)
	default:
		return rt.runList(ctx, args)
	}
}

func (rt *runtime) flagOutput() io.Writer {
	return rt.out
}

// runList は祝福一覧を表示する。先頭からの取得は状態コントローラ経由で読み込む。
func (rt *runtime) runList(ctx context.Context, args []string) error {
	opts, err := ParseListOptions(args, rt.cfg.PageSize, rt.flagOutput())
	if err != nil {
		return err
	}

	if opts.Skip <= 0 {
		ctrl := wall.NewController(rt.client, opts.Limit, rt.collector, rt.logger)
		if err := ctrl.Load(ctx); err != nil {
			return err
		}
		s := ctrl.Snapshot()
		return rt.render.Wishes(s.Wishes, s.Total)
	}

	list, err := rt.client.ListWishes(ctx, opts.Skip, opts.Limit)
	if err != nil {
		return model.NewLoadFailedError(err)
	}
	wishes := make([]*model.Wish, len(list.Wishes))
	for i := range list.Wishes {
		wishes[i] = &list.Wishes[i]
	}
	return rt.render.Wishes(wishes, list.Total)
}

// runPost は祝福を投稿し、作成された祝福を表示する。
func (rt *runtime) runPost(ctx context.Context, args []string) error {
	opts, err := ParsePostOptions(args, rt.flagOutput())
	if err != nil {
		return err
	}

	wish, err := rt.wall.Submit(ctx, model.WishInput{
		Content: opts.Content,
		Name:    opts.Name,
		Tag:     model.ParseTag(opts.Tag),
	})
	if err != nil {
		return err
	}

	rt.logger.Info("wish posted", slog.Int64("wish_id", wish.ID))
	if err := rt.render.Message("发送成功"); err != nil {
		return err
	}
	_, err = io.WriteString(rt.out, rt.render.Wish(wish))
	return err
}

// runLike は祝福にいいねし、サーバーが返したいいね数を表示する。
func (rt *runtime) runLike(ctx context.Context, args []string) error {
	opts, err := ParseTargetOptions("like", args, false, rt.flagOutput())
	if err != nil {
		return err
	}

	likes, ok := rt.wall.Like(ctx, opts.ID)
	if !ok {
		return errLikeNotApplied
	}
	_, err = fmt.Fprintf(rt.out, "#%d ♥ %d\n", opts.ID, likes)
	return err
}

// runDelete は自分の祝福を削除する。-yes が無い場合は確認する。
func (rt *runtime) runDelete(ctx context.Context, args []string) error {
	opts, err := ParseTargetOptions("delete", args, true, rt.flagOutput())
	if err != nil {
		return err
	}

	if !opts.Yes {
		ok, err := rt.confirm(fmt.Sprintf("确定要删除这条祝福吗？ #%d", opts.ID))
		if err != nil {
			return err
		}
		if !ok {
			return rt.render.Message(errCanceled.Error())
		}
	}

	if err := rt.wall.Remove(ctx, opts.ID); err != nil {
		return err
	}
	return rt.render.Message("删除成功")
}

// runWhoami はクライアント識別子と管理者ログイン状態を表示する。
func (rt *runtime) runWhoami(ctx context.Context) error {
	state := "logged out"
	if rt.tokens.LoggedIn(ctx) {
		state = "logged in"
	}
	_, err := fmt.Fprintf(rt.out, "client_id: %s\nprofile:   %s\nadmin:     %s\n",
		rt.identity.ClientID(ctx),
		rt.cfg.ProfileScope,
		state,
	)
	return err
}
