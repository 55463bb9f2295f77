package app

import (
	"context"
	"fmt"

	"github.com/hitoshi/wishwall/internal/moderation"
)

// runAdmin は admin 配下のサブコマンドを実行する。
func (rt *runtime) runAdmin(ctx context.Context, args []string) error {
	sub, rest, err := ParseAdminCommand(args)
	if err != nil {
		return err
	}

	ctrl := moderation.NewController(ctx, rt.admin, rt.cfg.PageSize, rt.logger)

	switch sub {
	case AdminLogin:
		return rt.adminLogin(ctx, ctrl, rest)
	case AdminLogout:
		if err := ctrl.Logout(ctx); err != nil {
			return err
		}
		return rt.render.Message("已登出")
	case AdminStats:
		if err := ctrl.Refresh(ctx); err != nil {
			return err
		}
		return rt.render.Stats(ctrl.Snapshot().Stats)
	case AdminWishes:
		return rt.adminWishes(ctx, rest)
	case AdminHide:
		return rt.adminSetHidden(ctx, ctrl, rest, true)
	case AdminShow:
		return rt.adminSetHidden(ctx, ctrl, rest, false)
	case AdminDelete:
		return rt.adminDelete(ctx, ctrl, rest)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAdminCommand, sub)
	}
}

func (rt *runtime) adminLogin(ctx context.Context, ctrl *moderation.Controller, args []string) error {
	opts, err := ParseLoginOptions(args, rt.flagOutput())
	if err != nil {
		return err
	}
	password, err := rt.readPassword(opts)
	if err != nil {
		return err
	}

	if err := ctrl.Login(ctx, password); err != nil {
		return err
	}

	s := ctrl.Snapshot()
	if err := rt.render.Message(s.Message); err != nil {
		return err
	}
	return rt.render.Stats(s.Stats)
}

func (rt *runtime) adminWishes(ctx context.Context, args []string) error {
	opts, err := ParseAdminWishesOptions(args, rt.cfg.PageSize, rt.flagOutput())
	if err != nil {
		return err
	}

	ctrl := moderation.NewController(ctx, rt.admin, opts.Limit, rt.logger)
	ctrl.SetIncludeHidden(opts.IncludeHidden)
	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}

	s := ctrl.Snapshot()
	return rt.render.Wishes(s.Wishes, s.Stats.TotalWishes)
}

// adminSetHidden は祝福を指定した表示状態にする。
// 対象は一覧の範囲に限らず、IDだけでバックエンドに送る。
func (rt *runtime) adminSetHidden(ctx context.Context, ctrl *moderation.Controller, args []string, hidden bool) error {
	name := "admin show"
	if hidden {
		name = "admin hide"
	}
	opts, err := ParseTargetOptions(name, args, false, rt.flagOutput())
	if err != nil {
		return err
	}

	if err := ctrl.SetHidden(ctx, opts.ID, hidden); err != nil {
		return err
	}
	return rt.render.Message(ctrl.Snapshot().Message)
}

func (rt *runtime) adminDelete(ctx context.Context, ctrl *moderation.Controller, args []string) error {
	opts, err := ParseTargetOptions("admin delete", args, true, rt.flagOutput())
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

	if err := ctrl.Delete(ctx, opts.ID); err != nil {
		return err
	}
	return rt.render.Message(ctrl.Snapshot().Message)
}
