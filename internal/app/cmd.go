package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Command はCLIのサブコマンドを表す。
type Command string

const (
	// CommandList は祝福一覧を表示する。引数が無い場合の既定。
	CommandList Command = "list"
	// CommandPost は祝福を投稿する。
	CommandPost Command = "post"
	// CommandLike は祝福にいいねする。
	CommandLike Command = "like"
	// CommandDelete は自分の祝福を削除する。
	CommandDelete Command = "delete"
	// CommandWhoami はクライアント識別子と管理者ログイン状態を表示する。
	CommandWhoami Command = "whoami"
	// CommandWatch は一覧を定期的に読み直し、ステータスサーバーを起動する。
	CommandWatch Command = "watch"
	// CommandMigrate はプロファイルストアのマイグレーションを実行する。
	CommandMigrate Command = "migrate"
	// CommandAdmin は管理者向けのサブコマンド群。
	CommandAdmin Command = "admin"
)

// AdminCommand は admin 配下のサブコマンドを表す。
type AdminCommand string

const (
	AdminLogin  AdminCommand = "login"
	AdminLogout AdminCommand = "logout"
	AdminStats  AdminCommand = "stats"
	AdminWishes AdminCommand = "wishes"
	AdminHide   AdminCommand = "hide"
	AdminShow   AdminCommand = "show"
	AdminDelete AdminCommand = "delete"
)

// ErrUnknownAdminCommand は admin 配下の未知のサブコマンドを表す。
var ErrUnknownAdminCommand = errors.New("unknown admin command")

// ParseCommand はコマンドライン引数からサブコマンドと残りの引数を解析する。
// 引数が空またはサポート外のコマンドの場合はCommandListを返す。
// サポート外の場合、先頭の引数もlistのフラグとして残す。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandList, nil
	}

	switch cmd := Command(args[0]); cmd {
	case CommandList, CommandPost, CommandLike, CommandDelete,
		CommandWhoami, CommandWatch, CommandMigrate, CommandAdmin:
		return cmd, args[1:]
	default:
		return CommandList, args
	}
}

// ParseAdminCommand は admin 配下のサブコマンドを解析する。
func ParseAdminCommand(args []string) (AdminCommand, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: (empty)", ErrUnknownAdminCommand)
	}
	switch cmd := AdminCommand(args[0]); cmd {
	case AdminLogin, AdminLogout, AdminStats, AdminWishes, AdminHide, AdminShow, AdminDelete:
		return cmd, args[1:], nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownAdminCommand, args[0])
	}
}

// ListOptions は list のフラグ。
type ListOptions struct {
	Skip  int
	Limit int
}

// PostOptions は post のフラグ。-content が無い場合は残りの引数を本文にする。
type PostOptions struct {
	Content string
	Name    string
	Tag     string
}

// TargetOptions は祝福IDを1つ取るコマンドのフラグ。
type TargetOptions struct {
	ID  int64
	Yes bool
}

// AdminWishesOptions は admin wishes のフラグ。
type AdminWishesOptions struct {
	IncludeHidden bool
	Limit         int
}

// LoginOptions は admin login のフラグ。
type LoginOptions struct {
	PasswordStdin bool
}

func newFlagSet(name string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	return fs
}

// ParseListOptions は list の引数を解析する。limitの既定はページサイズ。
func ParseListOptions(args []string, pageSize int, output io.Writer) (ListOptions, error) {
	var opts ListOptions
	fs := newFlagSet("list", output)
	fs.IntVar(&opts.Skip, "skip", 0, "読み飛ばす件数")
	fs.IntVar(&opts.Limit, "limit", pageSize, "取得する最大件数")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// ParsePostOptions は post の引数を解析する。
func ParsePostOptions(args []string, output io.Writer) (PostOptions, error) {
	var opts PostOptions
	fs := newFlagSet("post", output)
	fs.StringVar(&opts.Content, "content", "", "祝福の本文")
	fs.StringVar(&opts.Name, "name", "", "署名（空なら神秘人）")
	fs.StringVar(&opts.Tag, "tag", "greeting", "greeting | retrospective | aspiration")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Content == "" {
		opts.Content = strings.Join(fs.Args(), " ")
	}
	return opts, nil
}

// ParseTargetOptions は like / delete / admin hide などの引数を解析する。
// withYes が true の場合は確認を省略する -yes フラグを受け付ける。
func ParseTargetOptions(name string, args []string, withYes bool, output io.Writer) (TargetOptions, error) {
	var opts TargetOptions
	fs := newFlagSet(name, output)
	if withYes {
		fs.BoolVar(&opts.Yes, "yes", false, "確認せずに実行する")
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		return opts, fmt.Errorf("%s: wish id is required", name)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return opts, fmt.Errorf("%s: invalid wish id %q", name, fs.Arg(0))
	}
	opts.ID = id
	return opts, nil
}

// ParseAdminWishesOptions は admin wishes の引数を解析する。
func ParseAdminWishesOptions(args []string, pageSize int, output io.Writer) (AdminWishesOptions, error) {
	var opts AdminWishesOptions
	fs := newFlagSet("admin wishes", output)
	fs.BoolVar(&opts.IncludeHidden, "hidden", true, "非表示の祝福も含める")
	fs.IntVar(&opts.Limit, "limit", pageSize, "取得する最大件数")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

// ParseLoginOptions は admin login の引数を解析する。
func ParseLoginOptions(args []string, output io.Writer) (LoginOptions, error) {
	var opts LoginOptions
	fs := newFlagSet("admin login", output)
	fs.BoolVar(&opts.PasswordStdin, "password-stdin", false, "標準入力の1行目をパスワードとして読む")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}
