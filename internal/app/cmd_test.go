package app

import (
	"errors"
	"io"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCmd  Command
		wantRest []string
	}{
		{"empty defaults to list", nil, CommandList, nil},
		{"list", []string{"list", "-limit", "5"}, CommandList, []string{"-limit", "5"}},
		{"post", []string{"post", "-content", "hi"}, CommandPost, []string{"-content", "hi"}},
		{"like", []string{"like", "3"}, CommandLike, []string{"3"}},
		{"delete", []string{"delete", "-yes", "3"}, CommandDelete, []string{"-yes", "3"}},
		{"whoami", []string{"whoami"}, CommandWhoami, []string{}},
		{"watch", []string{"watch"}, CommandWatch, []string{}},
		{"migrate", []string{"migrate"}, CommandMigrate, []string{}},
		{"admin", []string{"admin", "stats"}, CommandAdmin, []string{"stats"}},
		{"unknown keeps args for list", []string{"-limit", "5"}, CommandList, []string{"-limit", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, rest := ParseCommand(tt.args)
			if cmd != tt.wantCmd {
				t.Errorf("ParseCommand(%v) cmd = %q, want %q", tt.args, cmd, tt.wantCmd)
			}
			if len(rest) != len(tt.wantRest) {
				t.Fatalf("ParseCommand(%v) rest = %v, want %v", tt.args, rest, tt.wantRest)
			}
			for i := range rest {
				if rest[i] != tt.wantRest[i] {
					t.Errorf("rest[%d] = %q, want %q", i, rest[i], tt.wantRest[i])
				}
			}
		})
	}
}

func TestParseAdminCommand(t *testing.T) {
	cmd, rest, err := ParseAdminCommand([]string{"hide", "7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != AdminHide || len(rest) != 1 || rest[0] != "7" {
		t.Errorf("got %q %v", cmd, rest)
	}

	for _, args := range [][]string{nil, {"reboot"}} {
		if _, _, err := ParseAdminCommand(args); !errors.Is(err, ErrUnknownAdminCommand) {
			t.Errorf("ParseAdminCommand(%v) error = %v, want ErrUnknownAdminCommand", args, err)
		}
	}
}

func TestParseListOptions_DefaultLimitIsPageSize(t *testing.T) {
	opts, err := ParseListOptions(nil, 42, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Skip != 0 || opts.Limit != 42 {
		t.Errorf("opts = %+v, want skip=0 limit=42", opts)
	}
}

func TestParsePostOptions_PositionalContent(t *testing.T) {
	opts, err := ParsePostOptions([]string{"-name", "小明", "-tag", "aspiration", "万事", "如意"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Content != "万事 如意" {
		t.Errorf("Content = %q, want %q", opts.Content, "万事 如意")
	}
	if opts.Name != "小明" || opts.Tag != "aspiration" {
		t.Errorf("opts = %+v", opts)
	}
}

func TestParsePostOptions_FlagWinsOverPositional(t *testing.T) {
	opts, err := ParsePostOptions([]string{"-content", "新年快乐", "ignored"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Content != "新年快乐" {
		t.Errorf("Content = %q, want %q", opts.Content, "新年快乐")
	}
}

func TestParseTargetOptions(t *testing.T) {
	opts, err := ParseTargetOptions("delete", []string{"-yes", "12"}, true, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.ID != 12 || !opts.Yes {
		t.Errorf("opts = %+v, want id=12 yes=true", opts)
	}

	invalid := [][]string{
		{},
		{"abc"},
		{"0"},
		{"1", "2"},
	}
	for _, args := range invalid {
		if _, err := ParseTargetOptions("like", args, false, io.Discard); err == nil {
			t.Errorf("ParseTargetOptions(%v) should fail", args)
		}
	}

	if _, err := ParseTargetOptions("like", []string{"-yes", "1"}, false, io.Discard); err == nil {
		t.Error("-yes は like では受け付けないべき")
	}
}

func TestParseAdminWishesOptions(t *testing.T) {
	opts, err := ParseAdminWishesOptions([]string{"-hidden=false", "-limit", "20"}, 100, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.IncludeHidden || opts.Limit != 20 {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = ParseAdminWishesOptions(nil, 100, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.IncludeHidden || opts.Limit != 100 {
		t.Errorf("default opts = %+v", opts)
	}
}
