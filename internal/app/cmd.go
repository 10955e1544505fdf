package app

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	CommandServe       Command = "serve"
	CommandWorker      Command = "worker"
	CommandMigrate     Command = "migrate"
	CommandSeed        Command = "seed"
	CommandSession     Command = "session"
	CommandHealthcheck Command = "healthcheck"
	CommandHelp        Command = "help"
)

// commandTable はサブコマンドと説明の一覧。表示順を兼ねる。
var commandTable = []struct {
	cmd     Command
	args    string
	summary string
}{
	{CommandServe, "", "HTTP APIサーバーを起動する（既定）"},
	{CommandWorker, "", "セッション掃除と重複保存の整理を定期実行する"},
	{CommandMigrate, "[up|down|version]", "データベースマイグレーションを操作する"},
	{CommandSeed, "", "カタログに初期デザインを投入する"},
	{CommandSession, "[revoke] <email>", "運用向けにセッショントークンを発行または失効する"},
	{CommandHealthcheck, "", "ローカルの/healthを確認する（distroless用）"},
	{CommandHelp, "", "この一覧を表示する"},
}

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	switch args[0] {
	case "-h", "--help":
		return CommandHelp
	}
	for _, c := range commandTable {
		if string(c.cmd) == args[0] {
			return c.cmd
		}
	}
	return CommandServe
}

// WriteUsage はサブコマンドの一覧をwに書き出す。
func WriteUsage(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "usage: storefront <command> [args]"); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range commandTable {
		fmt.Fprintf(tw, "  %s %s\t%s\n", c.cmd, c.args, c.summary)
	}
	return tw.Flush()
}
