// Package cli はsavedctlのコマンドを提供する。
// 保存済みデザインの一覧・保存・削除をstorefront APIに対して実行する。
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/storefront/internal/logger"
	"github.com/hitoshi/storefront/internal/savedsync"
)

// AppName はコマンド名。
const AppName = "savedctl"

// Version はビルド時に-ldflagsで上書きされる。
var Version = "dev"

const defaultBaseURL = "http://localhost:8080"

// state はサブコマンド間で共有する実行時の状態。
type state struct {
	open     Opener
	backend  Backend
	registry *savedsync.Registry
	userID   string
	jsonOut  bool
	timeout  time.Duration
}

// NewRootCmd はルートコマンドを生成する。openがnilの場合はOpenBackendを使う。
func NewRootCmd(version string, open Opener) *cobra.Command {
	if open == nil {
		open = OpenBackend
	}
	st := &state{open: open}

	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Manage saved designs on a storefront",
		Long:          "savedctl lists, saves and removes saved designs through the storefront API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if st.registry != nil {
				st.registry.Close()
			}
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	flags := cmd.PersistentFlags()
	flags.String("url", envOr("STOREFRONT_URL", defaultBaseURL), "storefront base URL")
	flags.String("token", os.Getenv("STOREFRONT_TOKEN"), "session token")
	flags.String("user", "me", "local label for the session")
	flags.Bool("offline", false, "use an in-process store with the seed catalog")
	flags.Bool("json", false, "output in JSON format")
	flags.Bool("verbose", false, "log debug output to stderr")
	flags.Duration("timeout", 20*time.Second, "timeout for each remote call")

	cmd.AddCommand(
		newListCmd(st),
		newSaveCmd(st),
		newRemoveCmd(st),
		newDesignsCmd(st),
	)

	return cmd
}

// Execute はsavedctlを実行する。
func Execute() error {
	return NewRootCmd(Version, nil).Execute()
}

// setup はフラグを読み取り、バックエンドとRegistryを準備する。
// ヘルプ表示で接続しないよう、各サブコマンドの実行時に呼ぶ。
func (st *state) setup(cmd *cobra.Command) error {
	if st.backend != nil {
		return nil
	}

	flags := cmd.Flags()
	baseURL, _ := flags.GetString("url")
	token, _ := flags.GetString("token")
	offline, _ := flags.GetBool("offline")
	verbose, _ := flags.GetBool("verbose")
	st.userID, _ = flags.GetString("user")
	st.jsonOut, _ = flags.GetBool("json")
	st.timeout, _ = flags.GetDuration("timeout")

	if verbose {
		logger.SetLevel("debug")
	} else {
		logger.SetLevel("warn")
	}
	log := logger.Setup(cmd.ErrOrStderr())

	backend, err := st.open(Options{
		BaseURL: baseURL,
		Token:   token,
		Offline: offline,
		Timeout: st.timeout,
		Logger:  log,
	})
	if err != nil {
		return writeCommandError(cmd, err)
	}
	st.backend = backend
	st.registry = savedsync.NewRegistry(backend, log, 0)
	return nil
}

func (st *state) synchronizer() *savedsync.Synchronizer {
	return st.registry.Acquire(st.userID)
}

// withTimeout はリモート呼び出し1回分のタイムアウト付きコンテキストを返す。
func (st *state) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if st.timeout <= 0 {
		return context.WithCancel(cmd.Context())
	}
	return context.WithTimeout(cmd.Context(), st.timeout)
}

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	if savedsync.KindOf(err) == savedsync.ErrorKindRemoteUnavailable {
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: check --url and that the token is still valid")
	}
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
