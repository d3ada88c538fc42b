package app

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションのクリーンアップワーカーで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// NewRootCommand はprintpressのCLIを構成する。
// サブコマンドが指定されない場合はserveとして動作する。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "printpress",
		Short:         "Quote request backend for the print shop storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithConfig(cmd, w, CommandServe)
		},
	}
	root.SetOut(w)
	root.SetErr(w)

	root.AddCommand(
		&cobra.Command{
			Use:   string(CommandServe),
			Short: "Start the HTTP API server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runWithConfig(cmd, w, CommandServe)
			},
		},
		&cobra.Command{
			Use:   string(CommandWorker),
			Short: "Periodically delete expired sessions",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runWithConfig(cmd, w, CommandWorker)
			},
		},
		&cobra.Command{
			Use:   string(CommandMigrate),
			Short: "Apply all pending database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runWithConfig(cmd, w, CommandMigrate)
			},
		},
		newHealthcheckCommand(),
	)

	return root
}

// newHealthcheckCommand は設定の読み込みを行わない軽量なヘルスチェックコマンドを返す。
func newHealthcheckCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   string(CommandHealthcheck),
		Short: "Probe GET /health on the local server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHealthcheck(port)
		},
	}

	defaultPort := os.Getenv("SERVER_PORT")
	if defaultPort == "" {
		defaultPort = "5000"
	}
	cmd.Flags().StringVar(&port, "port", defaultPort, "port of the local API server")
	return cmd
}
