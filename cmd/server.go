// Package main はminihttpdサーバーコマンドの実装です
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"minihttpd/internal/config"
	"minihttpd/internal/logging"
	"minihttpd/internal/server"
)

// options はコマンドラインオプション
type options struct {
	configPath string
	host       string
	port       int
	staticRoot string
	maxConns   int
	logLevel   string
	format     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "server",
		Short: "静的ファイル・統計・計算を提供するHTTP/1.1サーバー",
		Long: `minihttpd

/static/ 以下のファイル配信、/stats による統計表示、
/calc?a=N&b=M による足し算を提供する小さなHTTP/1.1サーバーです。
1接続につき1リクエストを処理して接続を閉じます。`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// ここから先のエラーでは使用方法を表示しない
			cmd.SilenceUsage = true
			return runServer(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "設定ファイルのパス (YAML/TOML/JSON, 環境変数 "+config.ConfigFileEnv+" でも指定可)")
	flags.StringVar(&opts.host, "host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
	flags.IntVarP(&opts.port, "port", "p", 80, "サーバーのポート")
	flags.StringVar(&opts.staticRoot, "static-root", "", "静的ファイルの公開ディレクトリ (デフォルト: ./static)")
	flags.IntVar(&opts.maxConns, "max-conns", 0, "同時に処理する接続数の上限 (0 は無制限)")
	flags.StringVar(&opts.logLevel, "log-level", "", "ログレベル (debug, info, warn, error)")

	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

// newConfigCmd は実際に使われる設定を表示するサブコマンドを作成する
func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "読み込んだ設定を表示",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true

			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			out, err := cfg.Encode(opts.format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "yaml", "出力フォーマット (yaml, toml, json)")
	return cmd
}

// loadConfig は設定を読み込み、指定されたコマンドラインオプションで上書きする
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("設定の読み込みに失敗しました: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("static-root") {
		cfg.Static.Root = opts.staticRoot
	}
	if flags.Changed("max-conns") {
		cfg.Server.MaxConnections = opts.maxConns
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServer(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(os.Stdout, logging.LevelFromString(cfg.Log.Level))
	srv := server.New(cfg, server.WithLogger(logger))

	if err := srv.Start(cmd.Context()); err != nil {
		return fmt.Errorf("サーバーの起動に失敗しました: %w", err)
	}
	return nil
}
