package main

import (
	"context"
	"os"

	"minihttpd/internal/config"
	"minihttpd/internal/logging"
	"minihttpd/internal/server"
)

func main() {
	logger := logging.NewLogger(os.Stdout, logging.LevelFromString(os.Getenv("LOG_LEVEL")))

	// 設定を読み込む
	cfg, err := config.Load("")
	if err != nil {
		logger.Error("設定の読み込みに失敗しました", "error", err)
		os.Exit(1)
	}

	if cfg.Log.Level != "" {
		logger = logging.NewLogger(os.Stdout, logging.LevelFromString(cfg.Log.Level))
	}

	// サーバーを作成
	srv := server.New(cfg, server.WithLogger(logger))

	// サーバーを起動
	if err := srv.Start(context.Background()); err != nil {
		logger.Error("サーバーの起動に失敗しました", "error", err)
		os.Exit(1)
	}
}
