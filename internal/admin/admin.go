// Package admin は統計情報をJSONで公開する管理用APIを提供する
//
// 本体のHTTPサーバーとは別のアドレスで待ち受ける。デフォルトでは無効。
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"minihttpd/internal/config"
	"minihttpd/internal/stats"
)

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はサーバー状態のレスポンス
type StatusResponse struct {
	Status    string         `json:"status"`
	Server    ServerInfo     `json:"server"`
	Stats     stats.Snapshot `json:"stats"`
	Uptime    string         `json:"uptime"`
	Timestamp time.Time      `json:"timestamp"`
}

// ServerInfo は本体サーバーの設定情報
type ServerInfo struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	MaxConnections int    `json:"max_connections"`
	StaticRoot     string `json:"static_root"`
}

// Handler は管理APIのハンドラ
type Handler struct {
	config  *config.Config
	stats   stats.Reader
	started time.Time
}

// NewHandler は新しいHandlerを作成する
func NewHandler(cfg *config.Config, reader stats.Reader) *Handler {
	return &Handler{config: cfg, stats: reader, started: time.Now()}
}

// HealthCheck はヘルスチェックエンドポイントの実装
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// GetStats は統計カウンタを返す
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

// GetStatus はシステム状態取得エンドポイントの実装
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{
		Status: "running",
		Server: ServerInfo{
			Host:           h.config.Server.Host,
			Port:           h.config.Server.Port,
			MaxConnections: h.config.Server.MaxConnections,
			StaticRoot:     h.config.Static.Root,
		},
		Stats:     h.stats.Snapshot(),
		Uptime:    time.Since(h.started).Truncate(time.Second).String(),
		Timestamp: time.Now(),
	})
}

// Routes はルーティング済みのginエンジンを返す
func (h *Handler) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", h.HealthCheck)
	api := r.Group("/api")
	api.GET("/stats", h.GetStats)
	api.GET("/status", h.GetStatus)
	return r
}

// Server は管理APIのHTTPサーバー
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer は新しい管理APIサーバーを作成する
func NewServer(cfg *config.Config, reader stats.Reader, logger *slog.Logger) *Server {
	return &Server{
		logger: logger,
		httpServer: &http.Server{
			Addr:              cfg.Admin.Addr,
			Handler:           NewHandler(cfg, reader).Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Serve は ln で管理APIを提供する。Shutdown されるまで戻らない
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("管理APIを起動しています", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("管理APIの起動に失敗: %w", err)
	}
	return nil
}

// ListenAndServe は設定されたアドレスで管理APIを提供する
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("管理APIの待ち受けに失敗: %w", err)
	}
	return s.Serve(ln)
}

// Shutdown は管理APIをグレースフルに停止する
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("管理APIのシャットダウンに失敗: %w", err)
	}
	return nil
}
