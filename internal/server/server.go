package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/semaphore"

	"minihttpd/internal/admin"
	"minihttpd/internal/config"
	"minihttpd/internal/handler"
	"minihttpd/internal/logging"
	"minihttpd/internal/request"
	"minihttpd/internal/stats"
)

// Server は接続ごとにワーカーを起動するHTTPサーバー
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	stats   *stats.Register
	files   handler.FileSource
	handler handler.Handler
	limits  request.Limits

	// 同時処理数の制限 (nil の場合は無制限)
	sem *semaphore.Weighted

	// 処理中の接続
	conns *xsync.MapOf[string, net.Conn]
	wg    sync.WaitGroup

	mu        sync.Mutex
	listener  *Listener
	admin     *admin.Server
	stopServe context.CancelFunc
}

// Option はServerの生成オプション
type Option func(*Server)

// WithLogger はロガーを指定する
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithStats は統計カウンタを指定する
func WithStats(reg *stats.Register) Option {
	return func(s *Server) { s.stats = reg }
}

// WithFileSource は静的ファイルの取得元を指定する
func WithFileSource(files handler.FileSource) Option {
	return func(s *Server) { s.files = files }
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		config: cfg,
		logger: logging.NewDiscardLogger(),
		stats:  stats.New(),
		limits: request.Limits{
			MaxTokenLength: cfg.Server.MaxTokenLength,
			MaxPathLength:  cfg.Server.MaxPathLength,
		},
		conns: xsync.NewMapOf[string, net.Conn](),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.files == nil {
		s.files = handler.NewDirSource(cfg.Static.Root)
	}
	s.handler = handler.NewRouter(s.files, s.stats)
	if cfg.Server.MaxConnections > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.Server.MaxConnections))
	}
	return s
}

// Stats は統計カウンタを返す
func (s *Server) Stats() *stats.Register {
	return s.stats
}

// Addr は待ち受け中のアドレスを返す。待ち受け前は nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start はサーバーを起動する
// ctx の終了かシグナルを受け取るとグレースフルにシャットダウンする
func (s *Server) Start(ctx context.Context) error {
	ln, err := Listen(ctx, s.config.ServerAddress(), s.logger)
	if err != nil {
		return fmt.Errorf("待ち受けに失敗: %w", err)
	}

	// シャットダウン用のチャンネル
	serveCh := make(chan error, 2)

	serveCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// serve ゴルーチンの開始前に Shutdown から閉じられるようにしておく
	s.mu.Lock()
	s.listener = ln
	s.stopServe = cancel
	s.mu.Unlock()

	// サーバーを別ゴルーチンで起動
	go func() {
		serveCh <- s.serve(serveCtx, ln)
	}()

	if s.config.Admin.Enabled {
		s.startAdmin(serveCh)
	}

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", "signal", sig.String())
	case err := <-serveCh:
		if err != nil {
			_ = s.Shutdown(context.Background())
			return err
		}
	}

	// グレースフルシャットダウン
	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeout)
	defer cancelShutdown()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) startAdmin(errCh chan<- error) {
	a := admin.NewServer(s.config, s.stats, s.logger.With("component", "admin"))
	s.mu.Lock()
	s.admin = a
	s.mu.Unlock()

	go func() {
		if err := a.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()
}

// Serve は ln で受け付けた接続を処理する
// ln が閉じられるか ctx が終了するまで戻らない
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	return s.serve(ctx, NewListener(ln, s.logger))
}

func (s *Server) serve(ctx context.Context, ln *Listener) error {
	ln.onError = func(*TransportError) { s.stats.RecordTransportError() }

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 受け付けループ自身もShutdownの待機対象にする
	s.wg.Add(1)
	defer s.wg.Done()

	s.mu.Lock()
	s.listener = ln
	s.stopServe = cancel
	s.mu.Unlock()

	// ctx の終了で Accept のブロックを解除する
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.logger.Info("サーバーを起動しました", "addr", ln.Addr().String(), "port", portOf(ln.Addr()))

	for conn := range ln.Connections(ctx) {
		// 同時処理数の上限に達している場合は空きを待つ
		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				_ = conn.Close()
				break
			}
		}
		s.dispatch(conn)
	}
	return nil
}

// dispatch はワーカーを起動する。ワーカーの終了は待たない
func (s *Server) dispatch(conn net.Conn) {
	id := uuid.NewString()
	s.logger.Info("接続を受け付けました", "remote", conn.RemoteAddr().String(), "conn_id", id)

	s.conns.Store(id, conn)
	s.stats.ConnectionOpened()
	s.wg.Add(1)

	w := &worker{
		conn:         conn,
		id:           id,
		logger:       s.logger,
		stats:        s.stats,
		handler:      s.handler,
		limits:       s.limits,
		bufferSize:   s.config.Server.ReadBufferSize,
		chunkSize:    s.config.Static.ChunkSize,
		readTimeout:  s.config.Server.ReadTimeout,
		writeTimeout: s.config.Server.WriteTimeout,
	}

	go func() {
		defer func() {
			s.conns.Delete(id)
			s.stats.ConnectionClosed()
			if s.sem != nil {
				s.sem.Release(1)
			}
			s.wg.Done()
		}()
		w.run()
	}()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 新しい接続の受け付けを止め、処理中のワーカーの終了を待つ。
// ctx が先に終了した場合は残りの接続を強制的に閉じる。
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("サーバーをシャットダウンしています...")

	s.mu.Lock()
	ln, a, stop := s.listener, s.admin, s.stopServe
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("リスナーのクローズに失敗しました", "error", err)
		}
	}

	var adminErr error
	if a != nil {
		adminErr = a.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("サーバーが正常にシャットダウンされました")
		return adminErr
	case <-ctx.Done():
	}

	// 猶予期間を過ぎたので処理中の接続を閉じる
	closed := 0
	s.conns.Range(func(id string, conn net.Conn) bool {
		_ = conn.Close()
		closed++
		return true
	})
	s.logger.Warn("猶予期間を超えたため接続を強制的に閉じました", "connections", closed)
	<-done

	return errors.Join(adminErr, fmt.Errorf("サーバーのシャットダウンに失敗: %w", ctx.Err()))
}

func portOf(addr net.Addr) int {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}
