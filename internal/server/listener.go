package server

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net"
	"time"
)

// accept失敗時の待機時間
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = 1 * time.Second
)

// Listener はポートで待ち受け、受け付けた接続を遅延評価のシーケンスとして返す
type Listener struct {
	ln      net.Listener
	logger  *slog.Logger
	onError func(*TransportError)
}

// Listen は addr で待ち受けるListenerを作成する
// バックログの長さはOSの設定に従う
func Listen(ctx context.Context, addr string, logger *slog.Logger) (*Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewListener(ln, logger), nil
}

// NewListener は既存のnet.ListenerをListenerとして扱う
func NewListener(ln net.Listener, logger *slog.Logger) *Listener {
	return &Listener{ln: ln, logger: logger}
}

// Addr は待ち受けアドレスを返す
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Close は待ち受けを停止する。ブロック中の Accept は解除される
func (l *Listener) Close() error {
	return l.ln.Close()
}

// Connections は受け付けた接続の無限シーケンスを返す
// accept の一時的な失敗はログに出して継続する。
// リスナーが閉じられるか ctx が終了した時点でシーケンスは終わる。
func (l *Listener) Connections(ctx context.Context) iter.Seq[net.Conn] {
	return func(yield func(net.Conn) bool) {
		var delay time.Duration
		for {
			conn, err := l.ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
					return
				}

				terr := newTransportError(OpAccept, err)
				l.logger.Warn("接続の受け付けに失敗しました", "error", terr)
				if l.onError != nil {
					l.onError(terr)
				}

				// 連続して失敗する場合は待機時間を伸ばす
				if delay == 0 {
					delay = minAcceptDelay
				} else {
					delay = min(delay*2, maxAcceptDelay)
				}
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return
				}
				continue
			}
			delay = 0

			if !yield(conn) {
				return
			}
		}
	}
}
