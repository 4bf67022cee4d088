package server

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"minihttpd/internal/handler"
	"minihttpd/internal/request"
	"minihttpd/internal/stats"
)

// worker は1つの接続を read → parse → 集計 → route/応答 → close の順に処理する
type worker struct {
	conn    net.Conn
	id      string
	logger  *slog.Logger
	stats   *stats.Register
	handler handler.Handler

	limits       request.Limits
	bufferSize   int
	chunkSize    int
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// run は接続を処理して必ずクローズする
// パニックを含め、どの経路でも呼び出し元に制御を投げない
func (w *worker) run() {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("接続の処理中にパニックが発生しました", "conn_id", w.id, "panic", r)
		}
		_ = w.conn.Close()
	}()

	// Read: 1回だけ読み込む
	buf := make([]byte, w.bufferSize)
	if w.readTimeout > 0 {
		_ = w.conn.SetReadDeadline(time.Now().Add(w.readTimeout))
	}
	n, err := w.conn.Read(buf)
	if n <= 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			w.transportError(OpRead, err)
		}
		return
	}

	// Parse
	req := w.limits.Parse(buf[:n])

	// Account
	w.stats.RecordRequest(n)

	// Route + Respond
	resp := w.handler.Handle(req)
	if c, ok := resp.Stream.(io.Closer); ok {
		defer c.Close()
	}

	out := &deadlineWriter{conn: w.conn, timeout: w.writeTimeout}
	if _, err := resp.Send(out, w.chunkSize); err != nil {
		w.transportError(OpWrite, err)
	}
}

func (w *worker) transportError(op Op, err error) {
	terr := newTransportError(op, err)
	w.stats.RecordTransportError()
	w.logger.Warn("接続を破棄しました", "conn_id", w.id, "error", terr)
}

// deadlineWriter は書き込みのたびに書き込み期限を更新する
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (d *deadlineWriter) Write(p []byte) (int, error) {
	if d.timeout > 0 {
		if err := d.conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
			return 0, err
		}
	}
	return d.conn.Write(p)
}
