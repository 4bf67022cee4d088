package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// ErrorKind は通信エラーの分類
type ErrorKind int

const (
	KindIO      ErrorKind = iota // その他の入出力エラー
	KindTimeout                  // 読み書きの期限切れ
	KindClosed                   // 相手が切断した
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindClosed:
		return "closed"
	default:
		return "io"
	}
}

// Op はエラーが発生した操作
type Op string

const (
	OpAccept Op = "accept"
	OpRead   Op = "read"
	OpWrite  Op = "write"
)

// TransportError は accept/read/write の失敗を表す
// 接続は破棄されるが、サーバー全体は停止しない
type TransportError struct {
	Op   Op
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout は期限切れによるエラーかどうかを返す
func (e *TransportError) Timeout() bool {
	return e.Kind == KindTimeout
}

// newTransportError は err を分類してTransportErrorを作成する
func newTransportError(op Op, err error) *TransportError {
	kind := KindIO
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, io.EOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, syscall.ECONNRESET):
		kind = KindClosed
	}
	return &TransportError{Op: op, Kind: kind, Err: err}
}
