// Package stats はプロセス全体で共有される統計カウンタを提供する
//
// 全てのワーカーから並行に更新されるため、カウンタは外部に公開せず
// アトミックな加算と読み取りのメソッドだけを提供する。
// リセットや削除の操作は存在しない。
package stats

import (
	"go.uber.org/atomic"
)

// Snapshot はある時点のカウンタ値
type Snapshot struct {
	TotalRequests      int64 `json:"total_requests"`
	TotalReceivedBytes int64 `json:"total_received_bytes"`
	TotalSentBytes     int64 `json:"total_sent_bytes"`
	ActiveConnections  int64 `json:"active_connections"`
	TransportErrors    int64 `json:"transport_errors"`
}

// Recorder はワーカーやハンドラが使う更新用インターフェース
type Recorder interface {
	// RecordRequest はリクエスト1件と受信バイト数を加算する
	RecordRequest(receivedBytes int)
	// RecordSent は送信バイト数を加算する
	RecordSent(sentBytes int)
}

// Reader は統計の読み取り用インターフェース
type Reader interface {
	Snapshot() Snapshot
}

// Register はプロセス全体で1つだけ存在するカウンタの束
type Register struct {
	requests      atomic.Int64
	receivedBytes atomic.Int64
	sentBytes     atomic.Int64

	// 接続の追跡用
	active          atomic.Int64
	transportErrors atomic.Int64
}

// New は新しいRegisterを作成する
func New() *Register {
	return &Register{}
}

// RecordRequest はリクエスト1件と受信バイト数を加算する
func (r *Register) RecordRequest(receivedBytes int) {
	r.requests.Inc()
	r.receivedBytes.Add(int64(receivedBytes))
}

// RecordSent は送信バイト数を加算する
func (r *Register) RecordSent(sentBytes int) {
	r.sentBytes.Add(int64(sentBytes))
}

// ConnectionOpened はアクティブ接続数を1増やす
func (r *Register) ConnectionOpened() {
	r.active.Inc()
}

// ConnectionClosed はアクティブ接続数を1減らす
func (r *Register) ConnectionClosed() {
	r.active.Dec()
}

// RecordTransportError は通信エラーの件数を加算する
func (r *Register) RecordTransportError() {
	r.transportErrors.Inc()
}

// Snapshot は現在のカウンタ値を返す
// 各カウンタは個別にアトミックに読むため、カウンタ間の整合性は保証しない
func (r *Register) Snapshot() Snapshot {
	return Snapshot{
		TotalRequests:      r.requests.Load(),
		TotalReceivedBytes: r.receivedBytes.Load(),
		TotalSentBytes:     r.sentBytes.Load(),
		ActiveConnections:  r.active.Load(),
		TransportErrors:    r.transportErrors.Load(),
	}
}
