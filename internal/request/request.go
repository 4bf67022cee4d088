// Package request は接続から読み込んだ生バイト列のリクエストラインを解析する
package request

import (
	"bytes"
)

// デフォルトのトークン長上限
const (
	DefaultMaxTokenLength = 16
	DefaultMaxPathLength  = 2048
)

// Request は解析済みのリクエストライン
// 解析に失敗したフィールドは空文字列になる
type Request struct {
	Method  string
	Path    string // クエリ文字列を含む
	Version string
}

// Limits はトークン長の上限
// 上限を超えたトークンは空文字列として扱う
type Limits struct {
	MaxTokenLength int // メソッドとバージョン
	MaxPathLength  int
}

// DefaultLimits はデフォルトの上限を返す
func DefaultLimits() Limits {
	return Limits{
		MaxTokenLength: DefaultMaxTokenLength,
		MaxPathLength:  DefaultMaxPathLength,
	}
}

// Parse はデフォルトの上限でリクエストラインを解析する
func Parse(buf []byte) Request {
	return DefaultLimits().Parse(buf)
}

// Parse はバッファの最初の行から method, path, version を取り出す
// ヘッダーやボディは無視する。不正な入力でもエラーにはせず、
// 取り出せなかったフィールドを空のまま返す。
func (l Limits) Parse(buf []byte) Request {
	// リクエストライン前の空行は読み飛ばす
	buf = bytes.TrimLeft(buf, "\r\n")
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		buf = buf[:i]
	}

	fields := bytes.FieldsFunc(buf, isSpace)

	var req Request
	if len(fields) > 0 {
		req.Method = limit(string(fields[0]), l.MaxTokenLength)
	}
	if len(fields) > 1 {
		req.Path = limit(string(fields[1]), l.MaxPathLength)
	}
	if len(fields) > 2 {
		req.Version = limit(string(fields[2]), l.MaxTokenLength)
	}
	return req
}

// isSpace はASCIIの空白文字だけを区切りとして扱う
// U+00A0 などのUnicode空白はパスの一部として残す
func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func limit(token string, max int) string {
	if max > 0 && len(token) > max {
		return ""
	}
	return token
}
