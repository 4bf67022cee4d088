// Package response はHTTP/1.1レスポンスの組み立てと送信を担う
//
// 出力できるヘッダーは Content-Length と Content-Type のみ。
// Connection, Date, Server などは付与しない。
package response

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// DefaultChunkSize はストリーム送信のデフォルトチャンクサイズ
const DefaultChunkSize = 1024

// Header はレスポンスヘッダー1件
type Header struct {
	Name  string
	Value string
}

// Response は1接続につき1つだけ作られるレスポンス
type Response struct {
	StatusCode int
	Headers    []Header
	Body       []byte // 固定長のボディ (ヘッダーと一緒に送信)

	// Stream が設定されている場合、ヘッダー送信後にチャンク単位で送信する
	Stream io.Reader
	// OnChunk はチャンクの書き込みが成功するたびに呼ばれる
	OnChunk func(n int)
}

// Empty はボディなしで Content-Length: 0 を持つレスポンスを返す
func Empty(status int) *Response {
	return &Response{
		StatusCode: status,
		Headers:    []Header{{Name: "Content-Length", Value: "0"}},
	}
}

// HTML は Content-Type: text/html のレスポンスを返す
// Content-Length は付与しないため、ボディの終端は接続のクローズで示される
func HTML(status int, body string) *Response {
	return &Response{
		StatusCode: status,
		Headers:    []Header{{Name: "Content-Type", Value: "text/html"}},
		Body:       []byte(body),
	}
}

// Streamed は長さが既知のストリームを送信するレスポンスを返す
func Streamed(status int, size int64, stream io.Reader, onChunk func(int)) *Response {
	return &Response{
		StatusCode: status,
		Headers:    []Header{{Name: "Content-Length", Value: strconv.FormatInt(size, 10)}},
		Stream:     stream,
		OnChunk:    onChunk,
	}
}

// StatusLine は "HTTP/1.1 200 OK" 形式のステータス行を返す
func (r *Response) StatusLine() string {
	return fmt.Sprintf("HTTP/1.1 %d %s", r.StatusCode, http.StatusText(r.StatusCode))
}

// Head はステータス行とヘッダー、空行までのバイト列を返す
func (r *Response) Head() []byte {
	var b strings.Builder
	b.WriteString(r.StatusLine())
	b.WriteString("\r\n")
	for _, h := range r.Headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	return []byte(b.String())
}

// Send はレスポンスを w に書き込み、書き込んだバイト数を返す
// ストリームは chunkSize ごとに送信する。途中で書き込みに失敗した場合は
// リトライせずにエラーを返す。
func (r *Response) Send(w io.Writer, chunkSize int) (int64, error) {
	head := append(r.Head(), r.Body...)
	n, err := w.Write(head)
	written := int64(n)
	if err != nil {
		return written, err
	}
	if r.Stream == nil {
		return written, nil
	}

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	buf := make([]byte, chunkSize)
	for {
		nr, rerr := r.Stream.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, werr
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
			if r.OnChunk != nil {
				r.OnChunk(nw)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, fmt.Errorf("ストリームの読み込みに失敗: %w", rerr)
		}
	}
}
