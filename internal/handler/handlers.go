package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"minihttpd/internal/request"
	"minihttpd/internal/response"
	"minihttpd/internal/stats"
)

// StaticHandler は公開ディレクトリ以下のファイルを配信する
type StaticHandler struct {
	files FileSource
	stats stats.Recorder
}

// NewStaticHandler は新しいStaticHandlerを作成する
func NewStaticHandler(files FileSource, recorder stats.Recorder) *StaticHandler {
	return &StaticHandler{files: files, stats: recorder}
}

// Handle は "/static" を取り除いた残りのパスでファイルを開く
// 見つからない場合は 404、見つかった場合は Content-Length 付きでストリーム送信する。
// 送信済みバイト数はチャンクごとに加算する。
func (h *StaticHandler) Handle(req request.Request) *response.Response {
	name := strings.TrimPrefix(req.Path, StaticPrefix)
	// クエリ文字列はファイル名に含めない
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}

	rc, size, err := h.files.Open(name)
	if err != nil {
		return NotFound(req)
	}

	// 送信完了後に閉じる
	stream := &closingReader{rc: rc}
	return response.Streamed(http.StatusOK, size, stream, h.stats.RecordSent)
}

// closingReader はEOFかエラーに達した時点で元のReadCloserを閉じる
type closingReader struct {
	rc     io.ReadCloser
	closed bool
}

func (c *closingReader) Read(p []byte) (int, error) {
	if c.closed {
		return 0, io.EOF
	}
	n, err := c.rc.Read(p)
	if err != nil {
		_ = c.Close()
	}
	return n, err
}

// Close は元のReadCloserを閉じる (複数回呼んでもよい)
func (c *closingReader) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rc.Close()
}

// StatsHandler は統計情報をHTMLで返す
type StatsHandler struct {
	stats stats.Reader
}

// NewStatsHandler は新しいStatsHandlerを作成する
func NewStatsHandler(reader stats.Reader) *StatsHandler {
	return &StatsHandler{stats: reader}
}

// Handle は処理時点のカウンタ値を埋め込んだHTMLを返す
// Content-Length は付与しない
func (h *StatsHandler) Handle(_ request.Request) *response.Response {
	s := h.stats.Snapshot()
	body := fmt.Sprintf("<html><body><h1>Server Stats</h1>"+
		"<p>Total Requests: %d</p>"+
		"<p>Total Received Bytes: %d</p>"+
		"<p>Total Sent Bytes: %d</p>"+
		"</body></html>",
		s.TotalRequests, s.TotalReceivedBytes, s.TotalSentBytes)
	return response.HTML(http.StatusOK, body)
}

// Calc は "/calc?a=<int>&b=<int>" の a と b の和を返す
func Calc(req request.Request) *response.Response {
	a, b := ParseOperands(req.Path)
	// オーバーフロー時はラップアラウンドする
	sum := a + b
	body := fmt.Sprintf("<html><body><h1>Calculation Result</h1>"+
		"<p>%d + %d = %d</p>"+
		"</body></html>", a, b, sum)
	return response.HTML(http.StatusOK, body)
}

// ParseOperands はパスが "/calc?a=%d&b=%d" に一致する場合に a と b を返す
// 一致しない場合やどちらかの値が無い場合は両方とも 0 を返す
func ParseOperands(path string) (a, b int64) {
	if _, err := fmt.Sscanf(path, "/calc?a=%d&b=%d", &a, &b); err != nil {
		return 0, 0
	}
	return a, b
}

// NotFound は 404 を返す
func NotFound(_ request.Request) *response.Response {
	return response.Empty(http.StatusNotFound)
}

// MethodNotAllowed は 405 を返す
func MethodNotAllowed(_ request.Request) *response.Response {
	return response.Empty(http.StatusMethodNotAllowed)
}
