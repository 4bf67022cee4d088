package response

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmpty(t *testing.T) {
	var buf bytes.Buffer
	n, err := Empty(http.StatusMethodNotAllowed).Send(&buf, 0)
	require.NoError(t, err)

	want := "HTTP/1.1 405 Method Not Allowed\r\nContent-Length: 0\r\n\r\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, int64(len(want)), n)
}

func TestHTML(t *testing.T) {
	var buf bytes.Buffer
	_, err := HTML(http.StatusOK, "<p>hi</p>").Send(&buf, 0)
	require.NoError(t, err)

	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Type: text/html\r\n\r\n<p>hi</p>", buf.String())
}

func TestStreamed_Chunks(t *testing.T) {
	data := strings.Repeat("x", 2500)
	var chunks []int

	var buf bytes.Buffer
	resp := Streamed(http.StatusOK, int64(len(data)), strings.NewReader(data), func(n int) {
		chunks = append(chunks, n)
	})
	_, err := resp.Send(&buf, 1024)
	require.NoError(t, err)

	assert.Equal(t, []int{1024, 1024, 452}, chunks)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 2500\r\n\r\n"+data, buf.String())
}

func TestStreamed_EmptyFile(t *testing.T) {
	called := false
	var buf bytes.Buffer
	_, err := Streamed(http.StatusOK, 0, strings.NewReader(""), func(int) { called = true }).Send(&buf, 1024)
	require.NoError(t, err)

	assert.False(t, called)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n", buf.String())
}

// failingWriter は limit バイトを超えた書き込みで失敗する
type failingWriter struct {
	limit   int
	written int
}

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		return 0, errors.New("broken pipe")
	}
	w.written += len(p)
	return len(p), nil
}

func TestStreamed_WriteFailureAborts(t *testing.T) {
	data := strings.Repeat("y", 4096)
	sent := 0

	head := Streamed(http.StatusOK, int64(len(data)), nil, nil).Head()
	w := &failingWriter{limit: len(head) + 1024}

	resp := Streamed(http.StatusOK, int64(len(data)), strings.NewReader(data), func(n int) { sent += n })
	_, err := resp.Send(w, 1024)
	require.Error(t, err)

	// 失敗したチャンクはカウントしない
	assert.Equal(t, 1024, sent)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestStreamed_ReadFailure(t *testing.T) {
	var buf bytes.Buffer
	_, err := Streamed(http.StatusOK, 10, errReader{}, nil).Send(&buf, 1024)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
