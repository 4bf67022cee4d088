package admin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minihttpd/internal/config"
	"minihttpd/internal/logging"
	"minihttpd/internal/stats"
)

func TestHandler_Endpoints(t *testing.T) {
	reg := stats.New()
	reg.RecordRequest(64)
	reg.RecordSent(512)

	router := NewHandler(config.Default(), reg).Routes()

	testCases := []struct {
		name           string
		endpoint       string
		expectedStatus int
	}{
		{"ヘルスチェック", "/health", http.StatusOK},
		{"統計", "/api/stats", http.StatusOK},
		{"ステータス", "/api/status", http.StatusOK},
		{"存在しないパス", "/api/unknown", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.endpoint, nil)
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.expectedStatus, rec.Code)
		})
	}
}

func TestHandler_GetStats(t *testing.T) {
	reg := stats.New()
	reg.RecordRequest(64)
	reg.RecordRequest(36)
	reg.RecordSent(512)

	router := NewHandler(config.Default(), reg).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got stats.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, int64(2), got.TotalRequests)
	assert.Equal(t, int64(100), got.TotalReceivedBytes)
	assert.Equal(t, int64(512), got.TotalSentBytes)
}

func TestHandler_GetStatus(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 8080
	router := NewHandler(cfg, stats.New()).Routes()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "running", got.Status)
	assert.Equal(t, 8080, got.Server.Port)
	assert.Equal(t, "./static", got.Server.StaticRoot)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := NewServer(config.Default(), stats.New(), logging.NewDiscardLogger())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("管理APIの停止がタイムアウトしました")
	}
}
