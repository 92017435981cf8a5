package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/portside/shipper/internal/sigkey"
)

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.zip")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestUpload_Success(t *testing.T) {
	var gotPath, gotSig, gotNonce string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSig = r.Header.Get("X-Signature")
		gotNonce = r.Header.Get("X-Nonce")
		gotBody, _ = io.ReadAll(r.Body)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok", "path": "/srv/web/app.zip", "size": len(gotBody),
		})
	}))
	defer srv.Close()

	src := writeSource(t, "archive-bytes")

	var lastSent, lastTotal int64
	res, err := NewClient().Upload(context.Background(), srv.URL, "web", "app.zip", src, true,
		&sigkey.Headers{Timestamp: "1", Nonce: "n", Signature: "s"},
		func(sent, total int64) { lastSent, lastTotal = sent, total })
	require.NoError(t, err)

	require.True(t, res.Success)
	require.Equal(t, "/upload/web/app.zip", gotPath)
	require.Equal(t, "s", gotSig)
	require.Equal(t, "n", gotNonce)
	require.Equal(t, "archive-bytes", string(gotBody))
	require.Equal(t, int64(len("archive-bytes")), lastTotal)
	require.Equal(t, lastTotal, lastSent, "progress should reach the full size")
}

func TestUpload_ReceiverRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "denied", "error": "invalid signature"})
	}))
	defer srv.Close()

	res, err := NewClient().Upload(context.Background(), srv.URL, "web", "app.zip",
		writeSource(t, "x"), false, nil, nil)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, "invalid signature", res.Error)
}

func TestUpload_NonJSONErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient().Upload(context.Background(), srv.URL, "web", "app.zip",
		writeSource(t, "x"), false, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "403")
}

func TestUpload_ConnectionRefused(t *testing.T) {
	_, err := NewClient().Upload(context.Background(), "http://127.0.0.1:1", "web", "app.zip",
		writeSource(t, "x"), false, nil, nil)
	require.Error(t, err)
}

func TestTestConnection(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer healthy.Close()
	require.NoError(t, NewClient().TestConnection(context.Background(), healthy.URL))

	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded"})
	}))
	defer unhealthy.Close()
	require.Error(t, NewClient().TestConnection(context.Background(), unhealthy.URL))

	require.Error(t, NewClient().TestConnection(context.Background(), "http://127.0.0.1:1"))
}

func TestServerInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"service": "deploy-receiver", "version": "3.0.0"})
	}))
	defer srv.Close()

	info, err := NewClient().ServerInfo(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "deploy-receiver", info["service"])
}
