package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mira/internal/cache"
	"mira/internal/capability"
	"mira/internal/config"
	"mira/internal/dispatch"
	"mira/internal/media"
	"mira/internal/pipeline"
	"mira/internal/staging"
)

func newTestServer(t *testing.T, vision capability.Vision) *Server {
	t.Helper()

	store, err := cache.New(t.TempDir(), time.Hour, nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Initialize())

	stager, err := staging.New(t.TempDir(), nil)
	require.NoError(t, err)

	reg := capability.NewRegistry()
	if vision == nil {
		vision = &capability.MockVision{Description: "a blue bicycle"}
	}
	require.NoError(t, reg.Register(capability.NameVisionAnalyzeImage, vision))
	require.NoError(t, reg.Register(capability.NameSpeechTranscribeAudio, &capability.MockSpeech{}))
	require.NoError(t, reg.Register(capability.NameDocumentAnalyzeDocument, &capability.MockDocument{}))

	p := pipeline.New(store, stager, dispatch.New(reg, nil), nil)
	cfg := config.ServerConfig{Host: "localhost", Port: 8721, EnableCORS: true}
	return New(cfg, p, nil)
}

func postJSON(t *testing.T, srv *Server, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestProcessMediaEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := postJSON(t, srv, "/api/media/process", map[string]any{
		"data":            base64.StdEncoding.EncodeToString([]byte("twelve bytes")),
		"file_name":       "bike.png",
		"kind":            "image",
		"project_id":      "p1",
		"user_id":         "u1",
		"conversation_id": "c1",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool         `json:"success"`
		Data    media.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "a blue bicycle", resp.Data.Text)
	assert.Equal(t, "bike.png", resp.Data.Metadata.FileName)
	assert.Equal(t, int64(12), resp.Data.Metadata.FileSize)
}

func TestProcessMediaRejectsUnsupportedKind(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := postJSON(t, srv, "/api/media/process", map[string]any{
		"data": base64.StdEncoding.EncodeToString([]byte("clip")),
		"kind": "video",
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported media kind")
}

func TestProcessMediaRejectsBadPayload(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := postJSON(t, srv, "/api/media/process", map[string]any{
		"data": "not-base64!!!",
		"kind": "image",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "base64")

	rec = postJSON(t, srv, "/api/media/process", map[string]any{"kind": "image"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessMediaBackendFailureIsBadGateway(t *testing.T) {
	srv := newTestServer(t, &capability.MockVision{Err: assert.AnError})

	rec := postJSON(t, srv, "/api/media/process", map[string]any{
		"data": base64.StdEncoding.EncodeToString([]byte("pic")),
		"kind": "image",
	})

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "analysis failed")
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
