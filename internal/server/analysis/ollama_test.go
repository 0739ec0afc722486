package analysis

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medchain/medchain-server/internal/common"
	"github.com/medchain/medchain-server/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func newGateway(baseURL string) *OllamaGateway {
	return NewOllamaGateway(OllamaConfig{
		BaseURL: baseURL,
		Model:   "llama3.2",
		Timeout: 2 * time.Second,
	}, testLogger())
}

func pdfMeta() Metadata {
	return Metadata{
		RecordID:    "r1",
		Title:       "Discharge summary",
		Description: "post-op follow-up",
		MediaKind:   "pdf",
		SizeBytes:   2048,
	}
}

func TestAnalyze_Summary(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{Model: "llama3.2", Response: " Stable post-op course. \n"})
	}))
	defer srv.Close()

	result, err := newGateway(srv.URL).Analyze(context.Background(), pdfMeta(), []byte("%PDF-1.4"))
	require.NoError(t, err)

	assert.Equal(t, "Stable post-op course.", result.Summary)
	assert.Equal(t, "llama3.2", result.Model)
	assert.Equal(t, "llama3.2", got.Model)
	assert.False(t, got.Stream)
	assert.Contains(t, got.Prompt, "Discharge summary")
	assert.Contains(t, got.Prompt, "post-op follow-up")
	assert.Empty(t, got.Images, "non-image payloads are described, not attached")
}

func TestAnalyze_ImageAttachesPayload(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{Response: "An X-ray of the left wrist."})
	}))
	defer srv.Close()

	meta := pdfMeta()
	meta.MediaKind = "image"
	result, err := newGateway(srv.URL).Analyze(context.Background(), meta, []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)

	require.Len(t, got.Images, 1)
	assert.Equal(t, "iVBORw==", got.Images[0])
	assert.True(t, strings.HasPrefix(got.Prompt, "The attached image"))
	// Model name falls back to config when the backend omits it.
	assert.Equal(t, "llama3.2", result.Model)
}

func TestAnalyze_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Response: "  "})
	}))
	defer srv.Close()

	_, err := newGateway(srv.URL).Analyze(context.Background(), pdfMeta(), nil)
	require.ErrorIs(t, err, common.ErrAnalysisFault)
}

func TestAnalyze_RetriesServerErrors(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(generateResponse{Response: "Recovered."})
	}))
	defer srv.Close()

	result, err := newGateway(srv.URL).Analyze(context.Background(), pdfMeta(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Recovered.", result.Summary)
	assert.Equal(t, 3, calls)
}

func TestAnalyze_ClientErrorNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newGateway(srv.URL).Analyze(context.Background(), pdfMeta(), nil)
	require.ErrorIs(t, err, common.ErrAnalysisFault)
	assert.Equal(t, 1, calls)
}

func TestAnalyze_BackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newGateway(srv.URL).Analyze(context.Background(), pdfMeta(), nil)
	require.ErrorIs(t, err, common.ErrAnalysisFault)
}
