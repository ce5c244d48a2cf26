package embedding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/CTpeJLok/ai-chat/internal/config"
	"github.com/CTpeJLok/ai-chat/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init("error", "console", "")
	os.Exit(m.Run())
}

func testConfig(baseURL string) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "test-model",
		Dimensions: Dimensions,
	}
}

func TestNewClientRejectsWrongDimensions(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Dimensions = 768

	_, err := NewClient(cfg)
	require.Error(t, err)
}

func TestCreateEmbeddingSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	vector, err := client.CreateEmbedding(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestCreateEmbeddingUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestCreateEmbeddingMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestCreateEmbeddingEmptyVector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestCreateEmbeddingUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 立即关闭：模拟网络层失败

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = client.CreateEmbedding(context.Background(), "hello")
	assert.True(t, errors.Is(err, ErrUnavailable))
}
