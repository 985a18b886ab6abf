package parser

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apsidata-Solutions/sync-resume/internal/config"
)

func TestNewOpenAIEmbedder(t *testing.T) {
	_, err := NewOpenAIEmbedder("", config.EmbeddingConfig{BaseURL: "http://localhost"})
	assert.Error(t, err, "空API密钥应被拒绝")

	_, err = NewOpenAIEmbedder("sk-test", config.EmbeddingConfig{})
	assert.Error(t, err, "空基础URL应被拒绝")

	embedder, err := NewOpenAIEmbedder("sk-test", config.EmbeddingConfig{
		BaseURL:    "http://localhost:8080/v1",
		Dimensions: 1536,
	})
	require.NoError(t, err)
	assert.Equal(t, 1536, embedder.GetDimensions())
}

func TestEmbedStrings(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path, "基础URL缺少后缀时应自动补全/embeddings")
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"object": "list",
			"data": [
				{"object": "embedding", "embedding": [0.1, 0.2, 0.3], "index": 1},
				{"object": "embedding", "embedding": [0.4, 0.5, 0.6], "index": 0}
			],
			"model": "text-embedding-3-small",
			"usage": {"prompt_tokens": 8, "total_tokens": 8}
		}`))
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder("sk-test", config.EmbeddingConfig{
		BaseURL:    server.URL + "/v1",
		Model:      "text-embedding-3-small",
		Dimensions: 3,
	})
	require.NoError(t, err)

	vectors, err := embedder.EmbedStrings(context.Background(), []string{"first text", "second text"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	// 响应的index乱序时也要按原始顺序排回
	assert.Equal(t, []float64{0.4, 0.5, 0.6}, vectors[0])
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vectors[1])

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "text-embedding-3-small", gotBody["model"])
	assert.Equal(t, float64(3), gotBody["dimensions"])
}

func TestEmbedStringsEmptyInput(t *testing.T) {
	embedder, err := NewOpenAIEmbedder("sk-test", config.EmbeddingConfig{BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)

	vectors, err := embedder.EmbedStrings(context.Background(), nil)
	require.NoError(t, err, "空输入不应发请求")
	assert.Empty(t, vectors)
}

func TestEmbedStringsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"message": "invalid api key", "type": "auth_error"}}`))
	}))
	defer server.Close()

	embedder, err := NewOpenAIEmbedder("sk-bad", config.EmbeddingConfig{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = embedder.EmbedStrings(context.Background(), []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
