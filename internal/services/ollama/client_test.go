package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.1:8b", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)

		require.NoError(t, json.NewEncoder(w).Encode(ChatResponse{
			Model:   req.Model,
			Message: Message{Role: "assistant", Content: "hi there"},
			Done:    true,
		}))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	resp, err := client.Chat(context.Background(), "llama3.1:8b", []Message{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Message.Content)
	assert.True(t, resp.Done)
}

func TestChatServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	_, err := client.Chat(context.Background(), "bogus", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	// No retry on failure.
	assert.Equal(t, int32(1), calls.Load())
}

func TestChatUnreachable(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	defer client.Close()

	_, err := client.Chat(context.Background(), "llama3.1:8b", nil)
	assert.Error(t, err)
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(tagsResponse{
			Models: []ModelInfo{{Name: "llama3.1:8b"}, {Name: "gemma2:9b"}},
		}))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	infos, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "llama3.1:8b", infos[0].Name)
}

func TestLoadedModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ps", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(psResponse{
			Models: []LoadedModel{{Name: "gemma2:9b", Size: 5_400_000_000}},
		}))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	loaded, err := client.LoadedModels(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "gemma2:9b", loaded[0].Name)
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(tagsResponse{}))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	assert.NoError(t, client.Health(context.Background()))

	server.Close()
	assert.Error(t, client.Health(context.Background()))
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(server.URL)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Chat(ctx, "llama3.1:8b", nil)
	assert.Error(t, err)
}
