package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatEngineRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "vision-model", req.Model)
		require.Len(t, req.Messages, 1)
		require.Len(t, req.Messages[0].Content, 2)
		assert.Equal(t, "prompt", req.Messages[0].Content[0].Text)
		require.NotNil(t, req.Messages[0].Content[1].ImageURL)
		assert.True(t, strings.HasPrefix(req.Messages[0].Content[1].ImageURL.URL, "data:image/jpeg;base64,"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","choices":[{"index":0,"message":{"role":"assistant","content":"Line 1\nLine 2"}}]}`))
	}))
	defer server.Close()

	engine := NewChatEngine("secret", "vision-model", server.URL+"/v1/")
	text, err := engine.Recognize(context.Background(), "prompt", &Image{Data: []byte{0xff, 0xd8}, MIMEType: MIMETypeJPEG})

	require.NoError(t, err)
	assert.Equal(t, "Line 1\nLine 2", text)
	assert.Equal(t, "openai/vision-model", engine.Name())
}

func TestChatEngineHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	engine := NewChatEngine("wrong", "m", server.URL)
	_, err := engine.Recognize(context.Background(), "prompt", &Image{MIMEType: MIMETypeJPEG})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestChatEngineNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"1","choices":[]}`))
	}))
	defer server.Close()

	_, err := NewChatEngine("k", "m", server.URL).Recognize(context.Background(), "p", &Image{MIMEType: MIMETypeJPEG})
	assert.Error(t, err)
}
