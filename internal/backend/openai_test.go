package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const responseJSON = `{
  "id": "resp_2",
  "object": "response",
  "created_at": 1,
  "status": "completed",
  "model": "gpt-test",
  "output": [
    {"type": "reasoning", "id": "rs_1", "summary": []},
    {"type": "message", "id": "msg_1", "role": "assistant", "status": "completed",
     "content": [
       {"type": "output_text", "text": "Hello ", "annotations": []},
       {"type": "output_text", "text": "world", "annotations": []}
     ]}
  ]
}`

func TestOpenAIChat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/responses", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, responseJSON)
	}))
	defer srv.Close()

	client := NewOpenAI(OpenAIOptions{
		APIKey:       "sk-test",
		BaseURL:      srv.URL + "/v1/",
		Model:        "gpt-test",
		Instructions: "be brief",
		HTTPClient:   srv.Client(),
	})
	resp, err := client.Chat(context.Background(), ChatRequest{Query: "hi", User: "U1", ConversationID: "resp_1"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", resp.Answer)
	assert.Equal(t, "resp_2", resp.ConversationID)

	assert.Equal(t, "gpt-test", body["model"])
	assert.Equal(t, "hi", body["input"])
	assert.Equal(t, "be brief", body["instructions"])
	assert.Equal(t, "resp_1", body["previous_response_id"])
	assert.Equal(t, "U1", body["user"])
}

func TestOpenAIChatRestartsExpiredConversation(t *testing.T) {
	var previous []any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		previous = append(previous, body["previous_response_id"])
		w.Header().Set("Content-Type", "application/json")
		if body["previous_response_id"] != nil {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"message":"Previous response not found","type":"invalid_request_error","code":"previous_response_not_found"}}`)
			return
		}
		io.WriteString(w, responseJSON)
	}))
	defer srv.Close()

	client := NewOpenAI(OpenAIOptions{APIKey: "k", BaseURL: srv.URL + "/v1/", HTTPClient: srv.Client()})
	resp, err := client.Chat(context.Background(), ChatRequest{Query: "hi", ConversationID: "resp_gone"})
	require.NoError(t, err)
	assert.Equal(t, "resp_2", resp.ConversationID)
	assert.Equal(t, []any{"resp_gone", nil}, previous)
}

func TestOpenAIHasNoUploader(t *testing.T) {
	var b Backend = NewOpenAI(OpenAIOptions{APIKey: "k"})
	_, ok := b.(Uploader)
	assert.False(t, ok)

	b = NewDify("http://x", "k", nil)
	_, ok = b.(Uploader)
	assert.True(t, ok)
}
