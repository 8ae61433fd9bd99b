// Package backend talks to the conversational service that answers chat
// messages: a Dify chat app or the OpenAI Responses API.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samsaffron/line-llm/internal/config"
)

// ChatRequest is one user turn.
type ChatRequest struct {
	Query          string
	Inputs         map[string]any // structured context (user_id, group_id, ...)
	User           string         // stable end-user identifier
	ConversationID string         // empty starts a new conversation
	Files          []File         // previously uploaded files to attach
}

// ChatResponse is the backend's answer to a ChatRequest.
type ChatResponse struct {
	Answer         string
	ConversationID string // id to send with the next turn; may be empty
	MessageID      string
}

// UploadRequest carries binary content for the backend's file store.
type UploadRequest struct {
	Filename string
	Data     []byte
	MimeType string // sniffed from Data when empty
	User     string
}

// File is an uploaded file handle.
type File struct {
	ID        string
	Name      string
	Size      int64
	Extension string
	MimeType  string
	Type      string // image, document, audio, video or custom
	URL       string // remote URL, when the file was not uploaded
}

// Backend answers chat turns.
type Backend interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}

// Uploader is implemented by backends that accept file uploads.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*File, error)
}

// DefaultTimeout bounds a backend call when none is configured.
const DefaultTimeout = 60 * time.Second

// New builds the backend selected by cfg.Kind.
func New(cfg config.BackendConfig) (Backend, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	switch strings.ToLower(cfg.Kind) {
	case "", config.BackendDify:
		return NewDify(cfg.BaseURL, cfg.APIKey, httpClient), nil
	case config.BackendOpenAI:
		return NewOpenAI(OpenAIOptions{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Model:        cfg.Model,
			Instructions: cfg.Instructions,
			HTTPClient:   httpClient,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend kind %q", cfg.Kind)
	}
}

// fileType maps a MIME type to the file categories chat backends accept.
func fileType(mimeType string) string {
	major, _, _ := strings.Cut(mimeType, "/")
	switch major {
	case "image", "audio", "video":
		return major
	case "text", "application":
		return "document"
	default:
		return "custom"
	}
}
