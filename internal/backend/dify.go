package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// maxErrorBody caps how much of an error response is kept in the error text.
const maxErrorBody = 4096

// DifyClient calls the Dify service API of a single chat app.
// See https://docs.dify.ai/guides/application-publishing/developing-with-apis
type DifyClient struct {
	BaseURL    string // e.g. "https://api.dify.ai/v1"
	APIKey     string // app API key
	HTTPClient *http.Client
}

func NewDify(baseURL, apiKey string, httpClient *http.Client) *DifyClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DifyClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: httpClient,
	}
}

func (c *DifyClient) Name() string {
	return "dify"
}

// APIError is a non-2xx response from Dify.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("dify API error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("dify API error (status %d): %s", e.StatusCode, e.Message)
}

// conversationMissing reports whether Dify rejected an unknown conversation id.
func (e *APIError) conversationMissing() bool {
	return e.StatusCode == http.StatusNotFound && strings.Contains(strings.ToLower(e.Message), "conversation")
}

type difyChatRequest struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id,omitempty"`
	User           string         `json:"user"`
	Files          []difyFile     `json:"files,omitempty"`
}

type difyFile struct {
	Type           string `json:"type"`
	TransferMethod string `json:"transfer_method"`
	UploadFileID   string `json:"upload_file_id,omitempty"`
	URL            string `json:"url,omitempty"`
}

type difyChatResponse struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
	Answer         string `json:"answer"`
}

type difyUploadResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
}

// Chat sends a blocking chat-messages request. If Dify no longer knows the
// conversation id, the turn is retried as a new conversation.
func (c *DifyClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.chat(ctx, req)
	var apiErr *APIError
	if errors.As(err, &apiErr) && req.ConversationID != "" && apiErr.conversationMissing() {
		req.ConversationID = ""
		resp, err = c.chat(ctx, req)
	}
	return resp, err
}

func (c *DifyClient) chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	inputs := req.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}
	body := difyChatRequest{
		Inputs:         inputs,
		Query:          req.Query,
		ResponseMode:   "blocking",
		ConversationID: req.ConversationID,
		User:           req.User,
	}
	for _, f := range req.Files {
		df := difyFile{Type: f.Type}
		if df.Type == "" {
			df.Type = fileType(f.MimeType)
		}
		if f.ID != "" {
			df.TransferMethod = "local_file"
			df.UploadFileID = f.ID
		} else {
			df.TransferMethod = "remote_url"
			df.URL = f.URL
		}
		body.Files = append(body.Files, df)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat-messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out difyChatResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	return &ChatResponse{
		Answer:         out.Answer,
		ConversationID: out.ConversationID,
		MessageID:      out.MessageID,
	}, nil
}

// Upload stores a file for use in a later chat turn.
func (c *DifyClient) Upload(ctx context.Context, req UploadRequest) (*File, error) {
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("upload %q: empty file", req.Filename)
	}

	mimeType := req.MimeType
	detected := mimetype.Detect(req.Data)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = detected.String()
	}
	mimeType, _, _ = strings.Cut(mimeType, ";")

	filename := req.Filename
	if filename == "" {
		filename = "upload"
	}
	if filepath.Ext(filename) == "" {
		filename += detected.Extension()
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("user", req.User); err != nil {
		return nil, fmt.Errorf("failed to write form: %w", err)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return nil, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/files/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	var out difyUploadResponse
	if err := c.do(httpReq, &out); err != nil {
		return nil, err
	}
	if out.MimeType == "" {
		out.MimeType = mimeType
	}
	return &File{
		ID:        out.ID,
		Name:      out.Name,
		Size:      out.Size,
		Extension: out.Extension,
		MimeType:  out.MimeType,
		Type:      fileType(out.MimeType),
	}, nil
}

// do sends an authenticated request and decodes a JSON response into out.
func (c *DifyClient) do(httpReq *http.Request, out any) error {
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("dify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode dify response: %w", err)
	}
	return nil
}
