package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const openaiDefaultModel = "gpt-5.2"

// OpenAIOptions configures an OpenAIClient.
type OpenAIOptions struct {
	APIKey       string
	BaseURL      string // empty uses the SDK default
	Model        string
	Instructions string // system prompt sent with every turn
	HTTPClient   *http.Client
}

// OpenAIClient answers chat turns with the Responses API. Conversation state
// lives server side: the response id is the conversation id.
type OpenAIClient struct {
	client       openai.Client
	model        string
	instructions string
}

func NewOpenAI(opts OpenAIOptions) *OpenAIClient {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	model := opts.Model
	if model == "" {
		model = openaiDefaultModel
	}
	return &OpenAIClient{
		client:       openai.NewClient(reqOpts...),
		model:        model,
		instructions: opts.Instructions,
	}
}

func (c *OpenAIClient) Name() string {
	return fmt.Sprintf("openai (%s)", c.model)
}

// Chat sends one turn. Files are not supported and are ignored.
func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	resp, err := c.send(ctx, req)
	// Stored responses expire; start over instead of failing the turn
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound && req.ConversationID != "" {
		req.ConversationID = ""
		resp, err = c.send(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	return &ChatResponse{
		Answer:         outputText(resp),
		ConversationID: resp.ID,
		MessageID:      resp.ID,
	}, nil
}

func (c *OpenAIClient) send(ctx context.Context, req ChatRequest) (*responses.Response, error) {
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(c.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Query),
		},
	}
	if c.instructions != "" {
		params.Instructions = openai.String(c.instructions)
	}
	if req.ConversationID != "" {
		params.PreviousResponseID = openai.String(req.ConversationID)
	}
	if req.User != "" {
		params.User = openai.String(req.User)
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI responses API error: %w", err)
	}
	return resp, nil
}

// outputText concatenates the output_text parts of all message items.
func outputText(resp *responses.Response) string {
	var sb strings.Builder
	for _, item := range resp.Output {
		for _, content := range item.Content {
			if content.Type == "output_text" {
				sb.WriteString(content.Text)
			}
		}
	}
	return sb.String()
}
