package serve

import (
	"context"
	"fmt"
	"io"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// maxContentBytes caps downloaded message content (LINE images are well below this).
const maxContentBytes = 20 << 20

// lineClient is the subset of the Messaging API used by the dispatcher,
// allowing tests to supply a fake without a live channel.
type lineClient interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	FetchContent(ctx context.Context, messageID string) (data []byte, contentType string, err error)
}

// lineAPI talks to the real Messaging API with a channel access token.
type lineAPI struct {
	token string
}

func newLineAPI(token string) *lineAPI {
	return &lineAPI{token: token}
}

// Reply sends messages with a reply token. SDK clients carry their context
// as mutable state, so each call gets its own client.
func (a *lineAPI) Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	bot, err := messaging_api.NewMessagingApiAPI(a.token)
	if err != nil {
		return fmt.Errorf("create messaging client: %w", err)
	}
	_, err = bot.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// FetchContent downloads the binary content of a user message.
func (a *lineAPI) FetchContent(ctx context.Context, messageID string) ([]byte, string, error) {
	blob, err := messaging_api.NewMessagingApiBlobAPI(a.token)
	if err != nil {
		return nil, "", fmt.Errorf("create blob client: %w", err)
	}
	resp, err := blob.WithContext(ctx).GetMessageContent(messageID)
	if err != nil {
		return nil, "", fmt.Errorf("get message content %s: %w", messageID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read message content %s: %w", messageID, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
