package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/samsaffron/line-llm/internal/flex"
	"github.com/samsaffron/line-llm/internal/metrics"
)

// LINE message limits.
const (
	maxReplyMessages = 5
	maxTextRunes     = 5000
	maxAltTextRunes  = 400
)

const emptyAnswer = "(no response)"

// buildReply picks the render path for an answer and returns the
// messages to send along with the path taken.
func (d *Dispatcher) buildReply(answer string) ([]messaging_api.MessageInterface, string) {
	if strings.TrimSpace(answer) == "" {
		return textReply(emptyAnswer), metrics.RenderText
	}

	if d.cfg.RichRendering && needsRichRendering(answer) {
		msg, err := d.flexMessage(answer)
		if err == nil {
			return []messaging_api.MessageInterface{msg}, metrics.RenderFlex
		}
		d.logger.Warn("rich rendering failed; sending text", "error", err)
		d.metrics.RenderFailure(renderFailureReason(err))
		return textReply(answer), metrics.RenderFallback
	}

	if refs := flex.FindImages(answer); len(refs) > 0 {
		if len(refs) > maxReplyMessages {
			d.logger.Warn("dropping image references over the reply limit",
				"found", len(refs), "limit", maxReplyMessages)
			refs = refs[:maxReplyMessages]
		}
		messages := make([]messaging_api.MessageInterface, 0, len(refs))
		for _, ref := range refs {
			messages = append(messages, &messaging_api.ImageMessage{
				OriginalContentUrl: ref.URL,
				PreviewImageUrl:    ref.URL,
			})
		}
		return messages, metrics.RenderImages
	}

	return textReply(answer), metrics.RenderText
}

// errRenderPanic marks a recovered panic from the renderer or the SDK.
var errRenderPanic = errors.New("render panic")

// flexMessage renders answer into a Flex message. The bubble JSON is
// handed to the SDK's own decoder so the reply carries SDK types. The SDK
// re-encodes with extra zero-valued fields, so the size limit is checked
// again on what will actually be sent.
func (d *Dispatcher) flexMessage(answer string) (msg *messaging_api.FlexMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg, err = nil, fmt.Errorf("%w: %v", errRenderPanic, r)
		}
	}()

	data, err := d.renderer.Render(answer).JSON()
	if err != nil {
		return nil, err
	}
	container, err := messaging_api.UnmarshalFlexContainer(data)
	if err != nil {
		return nil, fmt.Errorf("decode flex container: %w", err)
	}
	msg = &messaging_api.FlexMessage{
		AltText:  truncateRunes(answer, maxAltTextRunes),
		Contents: container,
	}
	size, err := flexWireSize(msg)
	if err != nil {
		return nil, err
	}
	if size > flex.MaxBubbleBytes {
		return nil, fmt.Errorf("%w: %d bytes as sent", flex.ErrBubbleTooLarge, size)
	}
	return msg, nil
}

// flexWireSize returns the encoded size of msg's container exactly as the
// SDK serializes it into the reply request.
func flexWireSize(msg *messaging_api.FlexMessage) (int, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("encode flex message: %w", err)
	}
	var wire struct {
		Contents json.RawMessage `json:"contents"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return 0, fmt.Errorf("decode flex message: %w", err)
	}
	return len(wire.Contents), nil
}

func renderFailureReason(err error) string {
	switch {
	case errors.Is(err, flex.ErrBubbleTooLarge):
		return "too_large"
	case errors.Is(err, errRenderPanic):
		return "panic"
	default:
		return "invalid"
	}
}

func textReply(text string) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{
		&messaging_api.TextMessage{Text: truncateRunes(text, maxTextRunes)},
	}
}

// reply delivers messages; any failure is a BackendError so LINE redelivers.
func (d *Dispatcher) reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	if replyToken == "" {
		d.logger.Warn("event has no reply token; dropping reply")
		return nil
	}
	start := time.Now()
	err := d.line.Reply(ctx, replyToken, messages)
	d.metrics.BackendCall("reply", time.Since(start), err)
	if err != nil {
		return &BackendError{Op: "reply", Err: err}
	}
	return nil
}
