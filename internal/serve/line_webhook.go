package serve

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/samsaffron/line-llm/internal/backend"
	"github.com/samsaffron/line-llm/internal/config"
	"github.com/samsaffron/line-llm/internal/flex"
	"github.com/samsaffron/line-llm/internal/metrics"
	"github.com/samsaffron/line-llm/internal/session"
)

const (
	signatureHeader = "X-Line-Signature"
	maxWebhookBody  = 1 << 20

	// Handled event ids are remembered this long to drop redeliveries.
	seenEventsSize = 4096
	seenEventsTTL  = time.Hour
)

// DispatcherConfig is the LINE channel configuration used per request.
type DispatcherConfig struct {
	ChannelSecret      string
	ChannelAccessToken string
	ClearCommand       string
	ClearReply         string
	ImagePrompt        string
	RichRendering      bool
	Render             flex.Options
}

// DispatcherConfigFrom derives a DispatcherConfig from the loaded config.
func DispatcherConfigFrom(cfg *config.Config) DispatcherConfig {
	return DispatcherConfig{
		ChannelSecret:      cfg.Line.ChannelSecret,
		ChannelAccessToken: cfg.Line.ChannelAccessToken,
		ClearCommand:       cfg.Line.ClearCommand,
		ClearReply:         cfg.Line.ClearReply,
		ImagePrompt:        cfg.Line.ImagePrompt,
		RichRendering:      cfg.Line.RichRendering,
		Render:             flex.Options{ExactLineRemoval: cfg.Render.LegacyTableLineRemoval},
	}
}

// Dispatcher is the webhook handler: it verifies a request, routes each
// event to its conversation, invokes the backend, renders the answer and
// replies through the Messaging API.
type Dispatcher struct {
	cfg      DispatcherConfig
	backend  backend.Backend
	store    session.Store
	line     lineClient
	renderer *flex.Renderer
	seen     *expirable.LRU[string, struct{}]
	metrics  *metrics.Observer
	logger   *slog.Logger
}

// NewDispatcher builds a Dispatcher. A nil store keeps no conversation state.
func NewDispatcher(cfg DispatcherConfig, settings Settings) *Dispatcher {
	logger := settings.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store := settings.Store
	if store == nil {
		store = &session.NoopStore{}
	}
	return &Dispatcher{
		cfg:      cfg,
		backend:  settings.Backend,
		store:    store,
		line:     newLineAPI(cfg.ChannelAccessToken),
		renderer: flex.NewRenderer(cfg.Render, logger.With("component", "flex")),
		seen:     expirable.NewLRU[string, struct{}](seenEventsSize, nil, seenEventsTTL),
		metrics:  settings.Metrics,
		logger:   logger,
	}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		d.metrics.Request(http.StatusMethodNotAllowed)
		writeText(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	err := d.handle(r)
	status := statusFor(err)
	d.metrics.Request(status)
	if err != nil {
		d.logger.Warn("webhook failed", "status", status, "error", err)
		writeText(w, status, err.Error())
		return
	}
	writeText(w, http.StatusOK, "ok")
}

// handle runs VERIFY then dispatches every event in order, stopping at the
// first error. Requests that cannot be processed at all are acknowledged.
func (d *Dispatcher) handle(r *http.Request) error {
	signature := r.Header.Get(signatureHeader)
	if signature == "" {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return &requestError{Err: err}
	}
	if len(body) == 0 {
		return nil
	}
	if d.cfg.ChannelSecret == "" || d.cfg.ChannelAccessToken == "" {
		d.logger.Warn("webhook received but LINE channel credentials are not configured")
		return nil
	}
	if !validSignature(d.cfg.ChannelSecret, signature, body) {
		return &AuthError{Reason: "signature mismatch"}
	}

	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return &requestError{Err: err}
	}

	ctx := r.Context()
	for _, raw := range cb.Events {
		ev := classifyEvent(raw)
		if ev == nil {
			d.logger.Debug("ignoring webhook event", "type", fmt.Sprintf("%T", raw))
			continue
		}
		if err := d.dispatch(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// validSignature checks base64(HMAC-SHA256(secret, body)) in constant time.
func validSignature(secret, signature string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (d *Dispatcher) dispatch(ctx context.Context, ev lineEvent) error {
	meta := ev.meta()
	if meta.eventID != "" && d.seen.Contains(meta.eventID) {
		d.logger.Info("skipping redelivered event", "event_id", meta.eventID)
		d.metrics.Event(meta.kind, "duplicate")
		return nil
	}

	var err error
	switch e := ev.(type) {
	case textEvent:
		err = d.handleText(ctx, e)
	case imageEvent:
		err = d.handleImage(ctx, e)
	}
	if err != nil {
		d.metrics.Event(meta.kind, "failed")
		return err
	}
	if meta.eventID != "" {
		d.seen.Add(meta.eventID, struct{}{})
	}
	return nil
}

func (d *Dispatcher) handleText(ctx context.Context, e textEvent) error {
	text := strings.TrimSpace(e.text)
	if text == "" {
		d.metrics.Event(e.kind, "empty")
		return nil
	}

	key := conversationKey(d.cfg.ChannelSecret, e.source)
	conversationID := d.conversationID(ctx, key)

	if conversationID != "" && d.isClearCommand(text) {
		if err := d.store.Delete(ctx, key); err != nil {
			d.logger.Warn("clear conversation failed", "error", err)
		}
		if err := d.reply(ctx, e.replyToken, textReply(d.cfg.ClearReply)); err != nil {
			return err
		}
		d.logger.Info("conversation cleared", "source", e.source.Type)
		d.metrics.Event(e.kind, "cleared")
		return nil
	}

	return d.converse(ctx, e.eventMeta, key, conversationID, text, nil)
}

func (d *Dispatcher) handleImage(ctx context.Context, e imageEvent) error {
	outcome, file, err := d.uploadImage(ctx, e)
	switch outcome {
	case imageFetchFailed, imageUnsupported:
		d.metrics.Event(e.kind, string(outcome))
		return nil
	case imageUploadFailed:
		return err
	}

	key := conversationKey(d.cfg.ChannelSecret, e.source)
	conversationID := d.conversationID(ctx, key)
	return d.converse(ctx, e.eventMeta, key, conversationID, d.cfg.ImagePrompt, []backend.File{*file})
}

// imageOutcome is the result of moving an image from LINE to the backend.
type imageOutcome string

const (
	imageUploaded     imageOutcome = "uploaded"
	imageFetchFailed  imageOutcome = "fetch_failed"
	imageUnsupported  imageOutcome = "unsupported"
	imageUploadFailed imageOutcome = "upload_failed"
)

// uploadImage fetches the image content and uploads it to the backend.
// Only imageUploadFailed carries an error for the caller to return.
func (d *Dispatcher) uploadImage(ctx context.Context, e imageEvent) (imageOutcome, *backend.File, error) {
	uploader, ok := d.backend.(backend.Uploader)
	if !ok {
		d.logger.Info("backend does not accept files; ignoring image", "backend", d.backend.Name())
		return imageUnsupported, nil, nil
	}

	start := time.Now()
	data, contentType, err := d.line.FetchContent(ctx, e.messageID)
	d.metrics.BackendCall("fetch_content", time.Since(start), err)
	if err != nil {
		d.logger.Warn("fetch image content failed", "message_id", e.messageID, "error", err)
		return imageFetchFailed, nil, nil
	}

	start = time.Now()
	file, err := uploader.Upload(ctx, backend.UploadRequest{
		Filename: "line-" + e.messageID,
		Data:     data,
		MimeType: contentType,
		User:     backendUser(e.source),
	})
	d.metrics.BackendCall("upload", time.Since(start), err)
	if err != nil {
		return imageUploadFailed, nil, &BackendError{Op: "upload", Err: err}
	}
	return imageUploaded, file, nil
}

// converse runs INVOKE, RENDER and DELIVER for one user turn.
func (d *Dispatcher) converse(ctx context.Context, ev eventMeta, key, conversationID, query string, files []backend.File) error {
	start := time.Now()
	resp, err := d.backend.Chat(ctx, backend.ChatRequest{
		Query:          query,
		Inputs:         ev.source.inputs(),
		User:           backendUser(ev.source),
		ConversationID: conversationID,
		Files:          files,
	})
	d.metrics.BackendCall("chat", time.Since(start), err)
	if err != nil {
		return &BackendError{Op: "chat", Err: err}
	}

	if resp.ConversationID != "" {
		if err := d.store.Set(ctx, key, []byte(resp.ConversationID)); err != nil {
			d.logger.Warn("store conversation id failed", "error", err)
		}
	}

	messages, path := d.buildReply(resp.Answer)
	if err := d.reply(ctx, ev.replyToken, messages); err != nil {
		return err
	}
	d.metrics.Render(path)
	d.metrics.Event(ev.kind, "replied")
	d.logger.Debug("replied", "source", ev.source.Type, "render", path, "messages", len(messages))
	return nil
}

// conversationID returns the stored id for key. Store failures are logged
// and treated as a new conversation.
func (d *Dispatcher) conversationID(ctx context.Context, key string) string {
	value, err := d.store.Get(ctx, key)
	if err != nil {
		d.logger.Warn("load conversation id failed", "error", err)
		return ""
	}
	return string(value)
}

func (d *Dispatcher) isClearCommand(text string) bool {
	return d.cfg.ClearCommand != "" && strings.EqualFold(text, d.cfg.ClearCommand)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
