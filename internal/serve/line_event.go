package serve

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Event kinds used in logs and metrics.
const (
	kindText  = "text"
	kindImage = "image"
)

// lineEvent is the closed set of webhook events the dispatcher handles.
type lineEvent interface {
	meta() eventMeta
}

// eventMeta is what every handled event carries.
type eventMeta struct {
	kind       string
	eventID    string
	replyToken string
	source     eventSource
}

func (m eventMeta) meta() eventMeta { return m }

type textEvent struct {
	eventMeta
	text string
}

type imageEvent struct {
	eventMeta
	messageID string
}

// eventSource identifies who sent an event. Empty fields are absent.
type eventSource struct {
	Type    string // user, group, room
	UserID  string
	GroupID string
	RoomID  string
}

// classifyEvent maps an SDK event to a lineEvent, or nil for events that
// are acknowledged without handling.
func classifyEvent(raw webhook.EventInterface) lineEvent {
	ev, ok := raw.(webhook.MessageEvent)
	if !ok {
		if p, isPtr := raw.(*webhook.MessageEvent); isPtr && p != nil {
			ev, ok = *p, true
		}
	}
	if !ok {
		return nil
	}

	meta := eventMeta{
		eventID:    ev.WebhookEventId,
		replyToken: ev.ReplyToken,
		source:     sourceOf(ev.Source),
	}
	switch m := ev.Message.(type) {
	case webhook.TextMessageContent:
		meta.kind = kindText
		return textEvent{eventMeta: meta, text: m.Text}
	case *webhook.TextMessageContent:
		meta.kind = kindText
		return textEvent{eventMeta: meta, text: m.Text}
	case webhook.ImageMessageContent:
		meta.kind = kindImage
		return imageEvent{eventMeta: meta, messageID: m.Id}
	case *webhook.ImageMessageContent:
		meta.kind = kindImage
		return imageEvent{eventMeta: meta, messageID: m.Id}
	}
	return nil
}

func sourceOf(src webhook.SourceInterface) eventSource {
	switch s := src.(type) {
	case webhook.UserSource:
		return eventSource{Type: "user", UserID: s.UserId}
	case *webhook.UserSource:
		return sourceOf(*s)
	case webhook.GroupSource:
		return eventSource{Type: "group", GroupID: s.GroupId, UserID: s.UserId}
	case *webhook.GroupSource:
		return sourceOf(*s)
	case webhook.RoomSource:
		return eventSource{Type: "room", RoomID: s.RoomId, UserID: s.UserId}
	case *webhook.RoomSource:
		return sourceOf(*s)
	}
	return eventSource{}
}

// inputs are the structured identity fields passed to the backend.
func (s eventSource) inputs() map[string]any {
	return map[string]any{
		"user_id":     s.UserID,
		"group_id":    s.GroupID,
		"room_id":     s.RoomID,
		"source_type": s.Type,
	}
}

// conversationKey scopes stored conversations to the channel and to the
// group, room or user the event came from, in that order.
func conversationKey(secret string, src eventSource) string {
	id := src.UserID
	switch {
	case src.GroupID != "":
		id = src.GroupID
	case src.RoomID != "":
		id = src.RoomID
	}
	return secret + "_" + id
}

// backendUser is the end-user identifier sent to the backend.
func backendUser(src eventSource) string {
	for _, id := range []string{src.UserID, src.GroupID, src.RoomID} {
		if id != "" {
			return id
		}
	}
	return "line-user"
}
