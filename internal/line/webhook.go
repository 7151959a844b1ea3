package line

import (
	"encoding/json"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Типы событий webhook.
const (
	EventTypeMessage  = "message"
	EventTypeFollow   = "follow"
	EventTypeUnfollow = "unfollow"
	EventTypePostback = "postback"
)

// Event: событие webhook.
type Event struct {
	Type       string
	ReplyToken string
	Timestamp  int64
	Source     EventSource
	Message    *EventMessage
	Postback   *Postback
}

// EventSource: отправитель события.
type EventSource struct {
	Type   string
	UserID string
}

// EventMessage: входящее сообщение.
type EventMessage struct {
	ID   string
	Type string
	Text string
}

// Postback: данные нажатой postback-кнопки.
type Postback struct {
	Data string
}

// ParseEvents разбирает тело webhook. Подпись к этому моменту уже должна быть проверена.
// События, которые бот не обрабатывает, пропускаются.
func ParseEvents(body []byte) ([]Event, error) {
	const op = "line.ParseEvents"

	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	events := make([]Event, 0, len(cb.Events))
	for _, raw := range cb.Events {
		if ev, ok := convertEvent(raw); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func convertEvent(raw webhook.EventInterface) (Event, bool) {
	switch e := raw.(type) {
	case webhook.MessageEvent:
		ev := Event{
			Type:       EventTypeMessage,
			ReplyToken: e.ReplyToken,
			Timestamp:  e.Timestamp,
			Source:     convertSource(e.Source),
		}
		if m, ok := e.Message.(webhook.TextMessageContent); ok {
			ev.Message = &EventMessage{ID: m.Id, Type: "text", Text: m.Text}
		}
		return ev, true
	case webhook.FollowEvent:
		return Event{
			Type:       EventTypeFollow,
			ReplyToken: e.ReplyToken,
			Timestamp:  e.Timestamp,
			Source:     convertSource(e.Source),
		}, true
	case webhook.UnfollowEvent:
		return Event{
			Type:      EventTypeUnfollow,
			Timestamp: e.Timestamp,
			Source:    convertSource(e.Source),
		}, true
	case webhook.PostbackEvent:
		ev := Event{
			Type:       EventTypePostback,
			ReplyToken: e.ReplyToken,
			Timestamp:  e.Timestamp,
			Source:     convertSource(e.Source),
		}
		if e.Postback != nil {
			ev.Postback = &Postback{Data: e.Postback.Data}
		}
		return ev, true
	default:
		return Event{}, false
	}
}

func convertSource(raw webhook.SourceInterface) EventSource {
	switch s := raw.(type) {
	case webhook.UserSource:
		return EventSource{Type: "user", UserID: s.UserId}
	case webhook.GroupSource:
		return EventSource{Type: "group", UserID: s.UserId}
	case webhook.RoomSource:
		return EventSource{Type: "room", UserID: s.UserId}
	default:
		return EventSource{}
	}
}
