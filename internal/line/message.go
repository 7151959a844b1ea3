package line

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Ограничения LINE на длину текста шаблона и подписи кнопки.
const (
	maxTemplateText = 160
	maxLabel        = 20
)

// NewText создаёт текстовое сообщение.
func NewText(text string) messaging_api.MessageInterface {
	return messaging_api.TextMessage{Text: text}
}

// NewButtons создаёт шаблон с одной кнопкой-ссылкой.
func NewButtons(text, label, uri string) messaging_api.MessageInterface {
	return &messaging_api.TemplateMessage{
		AltText: text,
		Template: &messaging_api.ButtonsTemplate{
			Text: truncate(text, maxTemplateText),
			Actions: []messaging_api.ActionInterface{
				&messaging_api.UriAction{Label: truncate(label, maxLabel), Uri: uri},
			},
		},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
