package line

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// VerifySignature сверяет заголовок x-line-signature с подписью
// исходных байтов тела. Тело нельзя разбирать и сериализовать заново до проверки.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	return webhook.ValidateSignature(secret, signature, body)
}
