package messaging

import "strings"

// Тексты ответов бота.
const (
	textSubmission   = "🌱 納品申請ができます"
	labelSubmission  = "申請画面を開く"
	textHistory      = "📋 申請履歴を確認できます"
	labelHistory     = "履歴を確認"
	textAdmin        = "👑 管理者ダッシュボードにアクセスできます"
	labelAdmin       = "管理画面を開く"
	textAdminDenied  = "申し訳ございませんが、管理者権限が必要です。"
	textInactive     = "申し訳ございませんが、現在アカウントが無効になっています。管理者までお問い合わせください。"
	textPostbackYes  = "承知いたしました。"
	textPostbackNo   = "キャンセルいたします。"
	fallbackUserName = "お客様"

	textHelp = "🌱 野菜集荷管理システム 使い方\n\n" +
		"📝 申請関連:\n「納品登録」「申請」「登録」→ 新しい申請\n\n" +
		"📋 確認関連:\n「確認」「履歴」「一覧」→ 申請履歴\n\n" +
		"👑 管理者機能:\n「管理」「admin」「かんり」→ 管理画面\n\n" +
		"❓ ヘルプ:\n「ヘルプ」「help」「使い方」→ この説明\n\n" +
		"何かご不明な点がございましたら、管理者までお問い合わせください。"

	textDefault = "申し訳ございませんが、そのメッセージは認識できませんでした。😅\n\n" +
		"以下のコマンドをお試しください：\n\n" +
		"📝「申請」- 納品申請\n" +
		"📋「履歴」- 申請履歴\n" +
		"👑「管理」- 管理画面（管理者のみ）\n" +
		"❓「ヘルプ」- 使い方\n\n" +
		"お困りの際は「ヘルプ」と送信してください。"

	textWelcomeFormat = "%sさん、友だち追加ありがとうございます！🌱\n\n" +
		"野菜集荷管理システムへようこそ。\n\n" +
		"💡 使い方:\n" +
		"• 「申請」と送信すると納品申請ができます\n" +
		"• 「履歴」と送信すると過去の申請を確認できます\n" +
		"• 「ヘルプ」と送信すると詳しい使い方を見れます\n\n" +
		"お気軽にメッセージを送ってください！"
)

// Command: распознанная команда текстового сообщения.
type Command int

const (
	CommandUnknown Command = iota
	CommandSubmit
	CommandHistory
	CommandAdmin
	CommandHelp
)

// Порядок проверки важен: первая совпавшая группа побеждает.
var keywordGroups = []struct {
	cmd      Command
	keywords []string
}{
	{CommandSubmit, []string{"納品登録", "申請", "登録", "submit", "application"}},
	{CommandHistory, []string{"確認", "履歴", "一覧", "history", "list", "check"}},
	{CommandAdmin, []string{"管理", "admin", "かんり", "management"}},
	{CommandHelp, []string{"ヘルプ", "help", "使い方", "つかいかた", "usage", "?", "？"}},
}

// ParseCommand сопоставляет текст с группами ключевых слов по подстроке без учёта регистра.
func ParseCommand(text string) Command {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return CommandUnknown
	}
	for _, g := range keywordGroups {
		for _, kw := range g.keywords {
			if strings.Contains(normalized, kw) {
				return g.cmd
			}
		}
	}
	return CommandUnknown
}
