package bot

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/familyschedule/internal/logger"
)

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		b.handleMessage(update.Message)
	} else if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !b.cfg.IsAllowedUser(userID) {
		logger.Warn("telegram access denied", "user", userID)
		b.SendMessage(chatID, "⛔ Åtkomst nekad")
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	b.SendMessage(chatID, "Skriv /help för att se kommandona")
}

func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	userID := callback.From.ID
	chatID := callback.Message.Chat.ID
	msgID := callback.Message.MessageID

	if !b.cfg.IsAllowedUser(userID) {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "⛔ Åtkomst nekad"))
		return
	}

	action, err := parseCallback(callback.Data)
	if err != nil {
		b.api.Request(tgbotapi.NewCallback(callback.ID, "Okänd knapp"))
		return
	}

	switch action.kind {
	case "week":
		text, kb, err := b.weekMessage(action.offset)
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, "❌ "+err.Error()))
			return
		}
		b.editMessage(chatID, msgID, text, &kb)

	case "member":
		text, kb, err := b.memberMessage(action.memberID, action.offset)
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, "❌ "+err.Error()))
			return
		}
		b.editMessage(chatID, msgID, text, &kb)

	case "today":
		text, err := b.scheduleService.FormatToday()
		if err != nil {
			b.api.Request(tgbotapi.NewCallback(callback.ID, "❌ "+err.Error()))
			return
		}
		kb := weekKeyboard(0)
		b.editMessage(chatID, msgID, text, &kb)
	}

	b.api.Request(tgbotapi.NewCallback(callback.ID, ""))
}

type callbackAction struct {
	kind     string
	memberID string
	offset   int
}

// parseCallback decodes "week:<offset>", "member:<id>:<offset>" and "today".
func parseCallback(data string) (callbackAction, error) {
	parts := strings.Split(data, ":")

	switch parts[0] {
	case "today":
		return callbackAction{kind: "today"}, nil
	case "week":
		if len(parts) != 2 {
			break
		}
		offset, err := strconv.Atoi(parts[1])
		if err != nil {
			return callbackAction{}, err
		}
		return callbackAction{kind: "week", offset: offset}, nil
	case "member":
		if len(parts) != 3 || parts[1] == "" {
			break
		}
		offset, err := strconv.Atoi(parts[2])
		if err != nil {
			return callbackAction{}, err
		}
		return callbackAction{kind: "member", memberID: parts[1], offset: offset}, nil
	}
	return callbackAction{}, &unknownCallbackError{data: data}
}

type unknownCallbackError struct {
	data string
}

func (e *unknownCallbackError) Error() string {
	return "unknown callback " + strconv.Quote(e.data)
}
