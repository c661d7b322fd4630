package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/familyschedule/internal/domain"
)

// Week navigation keyboard
func weekKeyboard(offset int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Förra", fmt.Sprintf("week:%d", offset-1)),
			tgbotapi.NewInlineKeyboardButtonData("📅 Idag", "today"),
			tgbotapi.NewInlineKeyboardButtonData("Nästa ➡️", fmt.Sprintf("week:%d", offset+1)),
		),
	)
}

func memberWeekKeyboard(memberID string, offset int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("member:%s:%d", memberID, offset-1)),
			tgbotapi.NewInlineKeyboardButtonData("🗓 Alla", fmt.Sprintf("week:%d", offset)),
			tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("member:%s:%d", memberID, offset+1)),
		),
	)
}

// One button per member, three per row
func membersKeyboard(members []domain.FamilyMember) tgbotapi.InlineKeyboardMarkup {
	const perRow = 3

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, m := range members {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			truncate(m.Icon+" "+m.Name, 20),
			fmt.Sprintf("member:%s:0", m.ID),
		))
		if len(row) == perRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
