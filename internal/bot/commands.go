package bot

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/familyschedule/internal/domain"
	"github.com/tazhate/familyschedule/internal/ics"
	"github.com/tazhate/familyschedule/internal/logger"
)

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	switch cmd {
	case "start":
		b.cmdStart(msg)
	case "help":
		b.cmdHelp(chatID)
	case "today":
		b.cmdToday(chatID)
	case "week":
		b.cmdWeek(chatID, args)
	case "member":
		b.cmdMember(chatID, args)
	case "members":
		b.cmdMembers(chatID)
	case "export":
		b.cmdExport(chatID, args)
	default:
		b.SendMessage(chatID, "Okänt kommando. /help visar alla kommandon")
	}
}

func (b *Bot) cmdStart(msg *tgbotapi.Message) {
	name := msg.From.FirstName
	if name == "" {
		name = msg.From.UserName
	}
	b.SendMessage(msg.Chat.ID, fmt.Sprintf("👋 Hej, %s!\n\nJag håller koll på familjens veckoschema.\n\n/help — alla kommandon", html.EscapeString(name)))
}

func (b *Bot) cmdHelp(chatID int64) {
	text := `<b>Kommandon:</b>

/today — dagens aktiviteter
/week [±n] — veckans schema, t.ex. /week +1
/member id [±n] — en familjemedlems vecka
/members — familjemedlemmar
/export [±n] — veckan som .ics-fil`

	b.SendMessage(chatID, text)
}

func (b *Bot) cmdToday(chatID int64) {
	text, err := b.scheduleService.FormatToday()
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.SendMessage(chatID, text)
}

func (b *Bot) cmdWeek(chatID int64, args string) {
	offset, err := parseOffset(args)
	if err != nil {
		b.SendMessage(chatID, "Använd: /week, /week +1 eller /week -1")
		return
	}

	text, kb, err := b.weekMessage(offset)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.SendMessageWithKeyboard(chatID, text, kb)
}

func (b *Bot) weekMessage(offset int) (string, tgbotapi.InlineKeyboardMarkup, error) {
	week, year := b.scheduleService.CurrentWeek(offset)
	text, err := b.scheduleService.FormatWeek(week, year)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}
	return text, weekKeyboard(offset), nil
}

func (b *Bot) cmdMember(chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		b.cmdMembers(chatID)
		return
	}

	offset := 0
	if len(fields) > 1 {
		var err error
		if offset, err = parseOffset(fields[1]); err != nil {
			b.SendMessage(chatID, "Använd: /member id [±n]")
			return
		}
	}

	text, kb, err := b.memberMessage(fields[0], offset)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.SendMessageWithKeyboard(chatID, text, kb)
}

func (b *Bot) memberMessage(memberID string, offset int) (string, tgbotapi.InlineKeyboardMarkup, error) {
	week, year := b.scheduleService.CurrentWeek(offset)
	text, err := b.scheduleService.FormatMemberWeek(memberID, week, year)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, err
	}
	return text, memberWeekKeyboard(memberID, offset), nil
}

func (b *Bot) cmdMembers(chatID int64) {
	members, err := b.familyService.Members()
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>👨‍👩‍👧 Familjen</b>\n\n")
	for _, m := range members {
		sb.WriteString(fmt.Sprintf("%s %s <code>%s</code>\n", m.Icon, html.EscapeString(m.Name), html.EscapeString(m.ID)))
	}
	b.SendMessageWithKeyboard(chatID, sb.String(), membersKeyboard(members))
}

func (b *Bot) cmdExport(chatID int64, args string) {
	offset, err := parseOffset(args)
	if err != nil {
		b.SendMessage(chatID, "Använd: /export eller /export +1")
		return
	}

	week, year := b.scheduleService.CurrentWeek(offset)
	activities, err := b.activityService.ListWeek(week, year)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	var buf bytes.Buffer
	if err := ics.EncodeWeek(&buf, activities, week, year, b.scheduleService.Now()); err != nil {
		b.replyError(chatID, err)
		return
	}

	caption := fmt.Sprintf("Vecka %d, %d aktiviteter", week, len(activities))
	if err := b.SendDocument(chatID, ics.Filename(week, year), buf.Bytes(), caption); err != nil {
		logger.Error("send ics", "chat", chatID, "err", err)
	}
}

func (b *Bot) replyError(chatID int64, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		b.SendMessage(chatID, "🤷 Hittade inte: "+html.EscapeString(err.Error()))
		return
	}
	logger.Error("bot command failed", "chat", chatID, "err", err)
	b.SendMessage(chatID, "❌ Något gick fel: "+html.EscapeString(err.Error()))
}

// parseOffset reads a week offset such as "", "+1" or "-2".
func parseOffset(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid week offset %q", s)
	}
	if n < -52 || n > 52 {
		return 0, fmt.Errorf("week offset %d out of range", n)
	}
	return n, nil
}
