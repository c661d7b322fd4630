package bot

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/tazhate/familyschedule/config"
	"github.com/tazhate/familyschedule/internal/logger"
	"github.com/tazhate/familyschedule/internal/service"
)

const webhookPath = "/bot"

type Bot struct {
	api             *tgbotapi.BotAPI
	cfg             *config.Config
	scheduleService *service.ScheduleService
	activityService *service.ActivityService
	familyService   *service.FamilyService
	webhookUpdates  chan tgbotapi.Update
}

func New(cfg *config.Config, scheduleSvc *service.ScheduleService, activitySvc *service.ActivityService, familySvc *service.FamilyService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("telegram authorized", "user", api.Self.UserName)

	bot := &Bot{
		api:             api,
		cfg:             cfg,
		scheduleService: scheduleSvc,
		activityService: activitySvc,
		familyService:   familySvc,
		webhookUpdates:  make(chan tgbotapi.Update, 100),
	}

	// Set bot commands (menu button)
	bot.setCommands()

	return bot, nil
}

func (b *Bot) setCommands() {
	commands := []tgbotapi.BotCommand{
		{Command: "today", Description: "📅 Dagens schema"},
		{Command: "week", Description: "🗓 Veckans schema"},
		{Command: "members", Description: "👨‍👩‍👧 Familjen"},
		{Command: "export", Description: "📤 Exportera veckan (.ics)"},
		{Command: "help", Description: "❓ Hjälp"},
	}

	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := b.api.Request(cfg); err != nil {
		logger.Warn("failed to set commands", "err", err)
	}
}

// UsesWebhook reports whether updates arrive over HTTP instead of polling.
func (b *Bot) UsesWebhook() bool {
	return b.cfg.WebhookURL != ""
}

func (b *Bot) SetupWebhook() error {
	webhookURL := b.cfg.WebhookURL + webhookPath

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}

	_, err = b.api.Request(wh)
	if err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := b.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}

	if info.LastErrorDate != 0 {
		logger.Warn("webhook last error", "message", info.LastErrorMessage)
	}

	logger.Info("webhook set", "url", webhookURL)
	return nil
}

// Register mounts the webhook endpoint on mux.
func (b *Bot) Register(mux *http.ServeMux) {
	mux.HandleFunc(webhookPath, func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			logger.Warn("bad webhook update", "err", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.webhookUpdates <- *update
	})
}

// Start consumes updates until ctx is done: from the webhook when one is
// configured, by long polling otherwise.
func (b *Bot) Start(ctx context.Context) error {
	var updates tgbotapi.UpdatesChannel
	if b.UsesWebhook() {
		updates = b.webhookUpdates
	} else {
		if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn("delete webhook", "err", err)
		}
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		defer b.api.StopReceivingUpdates()
		logger.Info("telegram polling started")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			go b.handleUpdate(update)
		}
	}
}

func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "HTML"
	msg.ReplyMarkup = keyboard
	_, err := b.api.Send(msg)
	return err
}

// SendDocument uploads data as a file attachment.
func (b *Bot) SendDocument(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption
	_, err := b.api.Send(doc)
	return err
}

func (b *Bot) editMessage(chatID int64, msgID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, msgID, text)
	edit.ParseMode = "HTML"
	edit.ReplyMarkup = keyboard
	if _, err := b.api.Send(edit); err != nil {
		logger.Debug("edit message", "err", err)
	}
}
