package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/surebet-router/internal/config"
	"github.com/suspectuso/surebet-router/internal/taxonomy"
)

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot    *bot.Bot
	cfg    *config.Config
	prefs  *prefs
	tax    *taxonomy.Taxonomy
	states *StateManager
	log    *slog.Logger

	now func() time.Time
}

// New creates a new telegram bot. Extra options are appended to the
// defaults.
func New(cfg *config.Config, store Store, tax *taxonomy.Taxonomy, log *slog.Logger, opts ...bot.Option) (*Bot, error) {
	p := &prefs{
		store:            store,
		tax:              tax,
		defaultMinProfit: cfg.DefaultMinProfit,
	}

	b := &Bot{
		cfg:    cfg,
		prefs:  p,
		tax:    tax,
		states: NewStateManager(),
		log:    log,
		now:    time.Now,
	}

	opts = append([]bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}, opts...)

	tgBot, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot

	for _, c := range b.commands() {
		tgBot.RegisterHandler(bot.HandlerTypeMessageText, c.pattern, c.match, c.handler)
	}

	return b, nil
}

type command struct {
	pattern string
	match   bot.MatchType
	handler bot.HandlerFunc
}

// commands lists the text commands. /help is an alias of /ayuda.
func (b *Bot) commands() []command {
	return []command{
		{"/start", bot.MatchTypeExact, b.startHandler},
		{"/start ", bot.MatchTypePrefix, b.startHandler},
		{"/status", bot.MatchTypeExact, b.statusHandler},
		{"/stats", bot.MatchTypeExact, b.statsHandler},
		{"/profit", bot.MatchTypePrefix, b.profitHandler},
		{"/casas", bot.MatchTypeExact, b.bookmakersHandler},
		{"/deportes", bot.MatchTypeExact, b.sportsHandler},
		{"/id", bot.MatchTypeExact, b.idHandler},
		{"/ayuda", bot.MatchTypeExact, b.helpHandler},
		{"/help", bot.MatchTypeExact, b.helpHandler},
		{"/pagar", bot.MatchTypeExact, b.payHandler},
		{"/add ", bot.MatchTypePrefix, b.addHandler},
	}
}

// Start publishes the command list and starts polling. Blocks until ctx
// is done.
func (b *Bot) Start(ctx context.Context) {
	_, err := b.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: []models.BotCommand{
			{Command: "start", Description: "Menú principal"},
			{Command: "status", Description: "Estado de tu cuenta"},
			{Command: "stats", Description: "Tu rendimiento"},
			{Command: "profit", Description: "Beneficio mínimo en %"},
			{Command: "casas", Description: "Tus casas de apuestas"},
			{Command: "deportes", Description: "Tus deportes y ligas"},
			{Command: "id", Description: "Tu ID de cliente"},
			{Command: "ayuda", Description: "Ayuda y contacto"},
		},
	})
	if err != nil {
		b.log.Warn("set bot commands", "error", err)
	}

	b.bot.Start(ctx)
}

// SendSurebet delivers an alert with the register-bet button. Content is
// protected against forwarding.
func (b *Bot) SendSurebet(ctx context.Context, userID int64, text string, surebetID int64) error {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             userID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		ProtectContent:     true,
		LinkPreviewOptions: noPreview(),
		ReplyMarkup:        TrackKeyboard(surebetID),
	})
	return err
}

// SendText sends a plain HTML message to a user
func (b *Bot) SendText(ctx context.Context, userID int64, text string) error {
	_, err := b.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             userID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: noPreview(),
	})
	return err
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.bot.SendMessage(ctx, params); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	if _, err := b.bot.EditMessageText(ctx, params); err != nil {
		b.log.Error("edit message", "error", err)
	}
}

// editKeyboard swaps only the inline keyboard of a menu message.
func (b *Bot) editKeyboard(ctx context.Context, msg models.MaybeInaccessibleMessage, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	_, err := b.bot.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      msg.Message.Chat.ID,
		MessageID:   msg.Message.ID,
		ReplyMarkup: keyboard,
	})
	if err != nil {
		// Telegram rejects edits that leave the keyboard unchanged.
		b.log.Debug("edit keyboard", "error", err)
	}
}

func (b *Bot) deleteMessage(ctx context.Context, msg models.MaybeInaccessibleMessage) {
	if msg.Message == nil {
		return
	}

	_, err := b.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
	})
	if err != nil {
		b.log.Debug("delete message", "error", err)
	}
}

func noPreview() *models.LinkPreviewOptions {
	disabled := true
	return &models.LinkPreviewOptions{IsDisabled: &disabled}
}
