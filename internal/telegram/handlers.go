package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"

	"github.com/suspectuso/surebet-router/internal/storage"
)

// --- Commands ---

func (b *Bot) startHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	if _, err := b.prefs.load(msg.From.ID); err != nil {
		b.log.Error("register subscriber", "user_id", msg.From.ID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ Error interno, inténtalo más tarde.", nil)
		return
	}
	b.states.Clear(msg.From.ID)

	b.sendMessage(ctx, msg.Chat.ID, welcomeText(displayName(msg.From), msg.From.ID), b.mainKeyboard())
}

func (b *Bot) statusHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	b.sendMessage(ctx, update.Message.Chat.ID, b.status(update.Message.From.ID), b.mainKeyboard())
}

func (b *Bot) statsHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	stats, err := b.prefs.store.GetBetStats(userID)
	if err != nil {
		b.log.Error("bet stats", "user_id", userID, "error", err)
		b.sendMessage(ctx, update.Message.Chat.ID, "❌ No pude calcular tus estadísticas.", nil)
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID, statsText(stats), nil)
}

// profitHandler sets the threshold from "/profit N" or prompts for it.
func (b *Bot) profitHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	arg := commandArg(msg.Text)
	if arg == "" {
		b.promptProfit(ctx, msg.Chat.ID, msg.From.ID)
		return
	}
	b.applyProfit(ctx, msg.Chat.ID, msg.From.ID, arg)
}

func (b *Bot) bookmakersHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	sub, err := b.prefs.load(userID)
	if err != nil {
		b.log.Error("load subscriber", "user_id", userID, "error", err)
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID, bookmakersTitle,
		BookmakersKeyboard(b.tax.Bookmakers, sub.Bookmakers))
}

func (b *Bot) sportsHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	sub, err := b.prefs.load(userID)
	if err != nil {
		b.log.Error("load subscriber", "user_id", userID, "error", err)
		return
	}

	b.sendMessage(ctx, update.Message.Chat.ID, sportsTitle, SportsKeyboard(b.tax, sub.Sports))
}

func (b *Bot) idHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	b.sendMessage(ctx, update.Message.Chat.ID,
		fmt.Sprintf("🆔 Tu ID de cliente: <code>%d</code>", update.Message.From.ID), nil)
}

func (b *Bot) helpHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	b.sendMessage(ctx, update.Message.Chat.ID, helpText, BackKeyboard())
}

func (b *Bot) payHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	b.sendMessage(ctx, update.Message.Chat.ID, b.payment(update.Message.From.ID), BackKeyboard())
}

// addHandler grants days of subscription: "/add <user_id> <days>". Admins
// only.
func (b *Bot) addHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	msg := update.Message
	if !b.cfg.IsAdmin(msg.From.ID) {
		b.log.Warn("add denied", "user_id", msg.From.ID)
		return
	}

	target, days, ok := parseAddArgs(msg.Text)
	if !ok {
		b.sendMessage(ctx, msg.Chat.ID, "Uso: <code>/add ID DIAS</code>", nil)
		return
	}

	exp, err := b.prefs.renew(target, days, b.now())
	if err != nil {
		b.log.Error("grant subscription", "user_id", target, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ No pude activar la suscripción.", nil)
		return
	}

	b.log.Info("subscription granted",
		"admin_id", msg.From.ID,
		"user_id", target,
		"days", days,
		"expires", exp,
	)

	b.sendMessage(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ Usuario <code>%d</code> activado hasta %s", target, exp.Format(dateLayout)), nil)

	notice := fmt.Sprintf("💎 <b>Suscripción activada</b>\n\nVálida hasta: <b>%s</b>", exp.Format(dateLayout))
	if err := b.SendText(ctx, target, notice); err != nil {
		b.log.Warn("notify grant", "user_id", target, "error", err)
	}
}

// --- Free-text answers ---

func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" || update.Message.From == nil {
		return
	}

	msg := update.Message
	p, ok := b.states.Take(msg.From.ID)
	if !ok {
		return
	}

	text := strings.TrimSpace(msg.Text)
	switch p.State {
	case StateWaitStake:
		b.handleStake(ctx, msg, text, p)
	case StateWaitProfit:
		b.applyProfit(ctx, msg.Chat.ID, msg.From.ID, text)
	}
}

func (b *Bot) handleStake(ctx context.Context, msg *models.Message, text string, p Pending) {
	userID := msg.From.ID

	stake, err := parseStake(text)
	if err != nil {
		// keep waiting for a usable amount
		b.states.Set(userID, p)
		b.sendMessage(ctx, msg.Chat.ID,
			"❌ Introduce una cantidad positiva. Ejemplo: <code>50</code> o <code>12,5</code>", nil)
		return
	}

	bet, err := b.prefs.store.RecordBet(userID, p.SurebetID, stake)
	if errors.Is(err, storage.ErrNotFound) {
		b.sendMessage(ctx, msg.Chat.ID, "❌ No encuentro esa apuesta.", nil)
		return
	}
	if err != nil {
		b.log.Error("record bet", "user_id", userID, "surebet_id", p.SurebetID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ No pude registrar la apuesta.", nil)
		return
	}

	b.log.Info("bet recorded",
		"user_id", userID,
		"surebet_id", bet.SurebetID,
		"stake", bet.Stake.String(),
	)

	b.sendMessage(ctx, msg.Chat.ID,
		fmt.Sprintf("✅ Apuesta registrada: <b>%s€</b>\n💰 Beneficio: <b>%s€</b> (%s%%)",
			bet.Stake.StringFixed(2), bet.RealizedProfit.StringFixed(2), formatPercent(bet.ProfitPercent)),
		nil)
}

// --- Shared flows ---

func (b *Bot) promptProfit(ctx context.Context, chatID, userID int64) {
	b.states.Set(userID, Pending{State: StateWaitProfit})
	b.sendMessage(ctx, chatID,
		"💰 Escribe el beneficio mínimo en % (ejemplo: <code>2.5</code>)",
		&models.ForceReply{ForceReply: true})
}

func (b *Bot) applyProfit(ctx context.Context, chatID, userID int64, arg string) {
	v, ok := parseProfitArg(arg)
	if !ok {
		b.sendMessage(ctx, chatID, "❌ Valor no válido. Ejemplo: <code>/profit 2.5</code>", nil)
		return
	}

	if err := b.prefs.setMinProfit(userID, v); err != nil {
		b.log.Error("set min profit", "user_id", userID, "error", err)
		b.sendMessage(ctx, chatID, "❌ No pude guardar el valor.", nil)
		return
	}

	b.sendMessage(ctx, chatID,
		fmt.Sprintf("✅ Recibirás surebets desde <b>%s%%</b>", formatPercent(v)), b.mainKeyboard())
}

func (b *Bot) status(userID int64) string {
	sub, err := b.prefs.load(userID)
	if err != nil {
		b.log.Error("load subscriber", "user_id", userID, "error", err)
		return "❌ Error interno, inténtalo más tarde."
	}
	return statusText(sub, b.now())
}

// payment reserves a unique amount for userID and returns the transfer
// instructions.
func (b *Bot) payment(userID int64) string {
	if b.cfg.ServiceWalletAddr == "" {
		return "💎 Contacta con soporte para activar tu suscripción."
	}

	amount := storage.GenerateUniqueAmount(userID, b.cfg.SubscriptionPriceTON)
	if err := b.prefs.store.RegisterPendingPayment(userID, amount); err != nil {
		b.log.Error("register pending payment", "user_id", userID, "error", err)
		return "❌ Error interno, inténtalo más tarde."
	}

	return paymentText(b.cfg.ServiceWalletAddr, amount, b.cfg.SubscriptionDays, userID)
}

func (b *Bot) mainKeyboard() *models.InlineKeyboardMarkup {
	return MainKeyboard(b.cfg.ServiceWalletAddr != "")
}

func displayName(u *models.User) string {
	switch {
	case u == nil:
		return "amigo"
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	}
	return "amigo"
}

// parseStake reads a positive amount, accepting a comma decimal separator.
func parseStake(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("stake must be positive: %s", d)
	}
	return d, nil
}
