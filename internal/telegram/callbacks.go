package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/surebet-router/internal/filter"
)

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	data := cb.Data

	// Answer callback to remove loading state
	if _, err := tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	}); err != nil {
		b.log.Debug("answer callback", "error", err)
	}

	switch {
	case data == cbMenuMain:
		b.editMessage(ctx, cb.Message, welcomeText(displayName(&cb.From), cb.From.ID), b.mainKeyboard())
	case data == cbMenuStatus:
		b.editMessage(ctx, cb.Message, b.status(cb.From.ID), BackKeyboard())
	case data == cbMenuProfit:
		if chatID, ok := chatOf(cb); ok {
			b.promptProfit(ctx, chatID, cb.From.ID)
		}
	case data == cbMenuCasas:
		b.showBookmakers(ctx, cb)
	case data == cbMenuDeportes, data == cbSportBack:
		b.showSports(ctx, cb)
	case data == cbMenuAyuda:
		b.editMessage(ctx, cb.Message, helpText, BackKeyboard())
	case data == cbMenuPagar:
		b.editMessage(ctx, cb.Message, b.payment(cb.From.ID), BackKeyboard())

	case strings.HasPrefix(data, cbBookieToggle):
		b.handleBookmakerToggle(ctx, cb, data)
	case data == cbBookieAll:
		b.handleBookmakerBulk(ctx, cb, filter.AllOf())
	case data == cbBookieNone:
		b.handleBookmakerBulk(ctx, cb, filter.NoneOf())
	case data == cbBookieClose:
		b.closeBookmakers(ctx, cb)

	case strings.HasPrefix(data, cbSportToggle):
		b.handleSportToggle(ctx, cb, data)
	case data == cbSportAll:
		b.handleSportBulk(ctx, cb, filter.AllOf())
	case data == cbSportNone:
		b.handleSportBulk(ctx, cb, filter.NoneOf())
	case data == cbSportClose:
		b.closeSports(ctx, cb)

	case strings.HasPrefix(data, cbLeagueOpen):
		b.showLeagues(ctx, cb, data)
	case strings.HasPrefix(data, cbLeagueToggle):
		b.handleLeagueToggle(ctx, cb, data)
	case strings.HasPrefix(data, cbLeagueAll):
		b.handleLeagueBulk(ctx, cb, data, cbLeagueAll, filter.AllOf())
	case strings.HasPrefix(data, cbLeagueNone):
		b.handleLeagueBulk(ctx, cb, data, cbLeagueNone, filter.NoneOf())

	case strings.HasPrefix(data, cbTrack):
		b.handleTrack(ctx, cb, data)
	default:
		b.log.Warn("unknown callback", "data", data, "user_id", cb.From.ID)
	}
}

// --- Bookmakers ---

func (b *Bot) showBookmakers(ctx context.Context, cb *models.CallbackQuery) {
	sub, err := b.prefs.load(cb.From.ID)
	if err != nil {
		b.log.Error("load subscriber", "user_id", cb.From.ID, "error", err)
		return
	}
	b.editMessage(ctx, cb.Message, bookmakersTitle, BookmakersKeyboard(b.tax.Bookmakers, sub.Bookmakers))
}

func (b *Bot) handleBookmakerToggle(ctx context.Context, cb *models.CallbackQuery, data string) {
	idx, ok := parseIndexes(data, cbBookieToggle, 1)
	if !ok {
		return
	}

	next, err := b.prefs.toggleBookmaker(cb.From.ID, idx[0])
	if err != nil {
		b.log.Error("toggle bookmaker", "user_id", cb.From.ID, "error", err)
		return
	}
	b.editKeyboard(ctx, cb.Message, BookmakersKeyboard(b.tax.Bookmakers, next))
}

func (b *Bot) handleBookmakerBulk(ctx context.Context, cb *models.CallbackQuery, set filter.Set) {
	if err := b.prefs.setBookmakers(cb.From.ID, set); err != nil {
		b.log.Error("set bookmakers", "user_id", cb.From.ID, "error", err)
		return
	}
	b.editKeyboard(ctx, cb.Message, BookmakersKeyboard(b.tax.Bookmakers, set))
}

func (b *Bot) closeBookmakers(ctx context.Context, cb *models.CallbackQuery) {
	sub, err := b.prefs.load(cb.From.ID)
	if err != nil {
		b.log.Error("load subscriber", "user_id", cb.From.ID, "error", err)
		return
	}

	b.deleteMessage(ctx, cb.Message)
	if chatID, ok := chatOf(cb); ok {
		b.sendMessage(ctx, chatID,
			"💾 Casas guardadas: "+html.EscapeString(sub.Bookmakers.Label("TODAS", "NINGUNA")),
			b.mainKeyboard())
	}
}

// --- Sports and leagues ---

func (b *Bot) showSports(ctx context.Context, cb *models.CallbackQuery) {
	sub, err := b.prefs.load(cb.From.ID)
	if err != nil {
		b.log.Error("load subscriber", "user_id", cb.From.ID, "error", err)
		return
	}
	b.editMessage(ctx, cb.Message, sportsTitle, SportsKeyboard(b.tax, sub.Sports))
}

func (b *Bot) handleSportToggle(ctx context.Context, cb *models.CallbackQuery, data string) {
	idx, ok := parseIndexes(data, cbSportToggle, 1)
	if !ok {
		return
	}

	next, err := b.prefs.toggleSport(cb.From.ID, idx[0])
	if err != nil {
		b.log.Error("toggle sport", "user_id", cb.From.ID, "error", err)
		return
	}
	b.editKeyboard(ctx, cb.Message, SportsKeyboard(b.tax, next))
}

func (b *Bot) handleSportBulk(ctx context.Context, cb *models.CallbackQuery, set filter.Set) {
	if err := b.prefs.setSports(cb.From.ID, set); err != nil {
		b.log.Error("set sports", "user_id", cb.From.ID, "error", err)
		return
	}
	b.editKeyboard(ctx, cb.Message, SportsKeyboard(b.tax, set))
}

func (b *Bot) closeSports(ctx context.Context, cb *models.CallbackQuery) {
	sub, err := b.prefs.load(cb.From.ID)
	if err != nil {
		b.log.Error("load subscriber", "user_id", cb.From.ID, "error", err)
		return
	}

	b.deleteMessage(ctx, cb.Message)
	if chatID, ok := chatOf(cb); ok {
		b.sendMessage(ctx, chatID,
			"💾 Deportes guardados: "+html.EscapeString(sub.Sports.Label("TODOS", "NINGUNO")),
			b.mainKeyboard())
	}
}

func (b *Bot) showLeagues(ctx context.Context, cb *models.CallbackQuery, data string) {
	idx, ok := parseIndexes(data, cbLeagueOpen, 1)
	if !ok {
		return
	}
	sport, err := b.prefs.sport(idx[0])
	if err != nil {
		return
	}
	sub, err := b.prefs.load(cb.From.ID)
	if err != nil {
		b.log.Error("load subscriber", "user_id", cb.From.ID, "error", err)
		return
	}

	b.editMessage(ctx, cb.Message, leaguesTitle(sport.Icon, sport.Name),
		LeaguesKeyboard(idx[0], sport.Leagues, sub.LeagueFilter(sport.Name)))
}

func (b *Bot) handleLeagueToggle(ctx context.Context, cb *models.CallbackQuery, data string) {
	idx, ok := parseIndexes(data, cbLeagueToggle, 2)
	if !ok {
		return
	}

	next, err := b.prefs.toggleLeague(cb.From.ID, idx[0], idx[1])
	if err != nil {
		b.log.Error("toggle league", "user_id", cb.From.ID, "error", err)
		return
	}
	b.refreshLeagues(ctx, cb, idx[0], next)
}

func (b *Bot) handleLeagueBulk(ctx context.Context, cb *models.CallbackQuery, data, prefix string, set filter.Set) {
	idx, ok := parseIndexes(data, prefix, 1)
	if !ok {
		return
	}

	next, err := b.prefs.setLeagues(cb.From.ID, idx[0], set)
	if err != nil {
		b.log.Error("set leagues", "user_id", cb.From.ID, "error", err)
		return
	}
	b.refreshLeagues(ctx, cb, idx[0], next)
}

func (b *Bot) refreshLeagues(ctx context.Context, cb *models.CallbackQuery, sportIdx int, set filter.Set) {
	sport, err := b.prefs.sport(sportIdx)
	if err != nil {
		return
	}
	b.editKeyboard(ctx, cb.Message, LeaguesKeyboard(sportIdx, sport.Leagues, set))
}

// --- Bet tracking ---

func (b *Bot) handleTrack(ctx context.Context, cb *models.CallbackQuery, data string) {
	surebetID, err := strconv.ParseInt(strings.TrimPrefix(data, cbTrack), 10, 64)
	if err != nil || surebetID <= 0 {
		return
	}
	chatID, ok := chatOf(cb)
	if !ok {
		return
	}

	b.states.Set(cb.From.ID, Pending{State: StateWaitStake, SurebetID: surebetID})
	b.sendMessage(ctx, chatID,
		fmt.Sprintf("📝 ¿Cuánto has invertido en la surebet #%d? (en €)", surebetID),
		&models.ForceReply{ForceReply: true, Selective: true})
}

func chatOf(cb *models.CallbackQuery) (int64, bool) {
	if cb.Message.Message == nil {
		return 0, false
	}
	return cb.Message.Message.Chat.ID, true
}
