package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/surebet-router/internal/filter"
	"github.com/suspectuso/surebet-router/internal/taxonomy"
)

// Callback data. Names are referenced by index into the taxonomy so the
// payload stays under Telegram's 64 byte limit.
const (
	cbMenuMain     = "menu:main"
	cbMenuStatus   = "menu:status"
	cbMenuProfit   = "menu:profit"
	cbMenuCasas    = "menu:casas"
	cbMenuDeportes = "menu:deportes"
	cbMenuAyuda    = "menu:ayuda"
	cbMenuPagar    = "menu:pagar"

	cbBookieToggle = "bk:t:"
	cbBookieAll    = "bk:all"
	cbBookieNone   = "bk:none"
	cbBookieClose  = "bk:close"

	cbSportToggle = "sp:t:"
	cbSportAll    = "sp:all"
	cbSportNone   = "sp:none"
	cbSportClose  = "sp:close"
	cbSportBack   = "sp:back"

	cbLeagueOpen   = "lg:open:"
	cbLeagueToggle = "lg:t:"
	cbLeagueAll    = "lg:all:"
	cbLeagueNone   = "lg:none:"

	cbTrack = "track:"
)

// MainKeyboard returns the main menu keyboard
func MainKeyboard(payments bool) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "📊 Mi Estado", CallbackData: cbMenuStatus},
			{Text: "💰 Profit", CallbackData: cbMenuProfit},
		},
		{
			{Text: "🏦 Mis Casas", CallbackData: cbMenuCasas},
			{Text: "🏆 Deportes", CallbackData: cbMenuDeportes},
		},
	}
	if payments {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: "💎 Suscribirme", CallbackData: cbMenuPagar},
		})
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "🆘 Ayuda / Contacto", CallbackData: cbMenuAyuda},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// BookmakersKeyboard lists known bookmakers two per row with their state
func BookmakersKeyboard(known []string, selected filter.Set) *models.InlineKeyboardMarkup {
	var rows [][]models.InlineKeyboardButton
	var row []models.InlineKeyboardButton

	for i, name := range known {
		row = append(row, models.InlineKeyboardButton{
			Text:         checkmark(selected.Contains(name), "✅", "❌") + " " + name,
			CallbackData: cbBookieToggle + strconv.Itoa(i),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows,
		[]models.InlineKeyboardButton{
			{Text: "✅ Activar Todo", CallbackData: cbBookieAll},
			{Text: "❌ Desactivar Todo", CallbackData: cbBookieNone},
		},
		[]models.InlineKeyboardButton{
			{Text: "💾 Guardar y Cerrar", CallbackData: cbBookieClose},
		},
	)

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// SportsKeyboard lists sports in taxonomy order. Sports with named leagues
// get a second button opening their league keyboard.
func SportsKeyboard(tax *taxonomy.Taxonomy, selected filter.Set) *models.InlineKeyboardMarkup {
	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "✅ Todos", CallbackData: cbSportAll},
			{Text: "❌ Ninguno", CallbackData: cbSportNone},
		},
	}

	for i, sport := range tax.Sports {
		label := fmt.Sprintf("%s %s %s", checkmark(selected.Contains(sport.Name), "✅", "⬜"), sport.Icon, sport.Name)
		row := []models.InlineKeyboardButton{
			{Text: label, CallbackData: cbSportToggle + strconv.Itoa(i)},
		}
		if len(sport.Leagues) > 0 {
			row = append(row, models.InlineKeyboardButton{
				Text:         "📂 Ligas",
				CallbackData: cbLeagueOpen + strconv.Itoa(i),
			})
		}
		rows = append(rows, row)
	}

	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "💾 Guardar y Cerrar", CallbackData: cbSportClose},
	})

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// LeaguesKeyboard lists the leagues of the sport at sportIdx
func LeaguesKeyboard(sportIdx int, leagues []string, selected filter.Set) *models.InlineKeyboardMarkup {
	idx := strconv.Itoa(sportIdx)
	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "🔙 Volver", CallbackData: cbSportBack},
		},
		{
			{Text: "✅ Todas", CallbackData: cbLeagueAll + idx},
			{Text: "❌ Ninguna", CallbackData: cbLeagueNone + idx},
		},
	}

	var row []models.InlineKeyboardButton
	for i, league := range leagues {
		row = append(row, models.InlineKeyboardButton{
			Text:         checkmark(selected.Contains(league), "✅", "⬜") + " " + league,
			CallbackData: fmt.Sprintf("%s%d:%d", cbLeagueToggle, sportIdx, i),
		})
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// TrackKeyboard is attached to every delivered surebet
func TrackKeyboard(surebetID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📝 Registrar apuesta", CallbackData: cbTrack + strconv.FormatInt(surebetID, 10)},
			},
		},
	}
}

// BackKeyboard returns a simple back-to-menu button
func BackKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "⬅️ Menú", CallbackData: cbMenuMain},
			},
		},
	}
}

func checkmark(on bool, yes, no string) string {
	if on {
		return yes
	}
	return no
}

// parseIndexes reads the colon separated indexes after prefix.
func parseIndexes(data, prefix string, n int) ([]int, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return nil, false
	}

	parts := strings.Split(rest, ":")
	if len(parts) != n {
		return nil, false
	}

	out := make([]int, 0, n)
	for _, p := range parts {
		i, err := strconv.Atoi(p)
		if err != nil || i < 0 {
			return nil, false
		}
		out = append(out, i)
	}
	return out, true
}
