package telegram

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/suspectuso/surebet-router/internal/storage"
)

const dateLayout = "02/01/2006 15:04"

func welcomeText(name string, userID int64) string {
	return fmt.Sprintf(
		"🏹 <b>Surebet Router</b> 🏹\n\n"+
			"¡Bienvenido, %s! 👋\n\n"+
			"Te envío surebets filtradas por tus casas, deportes y ligas.\n\n"+
			"💎 Para recibir alertas necesitas una suscripción activa.\n\n"+
			"🆔 Tu ID: <code>%d</code>\n\n"+
			"⚙️ <b>Comandos</b>\n"+
			"👤 /status » Estado y caducidad\n"+
			"📈 /stats » Tu rendimiento\n"+
			"💰 /profit N » Mínimo %% de ganancia\n"+
			"🏦 /casas » Tus casas de apuestas\n"+
			"🏆 /deportes » Tus deportes y ligas\n"+
			"🆔 /id » Tu ID de cliente\n"+
			"🆘 /ayuda » Soporte",
		html.EscapeString(name), userID,
	)
}

const helpText = "🆘 <b>Ayuda</b>\n\n" +
	"• /start - Menú principal\n" +
	"• /id - Tu ID (necesario para activar la cuenta)\n" +
	"• /casas - Elegir casas de apuestas\n" +
	"• /deportes - Filtrar deportes y ligas\n" +
	"• /profit N - Beneficio mínimo en %\n" +
	"• /stats - Tu rendimiento\n" +
	"• /status - Estado de tu cuenta\n\n" +
	"Pulsa «📝 Registrar apuesta» bajo una alerta para apuntar tu inversión."

func statusText(sub *storage.Subscriber, now time.Time) string {
	state := "🔴 CADUCADA / SIN ACTIVAR"
	if sub.IsSubscribed(now) {
		state = "🟢 ACTIVA"
	}

	expiry := "Sin activar"
	if sub.Expiration != nil {
		expiry = sub.Expiration.Format(dateLayout)
	}

	return fmt.Sprintf(
		"📊 <b>Tu Cuenta</b>\n\n"+
			"Estado: <b>%s</b>\n"+
			"📅 Caducidad: %s\n\n"+
			"💰 Profit mínimo: <b>%s%%</b>\n"+
			"🏦 Casas: %s\n"+
			"🏆 Deportes: %s",
		state, expiry,
		formatPercent(sub.MinProfit),
		html.EscapeString(sub.Bookmakers.Label("TODAS", "NINGUNA")),
		html.EscapeString(sub.Sports.Label("TODOS", "NINGUNO")),
	)
}

func statsText(stats *storage.BetStats) string {
	icon := "📈"
	if stats.Profit.IsNegative() {
		icon = "📉"
	}

	return fmt.Sprintf(
		"📊 <b>Tus Estadísticas</b>\n\n"+
			"✅ Apuestas registradas: <code>%d</code>\n"+
			"💸 Inversión total: <code>%s€</code>\n\n"+
			"%s <b>Beneficio:</b> <code>%s€</code>\n"+
			"⚡ ROI: <code>%s%%</code>",
		stats.Count,
		stats.Volume.StringFixed(2),
		icon, stats.Profit.StringFixed(2),
		stats.ROI().StringFixed(2),
	)
}

// parseProfitArg reads a non-negative percentage, accepting a comma
// decimal separator and a trailing %.
func parseProfitArg(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// parseAddArgs reads "/add <user_id> <days>".
func parseAddArgs(text string) (userID int64, days int, ok bool) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return 0, 0, false
	}

	userID, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || userID <= 0 {
		return 0, 0, false
	}
	days, err = strconv.Atoi(fields[2])
	if err != nil || days <= 0 {
		return 0, 0, false
	}
	return userID, days, true
}

// commandArg returns the text after the command word.
func commandArg(text string) string {
	_, arg, _ := strings.Cut(strings.TrimSpace(text), " ")
	return strings.TrimSpace(arg)
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

const (
	bookmakersTitle = "🏦 <b>Tus casas de apuestas</b>\n\nSolo recibirás surebets en las que todas las casas estén activadas."
	sportsTitle     = "🏆 <b>Tus deportes</b>\n\nPulsa 📂 para elegir ligas concretas."
)

func leaguesTitle(icon, sport string) string {
	return fmt.Sprintf("%s <b>Ligas de %s</b>", icon, html.EscapeString(sport))
}

func paymentText(wallet string, amount float64, days int, userID int64) string {
	return fmt.Sprintf(
		"💎 <b>Suscripción %d días</b>\n\n"+
			"Envía exactamente <b>%s TON</b> a:\n<code>%s</code>\n\n"+
			"📝 Comentario: <code>%d</code>\n\n"+
			"La suscripción se activa sola al confirmarse el pago.",
		days, strconv.FormatFloat(amount, 'f', -1, 64), html.EscapeString(wallet), userID,
	)
}
