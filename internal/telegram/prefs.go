package telegram

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"

	"github.com/suspectuso/surebet-router/internal/filter"
	"github.com/suspectuso/surebet-router/internal/storage"
	"github.com/suspectuso/surebet-router/internal/taxonomy"
)

var errBadIndex = errors.New("index out of range")

// Store is the persistence the bot works against
type Store interface {
	RegisterSubscriber(userID int64, minProfit float64) error
	GetSubscriber(userID int64) (*storage.Subscriber, error)
	SetMinProfit(userID int64, minProfit float64) error
	SetBookmakers(userID int64, set filter.Set) error
	SetSports(userID int64, set filter.Set) error
	SetLeagues(userID int64, leagues map[string]filter.Set) error
	ExtendSubscription(userID int64, days int, now time.Time) (time.Time, error)
	RecordBet(userID, surebetID int64, stake decimal.Decimal) (*storage.Bet, error)
	GetBetStats(userID int64) (*storage.BetStats, error)
	RegisterPendingPayment(userID int64, uniqueAmount float64) error
}

// prefs applies menu actions to a subscriber's stored filters
type prefs struct {
	store            Store
	tax              *taxonomy.Taxonomy
	defaultMinProfit float64
}

// load registers the user on first contact and returns the profile.
func (p *prefs) load(userID int64) (*storage.Subscriber, error) {
	if err := p.store.RegisterSubscriber(userID, p.defaultMinProfit); err != nil {
		return nil, err
	}
	return p.store.GetSubscriber(userID)
}

func (p *prefs) toggleBookmaker(userID int64, idx int) (filter.Set, error) {
	known := p.tax.Bookmakers
	if idx >= len(known) {
		return filter.Set{}, errBadIndex
	}
	sub, err := p.load(userID)
	if err != nil {
		return filter.Set{}, err
	}

	next := sub.Bookmakers.Toggle(known[idx], known)
	return next, p.store.SetBookmakers(userID, next)
}

func (p *prefs) setBookmakers(userID int64, set filter.Set) error {
	if _, err := p.load(userID); err != nil {
		return err
	}
	return p.store.SetBookmakers(userID, set)
}

func (p *prefs) toggleSport(userID int64, idx int) (filter.Set, error) {
	names := p.tax.SportNames()
	if idx >= len(names) {
		return filter.Set{}, errBadIndex
	}
	sub, err := p.load(userID)
	if err != nil {
		return filter.Set{}, err
	}

	next := sub.Sports.Toggle(names[idx], names)
	return next, p.store.SetSports(userID, next)
}

func (p *prefs) setSports(userID int64, set filter.Set) error {
	if _, err := p.load(userID); err != nil {
		return err
	}
	return p.store.SetSports(userID, set)
}

// sport returns the taxonomy sport at idx.
func (p *prefs) sport(idx int) (taxonomy.Sport, error) {
	if idx >= len(p.tax.Sports) {
		return taxonomy.Sport{}, errBadIndex
	}
	return p.tax.Sports[idx], nil
}

func (p *prefs) toggleLeague(userID int64, sportIdx, leagueIdx int) (filter.Set, error) {
	sport, err := p.sport(sportIdx)
	if err != nil {
		return filter.Set{}, err
	}
	if leagueIdx >= len(sport.Leagues) {
		return filter.Set{}, errBadIndex
	}
	sub, err := p.load(userID)
	if err != nil {
		return filter.Set{}, err
	}

	next := sub.LeagueFilter(sport.Name).Toggle(sport.Leagues[leagueIdx], sport.Leagues)
	return next, p.saveLeagues(userID, sub, sport.Name, next)
}

func (p *prefs) setLeagues(userID int64, sportIdx int, set filter.Set) (filter.Set, error) {
	sport, err := p.sport(sportIdx)
	if err != nil {
		return filter.Set{}, err
	}
	sub, err := p.load(userID)
	if err != nil {
		return filter.Set{}, err
	}
	return set, p.saveLeagues(userID, sub, sport.Name, set)
}

// saveLeagues stores set for sport. All is stored as a missing entry.
func (p *prefs) saveLeagues(userID int64, sub *storage.Subscriber, sport string, set filter.Set) error {
	leagues := maps.Clone(sub.Leagues)
	if leagues == nil {
		leagues = make(map[string]filter.Set)
	}
	if set.Kind == filter.All {
		delete(leagues, sport)
	} else {
		leagues[sport] = set
	}
	return p.store.SetLeagues(userID, leagues)
}

func (p *prefs) setMinProfit(userID int64, v float64) error {
	if _, err := p.load(userID); err != nil {
		return err
	}
	return p.store.SetMinProfit(userID, v)
}

// renew extends userID's subscription, creating the profile if needed.
func (p *prefs) renew(userID int64, days int, now time.Time) (time.Time, error) {
	if err := p.store.RegisterSubscriber(userID, p.defaultMinProfit); err != nil {
		return time.Time{}, err
	}
	exp, err := p.store.ExtendSubscription(userID, days, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("extend subscription: %w", err)
	}
	return exp, nil
}
