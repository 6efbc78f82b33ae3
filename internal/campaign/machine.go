package campaign

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// Manager owns all campaign mutation. State lives in an explicit keyed
// store (symbol to campaign) behind per-symbol serialization: transition
// legality and the one-active-campaign invariant cannot be checked and
// acted on atomically otherwise. Different symbols proceed in parallel.
type Manager struct {
	mu                  sync.Mutex
	locks               map[string]*sync.Mutex
	active              map[string]*models.Campaign
	closed              []*models.Campaign
	riskPerCampaign     float64
	allowRedistribution bool
	logger              zerolog.Logger
}

// NewManager creates an empty campaign manager.
func NewManager(riskPerCampaignPct float64, allowRedistribution bool) *Manager {
	return &Manager{
		locks:               make(map[string]*sync.Mutex),
		active:              make(map[string]*models.Campaign),
		riskPerCampaign:     riskPerCampaignPct,
		allowRedistribution: allowRedistribution,
		logger:              log.With().Str("component", "campaign_manager").Logger(),
	}
}

func (m *Manager) symbolLock(symbol string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		m.locks[symbol] = l
	}
	return l
}

// Apply feeds one accepted candidate into the symbol's campaign. The first
// accepted candidate for a symbol with no active campaign opens one; later
// candidates append to the sequence and may advance the phase. A candidate
// whose target phase is unreachable is dropped and logged; the campaign
// is untouched and the drop is not fatal.
//
// The bool result reports whether the candidate was applied.
func (m *Manager) Apply(cand models.PatternCandidate, res *models.ValidationResult, tr models.TradingRange) (*models.Campaign, bool) {
	if res == nil || !res.Accepted {
		return nil, false
	}

	lock := m.symbolLock(cand.Symbol)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	c, exists := m.active[cand.Symbol]
	m.mu.Unlock()

	if !exists {
		c = m.open(cand, tr)
		return c, true
	}

	if !legalTransition(c.CurrentPhase, cand.DetectedPhase, m.allowRedistribution) {
		m.logger.Warn().
			Str("symbol", cand.Symbol).
			Str("pattern", string(cand.Type)).
			Str("from_phase", string(c.CurrentPhase)).
			Str("to_phase", string(cand.DetectedPhase)).
			Msg("illegal phase transition, candidate dropped")
		return c, false
	}

	c.PatternSequence = append(c.PatternSequence, cand)
	c.CurrentPhase = cand.DetectedPhase
	m.logger.Info().
		Str("symbol", cand.Symbol).
		Str("campaign", c.ID.String()).
		Str("pattern", string(cand.Type)).
		Str("phase", string(c.CurrentPhase)).
		Msg("pattern appended to campaign")
	return c, true
}

// open creates the campaign for the first accepted candidate. The spring
// stop sits one penetration distance under the spring low (two under the
// creek); everything else stops at the ice boundary.
func (m *Manager) open(cand models.PatternCandidate, tr models.TradingRange) *models.Campaign {
	stop := tr.IceLevel
	if cand.Type == models.PatternSpring {
		stop = tr.CreekLevel - 2*(tr.CreekLevel-cand.BarLow)
	}

	c := &models.Campaign{
		ID:              uuid.New(),
		Symbol:          cand.Symbol,
		AssetClass:      cand.AssetClass,
		PatternSequence: []models.PatternCandidate{cand},
		CurrentPhase:    cand.DetectedPhase,
		State:           models.CampaignActive,
		EntryPrice:      cand.BarClose,
		StopLoss:        stop,
		RiskPct:         m.riskPerCampaign,
		StartedAt:       cand.Timestamp,
	}
	c.SetLastClose(cand.BarClose)

	m.mu.Lock()
	m.active[cand.Symbol] = c
	m.mu.Unlock()

	m.logger.Info().
		Str("symbol", c.Symbol).
		Str("campaign", c.ID.String()).
		Str("pattern", string(cand.Type)).
		Float64("entry", c.EntryPrice).
		Float64("stop", c.StopLoss).
		Msg("campaign opened")
	return c
}

// ObserveBar folds one new bar into the symbol's active campaign: records
// the per-bar return for the risk engine and enforces the ice invalidation
// boundary. A breach fails the campaign from any phase.
func (m *Manager) ObserveBar(symbol string, ice float64, c models.Candle) {
	lock := m.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	camp, ok := m.active[symbol]
	m.mu.Unlock()
	if !ok {
		return
	}

	prev := camp.LastClose()
	if prev > 0 {
		camp.ReturnSeries = append(camp.ReturnSeries, models.ReturnPoint{
			Timestamp: c.Timestamp,
			Return:    (c.Close - prev) / prev,
		})
	}
	camp.SetLastClose(c.Close)
	camp.DurationBars++

	if c.Low <= ice {
		m.closeLocked(camp, c.Close, c.Timestamp, models.CampaignFailed, "ice_breach")
	}
}

// Complete closes the symbol's active campaign with a valid exit. Exit
// price and R-multiple are fixed once and never touched again.
func (m *Manager) Complete(symbol string, exitPrice float64, at time.Time, reason string) *models.Campaign {
	lock := m.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	camp, ok := m.active[symbol]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.closeLocked(camp, exitPrice, at, models.CampaignCompleted, reason)
	return camp
}

func (m *Manager) closeLocked(camp *models.Campaign, exitPrice float64, at time.Time, state models.CampaignState, reason string) {
	camp.State = state
	camp.ExitPrice = exitPrice
	camp.ExitReason = reason
	camp.ClosedAt = at
	if risk := camp.EntryPrice - camp.StopLoss; risk != 0 {
		camp.RMultiple = (exitPrice - camp.EntryPrice) / risk
	}

	m.mu.Lock()
	delete(m.active, camp.Symbol)
	m.closed = append(m.closed, camp)
	m.mu.Unlock()

	m.logger.Info().
		Str("symbol", camp.Symbol).
		Str("campaign", camp.ID.String()).
		Str("state", string(state)).
		Str("reason", reason).
		Float64("r_multiple", camp.RMultiple).
		Msg("campaign closed")
}

// Active returns the symbol's active campaign, or nil.
func (m *Manager) Active(symbol string) *models.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[symbol]
}

// ActiveCampaigns snapshots every active campaign for the risk engine.
// Each campaign is deep-copied under its symbol lock: the engine reads the
// return series while ObserveBar keeps appending to the live one, so
// handing out the live pointers would race.
func (m *Manager) ActiveCampaigns() []*models.Campaign {
	m.mu.Lock()
	symbols := make([]string, 0, len(m.active))
	for symbol := range m.active {
		symbols = append(symbols, symbol)
	}
	m.mu.Unlock()

	out := make([]*models.Campaign, 0, len(symbols))
	for _, symbol := range symbols {
		lock := m.symbolLock(symbol)
		lock.Lock()
		m.mu.Lock()
		c, ok := m.active[symbol]
		m.mu.Unlock()
		if ok {
			out = append(out, snapshot(c))
		}
		lock.Unlock()
	}
	return out
}

// snapshot copies a campaign, detaching the slices a reader may iterate
// while the original keeps growing.
func snapshot(c *models.Campaign) *models.Campaign {
	cp := *c
	cp.PatternSequence = append([]models.PatternCandidate(nil), c.PatternSequence...)
	cp.ReturnSeries = append([]models.ReturnPoint(nil), c.ReturnSeries...)
	return &cp
}

// AllCampaigns returns every campaign seen: snapshots of the open ones
// plus the closed ones, which no longer mutate.
func (m *Manager) AllCampaigns() []*models.Campaign {
	out := m.ActiveCampaigns()

	m.mu.Lock()
	defer m.mu.Unlock()
	return append(out, m.closed...)
}
