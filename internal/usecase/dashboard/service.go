package dashboard

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/usecase/stats"
)

// RecentTradesLimit is how many trades the summary lists
const RecentTradesLimit = 5

// TradeSource is the trade store as seen by the dashboard
type TradeSource interface {
	Records() []domain.TradeRecord
	OnChange(fn func([]domain.TradeRecord)) (unregister func())
}

// SettingsSource is the settings store as seen by the dashboard
type SettingsSource interface {
	Current() domain.AccountSettings
	OnChange(fn func(domain.AccountSettings)) (unregister func())
}

// Summary is what the dashboard shows
type Summary struct {
	StartingCapital decimal.Decimal
	Stats           stats.Summary
	Recent          []domain.TradeRecord
}

// DashboardService recomputes the summary whenever trades or settings change
type DashboardService struct {
	TradeStore    TradeSource
	SettingsStore SettingsSource

	mu           sync.Mutex
	listeners    map[int]func(Summary)
	nextListener int
	unregister   []func()
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(trades TradeSource, settings SettingsSource) *DashboardService {
	s := &DashboardService{
		TradeStore:    trades,
		SettingsStore: settings,
		listeners:     make(map[int]func(Summary)),
	}
	s.unregister = []func(){
		trades.OnChange(func([]domain.TradeRecord) { s.publish() }),
		settings.OnChange(func(domain.AccountSettings) { s.publish() }),
	}
	return s
}

// Summary computes the current summary
// Logic:
//   - Stats: derived from the full local trade view, pending records included
//   - Recent: the first RecentTradesLimit records of the view (newest first)
func (s *DashboardService) Summary() Summary {
	records := s.TradeStore.Records()
	capital := s.SettingsStore.Current().StartingCapital

	recent := records
	if len(recent) > RecentTradesLimit {
		recent = recent[:RecentTradesLimit]
	}

	return Summary{
		StartingCapital: capital,
		Stats:           stats.Compute(records, capital),
		Recent:          append([]domain.TradeRecord(nil), recent...),
	}
}

// Subscribe calls fn with a fresh summary after every change.
// The returned function stops the calls.
func (s *DashboardService) Subscribe(fn func(Summary)) (cancel func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close detaches the dashboard from its stores
func (s *DashboardService) Close() {
	s.mu.Lock()
	unregister := s.unregister
	s.unregister = nil
	s.mu.Unlock()

	for _, fn := range unregister {
		fn()
	}
}

func (s *DashboardService) publish() {
	s.mu.Lock()
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	listeners := make([]func(Summary), 0, len(s.listeners))
	for id := 0; id < s.nextListener; id++ {
		if fn, ok := s.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	summary := s.Summary()
	for _, fn := range listeners {
		fn(summary)
	}
}
