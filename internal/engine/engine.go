package engine

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Abdussalam-popsy/savvy-dca/internal/model"
	"github.com/Abdussalam-popsy/savvy-dca/internal/prices"
	"github.com/Abdussalam-popsy/savvy-dca/internal/store"
	"github.com/Abdussalam-popsy/savvy-dca/internal/strategy"
)

const (
	// poolSeedWeeks is the runway credited on activation so the first ticks
	// never starve.
	poolSeedWeeks = 5

	// slippageSpan bounds the execution-price perturbation to ±5%.
	slippageSpan = 0.10

	// driftBias and driftSpan shape the valuation drift: uniform over
	// [-3%, +7%), slightly positive on average.
	driftBias = 0.3
	driftSpan = 0.10
)

// Engine is the portfolio simulation state machine. A single mutex serializes
// every operation, and each successful mutation is persisted before it becomes
// visible; a failed persist rolls the operation back entirely.
type Engine struct {
	mu     sync.Mutex
	state  *model.State
	store  store.Store
	source prices.Source
	rng    *rand.Rand
	now    func() time.Time

	// allowOverrun lets bounded strategies keep ticking past their horizon,
	// matching the demo client's loose completion semantics.
	allowOverrun bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the random source used for slippage and drift, so tests
// can pin deterministic outcomes.
func WithRand(rng *rand.Rand) Option { return func(e *Engine) { e.rng = rng } }

// WithClock injects the time source used for timestamps and next-tick
// scheduling.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithOverrun permits weekly ticks after a bounded strategy reaches its
// horizon.
func WithOverrun(allow bool) Option { return func(e *Engine) { e.allowOverrun = allow } }

// New loads the persisted state (or initializes a fresh one) and returns a
// ready engine. A corrupt state file is discarded with a warning.
func New(st store.Store, src prices.Source, opts ...Option) (*Engine, error) {
	e := &Engine{store: st, source: src, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if e.source == nil {
		e.source = prices.NewStaticSource(nil)
	}

	loaded, err := st.Load()
	if err != nil {
		if !errors.Is(err, store.ErrCorruptState) {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		log.Printf("[WARN] discarding unreadable state: %v", err)
		loaded = nil
	}
	if loaded == nil {
		loaded = e.initialState()
		if err := st.Save(loaded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		log.Println("[INFO] initialized fresh session state")
	}
	e.state = loaded
	return e, nil
}

func (e *Engine) initialState() *model.State {
	now := e.now()
	return &model.State{
		Portfolio:    model.NewPortfolio(),
		NextDCA:      nextMonday(now),
		Transactions: []model.Transaction{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ActivateRequest carries the parameters for strategy activation.
type ActivateRequest struct {
	Template     strategy.Template
	WeeklyAmount float64
	TotalWeeks   int // 0 means unbounded
	StrictMode   bool
}

// Activate replaces any prior state with a freshly initialized strategy.
// The funding pool is seeded with five weeks of runway.
func (e *Engine) Activate(req ActivateRequest) (model.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if req.WeeklyAmount <= 0 {
		return model.Status{}, fmt.Errorf("%w: weekly amount must be positive, got %g", ErrInvalidConfiguration, req.WeeklyAmount)
	}
	if req.TotalWeeks < 0 {
		return model.Status{}, fmt.Errorf("%w: duration cannot be negative", ErrInvalidConfiguration)
	}
	if err := req.Template.Validate(); err != nil {
		return model.Status{}, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	now := e.now()
	alloc := make(map[string]float64, len(req.Template.Allocation))
	for sym, pct := range req.Template.Allocation {
		alloc[sym] = pct
	}
	next := &model.State{
		HasStrategy: true,
		Strategy: &model.Strategy{
			ID:           req.Template.ID,
			Name:         req.Template.Name,
			Creator:      req.Template.Creator,
			Allocation:   alloc,
			WeeklyAmount: req.WeeklyAmount,
			TotalWeeks:   req.TotalWeeks,
			StrictMode:   req.StrictMode,
		},
		Portfolio:      model.NewPortfolio(),
		NextDCA:        nextMonday(now),
		DCAPoolBalance: req.WeeklyAmount * poolSeedWeeks,
		Transactions:   []model.Transaction{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.persist(next); err != nil {
		return model.Status{}, err
	}
	e.state = next
	log.Printf("[INFO] strategy activated: %s (%g GAS/week)", req.Template.Name, req.WeeklyAmount)
	return statusOf(next), nil
}

// Tick executes one weekly buy: it debits the pool, purchases each allocated
// asset at a slippage-perturbed price, re-marks the holdings with a drifted
// valuation, appends a ledger entry and advances the schedule. An optional
// price override replaces individual reference prices for this tick only.
// At most one milestone is reported per tick.
func (e *Engine) Tick(override prices.Table) (model.Transaction, *model.Milestone, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state
	if !st.HasStrategy || st.Strategy == nil {
		return model.Transaction{}, nil, ErrNoStrategy
	}
	if st.Strategy.Completed() && !e.allowOverrun {
		return model.Transaction{}, nil, fmt.Errorf("%w: %d of %d weeks done",
			ErrStrategyCompleted, st.Strategy.WeeksCompleted, st.Strategy.TotalWeeks)
	}
	if st.DCAPoolBalance < st.Strategy.WeeklyAmount {
		return model.Transaction{}, nil, fmt.Errorf("%w: need %g GAS, have %g GAS",
			ErrFundsInsufficient, st.Strategy.WeeklyAmount, st.DCAPoolBalance)
	}

	next := st.Clone()
	s := next.Strategy
	p := &next.Portfolio
	table := e.source.Snapshot().Merge(override)

	purchased := make(map[string]float64, len(s.Allocation))
	execPrices := make(map[string]float64, len(s.Allocation))
	for _, sym := range sortedKeys(s.Allocation) {
		contribution := s.WeeklyAmount * s.Allocation[sym] / 100
		ref := table.Price(sym)
		exec := ref * (1 + (e.rng.Float64()-0.5)*slippageSpan)
		qty := contribution / exec
		p.Holdings[sym] += qty
		purchased[sym] = qty
		execPrices[sym] = exec
	}

	for _, sym := range sortedKeys(p.Holdings) {
		exec, ok := execPrices[sym]
		if !ok {
			exec = table.Price(sym)
		}
		drift := (e.rng.Float64() - driftBias) * driftSpan
		p.HoldingsValue[sym] = p.Holdings[sym] * exec * (1 + drift)
		p.HoldingsChange[sym] = drift * 100
	}

	p.CostBasis += s.WeeklyAmount
	p.Recompute()
	next.DCAPoolBalance -= s.WeeklyAmount
	s.WeeksCompleted++
	now := e.now()
	next.NextDCA = nextMonday(now)

	tx := model.Transaction{
		Week:      s.WeeksCompleted,
		Date:      now,
		Purchased: purchased,
		GasSpent:  s.WeeklyAmount,
		TxHash:    newTxHash(),
	}
	next.Transactions = append([]model.Transaction{tx}, next.Transactions...)

	milestone := detectMilestone(s)

	if err := e.persist(next); err != nil {
		return model.Transaction{}, nil, err
	}
	e.state = next
	log.Printf("[INFO] week %d executed: %g GAS spent, pool %g GAS", s.WeeksCompleted, s.WeeklyAmount, next.DCAPoolBalance)
	return tx, milestone, nil
}

// AddFunds credits the DCA pool.
func (e *Engine) AddFunds(amount float64) (model.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount <= 0 {
		return model.Status{}, ErrInvalidAmount
	}
	if !e.state.HasStrategy {
		return model.Status{}, ErrNoStrategy
	}

	next := e.state.Clone()
	next.DCAPoolBalance += amount
	if err := e.persist(next); err != nil {
		return model.Status{}, err
	}
	e.state = next
	log.Printf("[INFO] added %g GAS to pool, balance %g GAS", amount, next.DCAPoolBalance)
	return statusOf(next), nil
}

// Withdraw removes value from the portfolio, pro-rated across holdings so the
// per-asset values stay consistent with the total. Strict mode refuses every
// withdrawal outright.
func (e *Engine) Withdraw(amount float64) (model.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.state
	if !st.HasStrategy || st.Strategy == nil {
		return model.Status{}, ErrNoStrategy
	}
	if st.Strategy.StrictMode {
		return model.Status{}, ErrStrictModeBlocked
	}
	if amount <= 0 {
		return model.Status{}, ErrInvalidAmount
	}
	if amount > st.Portfolio.TotalValue {
		return model.Status{}, fmt.Errorf("%w: have %g GAS, need %g GAS",
			ErrWithdrawalExceedsValue, st.Portfolio.TotalValue, amount)
	}

	next := st.Clone()
	p := &next.Portfolio
	keep := 1 - amount/p.TotalValue
	for sym := range p.Holdings {
		p.Holdings[sym] *= keep
	}
	for sym := range p.HoldingsValue {
		p.HoldingsValue[sym] *= keep
	}
	p.Recompute()

	if err := e.persist(next); err != nil {
		return model.Status{}, err
	}
	e.state = next
	log.Printf("[INFO] withdrew %g GAS, portfolio value %g GAS", amount, p.TotalValue)
	return statusOf(next), nil
}

// Reset destroys all state, returning the engine to Uninitialized.
func (e *Engine) Reset() (model.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.initialState()
	if err := e.persist(next); err != nil {
		return model.Status{}, err
	}
	e.state = next
	log.Println("[INFO] session state reset")
	return statusOf(next), nil
}

// Status returns a copy of the current snapshot.
func (e *Engine) Status() model.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return statusOf(e.state)
}

// History returns a copy of the ledger, newest first. A non-positive limit
// returns all entries.
func (e *Engine) History(limit int) []model.Transaction {
	e.mu.Lock()
	defer e.mu.Unlock()

	txs := e.state.Clone().Transactions
	if limit > 0 && limit < len(txs) {
		txs = txs[:limit]
	}
	return txs
}

func (e *Engine) persist(st *model.State) error {
	st.UpdatedAt = e.now()
	if err := e.store.Save(st); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func statusOf(st *model.State) model.Status {
	c := st.Clone()
	return model.Status{
		HasStrategy:    c.HasStrategy,
		Strategy:       c.Strategy,
		Portfolio:      c.Portfolio,
		NextDCA:        c.NextDCA,
		DCAPoolBalance: c.DCAPoolBalance,
	}
}

// nextMonday returns the upcoming Monday at 09:00 in now's location. When now
// already is a Monday, the following one is used.
func nextMonday(now time.Time) time.Time {
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	next := now.AddDate(0, 0, days)
	return time.Date(next.Year(), next.Month(), next.Day(), 9, 0, 0, 0, next.Location())
}

func newTxHash() string {
	id := uuid.New()
	return "0x" + hex.EncodeToString(id[:])
}

// sortedKeys gives a stable iteration order so seeded runs reproduce exactly.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
