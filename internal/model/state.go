package model

import "time"

// Strategy is the active DCA strategy configuration. JSON tags follow the
// camelCase wire schema the web client expects.
type Strategy struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Creator        string             `json:"creator"`
	Allocation     map[string]float64 `json:"allocation"`
	WeeklyAmount   float64            `json:"weeklyAmount"`
	WeeksCompleted int                `json:"weeksCompleted"`
	TotalWeeks     int                `json:"totalWeeks"` // 0 means unbounded
	StrictMode     bool               `json:"strictMode"`
}

// Bounded reports whether the strategy has a fixed horizon.
func (s *Strategy) Bounded() bool { return s.TotalWeeks > 0 }

// Completed reports whether a bounded strategy has reached its horizon.
func (s *Strategy) Completed() bool {
	return s.Bounded() && s.WeeksCompleted >= s.TotalWeeks
}

// Portfolio holds per-asset quantities and their current mark-to-model values.
// TotalValue is always the sum of HoldingsValue, never stored independently.
type Portfolio struct {
	Holdings          map[string]float64 `json:"holdings"`
	HoldingsValue     map[string]float64 `json:"holdingsValue"`
	HoldingsChange    map[string]float64 `json:"holdingsChange"`
	TotalValue        float64            `json:"totalValue"`
	CostBasis         float64            `json:"costBasis"`
	ProfitLoss        float64            `json:"profitLoss"`
	ProfitLossPercent float64            `json:"profitLossPercent"`
}

// NewPortfolio returns an empty portfolio with initialized maps.
func NewPortfolio() Portfolio {
	return Portfolio{
		Holdings:       map[string]float64{},
		HoldingsValue:  map[string]float64{},
		HoldingsChange: map[string]float64{},
	}
}

// Recompute derives TotalValue, ProfitLoss and ProfitLossPercent from the
// per-asset values and the cost basis.
func (p *Portfolio) Recompute() {
	total := 0.0
	for _, v := range p.HoldingsValue {
		total += v
	}
	p.TotalValue = total
	p.ProfitLoss = p.TotalValue - p.CostBasis
	if p.CostBasis > 0 {
		p.ProfitLossPercent = p.ProfitLoss / p.CostBasis * 100
	} else {
		p.ProfitLossPercent = 0
	}
}

// Transaction is an immutable ledger entry for one weekly buy.
type Transaction struct {
	Week      int                `json:"week"`
	Date      time.Time          `json:"date"`
	Purchased map[string]float64 `json:"purchased"`
	GasSpent  float64            `json:"gasSpent"`
	TxHash    string             `json:"txHash"`
}

// State is the complete per-session state: strategy, portfolio, funding pool
// and ledger. It is persisted as one record after every mutation.
type State struct {
	HasStrategy    bool          `json:"hasStrategy"`
	Strategy       *Strategy     `json:"strategy"`
	Portfolio      Portfolio     `json:"portfolio"`
	NextDCA        time.Time     `json:"nextDCA"`
	DCAPoolBalance float64       `json:"dcaPoolBalance"`
	Transactions   []Transaction `json:"transactions"` // newest first
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy of the state.
func (st *State) Clone() *State {
	c := *st
	if st.Strategy != nil {
		s := *st.Strategy
		s.Allocation = copyMap(st.Strategy.Allocation)
		c.Strategy = &s
	}
	c.Portfolio.Holdings = copyMap(st.Portfolio.Holdings)
	c.Portfolio.HoldingsValue = copyMap(st.Portfolio.HoldingsValue)
	c.Portfolio.HoldingsChange = copyMap(st.Portfolio.HoldingsChange)
	c.Transactions = make([]Transaction, len(st.Transactions))
	for i, tx := range st.Transactions {
		tx.Purchased = copyMap(tx.Purchased)
		c.Transactions[i] = tx
	}
	return &c
}

// Status is the API-facing snapshot of the state, without the ledger.
type Status struct {
	HasStrategy    bool      `json:"hasStrategy"`
	Strategy       *Strategy `json:"strategy"`
	Portfolio      Portfolio `json:"portfolio"`
	NextDCA        time.Time `json:"nextDCA"`
	DCAPoolBalance float64   `json:"dcaPoolBalance"`
}

// Milestone marks a one-time progress threshold crossing.
type Milestone struct {
	Threshold int     `json:"threshold"` // 25, 50, 75 or 100
	Week      int     `json:"week"`
	Percent   float64 `json:"percent"`
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
