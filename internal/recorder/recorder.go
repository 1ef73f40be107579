package recorder

// TickRecord captures one executed weekly buy.
type TickRecord struct {
	Week       int
	TxHash     string
	GasSpent   float64
	PoolAfter  float64
	TotalValue float64
	CostBasis  float64
	ProfitLoss float64
}

// FundEvent records a funding pool change.
type FundEvent struct {
	EventType string // "ADD_FUNDS", "WITHDRAW", "ACTIVATE", "RESET"
	Amount    float64
	PoolAfter float64
	Note      string
}

// MilestoneRecord captures a fired progress milestone.
type MilestoneRecord struct {
	Threshold int
	Week      int
	Percent   float64
}

// Recorder keeps an append-only history for later analysis. It is strictly
// secondary: the state blob remains the single source of truth and recording
// failures never fail the triggering operation.
type Recorder interface {
	RecordTick(rec *TickRecord) error
	RecordFundEvent(evt *FundEvent) error
	RecordMilestone(ms *MilestoneRecord) error
	Close() error
}
