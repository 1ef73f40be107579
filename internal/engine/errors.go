package engine

import "errors"

// Precondition failures are detected before any mutation; a rejected
// operation leaves both the in-memory and the persisted state untouched.
var (
	ErrInvalidConfiguration   = errors.New("invalid strategy configuration")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrNoStrategy             = errors.New("no strategy configured")
	ErrFundsInsufficient      = errors.New("insufficient funds in DCA pool")
	ErrStrategyCompleted      = errors.New("strategy has completed its horizon")
	ErrStrictModeBlocked      = errors.New("withdrawals are disabled in strict mode")
	ErrWithdrawalExceedsValue = errors.New("withdrawal exceeds portfolio value")

	// ErrPersistence wraps store failures. The engine never keeps a mutation
	// in memory that it could not make durable.
	ErrPersistence = errors.New("state persistence unavailable")
)
