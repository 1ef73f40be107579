package recorder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRecordTick(t *testing.T) {
	r := newTestRecorder(t)

	require.NoError(t, r.RecordTick(&TickRecord{
		Week: 1, TxHash: "0xabc", GasSpent: 100,
		PoolAfter: 400, TotalValue: 101.5, CostBasis: 100, ProfitLoss: 1.5,
	}))

	var count int
	require.NoError(t, r.db.QueryRow("SELECT COUNT(*) FROM tick_history").Scan(&count))
	assert.Equal(t, 1, count)

	var week int
	var txHash string
	require.NoError(t, r.db.QueryRow("SELECT week, tx_hash FROM tick_history").Scan(&week, &txHash))
	assert.Equal(t, 1, week)
	assert.Equal(t, "0xabc", txHash)
}

func TestRecordFundEventAndMilestone(t *testing.T) {
	r := newTestRecorder(t)

	require.NoError(t, r.RecordFundEvent(&FundEvent{
		EventType: "ADD_FUNDS", Amount: 300, PoolAfter: 300,
	}))
	require.NoError(t, r.RecordMilestone(&MilestoneRecord{
		Threshold: 25, Week: 13, Percent: 25,
	}))

	var eventType string
	require.NoError(t, r.db.QueryRow("SELECT event_type FROM fund_events").Scan(&eventType))
	assert.Equal(t, "ADD_FUNDS", eventType)

	var threshold int
	require.NoError(t, r.db.QueryRow("SELECT threshold FROM milestones").Scan(&threshold))
	assert.Equal(t, 25, threshold)
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	r, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	require.NoError(t, r.RecordMilestone(&MilestoneRecord{Threshold: 50, Week: 26, Percent: 50}))
	require.NoError(t, r.Close())

	// Migrations are idempotent and existing rows survive.
	r2, err := NewSQLiteRecorder(path)
	require.NoError(t, err)
	defer r2.Close()

	var count int
	require.NoError(t, r2.db.QueryRow("SELECT COUNT(*) FROM milestones").Scan(&count))
	assert.Equal(t, 1, count)
}
