package server

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abdussalam-popsy/savvy-dca/internal/engine"
	"github.com/Abdussalam-popsy/savvy-dca/internal/model"
	"github.com/Abdussalam-popsy/savvy-dca/internal/notifier"
	"github.com/Abdussalam-popsy/savvy-dca/internal/prices"
	"github.com/Abdussalam-popsy/savvy-dca/internal/recorder"
	"github.com/Abdussalam-popsy/savvy-dca/internal/store"
	"github.com/Abdussalam-popsy/savvy-dca/internal/strategy"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	eng, err := engine.New(fs, prices.NewStaticSource(nil),
		engine.WithRand(rand.New(rand.NewSource(7))),
		engine.WithClock(func() time.Time {
			return time.Date(2026, 1, 7, 12, 0, 0, 0, time.UTC)
		}),
	)
	require.NoError(t, err)

	srv := New(eng, strategy.Default(), recorder.NewNoopRecorder(), notifier.NewLogNotifier())
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func decodeStatus(t *testing.T, data []byte) model.Status {
	t.Helper()
	var status model.Status
	require.NoError(t, json.Unmarshal(data, &status))
	return status
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "healthy")
}

func TestStrategiesList(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodGet, "/api/strategies", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var templates []strategy.Template
	require.NoError(t, json.Unmarshal(body, &templates))
	assert.NotEmpty(t, templates)
	assert.Equal(t, "safestack", templates[0].ID)
}

func TestFullWorkflow(t *testing.T) {
	ts := newTestServer(t)

	// Fresh session has no strategy.
	resp, body := doJSON(t, ts, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeStatus(t, body).HasStrategy)

	// Activate by catalog id; pool seeded with five weeks of runway.
	duration := 52
	resp, body = doJSON(t, ts, http.MethodPost, "/api/setup-goal", map[string]any{
		"strategyId":   "safestack",
		"weeklyAmount": 100,
		"duration":     duration,
		"strictMode":   true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeStatus(t, body)
	assert.Equal(t, 500.0, status.DCAPoolBalance)
	assert.Equal(t, "SafeStack", status.Strategy.Name)

	// Simulate one week.
	resp, body = doJSON(t, ts, http.MethodPost, "/api/simulate-week", map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tick struct {
		model.Status
		Transaction model.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(body, &tick))
	assert.Equal(t, 400.0, tick.DCAPoolBalance)
	assert.Equal(t, 1, tick.Transaction.Week)
	assert.Equal(t, 100.0, tick.Portfolio.CostBasis)

	// Strict mode refuses the withdrawal.
	resp, body = doJSON(t, ts, http.MethodPost, "/api/withdraw", map[string]any{"amount": 50})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "strict mode")

	// Ledger has exactly one entry.
	resp, body = doJSON(t, ts, http.MethodGet, "/api/history?limit=5", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []model.Transaction
	require.NoError(t, json.Unmarshal(body, &history))
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Week)

	// Top up the pool.
	resp, body = doJSON(t, ts, http.MethodPost, "/api/add-funds", map[string]any{"amount": 300})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 700.0, decodeStatus(t, body).DCAPoolBalance)

	// Reset back to a fresh session.
	resp, body = doJSON(t, ts, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeStatus(t, body).HasStrategy)
}

func TestSetupGoalValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/setup-goal", map[string]any{
		"strategyId":   "safestack",
		"weeklyAmount": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "weekly amount")

	resp, body = doJSON(t, ts, http.MethodPost, "/api/setup-goal", map[string]any{
		"strategyId":   "unknown-strategy",
		"weeklyAmount": 100,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "unknown strategy")
}

func TestSetupGoalWithExplicitAllocation(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/setup-goal", map[string]any{
		"strategyId":   "custom",
		"strategyName": "Custom Mix",
		"creator":      "Me",
		"allocation":   map[string]float64{"BTC": 80, "ETH": 20},
		"weeklyAmount": 40,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status := decodeStatus(t, body)
	assert.Equal(t, 200.0, status.DCAPoolBalance)
	assert.Equal(t, 80.0, status.Strategy.Allocation["BTC"])
	// Unbounded when no duration given.
	assert.Equal(t, 0, status.Strategy.TotalWeeks)
}

func TestSimulateWeekInsufficientFunds(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/setup-goal", map[string]any{
		"strategyId":   "safestack",
		"weeklyAmount": 100,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for i := 0; i < 5; i++ {
		resp, _ = doJSON(t, ts, http.MethodPost, "/api/simulate-week", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := doJSON(t, ts, http.MethodPost, "/api/simulate-week", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "insufficient funds")
}

func TestSimulateWeekWithPriceOverride(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodPost, "/api/setup-goal", map[string]any{
		"strategyId":   "safestack",
		"weeklyAmount": 100,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/simulate-week", map[string]any{
		"cryptoPrices": map[string]float64{"BTC": 50000},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tick struct {
		Transaction model.Transaction `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(body, &tick))
	qty := tick.Transaction.Purchased["BTC"]
	assert.GreaterOrEqual(t, qty, 50/(50000*1.05))
	assert.LessOrEqual(t, qty, 50/(50000*0.95))
}

func TestCommandParsesAndExecutes(t *testing.T) {
	ts := newTestServer(t)

	// Parse only.
	resp, body := doJSON(t, ts, http.MethodPost, "/api/command", map[string]any{
		"text": "start DegenWeekly with 50 gas a week",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var parsed struct {
		Intent struct {
			Strategy strategy.Template `json:"strategy"`
			Amount   float64           `json:"amount"`
		} `json:"intent"`
		Status *model.Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "degenweekly", parsed.Intent.Strategy.ID)
	assert.Equal(t, 50.0, parsed.Intent.Amount)
	assert.Nil(t, parsed.Status)

	// Parse and activate.
	resp, body = doJSON(t, ts, http.MethodPost, "/api/command", map[string]any{
		"text":    "start DegenWeekly with 50 gas a week",
		"execute": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.NotNil(t, parsed.Status)
	assert.Equal(t, 250.0, parsed.Status.DCAPoolBalance)
	assert.Equal(t, 52, parsed.Status.Strategy.TotalWeeks)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, ts, http.MethodGet, "/api/add-funds", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/status", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/status", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
