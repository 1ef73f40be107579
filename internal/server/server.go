package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/Abdussalam-popsy/savvy-dca/internal/command"
	"github.com/Abdussalam-popsy/savvy-dca/internal/engine"
	"github.com/Abdussalam-popsy/savvy-dca/internal/model"
	"github.com/Abdussalam-popsy/savvy-dca/internal/notifier"
	"github.com/Abdussalam-popsy/savvy-dca/internal/prices"
	"github.com/Abdussalam-popsy/savvy-dca/internal/recorder"
	"github.com/Abdussalam-popsy/savvy-dca/internal/strategy"
)

// Server is the JSON HTTP adapter over the simulation engine. Routes mirror
// the demo client's expectations.
type Server struct {
	engine   *engine.Engine
	catalog  *strategy.Catalog
	recorder recorder.Recorder
	notifier notifier.Notifier
	mux      *http.ServeMux
}

// New creates a Server with all routes registered.
func New(eng *engine.Engine, cat *strategy.Catalog, rec recorder.Recorder, n notifier.Notifier) *Server {
	s := &Server{engine: eng, catalog: cat, recorder: rec, notifier: n, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)         // GET
	s.mux.HandleFunc("/api/status", s.handleStatus)         // GET
	s.mux.HandleFunc("/api/strategies", s.handleStrategies) // GET
	s.mux.HandleFunc("/api/history", s.handleHistory)       // GET
	s.mux.HandleFunc("/api/setup-goal", s.handleSetupGoal)  // POST
	s.mux.HandleFunc("/api/simulate-week", s.handleSimulateWeek)
	s.mux.HandleFunc("/api/add-funds", s.handleAddFunds)
	s.mux.HandleFunc("/api/withdraw", s.handleWithdraw)
	s.mux.HandleFunc("/api/reset", s.handleReset)
	s.mux.HandleFunc("/api/command", s.handleCommand)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Demo deployment: browser client served from anywhere.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "savvy-dca-agent"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.Templates())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			httpError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.engine.History(limit))
}

type setupGoalRequest struct {
	StrategyID   string             `json:"strategyId"`
	StrategyName string             `json:"strategyName"`
	Creator      string             `json:"creator"`
	Allocation   map[string]float64 `json:"allocation"`
	WeeklyAmount float64            `json:"weeklyAmount"`
	Duration     *int               `json:"duration"` // null for indefinite
	StrictMode   *bool              `json:"strictMode"`
}

func (s *Server) handleSetupGoal(w http.ResponseWriter, r *http.Request) {
	var req setupGoalRequest
	if !decodePost(w, r, &req) {
		return
	}

	tmpl, ok := s.resolveTemplate(req)
	if !ok {
		httpError(w, http.StatusBadRequest, "unknown strategy: "+req.StrategyID)
		return
	}
	totalWeeks := 0
	if req.Duration != nil {
		totalWeeks = *req.Duration
	}
	strict := true
	if req.StrictMode != nil {
		strict = *req.StrictMode
	}

	status, err := s.engine.Activate(engine.ActivateRequest{
		Template:     tmpl,
		WeeklyAmount: req.WeeklyAmount,
		TotalWeeks:   totalWeeks,
		StrictMode:   strict,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	s.record(func() error {
		return s.recorder.RecordFundEvent(&recorder.FundEvent{
			EventType: "ACTIVATE",
			Amount:    status.DCAPoolBalance,
			PoolAfter: status.DCAPoolBalance,
			Note:      tmpl.Name,
		})
	})
	writeJSON(w, http.StatusOK, status)
}

// resolveTemplate uses the request's explicit allocation when present, and
// falls back to the catalog entry for the given id otherwise.
func (s *Server) resolveTemplate(req setupGoalRequest) (strategy.Template, bool) {
	if len(req.Allocation) > 0 {
		return strategy.Template{
			ID:         req.StrategyID,
			Name:       req.StrategyName,
			Creator:    req.Creator,
			Allocation: req.Allocation,
		}, true
	}
	return s.catalog.Lookup(req.StrategyID)
}

type simulateWeekRequest struct {
	CryptoPrices prices.Table `json:"cryptoPrices"`
}

type simulateWeekResponse struct {
	model.Status
	Transaction model.Transaction `json:"transaction"`
	Milestone   *model.Milestone  `json:"milestone,omitempty"`
}

func (s *Server) handleSimulateWeek(w http.ResponseWriter, r *http.Request) {
	var req simulateWeekRequest
	if !decodePost(w, r, &req) {
		return
	}

	tx, milestone, err := s.engine.Tick(req.CryptoPrices)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	status := s.engine.Status()
	s.record(func() error {
		return s.recorder.RecordTick(&recorder.TickRecord{
			Week:       tx.Week,
			TxHash:     tx.TxHash,
			GasSpent:   tx.GasSpent,
			PoolAfter:  status.DCAPoolBalance,
			TotalValue: status.Portfolio.TotalValue,
			CostBasis:  status.Portfolio.CostBasis,
			ProfitLoss: status.Portfolio.ProfitLoss,
		})
	})
	if milestone != nil {
		s.record(func() error {
			return s.recorder.RecordMilestone(&recorder.MilestoneRecord{
				Threshold: milestone.Threshold,
				Week:      milestone.Week,
				Percent:   milestone.Percent,
			})
		})
		if err := s.notifier.Send(r.Context(), notifier.FormatMilestone(milestone, &status)); err != nil {
			log.Printf("[ERROR] send milestone notification: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, simulateWeekResponse{Status: status, Transaction: tx, Milestone: milestone})
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

func (s *Server) handleAddFunds(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodePost(w, r, &req) {
		return
	}
	status, err := s.engine.AddFunds(req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.record(func() error {
		return s.recorder.RecordFundEvent(&recorder.FundEvent{
			EventType: "ADD_FUNDS",
			Amount:    req.Amount,
			PoolAfter: status.DCAPoolBalance,
		})
	})
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodePost(w, r, &req) {
		return
	}
	status, err := s.engine.Withdraw(req.Amount)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.record(func() error {
		return s.recorder.RecordFundEvent(&recorder.FundEvent{
			EventType: "WITHDRAW",
			Amount:    req.Amount,
			PoolAfter: status.DCAPoolBalance,
		})
	})
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status, err := s.engine.Reset()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	s.record(func() error {
		return s.recorder.RecordFundEvent(&recorder.FundEvent{EventType: "RESET"})
	})
	writeJSON(w, http.StatusOK, status)
}

type commandRequest struct {
	Text    string `json:"text"`
	Execute bool   `json:"execute"`
}

type commandResponse struct {
	Intent command.Intent `json:"intent"`
	Status *model.Status  `json:"status,omitempty"`
}

// handleCommand parses a voice transcript into a strategy intent and, when
// asked, activates it with the demo defaults (52 weeks, strict mode).
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if !decodePost(w, r, &req) {
		return
	}
	if req.Text == "" {
		httpError(w, http.StatusBadRequest, "text is required")
		return
	}

	intent := command.Parse(req.Text, s.catalog)
	resp := commandResponse{Intent: intent}

	if req.Execute {
		status, err := s.engine.Activate(engine.ActivateRequest{
			Template:     intent.Strategy,
			WeeklyAmount: intent.Amount,
			TotalWeeks:   52,
			StrictMode:   true,
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		resp.Status = &status
	}

	writeJSON(w, http.StatusOK, resp)
}

// record runs a best-effort recorder write.
func (s *Server) record(fn func() error) {
	if err := fn(); err != nil {
		log.Printf("[ERROR] record event: %v", err)
	}
}

func decodePost(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid payload: "+err.Error())
		return false
	}
	return true
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, engine.ErrPersistence) {
		status = http.StatusInternalServerError
		log.Printf("[ERROR] %v", err)
	}
	httpError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
