package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/Abdussalam-popsy/savvy-dca/internal/engine"
	"github.com/Abdussalam-popsy/savvy-dca/internal/notifier"
	"github.com/Abdussalam-popsy/savvy-dca/internal/recorder"
)

// Scheduler drives the weekly tick from the calendar instead of a button.
// Serialization against concurrent API calls comes from the engine's own
// lock, so a cron firing while a user withdraws is safe.
type Scheduler struct {
	Cron     *cron.Cron
	Engine   *engine.Engine
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Ctx      context.Context
}

// New creates a Scheduler.
func New(ctx context.Context, eng *engine.Engine, n notifier.Notifier, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Engine:   eng,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
	}
}

// Register schedules the weekly buy.
func (s *Scheduler) Register(weeklyCron string) error {
	if _, err := s.Cron.AddFunc(weeklyCron, s.weeklyTask); err != nil {
		return fmt.Errorf("register weekly task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunWeeklyNow executes the weekly task immediately (for RUN_ON_START).
func (s *Scheduler) RunWeeklyNow() {
	s.weeklyTask()
}

func (s *Scheduler) weeklyTask() {
	log.Println("[INFO] running scheduled weekly buy")

	tx, milestone, err := s.Engine.Tick(nil)
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrNoStrategy), errors.Is(err, engine.ErrStrategyCompleted):
			log.Printf("[INFO] weekly buy skipped: %v", err)
		case errors.Is(err, engine.ErrFundsInsufficient):
			log.Printf("[WARN] weekly buy skipped: %v", err)
			s.trySend(fmt.Sprintf("Weekly buy skipped: %v. Add funds to resume.", err))
		default:
			log.Printf("[ERROR] weekly buy: %v", err)
		}
		return
	}

	status := s.Engine.Status()
	s.trySend(notifier.FormatTickReport(&tx, &status))

	if err := s.Recorder.RecordTick(&recorder.TickRecord{
		Week:       tx.Week,
		TxHash:     tx.TxHash,
		GasSpent:   tx.GasSpent,
		PoolAfter:  status.DCAPoolBalance,
		TotalValue: status.Portfolio.TotalValue,
		CostBasis:  status.Portfolio.CostBasis,
		ProfitLoss: status.Portfolio.ProfitLoss,
	}); err != nil {
		log.Printf("[ERROR] record tick: %v", err)
	}

	if milestone != nil {
		s.trySend(notifier.FormatMilestone(milestone, &status))
		if err := s.Recorder.RecordMilestone(&recorder.MilestoneRecord{
			Threshold: milestone.Threshold,
			Week:      milestone.Week,
			Percent:   milestone.Percent,
		}); err != nil {
			log.Printf("[ERROR] record milestone: %v", err)
		}
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.Send(s.Ctx, text); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
