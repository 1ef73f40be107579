package engine

import "github.com/Abdussalam-popsy/savvy-dca/internal/model"

// defaultHorizonWeeks is the progress horizon for unbounded strategies.
const defaultHorizonWeeks = 52

var milestoneThresholds = []int{25, 50, 75, 100}

// detectMilestone reports the threshold crossed by the latest tick, if any.
// A threshold T fires only while the progress percentage lies in [T, T+1),
// so under integer weekly increments each fires at most once; when several
// are eligible the lowest wins.
func detectMilestone(s *model.Strategy) *model.Milestone {
	horizon := s.TotalWeeks
	if horizon <= 0 {
		horizon = defaultHorizonWeeks
	}
	pct := float64(s.WeeksCompleted) / float64(horizon) * 100
	for _, t := range milestoneThresholds {
		if pct >= float64(t) && pct < float64(t)+1 {
			return &model.Milestone{Threshold: t, Week: s.WeeksCompleted, Percent: pct}
		}
	}
	return nil
}
