package notifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Abdussalam-popsy/savvy-dca/internal/model"
)

// FormatTickReport renders one executed weekly buy for announcement.
func FormatTickReport(tx *model.Transaction, status *model.Status) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Week %d DCA executed | %s\n\n", tx.Week, tx.Date.Format("2006-01-02")))
	b.WriteString(fmt.Sprintf("Spent: %s GAS (tx %s)\n", gas(tx.GasSpent), tx.TxHash))

	b.WriteString("Purchased:\n")
	for _, sym := range sortedSymbols(tx.Purchased) {
		b.WriteString(fmt.Sprintf("  %s: %.6f\n", sym, tx.Purchased[sym]))
	}

	p := status.Portfolio
	b.WriteString(fmt.Sprintf("\nPortfolio value: %s GAS (cost basis %s GAS)\n", gas(p.TotalValue), gas(p.CostBasis)))
	b.WriteString(fmt.Sprintf("P/L: %s GAS (%+.2f%%)\n", gas(p.ProfitLoss), p.ProfitLossPercent))
	b.WriteString(fmt.Sprintf("Pool balance: %s GAS | next buy %s\n", gas(status.DCAPoolBalance), status.NextDCA.Format("2006-01-02 15:04")))

	return b.String()
}

// FormatMilestone renders a progress milestone celebration.
func FormatMilestone(ms *model.Milestone, status *model.Status) string {
	name := ""
	if status.Strategy != nil {
		name = status.Strategy.Name
	}
	return fmt.Sprintf("Milestone reached: %d%% of %s complete (week %d, %.1f%%)",
		ms.Threshold, name, ms.Week, ms.Percent)
}

// FormatStatus renders the current session state for display.
func FormatStatus(status *model.Status) string {
	if !status.HasStrategy || status.Strategy == nil {
		return "No strategy configured."
	}

	var b strings.Builder
	s := status.Strategy
	horizon := "ongoing"
	if s.Bounded() {
		horizon = fmt.Sprintf("%d/%d weeks", s.WeeksCompleted, s.TotalWeeks)
	} else {
		horizon = fmt.Sprintf("%d weeks so far", s.WeeksCompleted)
	}
	b.WriteString(fmt.Sprintf("%s by %s | %s GAS/week | %s\n", s.Name, s.Creator, gas(s.WeeklyAmount), horizon))
	if s.StrictMode {
		b.WriteString("Strict mode on: withdrawals locked\n")
	}

	p := status.Portfolio
	b.WriteString(fmt.Sprintf("Value: %s GAS | P/L %s GAS (%+.2f%%)\n", gas(p.TotalValue), gas(p.ProfitLoss), p.ProfitLossPercent))
	for _, sym := range sortedSymbols(p.Holdings) {
		b.WriteString(fmt.Sprintf("  %s: %.6f (%s GAS, %+.2f%%)\n",
			sym, p.Holdings[sym], gas(p.HoldingsValue[sym]), p.HoldingsChange[sym]))
	}
	b.WriteString(fmt.Sprintf("Pool: %s GAS | next buy %s\n", gas(status.DCAPoolBalance), status.NextDCA.Format("2006-01-02 15:04")))
	return b.String()
}

func gas(v float64) string {
	return humanize.CommafWithDigits(v, 2)
}

func sortedSymbols(m map[string]float64) []string {
	syms := make([]string, 0, len(m))
	for s := range m {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return syms
}
