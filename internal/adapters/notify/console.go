package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/LTOFFICIALUK/polyvec-sub002/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implements ports.Notifier: it renders the backtest summary,
// the trade log and any failures as a terminal report.
type Console struct {
	out     io.Writer
	verbose bool
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole(verbose bool) *Console {
	return &Console{out: os.Stdout, verbose: verbose}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, verbose bool) *Console {
	return &Console{out: w, verbose: verbose}
}

// maxTradeRows caps the trade table in non-verbose mode.
const maxTradeRows = 20

// Notify prints the full report.
func (c *Console) Notify(_ context.Context, r domain.BacktestResult) error {
	c.printHeader(r)
	c.printSummary(r)
	c.printTrades(r)
	c.printFailures(r)
	return nil
}

func (c *Console) printHeader(r domain.BacktestResult) {
	name := r.StrategyName
	if name == "" {
		name = r.StrategyID
	}
	fmt.Fprintf(c.out, "\n=== BACKTEST: %s ===\n", truncate(name, 50))
	if !r.StartTime.IsZero() {
		fmt.Fprintf(c.out, "  Window:  %s to %s\n",
			r.StartTime.Format("2006-01-02 15:04"),
			r.EndTime.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(c.out, "  Markets: %d tested, %d failed | candles: %d | triggers: %d\n",
		r.MarketsTested, r.MarketsFailed, r.CandlesProcessed, r.ConditionsTriggered)
}

func (c *Console) printSummary(r domain.BacktestResult) {
	fmt.Fprintf(c.out, "\n  Balance:      $%.2f -> $%.2f  (%+.2f, %+.2f%%)\n",
		r.InitialBalance, r.FinalBalance, r.TotalPnl, r.TotalPnlPercent)
	fmt.Fprintf(c.out, "  Trades:       %d closed, %d won / %d lost (win rate %.1f%%)\n",
		r.TotalTrades, r.WinningTrades, r.LosingTrades, r.WinRate)
	fmt.Fprintf(c.out, "  Avg win/loss: $%.2f / $%.2f\n", r.AvgWin, r.AvgLoss)
	fmt.Fprintf(c.out, "  ProfitFactor: %s | MaxDD: $%.2f (%.1f%%) | Sharpe: %.2f\n",
		profitFactorLabel(r.ProfitFactor), r.MaxDrawdown, r.MaxDrawdownPercent, r.SharpeRatio)
}

func (c *Console) printTrades(r domain.BacktestResult) {
	if len(r.Trades) == 0 {
		fmt.Fprintln(c.out, "\n  No trades executed.")
		return
	}

	trades := r.Trades
	hidden := 0
	if !c.verbose && len(trades) > maxTradeRows {
		hidden = len(trades) - maxTradeRows
		trades = trades[len(trades)-maxTradeRows:]
	}

	fmt.Fprintln(c.out)
	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Side", "Price", "Shares", "Value", "PnL", "Balance", "Reason")

	for _, tr := range trades {
		pnlLabel := "-"
		if tr.PnL != nil {
			pnlLabel = fmt.Sprintf("%+.2f", *tr.PnL)
		}
		table.Append(
			tr.Timestamp.Format("01-02 15:04"),
			string(tr.Side),
			fmt.Sprintf("%.2f", tr.Price),
			fmt.Sprintf("%d", tr.Shares),
			fmt.Sprintf("$%.2f", tr.Value),
			pnlLabel,
			fmt.Sprintf("$%.2f", tr.Balance),
			truncate(tr.TriggerReason, 32),
		)
	}
	table.Render()

	if hidden > 0 {
		fmt.Fprintf(c.out, "  (%d earlier trades hidden, use --verbose to show all)\n", hidden)
	}
}

func (c *Console) printFailures(r domain.BacktestResult) {
	if len(r.Failures) == 0 {
		fmt.Fprintln(c.out)
		return
	}

	byCat := map[domain.FailureCategory]int{}
	for _, f := range r.Failures {
		byCat[f.Category]++
	}

	fmt.Fprintf(c.out, "\n  Failures (%d):\n", len(r.Failures))
	for _, cat := range []domain.FailureCategory{
		domain.FailConfigError,
		domain.FailResolutionUnavailable,
		domain.FailDataGapWarning,
		domain.FailRiskBlocked,
	} {
		if n := byCat[cat]; n > 0 {
			fmt.Fprintf(c.out, "    %-22s %d\n", cat, n)
		}
	}

	if c.verbose {
		for _, f := range r.Failures {
			label := f.Reason
			if f.MarketID != "" {
				label = fmt.Sprintf("%s: %s", shortID(f.MarketID), f.Reason)
			}
			fmt.Fprintf(c.out, "    - [%s] %s\n", f.Category, label)
		}
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

func profitFactorLabel(pf float64) string {
	if pf >= 999 {
		return "INF"
	}
	return fmt.Sprintf("%.2f", pf)
}

func shortID(id string) string {
	if len(id) > 14 {
		return id[:12] + "..."
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
