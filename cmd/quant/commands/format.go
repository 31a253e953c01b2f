package commands

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/dipbot/internal/audit"
	"github.com/wonny/dipbot/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// every command prints through these helpers
// ═══════════════════════════════════════════════════════════

// out is the destination of every Print helper
var out io.Writer = os.Stdout

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Fprintln(out, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Fprintln(out, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "⚠️  %s\n", message)
	fmt.Fprintln(out)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Fprintf(out, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(out, "❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(out, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(out, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(out, "  ")
		}
	}
	fmt.Fprintln(out)
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Fprintf(out, "   %-*s : %s\n", keyWidth, key, value)
}

func listOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// PrintRunReport prints one strategy run
func PrintRunReport(report *contracts.RunReport) {
	mode := "EXECUTE"
	if !report.Execute {
		mode = "DRY RUN"
	}

	fmt.Fprintln(out)
	PrintDoubleSeparator()
	fmt.Fprintf(out, "  Strategy run %s (%s)\n", report.RunID, mode)
	PrintSeparator()
	PrintKeyValue("Version", report.StrategyVersion, 9)
	PrintKeyValue("Started", report.StartedAt.Format("2006-01-02 15:04:05 MST"), 9)
	PrintKeyValue("Duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond).String(), 9)
	PrintKeyValue("Buys", listOrDash(report.Buys), 9)
	PrintKeyValue("Sells", listOrDash(report.Sells), 9)
	PrintSeparator()

	widths := []int{5, 10, 9, 26, 8}
	PrintTableHeader([]string{"SIDE", "SYMBOL", "OUTCOME", "REASON", "QTY"}, widths)
	for _, item := range report.Items {
		qty := ""
		if item.Quantity != 0 {
			qty = strconv.FormatInt(item.Quantity, 10)
		}
		PrintTableRow([]string{string(item.Side), item.Symbol, string(item.Outcome), item.Reason, qty}, widths)
	}
	PrintDoubleSeparator()
}

// PrintPositions prints ledger rows
func PrintPositions(positions []contracts.Position) {
	if len(positions) == 0 {
		fmt.Fprintln(out, "No positions")
		return
	}

	widths := []int{6, 8, 10, 6, 10, 10, 10, 7, 10}
	PrintTableHeader([]string{"ID", "TICKER", "BUY DATE", "QTY", "COST", "PRICE", "TARGET", "STATUS", "PROFIT"}, widths)
	for i := range positions {
		p := &positions[i]
		profit := "-"
		if p.Profit != nil {
			profit = p.Profit.StringFixed(2)
		}
		PrintTableRow([]string{
			strconv.FormatInt(p.ID, 10),
			p.Ticker,
			p.BuyDate.Format("2006-01-02"),
			strconv.FormatInt(p.Quantity, 10),
			p.AverageCost.StringFixed(2),
			p.CurrentPrice.StringFixed(2),
			p.TargetPrice.StringFixed(2),
			string(p.Status()),
			profit,
		}, widths)
	}
}

// PrintRuns prints recorded runs
func PrintRuns(runs []contracts.RunReport) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}

	widths := []int{36, 16, 7, 8, 20, 20}
	PrintTableHeader([]string{"RUN ID", "STARTED", "EXEC", "VERSION", "BUYS", "SELLS"}, widths)
	for _, run := range runs {
		PrintTableRow([]string{
			run.RunID,
			run.StartedAt.Format("2006-01-02 15:04"),
			strconv.FormatBool(run.Execute),
			run.StrategyVersion,
			listOrDash(run.Buys),
			listOrDash(run.Sells),
		}, widths)
		if run.Error != "" {
			PrintError(run.Error)
		}
	}
}

// PrintPerformance prints the realized performance summary
func PrintPerformance(r *audit.PerformanceReport) {
	fmt.Fprintln(out)
	PrintDoubleSeparator()
	fmt.Fprintf(out, "  Performance as of %s\n", r.AsOf.Format("2006-01-02 15:04 MST"))
	PrintSeparator()
	PrintKeyValue("Open", fmt.Sprintf("%d (cost %s)", r.OpenPositions, r.OpenCost.StringFixed(2)), 13)
	PrintKeyValue("Closed", strconv.Itoa(r.ClosedPositions), 13)
	PrintKeyValue("Realized P&L", fmt.Sprintf("%s (%s%%)", r.RealizedPnL.StringFixed(2), r.RealizedRetPc.StringFixed(2)), 13)
	PrintKeyValue("Win rate", r.WinRate.Shift(2).StringFixed(1)+"%", 13)
	PrintKeyValue("Avg win", r.AvgWin.StringFixed(2), 13)
	PrintKeyValue("Avg loss", r.AvgLoss.StringFixed(2), 13)
	PrintKeyValue("Profit factor", r.ProfitFactor.StringFixed(2), 13)
	PrintKeyValue("Avg holding", r.AvgHoldingDay.StringFixed(1)+" days", 13)
	PrintDoubleSeparator()
}
