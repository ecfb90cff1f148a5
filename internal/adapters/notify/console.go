package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/v3lab/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
	now   func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table, now: time.Now}
}

// NotifyScan imprime el ranking en el modo configurado.
func (c *Console) NotifyScan(_ context.Context, run domain.ScanRun) error {
	if len(run.Results) == 0 {
		fmt.Fprintf(c.out, "[%s] no pools passed the filters (%d candidates, %d skipped)\n",
			c.now().Format("15:04:05"), run.Candidates, run.Skipped)
		return nil
	}

	if c.table {
		c.printRanking(run)
	} else {
		c.printCompact(run)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(run domain.ScanRun) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d pools → %d ranked (skip:%d)",
		c.now().Format("15:04:05"), run.Candidates, len(run.Results), run.Skipped)

	for i, r := range run.Results {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s F/IL %.2f apr%.0f%% ±%.1f%%",
			compactName(r.Pair, 22), r.Chain, r.FeeToILRatio, r.APRAnnual*100, r.EstRangeWidth*100)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printRanking imprime la tabla completa ordenada por ratio fees/IL.
func (c *Console) printRanking(run domain.ScanRun) {
	days := run.Params.LookbackDays
	fmt.Fprintf(c.out, "\n[%s] top %d pools — %d candidates, %d skipped, window %dd, ±%.1fσ\n",
		c.now().Format("15:04:05"), len(run.Results), run.Candidates, run.Skipped,
		days, run.Params.SDMultiplier)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Pair", "DEX", "Chain", "TVL", fmt.Sprintf("APR (%dd)", days),
		"Vol", "Range ±", "P(in)", "Fees Prob.", "IL", "Ratio F/IL")

	for i, r := range run.Results {
		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(r.Pair, 28),
			r.Dex,
			r.Chain,
			usd(r.TVLUSD),
			fmt.Sprintf("%.1f%%", r.APRAnnual*100),
			fmt.Sprintf("%.1f%%", r.VolatilityAnnual*100),
			fmt.Sprintf("%.1f%%", r.EstRangeWidth*100),
			fmt.Sprintf("%.0f%%", r.ProbabilityInRange*100),
			fmt.Sprintf("%.2f%%", r.EstProbableFeeYield*100),
			fmt.Sprintf("%.2f%%", r.EstWorstCaseIL*100),
			fmt.Sprintf("%.2f", r.FeeToILRatio),
		)
	}
	table.Render()

	fmt.Fprintln(c.out, "  Fees Prob. = APR × días/365 × P(in) | IL = peor caso en el borde del rango")
	fmt.Fprintln(c.out, "  Ratio F/IL > 1: las fees esperadas cubren el IL del peor caso")
	fmt.Fprintln(c.out)
}

// NotifyBacktest imprime los KPIs, el rango inicial y, en modo tabla, la traza completa.
func (c *Console) NotifyBacktest(_ context.Context, run domain.BacktestRun) error {
	res := run.Result
	if len(res.Records) == 0 {
		fmt.Fprintf(c.out, "\n  No backtest records for %s.\n", run.Pool.Address)
		return nil
	}

	s := run.Summary()
	p := run.Params
	first := res.Records[0]
	last := res.Records[len(res.Records)-1]

	fmt.Fprintf(c.out, "\n=== BACKTEST %s (%s) ===\n", domain.PairName(run.Pool), shortAddress(run.Pool.Address))
	fmt.Fprintf(c.out, "  %s → %s  %d periods  $%.0f  ±%.1fσ  vol window %dd\n",
		dateLabel(first.Date), dateLabel(last.Date), s.Periods, p.InvestmentUSD, p.SDMultiplier, p.LookbackDays)

	fmt.Fprintf(c.out, "\n  Final value V3:  $%s  (%+.2f%%)\n", money(s.FinalValueUSD), s.ROI*100)
	fmt.Fprintf(c.out, "  HODL value:      $%s  (%+.2f%%)\n", money(s.HodlValueUSD), s.HodlROI*100)
	fmt.Fprintf(c.out, "  Total fees:      $%.2f\n", s.TotalFeesUSD)
	fmt.Fprintf(c.out, "  V3 vs HODL:      $%+.2f\n", s.VsHodl)
	fmt.Fprintf(c.out, "  Time in range:   %.1f%%\n", s.TimeInRange*100)
	if p.AutoRebalance {
		fmt.Fprintf(c.out, "  Rebalances:      %d (cost %.2f%% each)\n", s.RebalanceCount, p.RebalanceCost*100)
	}
	fmt.Fprintf(c.out, "\n  Initial range: ±%.1f%%. Entry: %.4f. Bounds: %.4f - %.4f (vol %.1f%%)\n",
		res.Metadata.InitialRangeWidth*100, first.Price, res.InitialLower, res.InitialUpper,
		res.Metadata.InitialVolatility*100)
	if res.Metadata.SkippedSnapshots > 0 {
		fmt.Fprintf(c.out, "  Skipped snapshots: %d (no price)\n", res.Metadata.SkippedSnapshots)
	}

	if c.table {
		c.printTrace(res.Records, p.SnapshotsPerDay)
	}
	fmt.Fprintln(c.out)
	return nil
}

// printTrace imprime una fila por snapshot replayeado.
func (c *Console) printTrace(records []domain.SimulationRecord, perDay int) {
	feesHeader := "Fees"
	if perDay > 0 {
		feesHeader = fmt.Sprintf("Fees (%dh)", 24/perDay)
	}

	fmt.Fprintln(c.out)
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Price", "Min", "Max", "Width ±", "APR", feesHeader, "Total", "State")

	for _, r := range records {
		state := "in"
		if !r.InRange {
			state = "OUT"
		}
		if r.Rebalanced {
			state = "rebal"
		}
		table.Append(
			dateLabel(r.Date),
			fmt.Sprintf("%.4f", r.Price),
			fmt.Sprintf("%.4f", r.RangeLower),
			fmt.Sprintf("%.4f", r.RangeUpper),
			fmt.Sprintf("%.2f%%", r.RangeWidth*100),
			fmt.Sprintf("%.2f%%", r.APRAnnualPct),
			fmt.Sprintf("$%.2f", r.FeesThisPeriod),
			fmt.Sprintf("$%.2f", r.TotalValueUSD()),
			state,
		)
	}
	table.Render()
}

// PrintPoolAnalysis imprime la evaluación de un solo pool. impliedVol <= 0 indica
// que no hay índice de volatilidad implícita para comparar.
func (c *Console) PrintPoolAnalysis(r domain.PoolScanResult, days int, impliedVol float64) {
	fmt.Fprintf(c.out, "\n=== %s  %s · %s ===\n", r.Pair, r.Dex, r.Chain)
	fmt.Fprintf(c.out, "  Address:        %s\n", r.Address)
	fmt.Fprintf(c.out, "  TVL:            $%s\n", money(r.TVLUSD))
	fmt.Fprintf(c.out, "  APR (%dd avg):   %.1f%%\n", days, r.APRAnnual*100)
	fmt.Fprintf(c.out, "  Realized vol:   %.1f%%  (%d snapshots)\n", r.VolatilityAnnual*100, r.Snapshots)
	if impliedVol > 0 {
		fmt.Fprintf(c.out, "  Implied vol:    %.1f%%  (spread %+.1f pts)\n",
			impliedVol*100, (impliedVol-r.VolatilityAnnual)*100)
	}
	fmt.Fprintf(c.out, "  Range:          ±%.1f%%  P(in) %.0f%%\n", r.EstRangeWidth*100, r.ProbabilityInRange*100)
	fmt.Fprintf(c.out, "  Fees prob.:     %.2f%%\n", r.EstProbableFeeYield*100)
	fmt.Fprintf(c.out, "  Worst-case IL:  %.2f%%\n", r.EstWorstCaseIL*100)
	fmt.Fprintf(c.out, "  Ratio F/IL:     %.2f  margin %+.2f%%\n\n", r.FeeToILRatio, r.Margin*100)
}

// --- helpers ---

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func shortAddress(a string) string {
	if len(a) > 14 {
		return a[:8] + "…" + a[len(a)-4:]
	}
	return a
}

func dateLabel(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("02/01/2006 15:04")
}

// usd abrevia importes grandes: 1.5M, 820K.
func usd(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.0fK", v/1e3)
	}
	return fmt.Sprintf("$%.0f", v)
}

// money formatea con separador de miles: 1234567.8 → "1,234,568".
func money(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%.0f", v)
	var sb strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	if neg {
		return "-" + sb.String()
	}
	return sb.String()
}
