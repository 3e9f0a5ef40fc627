package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/quantrisk/irrbb/internal/application/pipeline"
	"github.com/quantrisk/irrbb/internal/domain/curve"
	"github.com/quantrisk/irrbb/internal/domain/shock"
)

func outputReport(report *pipeline.RunReport, format string) error {
	switch format {
	case "json":
		return outputJSON(report)
	case "csv":
		return outputReportCSV(report)
	case "table":
		return outputReportTable(report)
	default:
		return fmt.Errorf("unknown format %q (expected table, json, or csv)", format)
	}
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func outputReportCSV(report *pipeline.RunReport) error {
	fmt.Println("Scenario,EVE,DeltaEVE,DeltaEVEPctTier1,DeltaNII")
	for _, row := range report.Rows {
		fmt.Printf("%s,%.2f,%.2f,%.4f,%.2f\n",
			row.Scenario, row.EVE, row.DeltaEVE, row.DeltaEVEPctTier1, row.DeltaNII)
	}
	return nil
}

func outputReportTable(report *pipeline.RunReport) error {
	b := report.Baseline
	fmt.Printf("Valuation Run %s (valuation date %s, generated %s)\n\n",
		report.RunID, b.ValuationDate.Format("2006-01-02"), report.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Baseline: PV assets %.2f  PV liabilities %.2f  EVE %.2f  NII(12m) %.2f\n\n",
		b.Valuation.PVAssets, b.Valuation.PVLiabilities, b.Valuation.EVE, b.NII)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\n", "Scenario\tEVE\tΔEVE\tΔEVE %Tier1\tΔNII")
	fmt.Fprintln(w, "--------\t---\t----\t-----------\t----")
	for _, row := range report.Rows {
		fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f%%\t%.2f\n",
			row.Scenario, row.EVE, row.DeltaEVE, row.DeltaEVEPctTier1, row.DeltaNII)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nWorst case: %s (ΔEVE %.2f, %.2f%% of Tier-1)\n",
		report.WorstCase.Scenario, report.WorstCase.DeltaEVE, report.WorstCase.DeltaEVEPctTier1)
	return nil
}

func outputGap(baseline *pipeline.BaselineResult, format string) error {
	switch format {
	case "json":
		return outputJSON(baseline.GapTable)
	case "csv":
		fmt.Println("Bucket,TotalInflows,TotalOutflows,NetGap")
		for _, row := range baseline.GapTable {
			fmt.Printf("%s,%.2f,%.2f,%.2f\n", row.Bucket, row.TotalInflows, row.TotalOutflows, row.NetGap)
		}
		return nil
	case "table":
		fmt.Printf("Repricing gap as of %s\n\n", baseline.ValuationDate.Format("2006-01-02"))
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Bucket\tInflows\tOutflows\tNet Gap")
		fmt.Fprintln(w, "------\t-------\t--------\t-------")
		for _, row := range baseline.GapTable {
			fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\n", row.Bucket, row.TotalInflows, row.TotalOutflows, row.NetGap)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown format %q (expected table, json, or csv)", format)
	}
}

// outputCurve prints the baseline curve, or the shocked curve when a
// scenario name is given.
func outputCurve(engine *pipeline.Engine, args []string) error {
	base, err := curve.Build(engine.Market, engine.TargetTenorsMonths, engine.LiquiditySpreadBPS)
	if err != nil {
		return err
	}
	label := "baseline"
	out := base
	if len(args) == 1 {
		sc, err := shock.ByName(engine.Scenarios, args[0])
		if err != nil {
			return err
		}
		out = shock.ShockedCurve(base, sc)
		label = sc.Name
	}

	fmt.Printf("Discount curve (%s) as of %s\n\n", label, engine.ValuationDate.Format("2006-01-02"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Tenor (months)\tRate")
	fmt.Fprintln(w, "--------------\t----")
	for _, p := range out.Points {
		fmt.Fprintf(w, "%.2f\t%.4f%%\n", p.TenorMonths, p.Rate*100)
	}
	return w.Flush()
}
