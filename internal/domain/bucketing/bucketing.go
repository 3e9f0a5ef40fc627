package bucketing

import (
	"math"
	"time"

	"github.com/quantrisk/irrbb/internal/domain/cashflow"
	"github.com/quantrisk/irrbb/internal/domain/curve"
)

// Definition is one regulatory time band, bounded in months from the
// valuation date. The interval is [LowerMonths, UpperMonths); the last band
// is open-ended with UpperMonths = +Inf.
type Definition struct {
	Label       string
	LowerMonths float64
	UpperMonths float64
}

// BaselDefinitions returns the standard 9-bucket Basel band set.
func BaselDefinitions() []Definition {
	return []Definition{
		{Label: "0-1M", LowerMonths: 0, UpperMonths: 1},
		{Label: "1-3M", LowerMonths: 1, UpperMonths: 3},
		{Label: "3-6M", LowerMonths: 3, UpperMonths: 6},
		{Label: "6-12M", LowerMonths: 6, UpperMonths: 12},
		{Label: "1-2Y", LowerMonths: 12, UpperMonths: 24},
		{Label: "2-3Y", LowerMonths: 24, UpperMonths: 36},
		{Label: "3-5Y", LowerMonths: 36, UpperMonths: 60},
		{Label: "5-10Y", LowerMonths: 60, UpperMonths: 120},
		{Label: ">10Y", LowerMonths: 120, UpperMonths: math.Inf(1)},
	}
}

// BucketedRecord is a cash flow annotated with its time band.
type BucketedRecord struct {
	cashflow.Record
	Bucket       string
	MonthsToFlow float64
}

// MapToBuckets assigns each cash flow to the first band containing its
// horizon, measured with the fixed 30.4375-day month. Cash flows dated
// strictly before the valuation date are dropped.
func MapToBuckets(records []cashflow.Record, valuationDate time.Time, defs []Definition) []BucketedRecord {
	out := make([]BucketedRecord, 0, len(records))
	for _, r := range records {
		if r.Date.Before(valuationDate) {
			continue
		}
		days := r.Date.Sub(valuationDate).Hours() / 24
		months := days / curve.DaysPerMonth
		for _, d := range defs {
			if months >= d.LowerMonths && months < d.UpperMonths {
				out = append(out, BucketedRecord{Record: r, Bucket: d.Label, MonthsToFlow: months})
				break
			}
		}
	}
	return out
}

// NetGapRow is one line of the repricing-gap table.
type NetGapRow struct {
	Bucket        string
	TotalInflows  float64
	TotalOutflows float64
	NetGap        float64
}

// NetGap aggregates bucketed cash flows into the ordered gap table: asset
// flows count as inflows, liability flows as outflows, and every defined
// band appears even when empty.
func NetGap(bucketed []BucketedRecord, defs []Definition) []NetGapRow {
	index := make(map[string]int, len(defs))
	rows := make([]NetGapRow, len(defs))
	for i, d := range defs {
		rows[i] = NetGapRow{Bucket: d.Label}
		index[d.Label] = i
	}
	for _, b := range bucketed {
		i, ok := index[b.Bucket]
		if !ok {
			continue
		}
		if b.Category.IsAsset() {
			rows[i].TotalInflows += b.Amount
		} else {
			rows[i].TotalOutflows += b.Amount
		}
	}
	for i := range rows {
		rows[i].NetGap = rows[i].TotalInflows - rows[i].TotalOutflows
	}
	return rows
}
