// Package positioncsv reads portfolio position files in the standard
// column layout (instrument_id, category, balance, rate_type, spread_bps,
// current_rate, payment_freq, maturity_date, next_repricing_date,
// is_core_NMD, behavioral_flag). Unknown columns are ignored so extended
// extracts load without modification.
package positioncsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quantrisk/irrbb/internal/domain/position"
)

// date layouts accepted in position files, tried in order.
var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339}

// ReadFile loads and validates a position CSV from disk.
func ReadFile(path string) ([]position.Position, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open positions file: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses positions from a CSV stream. The first row must be a header;
// every data row is validated before it is returned, so a bad row fails
// the whole load with a ValidationError naming the instrument and field.
func Read(r io.Reader) ([]position.Position, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read positions header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"instrument_id", "category", "balance", "rate_type", "payment_freq"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("positions file missing column %q", required)
		}
	}

	var positions []position.Position
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read positions row %d: %w", line, err)
		}
		pos, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("positions row %d: %w", line, err)
		}
		if err := pos.Validate(); err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

func parseRow(cols map[string]int, row []string) (position.Position, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var pos position.Position
	pos.InstrumentID = field("instrument_id")
	pos.Category = position.Category(field("category"))
	pos.RateType = position.RateType(field("rate_type"))
	pos.PaymentFreq = position.PaymentFrequency(field("payment_freq"))
	pos.BehavioralFlag = position.BehavioralFlag(field("behavioral_flag"))

	var err error
	if pos.Balance, err = parseFloat(field("balance"), "balance"); err != nil {
		return pos, err
	}
	if pos.CurrentRate, err = parseFloat(field("current_rate"), "current_rate"); err != nil {
		return pos, err
	}
	if pos.SpreadBPS, err = parseFloat(field("spread_bps"), "spread_bps"); err != nil {
		return pos, err
	}
	if pos.MaturityDate, err = parseDate(field("maturity_date"), "maturity_date"); err != nil {
		return pos, err
	}
	if pos.NextRepriceDate, err = parseDate(field("next_repricing_date"), "next_repricing_date"); err != nil {
		return pos, err
	}
	if pos.IsCoreNMD, err = parseBool(field("is_core_nmd")); err != nil {
		return pos, fmt.Errorf("column is_core_NMD: %w", err)
	}
	return pos, nil
}

// parseFloat treats an empty cell as zero; the original files leave
// spread_bps and current_rate blank for instruments they do not apply to.
func parseFloat(s, col string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid number %q", col, s)
	}
	return v, nil
}

// parseDate treats an empty cell (or a pandas NaT) as the zero time.
func parseDate(s, col string) (time.Time, error) {
	if s == "" || strings.EqualFold(s, "nat") || strings.EqualFold(s, "none") {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: invalid date %q", col, s)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "", "false", "0", "no":
		return false, nil
	case "true", "1", "yes":
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
