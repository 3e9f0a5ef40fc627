package curve

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Day-count basis used across the engine: fixed-length months and years so
// that bucket boundaries and discount horizons are reproducible regardless
// of calendar quirks.
const (
	DaysPerMonth = 30.4375
	DaysPerYear  = 365.25
)

// MarketRatePoint is a sparse market quote: a tenor label ("3M", "10Y")
// and an annualized rate in decimal form.
type MarketRatePoint struct {
	Tenor string
	Rate  float64
}

// Point is one node of a built discount curve, expressed in months from
// the valuation date.
type Point struct {
	TenorMonths float64
	Rate        float64
}

// Curve is a discount curve over a fixed grid of standard tenors.
// Tenors are strictly increasing.
type Curve struct {
	Points []Point
}

// DatePoint is a curve node re-expressed in the absolute-date domain.
type DatePoint struct {
	Date time.Time
	Rate float64
}

// DateCurve is a discount curve keyed by absolute dates, used for
// date-based rate lookup during valuation and repricing.
type DateCurve struct {
	ValuationDate time.Time
	Points        []DatePoint
}

// InterpolationError reports a curve that cannot be built or interpolated,
// typically because fewer than two market points were supplied.
type InterpolationError struct {
	Reason string
}

func (e *InterpolationError) Error() string {
	return fmt.Sprintf("curve interpolation: %s", e.Reason)
}

// ParseTenorMonths converts tenor labels like "1M", "6M", "10Y" to months.
func ParseTenorMonths(label string) (float64, error) {
	s := strings.TrimSpace(strings.ToUpper(label))
	switch {
	case strings.HasSuffix(s, "M"):
		v, err := strconv.Atoi(strings.TrimSuffix(s, "M"))
		if err != nil {
			return 0, &InterpolationError{Reason: fmt.Sprintf("invalid tenor label %q", label)}
		}
		return float64(v), nil
	case strings.HasSuffix(s, "Y"):
		v, err := strconv.Atoi(strings.TrimSuffix(s, "Y"))
		if err != nil {
			return 0, &InterpolationError{Reason: fmt.Sprintf("invalid tenor label %q", label)}
		}
		return float64(v) * 12, nil
	default:
		return 0, &InterpolationError{Reason: fmt.Sprintf("invalid tenor label %q, expected <n>M or <n>Y", label)}
	}
}

// Build constructs the baseline discount curve: market quotes are parsed to
// a common month unit, sorted, linearly interpolated onto targetTenorsMonths
// (linear extrapolation beyond the quoted range), and shifted up by the
// liquidity spread. Duplicate market tenors collapse to the last quote.
//
// Fewer than two market points is an InterpolationError. An empty target
// grid yields an empty curve, not an error.
func Build(market []MarketRatePoint, targetTenorsMonths []float64, liquiditySpreadBPS float64) (Curve, error) {
	if len(market) < 2 {
		return Curve{}, &InterpolationError{
			Reason: fmt.Sprintf("need at least 2 market points, got %d", len(market)),
		}
	}
	if len(targetTenorsMonths) == 0 {
		return Curve{}, nil
	}

	byTenor := make(map[float64]float64, len(market))
	for _, m := range market {
		months, err := ParseTenorMonths(m.Tenor)
		if err != nil {
			return Curve{}, err
		}
		byTenor[months] = m.Rate
	}
	if len(byTenor) < 2 {
		return Curve{}, &InterpolationError{
			Reason: fmt.Sprintf("need at least 2 distinct market tenors, got %d", len(byTenor)),
		}
	}

	nodes := make([]Point, 0, len(byTenor))
	for months, rate := range byTenor {
		nodes = append(nodes, Point{TenorMonths: months, Rate: rate})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].TenorMonths < nodes[j].TenorMonths })

	spread := liquiditySpreadBPS / 10000.0
	out := Curve{Points: make([]Point, 0, len(targetTenorsMonths))}
	grid := append([]float64(nil), targetTenorsMonths...)
	sort.Float64s(grid)
	for _, t := range grid {
		out.Points = append(out.Points, Point{
			TenorMonths: t,
			Rate:        interpLinear(nodes, t) + spread,
		})
	}
	return out, nil
}

// interpLinear interpolates between nodes and extrapolates linearly from
// the boundary segments, matching the build-time convention.
func interpLinear(nodes []Point, months float64) float64 {
	n := len(nodes)
	if n == 1 {
		return nodes[0].Rate
	}
	i := sort.Search(n, func(i int) bool { return nodes[i].TenorMonths >= months })
	var lo, hi Point
	switch {
	case i <= 0:
		lo, hi = nodes[0], nodes[1]
	case i >= n:
		lo, hi = nodes[n-2], nodes[n-1]
	default:
		lo, hi = nodes[i-1], nodes[i]
	}
	if hi.TenorMonths == lo.TenorMonths {
		return lo.Rate
	}
	w := (months - lo.TenorMonths) / (hi.TenorMonths - lo.TenorMonths)
	return lo.Rate + w*(hi.Rate-lo.Rate)
}

// RateAt returns the curve rate at an arbitrary horizon in months.
// Linear interpolation between nodes, flat beyond the endpoints.
func (c Curve) RateAt(months float64) float64 {
	n := len(c.Points)
	if n == 0 {
		return 0
	}
	if months <= c.Points[0].TenorMonths {
		return c.Points[0].Rate
	}
	if months >= c.Points[n-1].TenorMonths {
		return c.Points[n-1].Rate
	}
	i := sort.Search(n, func(i int) bool { return c.Points[i].TenorMonths >= months })
	lo, hi := c.Points[i-1], c.Points[i]
	w := (months - lo.TenorMonths) / (hi.TenorMonths - lo.TenorMonths)
	return lo.Rate + w*(hi.Rate-lo.Rate)
}

// ShortestTenor returns the first node's tenor in months.
func (c Curve) ShortestTenor() float64 {
	if len(c.Points) == 0 {
		return 0
	}
	return c.Points[0].TenorMonths
}

// LongestTenor returns the last node's tenor in months.
func (c Curve) LongestTenor() float64 {
	if len(c.Points) == 0 {
		return 0
	}
	return c.Points[len(c.Points)-1].TenorMonths
}

// ToDateCurve re-expresses the curve in the absolute-date domain relative to
// the valuation date. Whole months use calendar arithmetic; fractional
// remainders use the fixed 30.4375-day month.
func (c Curve) ToDateCurve(valuationDate time.Time) DateCurve {
	dc := DateCurve{
		ValuationDate: valuationDate,
		Points:        make([]DatePoint, 0, len(c.Points)),
	}
	for _, p := range c.Points {
		whole := int(p.TenorMonths)
		frac := p.TenorMonths - float64(whole)
		d := valuationDate.AddDate(0, whole, 0)
		if frac > 0 {
			d = d.Add(time.Duration(frac * DaysPerMonth * 24 * float64(time.Hour)))
		}
		dc.Points = append(dc.Points, DatePoint{Date: d, Rate: p.Rate})
	}
	return dc
}

// RateAtDays returns the rate at a horizon expressed in days from the
// valuation date. Linear interpolation, flat beyond the node range.
func (dc DateCurve) RateAtDays(days float64) float64 {
	n := len(dc.Points)
	if n == 0 {
		return 0
	}
	first := dc.days(dc.Points[0].Date)
	last := dc.days(dc.Points[n-1].Date)
	if days <= first {
		return dc.Points[0].Rate
	}
	if days >= last {
		return dc.Points[n-1].Rate
	}
	i := sort.Search(n, func(i int) bool { return dc.days(dc.Points[i].Date) >= days })
	lo, hi := dc.Points[i-1], dc.Points[i]
	loDays, hiDays := dc.days(lo.Date), dc.days(hi.Date)
	if hiDays == loDays {
		return lo.Rate
	}
	w := (days - loDays) / (hiDays - loDays)
	return lo.Rate + w*(hi.Rate-lo.Rate)
}

// RateAt returns the rate at an absolute date.
func (dc DateCurve) RateAt(date time.Time) float64 {
	return dc.RateAtDays(dc.days(date))
}

func (dc DateCurve) days(t time.Time) float64 {
	return t.Sub(dc.ValuationDate).Hours() / 24
}
