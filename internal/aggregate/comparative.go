package aggregate

// Delta describes a change between two adjacent periods of a trend series.
type Delta struct {
	Current       int     `json:"current"`
	Previous      int     `json:"previous"`
	Change        int     `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Trend         string  `json:"trend"` // "increasing", "decreasing", or "stable"
}

// Comparative is the output of AggregateComparative (spec §4.5.6).
type Comparative struct {
	WeekOverWeek   Delta   `json:"week_over_week"`
	MonthOverMonth Delta   `json:"month_over_month"`
	WeeklyForecast float64 `json:"weekly_forecast"`
}

const forecastWindow = 6

// AggregateComparative derives week-over-week and month-over-month deltas
// from the trailing two buckets of t.WeeklyTrend/t.MonthlyTrend (the last
// bucket is the current period, per Aggregate's bucketing convention), plus
// a simple linear forecast of next week's count from the trailing window.
func AggregateComparative(t Temporal) Comparative {
	n := len(t.WeeklyTrend)
	weekDelta := computeDelta(t.WeeklyTrend[n-1], t.WeeklyTrend[n-2])

	m := len(t.MonthlyTrend)
	monthDelta := computeDelta(t.MonthlyTrend[m-1], t.MonthlyTrend[m-2])

	return Comparative{
		WeekOverWeek:   weekDelta,
		MonthOverMonth: monthDelta,
		WeeklyForecast: linearForecast(t.WeeklyTrend[:]),
	}
}

func computeDelta(current, previous int) Delta {
	d := Delta{Current: current, Previous: previous, Change: current - previous}
	switch {
	case d.Change > 0:
		d.Trend = "increasing"
	case d.Change < 0:
		d.Trend = "decreasing"
	default:
		d.Trend = "stable"
	}
	if previous > 0 {
		d.ChangePercent = float64(d.Change) / float64(previous) * 100
	} else if current > 0 {
		d.ChangePercent = 100
	}
	return d
}

// linearForecast fits a least-squares line over the trailing forecastWindow
// points of series and projects one step ahead, floored at zero — a count
// can never be negative.
func linearForecast(series []int) float64 {
	window := series
	if len(window) > forecastWindow {
		window = window[len(window)-forecastWindow:]
	}
	n := len(window)
	if n == 0 {
		return 0
	}
	if n == 1 {
		if window[0] < 0 {
			return 0
		}
		return float64(window[0])
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range window {
		x := float64(i)
		y := float64(v)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return float64(window[n-1])
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn
	forecast := slope*fn + intercept // x = n predicts one step past the window
	if forecast < 0 {
		return 0
	}
	return forecast
}
