package aggregate

import "testing"

func TestComputeDelta_IncreasingDecreasingStable(t *testing.T) {
	t.Parallel()
	if d := computeDelta(10, 5); d.Trend != "increasing" || d.Change != 5 {
		t.Errorf("expected increasing/+5, got %+v", d)
	}
	if d := computeDelta(5, 10); d.Trend != "decreasing" || d.Change != -5 {
		t.Errorf("expected decreasing/-5, got %+v", d)
	}
	if d := computeDelta(5, 5); d.Trend != "stable" {
		t.Errorf("expected stable, got %+v", d)
	}
}

func TestComputeDelta_ZeroPrevious(t *testing.T) {
	t.Parallel()
	d := computeDelta(3, 0)
	if d.ChangePercent != 100 {
		t.Errorf("expected 100%% change from zero baseline, got %v", d.ChangePercent)
	}
	d2 := computeDelta(0, 0)
	if d2.ChangePercent != 0 || d2.Trend != "stable" {
		t.Errorf("expected stable/0%% for 0->0, got %+v", d2)
	}
}

func TestAggregateComparative_ReadsLastTwoBuckets(t *testing.T) {
	t.Parallel()
	var temporal Temporal
	temporal.WeeklyTrend[10] = 5
	temporal.WeeklyTrend[11] = 8
	temporal.MonthlyTrend[10] = 2
	temporal.MonthlyTrend[11] = 1

	c := AggregateComparative(temporal)
	if c.WeekOverWeek.Current != 8 || c.WeekOverWeek.Previous != 5 {
		t.Errorf("unexpected week delta: %+v", c.WeekOverWeek)
	}
	if c.MonthOverMonth.Current != 1 || c.MonthOverMonth.Previous != 2 {
		t.Errorf("unexpected month delta: %+v", c.MonthOverMonth)
	}
}

func TestLinearForecast_NeverNegative(t *testing.T) {
	t.Parallel()
	f := linearForecast([]int{10, 6, 2})
	if f < 0 {
		t.Errorf("expected forecast floored at zero, got %v", f)
	}
}

func TestLinearForecast_Empty(t *testing.T) {
	t.Parallel()
	if f := linearForecast(nil); f != 0 {
		t.Errorf("expected 0 for empty series, got %v", f)
	}
}

func TestLinearForecast_Increasing(t *testing.T) {
	t.Parallel()
	f := linearForecast([]int{1, 2, 3, 4, 5})
	if f <= 5 {
		t.Errorf("expected forecast to extrapolate above last point, got %v", f)
	}
}
