package aggregate

import (
	"testing"
	"time"

	"github.com/siftdev/sift/internal/model"
)

func msg(ts time.Time) model.Message {
	return model.Message{
		Role:      model.RoleUser,
		Timestamp: ts,
		Content:   []model.ContentBlock{{Kind: model.BlockText, Text: "hi"}},
	}
}

func TestAggregate_HourlyAndDaily(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			msg(time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)),
			msg(time.Date(2026, 7, 30, 9, 30, 0, 0, time.UTC)),
			msg(time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)),
		},
	}

	temporal := Aggregate([]ConversationMessages{conv}, Scope{}, now)

	if temporal.HourlyActivity[9] != 2 {
		t.Errorf("expected 2 messages at hour 9, got %d", temporal.HourlyActivity[9])
	}
	if temporal.HourlyActivity[10] != 1 {
		t.Errorf("expected 1 message at hour 10, got %d", temporal.HourlyActivity[10])
	}
	if temporal.BusiestHour == nil || *temporal.BusiestHour != 9 {
		t.Errorf("expected busiest hour 9, got %v", temporal.BusiestHour)
	}
	if temporal.TotalActiveDays != 2 {
		t.Errorf("expected 2 active days, got %d", temporal.TotalActiveDays)
	}
}

func TestAggregate_AllZero_BusiestIsNil(t *testing.T) {
	t.Parallel()
	now := time.Now()
	temporal := Aggregate(nil, Scope{}, now)
	if temporal.BusiestHour != nil || temporal.BusiestDay != nil {
		t.Error("expected nil busiest hour/day for empty input")
	}
}

func TestAggregate_Streaks(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			msg(time.Date(2026, 7, 29, 9, 0, 0, 0, time.UTC)),
			msg(time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)),
			msg(time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC)),
		},
	}

	temporal := Aggregate([]ConversationMessages{conv}, Scope{}, now)
	if temporal.Streaks.Current != 3 {
		t.Errorf("expected current streak 3, got %d", temporal.Streaks.Current)
	}
	if temporal.Streaks.Longest != 3 {
		t.Errorf("expected longest streak 3, got %d", temporal.Streaks.Longest)
	}
	gotDays := temporal.Streaks.LongestPeriod.End.Sub(temporal.Streaks.LongestPeriod.Start).Hours() / 24
	if int(gotDays)+1 != temporal.Streaks.Longest {
		t.Errorf("longest period span %v days does not match Longest=%d", gotDays+1, temporal.Streaks.Longest)
	}
}

func TestAggregate_NoTimestamp_Skipped(t *testing.T) {
	t.Parallel()
	conv := ConversationMessages{
		Conversation: model.Conversation{ID: "c1"},
		Messages: []model.Message{
			{Role: model.RoleUser, Content: []model.ContentBlock{{Kind: model.BlockText, Text: "no ts"}}},
		},
	}
	temporal := Aggregate([]ConversationMessages{conv}, Scope{}, time.Now())
	for _, v := range temporal.HourlyActivity {
		if v != 0 {
			t.Fatal("expected untimestamped messages to be skipped entirely")
		}
	}
}

func TestSundayAlignedWeekStart_IsSunday(t *testing.T) {
	t.Parallel()
	wed := time.Date(2026, 7, 29, 15, 30, 0, 0, time.UTC)
	week := sundayAlignedWeekStart(wed)
	if week.Weekday() != time.Sunday {
		t.Errorf("expected Sunday, got %v", week.Weekday())
	}
	if week.After(wed) {
		t.Error("week start must not be after the original timestamp")
	}
}
