package medication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := ParseDate(s)
	require.NoError(t, err)
	return v
}

func formatAll(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = FormatDate(d)
	}
	return out
}

func TestExpand_DailyInclusive(t *testing.T) {
	dates, err := Expand(mustDate(t, "2024-01-01"), mustDate(t, "2024-01-03"), RecurrenceDaily)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, formatAll(dates))
}

func TestExpand_DailyCount(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2024-01-01", "2024-01-01", 1},
		{"2024-01-01", "2024-01-31", 31},
		{"2024-02-01", "2024-03-01", 30}, // leap year
		{"2023-03-20", "2023-04-05", 17},
		{"2024-12-30", "2025-01-02", 4},
	}
	for _, tt := range tests {
		t.Run(tt.start+"_"+tt.end, func(t *testing.T) {
			dates, err := Expand(mustDate(t, tt.start), mustDate(t, tt.end), RecurrenceDaily)
			require.NoError(t, err)
			assert.Len(t, dates, tt.want)
			for i := 1; i < len(dates); i++ {
				assert.Equal(t, dates[i-1].AddDate(0, 0, 1), dates[i], "gap or duplicate at %d", i)
			}
		})
	}
}

func TestExpand_Weekly(t *testing.T) {
	dates, err := Expand(mustDate(t, "2024-01-01"), mustDate(t, "2024-01-29"), RecurrenceWeekly)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22", "2024-01-29"}, formatAll(dates))

	// floor((E-S)/7)+1
	dates, err = Expand(mustDate(t, "2024-01-01"), mustDate(t, "2024-01-28"), RecurrenceWeekly)
	require.NoError(t, err)
	assert.Len(t, dates, 4)
}

func TestExpand_EndBeforeStart(t *testing.T) {
	for _, rt := range []RecurrenceType{RecurrenceDaily, RecurrenceWeekly} {
		dates, err := Expand(mustDate(t, "2024-01-10"), mustDate(t, "2024-01-09"), rt)
		require.NoError(t, err)
		assert.Empty(t, dates, string(rt))
	}
}

func TestExpand_None(t *testing.T) {
	dates, err := Expand(mustDate(t, "2024-02-10"), time.Time{}, RecurrenceNone)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-10"}, formatAll(dates))
}

func TestExpand_RejectsUnsupported(t *testing.T) {
	_, err := Expand(mustDate(t, "2024-01-01"), mustDate(t, "2024-02-01"), RecurrenceMonthly)
	assert.Error(t, err)
}

func TestExpand_Limit(t *testing.T) {
	start := mustDate(t, "2024-01-01")

	_, err := Expand(start, start.AddDate(0, 0, MaxOccurrences-1), RecurrenceDaily)
	assert.NoError(t, err)

	_, err = Expand(start, start.AddDate(0, 0, MaxOccurrences), RecurrenceDaily)
	assert.Error(t, err)
}

func TestValidTimeOfDay(t *testing.T) {
	for _, ok := range []string{"00:00", "08:00", "14:30", "23:59"} {
		assert.True(t, ValidTimeOfDay(ok), ok)
	}
	for _, bad := range []string{"", "8:00", "24:00", "12:60", "12:3", "noon", "12:30:00"} {
		assert.False(t, ValidTimeOfDay(bad), bad)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, bad := range []string{"", "2024-13-01", "2024-02-30", "01/02/2024"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}
