package heatmap

import (
	"fmt"

	"github.com/2tpaud/commit-push/internal/activity"
)

var weekdayNames = [DaysPerWeek]string{"일", "월", "화", "수", "목", "금", "토"}

// Tooltip renders the hover text of an in-year cell, e.g. "2회 활동 · 2024년 3월 10일 일".
func (g Grid) Tooltip(week, day int) (string, bool) {
	value := g.Value(week, day)
	if value == OutOfRange {
		return "", false
	}
	t := g.cellTime(week, day)
	y, m, d := activity.CivilDate(t)
	return fmt.Sprintf("%d회 활동 · %d년 %d월 %d일 %s", value, y, int(m), d, weekdayNames[activity.Weekday(t)]), true
}
