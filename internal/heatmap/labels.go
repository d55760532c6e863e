package heatmap

import (
	"strconv"
	"time"

	"github.com/2tpaud/commit-push/internal/activity"
)

// MonthLabel anchors a month name above the first week column whose Sunday falls in it.
type MonthLabel struct {
	Label     string
	Month     time.Month
	WeekIndex int
	Offset    int // horizontal position after PlaceLabels
}

// Layout describes the column geometry used to position labels.
type Layout struct {
	Inset       int // space reserved left of week 0 for weekday names
	ColumnWidth int // cell size plus gap
	MinGap      int // minimum distance between consecutive labels
}

// DefaultLayout matches a 16px cell, 3px gap and 28px weekday gutter.
var DefaultLayout = Layout{Inset: 28, ColumnWidth: 19, MinGap: 34}

// MonthName returns the Korean short month name, e.g. "3월".
func MonthName(m time.Month) string {
	return strconv.Itoa(int(m)) + "월"
}

func monthLabels(gridStart time.Time, year int) []MonthLabel {
	labels := make([]MonthLabel, 0, 12)
	last := time.Month(0)
	for w := 0; w < Weeks; w++ {
		sunday := gridStart.Add(time.Duration(w*DaysPerWeek) * activity.Day)
		y, m, _ := activity.CivilDate(sunday)
		if y != year {
			last = 0
			continue
		}
		if m == last {
			continue
		}
		last = m
		labels = append(labels, MonthLabel{Label: MonthName(m), Month: m, WeekIndex: w})
	}
	return PlaceLabels(labels, DefaultLayout)
}

// PlaceLabels assigns offsets left to right, pushing a label forward when it
// would sit closer than MinGap to its predecessor. Labels must be in week order.
func PlaceLabels(labels []MonthLabel, layout Layout) []MonthLabel {
	out := make([]MonthLabel, len(labels))
	prev := -layout.MinGap
	for i, l := range labels {
		offset := layout.Inset + l.WeekIndex*layout.ColumnWidth
		if offset < prev+layout.MinGap {
			offset = prev + layout.MinGap
		}
		l.Offset = offset
		prev = offset
		out[i] = l
	}
	return out
}
