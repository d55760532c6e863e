// Package heatmap lays a year of daily activity out as a Sunday-start
// 53-week calendar grid with intensity levels and month labels.
package heatmap

import (
	"time"

	"github.com/2tpaud/commit-push/internal/activity"
)

const (
	// Weeks is the fixed number of grid columns.
	Weeks = 53
	// DaysPerWeek is the number of grid rows, Sunday first.
	DaysPerWeek = 7
	// OutOfRange marks a cell that lies outside the target year.
	OutOfRange = -1
)

// Filters selects which activity kinds contribute to a cell's value.
type Filters struct {
	IncludeNotes   bool
	IncludeCommits bool
}

// AllActivity counts both notes and commits.
var AllActivity = Filters{IncludeNotes: true, IncludeCommits: true}

// Value is the effective value of a day under the filters.
func (f Filters) Value(day activity.DayCount) int {
	v := 0
	if f.IncludeNotes {
		v += day.Notes
	}
	if f.IncludeCommits {
		v += day.Commits
	}
	return v
}

// Grid is the rendered heatmap of one year.
type Grid struct {
	Year        int
	Start       time.Time // instant of the civil Sunday that opens week 0
	Weeks       [Weeks][DaysPerWeek]int
	MonthLabels []MonthLabel
	Total       int
	MaxPerDay   int
}

// Build lays byDate out for year. Missing keys count as zero. Build never fails.
func Build(byDate map[string]activity.DayCount, year int, filters Filters) Grid {
	start, end := activity.YearBounds(year)
	gridStart := start.Add(-time.Duration(activity.Weekday(start)) * activity.Day)

	g := Grid{Year: year, Start: gridStart}

	// Totals run over every civil day, including a trailing Dec 31 that can
	// fall past the last column in leap years starting on a Saturday.
	for t := start; t.Before(end); t = t.Add(activity.Day) {
		v := filters.Value(byDate[activity.DayKey(t)])
		g.Total += v
		if v > g.MaxPerDay {
			g.MaxPerDay = v
		}
	}

	for w := 0; w < Weeks; w++ {
		for d := 0; d < DaysPerWeek; d++ {
			cell := g.cellTime(w, d)
			if cell.Before(start) || !cell.Before(end) {
				g.Weeks[w][d] = OutOfRange
				continue
			}
			g.Weeks[w][d] = filters.Value(byDate[activity.DayKey(cell)])
		}
	}

	g.MonthLabels = monthLabels(gridStart, year)
	return g
}

func (g Grid) cellTime(week, day int) time.Time {
	return g.Start.Add(time.Duration(week*DaysPerWeek+day) * activity.Day)
}

func (g Grid) valid(week, day int) bool {
	return week >= 0 && week < Weeks && day >= 0 && day < DaysPerWeek
}

// Value returns the cell value, OutOfRange for cells outside the year or the grid.
func (g Grid) Value(week, day int) int {
	if !g.valid(week, day) {
		return OutOfRange
	}
	return g.Weeks[week][day]
}

// Date returns the civil day key of an in-year cell.
func (g Grid) Date(week, day int) (string, bool) {
	if g.Value(week, day) == OutOfRange {
		return "", false
	}
	return activity.DayKey(g.cellTime(week, day)), true
}

// Level returns the intensity level of a cell.
func (g Grid) Level(week, day int) int {
	return Level(g.Value(week, day), g.MaxPerDay)
}

// Level buckets value against max into 0..4. Non-positive values or max give 0.
func Level(value, max int) int {
	if value <= 0 || max <= 0 {
		return 0
	}
	ratio := float64(value) / float64(max)
	switch {
	case ratio <= 0.25:
		return 1
	case ratio <= 0.5:
		return 2
	case ratio <= 0.75:
		return 3
	default:
		return 4
	}
}
