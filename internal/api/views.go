package api

import (
	"time"

	"github.com/2tpaud/commit-push/internal/activity"
	"github.com/2tpaud/commit-push/internal/heatmap"
)

// ActivityResponse is the body of GET /v1/activity.
type ActivityResponse struct {
	ByDate map[string]activity.DayCount `json:"byDate"`
	Meta   ActivityMeta                 `json:"meta"`
}

// ActivityMeta carries fetch diagnostics and the year selector options.
type ActivityMeta struct {
	NotesFetched   int   `json:"notesFetched"`
	CommitsFetched int   `json:"commitsFetched"`
	AvailableYears []int `json:"availableYears"`
}

// GridResponse is the body of GET /v1/activity/grid.
type GridResponse struct {
	Year        int              `json:"year"`
	Total       int              `json:"total"`
	MaxPerDay   int              `json:"maxPerDay"`
	Weeks       [][]CellView     `json:"weeks"`
	MonthLabels []MonthLabelView `json:"monthLabels"`
}

// CellView is one grid cell. Date and Tooltip are omitted for out-of-year cells.
type CellView struct {
	Value   int    `json:"value"`
	Level   int    `json:"level"`
	Date    string `json:"date,omitempty"`
	Tooltip string `json:"tooltip,omitempty"`
}

// MonthLabelView is a positioned month caption.
type MonthLabelView struct {
	Label     string `json:"label"`
	WeekIndex int    `json:"weekIndex"`
	Offset    int    `json:"offset"`
}

// PlanUsageResponse is the body of GET /v1/plan/usage.
type PlanUsageResponse struct {
	Plan          string         `json:"plan"`
	EffectivePlan string         `json:"effectivePlan"`
	PlanExpiresAt *time.Time     `json:"planExpiresAt,omitempty"`
	Limits        PlanLimitsView `json:"limits"`
	Usage         UsageView      `json:"usage"`
}

// PlanLimitsView lists the caps of the effective plan.
type PlanLimitsView struct {
	MaxNotes   int `json:"maxNotes"`
	MaxCommits int `json:"maxCommits"`
}

// UsageView lists the user's current totals.
type UsageView struct {
	Notes   int `json:"notes"`
	Commits int `json:"commits"`
}

// CheckExpiryResponse is the body of POST /v1/plan/check-expiry.
type CheckExpiryResponse struct {
	OK      bool `json:"ok"`
	Updated bool `json:"updated"`
}

func toGridView(g heatmap.Grid) GridResponse {
	weeks := make([][]CellView, heatmap.Weeks)
	for w := range weeks {
		days := make([]CellView, heatmap.DaysPerWeek)
		for d := range days {
			cell := CellView{Value: g.Value(w, d), Level: g.Level(w, d)}
			if date, ok := g.Date(w, d); ok {
				cell.Date = date
				cell.Tooltip, _ = g.Tooltip(w, d)
			}
			days[d] = cell
		}
		weeks[w] = days
	}

	labels := make([]MonthLabelView, 0, len(g.MonthLabels))
	for _, l := range g.MonthLabels {
		labels = append(labels, MonthLabelView{Label: l.Label, WeekIndex: l.WeekIndex, Offset: l.Offset})
	}

	return GridResponse{
		Year:        g.Year,
		Total:       g.Total,
		MaxPerDay:   g.MaxPerDay,
		Weeks:       weeks,
		MonthLabels: labels,
	}
}
