package domain

import "time"

// Plan identifies a subscription tier.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
	PlanTeam Plan = "team"
)

// Limits caps how many notes and commits a plan may hold.
type Limits struct {
	MaxNotes   int
	MaxCommits int
}

var planLimits = map[Plan]Limits{
	PlanFree: {MaxNotes: 50, MaxCommits: 200},
	PlanPro:  {MaxNotes: 500, MaxCommits: 2000},
	PlanTeam: {MaxNotes: 2000, MaxCommits: 10000},
}

// ParsePlan maps a stored plan column to a Plan; unknown or empty values are free.
func ParsePlan(raw string) Plan {
	p := Plan(raw)
	if _, ok := planLimits[p]; ok {
		return p
	}
	return PlanFree
}

// Limits returns the usage caps of the plan.
func (p Plan) Limits() Limits {
	if l, ok := planLimits[p]; ok {
		return l
	}
	return planLimits[PlanFree]
}

// Paid reports whether the plan is a billed tier.
func (p Plan) Paid() bool {
	return p == PlanPro || p == PlanTeam
}

// Profile carries the billing state of a user. TotalNotes and TotalCommits are
// counted from the projected rows at read time.
type Profile struct {
	UserID        string
	Plan          Plan
	PlanExpiresAt *time.Time
	TotalNotes    int
	TotalCommits  int
}

// Expired reports whether a paid plan has passed its expiry at now.
func (p Profile) Expired(now time.Time) bool {
	if !p.Plan.Paid() || p.PlanExpiresAt == nil {
		return false
	}
	return !p.PlanExpiresAt.After(now)
}

// EffectivePlan is the plan that applies at now, treating an expired paid plan as free.
func (p Profile) EffectivePlan(now time.Time) Plan {
	if p.Expired(now) {
		return PlanFree
	}
	return p.Plan
}
