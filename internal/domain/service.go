// Package domain defines the note, commit and subscription model of commit-push.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrProfileNotFound is returned when no user row exists for the caller.
var ErrProfileNotFound = errors.New("user profile not found")

// ProfileRepository captures the subscription persistence operations.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	DowngradePlan(ctx context.Context, userID string, at time.Time) error
}

// PlanService orchestrates plan lookups and expiry downgrades.
type PlanService struct {
	repo ProfileRepository
	now  func() time.Time
}

// NewPlanService constructs a PlanService.
func NewPlanService(repo ProfileRepository) *PlanService {
	return &PlanService{repo: repo, now: time.Now}
}

// Usage summarises a user's plan against their current totals.
type Usage struct {
	Plan          Plan
	EffectivePlan Plan
	PlanExpiresAt *time.Time
	Limits        Limits
	Notes         int
	Commits       int
}

// Usage loads the profile and resolves the limits of the effective plan.
func (s *PlanService) Usage(ctx context.Context, userID string) (*Usage, error) {
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	effective := profile.EffectivePlan(s.now())
	return &Usage{
		Plan:          profile.Plan,
		EffectivePlan: effective,
		PlanExpiresAt: profile.PlanExpiresAt,
		Limits:        effective.Limits(),
		Notes:         profile.TotalNotes,
		Commits:       profile.TotalCommits,
	}, nil
}

// CheckExpiry downgrades an expired paid plan to free. It reports whether a downgrade happened.
func (s *PlanService) CheckExpiry(ctx context.Context, userID string) (bool, error) {
	profile, err := s.profile(ctx, userID)
	if err != nil {
		return false, err
	}
	now := s.now().UTC()
	if !profile.Expired(now) {
		return false, nil
	}
	if err := s.repo.DowngradePlan(ctx, userID, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PlanService) profile(ctx context.Context, userID string) (*Profile, error) {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}
