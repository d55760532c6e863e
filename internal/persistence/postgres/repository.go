// Package postgres provides pgx-backed persistence for notes, commits and user plans.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/2tpaud/commit-push/internal/domain"
)

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository reads activity stamps and profiles, and maintains the note/commit projection.
type Repository struct {
	db DB
}

// NewRepository constructs a Repository.
func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// withUser runs fn in a transaction whose row-level security context is userID.
func (r *Repository) withUser(ctx context.Context, userID string, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "SELECT set_config('request.jwt.claim.sub', $1, true)", userID); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// ListNoteStamps returns the (created_at, updated_at) pairs of the user's limit most recently created notes.
func (r *Repository) ListNoteStamps(ctx context.Context, userID string, limit int) ([]domain.NoteStamp, error) {
	const query = `SELECT created_at, updated_at FROM notes WHERE user_id=$1
        ORDER BY created_at DESC NULLS LAST LIMIT $2`

	var out []domain.NoteStamp
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]domain.NoteStamp, 0, 64)
		for rows.Next() {
			var created, updated *time.Time
			if err := rows.Scan(&created, &updated); err != nil {
				return err
			}
			out = append(out, domain.NoteStamp{CreatedAt: deref(created), UpdatedAt: deref(updated)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCommitStamps returns the created_at values of the user's limit most recent commits.
func (r *Repository) ListCommitStamps(ctx context.Context, userID string, limit int) ([]domain.CommitStamp, error) {
	const query = `SELECT created_at FROM commits WHERE user_id=$1
        ORDER BY created_at DESC NULLS LAST LIMIT $2`

	var out []domain.CommitStamp
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]domain.CommitStamp, 0, 64)
		for rows.Next() {
			var created *time.Time
			if err := rows.Scan(&created); err != nil {
				return err
			}
			out = append(out, domain.CommitStamp{CreatedAt: deref(created)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetProfile loads the billing state of a user together with the number of
// projected notes and commits. It returns nil when no row exists.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	const query = `SELECT u.plan, u.plan_expires_at,
            (SELECT count(*) FROM notes n WHERE n.user_id = u.id),
            (SELECT count(*) FROM commits c WHERE c.user_id = u.id)
        FROM users u WHERE u.id=$1`

	var profile *domain.Profile
	err := r.withUser(ctx, userID, func(tx pgx.Tx) error {
		var (
			plan      *string
			expiresAt *time.Time
			p         domain.Profile
		)
		err := tx.QueryRow(ctx, query, userID).Scan(&plan, &expiresAt, &p.TotalNotes, &p.TotalCommits)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		p.UserID = userID
		if plan != nil {
			p.Plan = domain.ParsePlan(*plan)
		} else {
			p.Plan = domain.PlanFree
		}
		p.PlanExpiresAt = expiresAt
		profile = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// DowngradePlan moves the user to the free plan and clears the expiry.
func (r *Repository) DowngradePlan(ctx context.Context, userID string, at time.Time) error {
	const stmt = `UPDATE users SET plan='free', plan_expires_at=NULL, updated_at=$2 WHERE id=$1`

	return r.withUser(ctx, userID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, stmt, userID, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrProfileNotFound
		}
		return nil
	})
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
