package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/2tpaud/commit-push/internal/domain"
)

// ensureUserStmt creates the free-plan users row of a first-time author. Billing
// changes made by the notes app are never overwritten.
const ensureUserStmt = `INSERT INTO users (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`

// UpsertNote records a note's timestamps. Replays are harmless: updated_at only moves forward
// and created_at keeps its first value.
func (r *Repository) UpsertNote(ctx context.Context, note domain.Note) error {
	const stmt = `INSERT INTO notes (id, user_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (id) DO UPDATE SET updated_at = GREATEST(notes.updated_at, EXCLUDED.updated_at)`

	return r.withUser(ctx, note.UserID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureUserStmt, note.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, stmt, note.ID, note.UserID, note.CreatedAt, note.UpdatedAt)
		return err
	})
}

// DeleteNote removes a note together with its commits.
func (r *Repository) DeleteNote(ctx context.Context, userID, noteID string) error {
	return r.withUser(ctx, userID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM commits WHERE note_id=$1 AND user_id=$2`, noteID, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM notes WHERE id=$1 AND user_id=$2`, noteID, userID)
		return err
	})
}

// UpsertCommit records a commit. Commits are immutable, so a replay is a no-op.
func (r *Repository) UpsertCommit(ctx context.Context, commit domain.Commit) error {
	const stmt = `INSERT INTO commits (id, note_id, user_id, created_at)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (id) DO NOTHING`

	return r.withUser(ctx, commit.UserID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureUserStmt, commit.UserID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, stmt, commit.ID, commit.NoteID, commit.UserID, commit.CreatedAt)
		return err
	})
}

// DeleteCommit removes a commit.
func (r *Repository) DeleteCommit(ctx context.Context, userID, commitID string) error {
	const stmt = `DELETE FROM commits WHERE id=$1 AND user_id=$2`

	return r.withUser(ctx, userID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, stmt, commitID, userID)
		return err
	})
}
