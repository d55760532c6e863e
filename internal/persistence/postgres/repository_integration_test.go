//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/2tpaud/commit-push/internal/activity"
	"github.com/2tpaud/commit-push/internal/domain"
)

func TestRepositoryFeedsAggregator(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("commitpush"),
		postgrescontainer.WithUsername("commitpush"),
		postgrescontainer.WithPassword("commitpush"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)
	kst := time.FixedZone("KST", 9*3600)
	userID := uuid.NewString()
	otherUser := uuid.NewString()
	noteID := uuid.NewString()

	created := time.Date(2024, 3, 10, 0, 0, 0, 0, kst)
	require.NoError(t, repo.UpsertNote(ctx, domain.Note{ID: noteID, UserID: userID, CreatedAt: created, UpdatedAt: created}))
	require.NoError(t, repo.UpsertNote(ctx, domain.Note{ID: noteID, UserID: userID, CreatedAt: created, UpdatedAt: created.Add(24 * time.Hour)}))
	// Stale replay must not move updated_at back.
	require.NoError(t, repo.UpsertNote(ctx, domain.Note{ID: noteID, UserID: userID, CreatedAt: created, UpdatedAt: created}))

	commit := domain.Commit{ID: uuid.NewString(), NoteID: noteID, UserID: userID, CreatedAt: created.Add(12 * time.Hour)}
	require.NoError(t, repo.UpsertCommit(ctx, commit))
	require.NoError(t, repo.UpsertCommit(ctx, commit))

	require.NoError(t, repo.UpsertCommit(ctx, domain.Commit{ID: uuid.NewString(), NoteID: uuid.NewString(), UserID: otherUser, CreatedAt: created}))

	res, err := activity.NewAggregator(repo).Aggregate(ctx, userID, 2024)
	require.NoError(t, err)
	require.Equal(t, activity.DayCount{Notes: 1, Commits: 1}, res.ByDate["2024-03-10"])
	require.Equal(t, activity.DayCount{Notes: 1}, res.ByDate["2024-03-11"])
	require.Equal(t, 1, res.NotesFetched)
	require.Equal(t, 1, res.CommitsFetched)

	require.NoError(t, repo.DeleteNote(ctx, userID, noteID))
	commits, err := repo.ListCommitStamps(ctx, userID, 10)
	require.NoError(t, err)
	require.Empty(t, commits)
}

func TestRepositoryProfileLifecycle(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("commitpush"),
		postgrescontainer.WithUsername("commitpush"),
		postgrescontainer.WithPassword("commitpush"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	userID := uuid.NewString()
	_, err = pool.Exec(ctx, `INSERT INTO users (id, plan, plan_expires_at) VALUES ($1,'pro',$2)`,
		userID, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	repo := NewRepository(pool)
	profile, err := repo.GetProfile(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, profile)
	require.Equal(t, domain.PlanPro, profile.Plan)

	updated, err := domain.NewPlanService(repo).CheckExpiry(ctx, userID)
	require.NoError(t, err)
	require.True(t, updated)

	profile, err = repo.GetProfile(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, domain.PlanFree, profile.Plan)
	require.Nil(t, profile.PlanExpiresAt)

	missing, err := repo.GetProfile(ctx, uuid.NewString())
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestProjectedRowsDriveUsage(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("commitpush"),
		postgrescontainer.WithUsername("commitpush"),
		postgrescontainer.WithPassword("commitpush"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)
	plans := domain.NewPlanService(repo)
	userID := uuid.NewString()

	// No users row exists until the first projected write.
	_, err = plans.Usage(ctx, userID)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	created := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	first, second := uuid.NewString(), uuid.NewString()
	require.NoError(t, repo.UpsertNote(ctx, domain.Note{ID: first, UserID: userID, CreatedAt: created, UpdatedAt: created}))
	require.NoError(t, repo.UpsertNote(ctx, domain.Note{ID: second, UserID: userID, CreatedAt: created, UpdatedAt: created}))
	require.NoError(t, repo.UpsertCommit(ctx, domain.Commit{ID: uuid.NewString(), NoteID: first, UserID: userID, CreatedAt: created}))

	usage, err := plans.Usage(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, domain.PlanFree, usage.Plan)
	require.Equal(t, 2, usage.Notes)
	require.Equal(t, 1, usage.Commits)

	require.NoError(t, repo.DeleteNote(ctx, userID, first))
	usage, err = plans.Usage(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, usage.Notes)
	require.Equal(t, 0, usage.Commits)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		contents, readErr := os.ReadFile(resolvePath(t, rel))
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
