//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/gamification/internal/domain"
	"example.com/gamification/internal/gamification"
)

func TestCreateWorkoutAwardPersistsScoringState(t *testing.T) {
	ctx := context.Background()
	pool, repo := setupRepository(t, ctx)

	tenantID := uuid.NewString()
	userID := uuid.NewString()
	workout, award := fixtureAward(tenantID, userID, 55, 1)
	award.Points.NewRecords = []gamification.PersonalRecord{
		{Exercise: "bench press", WeightKg: 100, Reps: 5},
	}

	require.NoError(t, repo.CreateWorkoutAward(ctx, workout, "idem-1", award))

	stored, err := repo.GetWorkout(ctx, tenantID, workout.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, workout.ID, stored.ID)
	require.Len(t, stored.Exercises, 1)

	stats, err := repo.GetUserStats(ctx, tenantID, userID)
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Equal(t, 55, stats.TotalPoints)
	require.Equal(t, 55, stats.WeeklyPoints)
	require.Equal(t, 55, stats.MonthlyPoints)
	require.Equal(t, 1, stats.Level)

	streak, err := repo.GetStreak(ctx, tenantID, userID)
	require.NoError(t, err)
	require.NotNil(t, streak)
	require.Equal(t, 1, streak.CurrentStreak)
	require.Equal(t, 1, streak.LongestStreak)

	records, err := repo.ListPersonalRecords(ctx, tenantID, userID, []string{"bench press"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 100.0, records["bench press"].WeightKg)

	entries, err := repo.ListLedgerEntries(ctx, tenantID, userID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, 55, entries[0].Points)
	require.Equal(t, workout.ID, entries[0].Metadata["workout_id"])

	var eventTypes []string
	rows, err := pool.Query(ctx, `SELECT event_type FROM outbox WHERE tenant_id=$1 ORDER BY event_id`, tenantID)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var eventType string
		require.NoError(t, rows.Scan(&eventType))
		eventTypes = append(eventTypes, eventType)
	}
	require.NoError(t, rows.Err())
	require.Equal(t, []string{"workout.logged", "points.awarded"}, eventTypes)
}

func TestCreateWorkoutAwardAccumulatesStats(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepository(t, ctx)

	tenantID := uuid.NewString()
	userID := uuid.NewString()

	first, firstAward := fixtureAward(tenantID, userID, 55, 1)
	require.NoError(t, repo.CreateWorkoutAward(ctx, first, "", firstAward))

	second, secondAward := fixtureAward(tenantID, userID, 70, 2)
	require.NoError(t, repo.CreateWorkoutAward(ctx, second, "", secondAward))

	stats, err := repo.GetUserStats(ctx, tenantID, userID)
	require.NoError(t, err)
	require.NotNil(t, stats)
	require.Equal(t, 125, stats.TotalPoints)
	require.Equal(t, 2, stats.Level, "crossing 100 points should bump the level")

	streak, err := repo.GetStreak(ctx, tenantID, userID)
	require.NoError(t, err)
	require.Equal(t, 2, streak.CurrentStreak)
	require.Equal(t, 2, streak.LongestStreak)
}

func TestFindWorkoutByIdempotencyReturnsReplay(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepository(t, ctx)

	tenantID := uuid.NewString()
	userID := uuid.NewString()
	workout, award := fixtureAward(tenantID, userID, 10, 1)
	require.NoError(t, repo.CreateWorkoutAward(ctx, workout, "retry-key", award))

	found, err := repo.FindWorkoutByIdempotency(ctx, tenantID, userID, "retry-key")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, workout.ID, found.ID)

	missing, err := repo.FindWorkoutByIdempotency(ctx, tenantID, userID, "other-key")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestAwardBadgeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool, repo := setupRepository(t, ctx)

	tenantID := uuid.NewString()
	userID := uuid.NewString()
	earnedAt := time.Now().UTC().Truncate(time.Millisecond)

	awarded, err := repo.AwardBadge(ctx, tenantID, userID, "streak-7", earnedAt)
	require.NoError(t, err)
	require.True(t, awarded)

	again, err := repo.AwardBadge(ctx, tenantID, userID, "streak-7", earnedAt.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, again, "second award should be a no-op")

	badges, err := repo.ListUserBadges(ctx, tenantID, userID)
	require.NoError(t, err)
	require.Len(t, badges, 1)
	require.WithinDuration(t, earnedAt, badges[0].EarnedAt, time.Second, "earned_at must not change on replay")

	var outboxCount int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE tenant_id=$1 AND event_type='badge.earned'`, tenantID).Scan(&outboxCount)
	require.NoError(t, err)
	require.Equal(t, 1, outboxCount, "only the first award should publish an event")
}

func TestLeaderboardOrderingAndStanding(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepository(t, ctx)

	tenantID := uuid.NewString()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	users := []struct {
		id     string
		points int
		at     time.Time
	}{
		{id: "user-a", points: 300, at: base},
		{id: "user-b", points: 200, at: base.Add(time.Hour)},
		{id: "user-c", points: 200, at: base},
	}
	for _, u := range users {
		workout, award := fixtureAward(tenantID, u.id, u.points, 1)
		award.AwardedAt = u.at
		require.NoError(t, repo.CreateWorkoutAward(ctx, workout, "", award))
	}

	entries, err := repo.TopByPoints(ctx, tenantID, gamification.PeriodTotal, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "user-a", entries[0].UserID)
	require.Equal(t, "user-c", entries[1].UserID, "ties break on earlier last workout")
	require.Equal(t, "user-b", entries[2].UserID)

	standing, err := repo.UserStanding(ctx, tenantID, gamification.PeriodTotal, "user-b")
	require.NoError(t, err)
	require.NotNil(t, standing)
	require.Equal(t, 3, standing.Rank)
	require.Equal(t, 200, standing.Points)
}

func TestComebackLifecycle(t *testing.T) {
	ctx := context.Background()
	pool, repo := setupRepository(t, ctx)

	tenantID := uuid.NewString()
	userID := uuid.NewString()
	now := time.Now().UTC()

	_, err := repo.CompetitionStanding(ctx, tenantID, "duel", "missing", userID)
	require.ErrorIs(t, err, domain.ErrCompetitionNotFound)

	seedParticipant(t, ctx, pool, tenantID, "duel", "duel-1", "leader", 500)
	seedParticipant(t, ctx, pool, tenantID, "duel", "duel-1", userID, 300)

	standing, err := repo.CompetitionStanding(ctx, tenantID, "duel", "duel-1", userID)
	require.NoError(t, err)
	require.Equal(t, 500, standing.LeaderPoints)
	require.Equal(t, 300, standing.UserPoints)

	expires := now.Add(7 * 24 * time.Hour)
	require.NoError(t, repo.UpsertComeback(ctx, tenantID, domain.ComebackState{
		UserID:          userID,
		CompetitionType: "duel",
		CompetitionID:   "duel-1",
		BehindByPct:     40,
		Multiplier:      1.4,
		BonusActive:     true,
		BonusExpiresAt:  &expires,
	}))

	multiplier, err := repo.ActiveComebackMultiplier(ctx, tenantID, userID, now)
	require.NoError(t, err)
	require.InDelta(t, 1.4, multiplier, 0.0001)

	multiplier, err = repo.ActiveComebackMultiplier(ctx, tenantID, userID, expires.Add(time.Minute))
	require.NoError(t, err)
	require.InDelta(t, 1.0, multiplier, 0.0001, "expired bonus must not apply")
}

func TestWorkoutListingAndDeletion(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepository(t, ctx)

	tenantID := uuid.NewString()
	userID := uuid.NewString()
	base := time.Date(2026, 4, 1, 7, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		workout, award := fixtureAward(tenantID, userID, 10, i+1)
		workout.CompletedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, repo.CreateWorkoutAward(ctx, workout, "", award))
		ids = append(ids, workout.ID)
	}

	page, next, err := repo.ListWorkoutsByUser(ctx, tenantID, userID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, next)
	require.Equal(t, ids[2], page[0].ID, "newest first")

	rest, _, err := repo.ListWorkoutsByUser(ctx, tenantID, userID, next, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, ids[0], rest[0].ID)

	require.NoError(t, repo.DeleteWorkout(ctx, tenantID, ids[1]))
	require.ErrorIs(t, repo.DeleteWorkout(ctx, tenantID, ids[1]), domain.ErrWorkoutNotFound)

	count, err := repo.CountWorkouts(ctx, tenantID, userID)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestCrossTenantReadsComeUpEmpty(t *testing.T) {
	ctx := context.Background()
	_, repo := setupRepository(t, ctx)

	tenantID := uuid.NewString()
	userID := uuid.NewString()
	workout, award := fixtureAward(tenantID, userID, 10, 1)
	require.NoError(t, repo.CreateWorkoutAward(ctx, workout, "", award))

	other, err := repo.GetWorkout(ctx, uuid.NewString(), workout.ID)
	require.NoError(t, err)
	require.Nil(t, other)
}

func fixtureAward(tenantID, userID string, points, streak int) (domain.WorkoutRecord, domain.WorkoutAward) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	lastWorkout := now.Truncate(24 * time.Hour)

	workout := domain.WorkoutRecord{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		UserID:      userID,
		CompletedAt: now,
		DurationMin: 45,
		Exercises: []gamification.Exercise{
			{Name: "squat", Sets: []gamification.Set{{Reps: 5, Weight: 80, Unit: gamification.UnitKg}}},
		},
		TotalVolumeKg: 400,
		PointsAwarded: points,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	award := domain.WorkoutAward{
		Points: gamification.PointsBreakdown{
			BasePoints:            10,
			ConsistencyMultiplier: 1.0,
			ComebackMultiplier:    1.0,
			TotalPoints:           points,
			Breakdown:             map[string]int{"base": points},
		},
		Streak: domain.StreakState{
			UserID:          userID,
			CurrentStreak:   streak,
			LongestStreak:   streak,
			LastWorkoutDate: &lastWorkout,
		},
		Reason:    "workout",
		AwardedAt: now,
	}
	return workout, award
}

func seedParticipant(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID, competitionType, competitionID, userID string, points int) {
	t.Helper()
	_, err := pool.Exec(ctx,
		`INSERT INTO competition_participants (tenant_id, competition_type, competition_id, user_id, points)
         VALUES ($1,$2,$3,$4,$5)`,
		tenantID, competitionType, competitionID, userID, points)
	require.NoError(t, err)
}

func setupRepository(t *testing.T, ctx context.Context) (*pgxpool.Pool, *Repository) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("gamification"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
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

	return pool, NewRepository(pool)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	migrationsDir := resolvePath(t, "../../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "expected at least one migration .up.sql file")

	sort.Strings(files)

	for _, file := range files {
		contents, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoErrorf(t, execErr, "execute migration %s", file)
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
