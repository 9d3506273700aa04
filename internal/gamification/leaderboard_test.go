package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRankOrdersByPointsDescending(t *testing.T) {
	entries := []LeaderboardEntry{
		{UserID: "a", Points: 100},
		{UserID: "b", Points: 300},
		{UserID: "c", Points: 200},
	}

	ranked := Rank(entries, 0)
	require.Len(t, ranked, 3)
	require.Equal(t, RankedEntry{Rank: 1, UserID: "b", Points: 300}, ranked[0])
	require.Equal(t, RankedEntry{Rank: 2, UserID: "c", Points: 200}, ranked[1])
	require.Equal(t, RankedEntry{Rank: 3, UserID: "a", Points: 100}, ranked[2])
}

func TestRankTieBreaksByEarliestEarnAndUserID(t *testing.T) {
	earlier := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	later := earlier.Add(48 * time.Hour)

	entries := []LeaderboardEntry{
		{UserID: "late", Points: 200, LastEarnedAt: later},
		{UserID: "early", Points: 200, LastEarnedAt: earlier},
		{UserID: "b", Points: 200, LastEarnedAt: later},
		{UserID: "never", Points: 200},
	}

	ranked := Rank(entries, 0)
	require.Equal(t, "early", ranked[0].UserID)
	require.Equal(t, "b", ranked[1].UserID, "same timestamp falls back to userID")
	require.Equal(t, "late", ranked[2].UserID)
	require.Equal(t, "never", ranked[3].UserID, "zero timestamp sorts last")
}

func TestRankDeterministic(t *testing.T) {
	entries := []LeaderboardEntry{
		{UserID: "u3", Points: 50},
		{UserID: "u1", Points: 50},
		{UserID: "u2", Points: 50},
		{UserID: "u4", Points: 75},
	}

	first := Rank(entries, 0)
	second := Rank(entries, 0)
	require.Equal(t, first, second)
}

func TestRankRespectsLimit(t *testing.T) {
	entries := []LeaderboardEntry{
		{UserID: "a", Points: 10},
		{UserID: "b", Points: 20},
		{UserID: "c", Points: 30},
	}

	ranked := Rank(entries, 2)
	require.Len(t, ranked, 2)
	require.Equal(t, "c", ranked[0].UserID)
	require.Equal(t, "b", ranked[1].UserID)
}

func TestRankDoesNotMutateInput(t *testing.T) {
	entries := []LeaderboardEntry{
		{UserID: "a", Points: 10},
		{UserID: "b", Points: 20},
	}

	Rank(entries, 0)
	require.Equal(t, "a", entries[0].UserID)
}

func TestPeriodValid(t *testing.T) {
	require.True(t, PeriodTotal.Valid())
	require.True(t, PeriodWeekly.Valid())
	require.True(t, PeriodMonthly.Valid())
	require.False(t, Period("lifetime").Valid())
}
