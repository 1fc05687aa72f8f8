package scoremath

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Every integer in [-100,100] must band into exactly one level and the bands
// must be contiguous: the level ordinal may only ever step up as the score rises.
func TestLevelForScorePartitionsScoreRange(t *testing.T) {
	counts := map[Level]int{}
	previous := LevelForScore(MinScore)
	require.Equal(t, LevelBloodFeud, previous)

	for s := MinScore; s <= MaxScore; s++ {
		level := LevelForScore(s)
		require.GreaterOrEqual(t, level, LevelBloodFeud)
		require.LessOrEqual(t, level, LevelSworn)
		require.GreaterOrEqual(t, level, previous, "level regressed at score %d", s)
		require.LessOrEqual(t, int(level)-int(previous), 1, "band skipped at score %d", s)
		require.Equal(t, s >= level.MinScore(), true, "score %d below MinScore of its own band", s)
		counts[level]++
		previous = level
	}

	require.Len(t, counts, 7, "every band must be inhabited")
}

func TestLevelForScoreBoundaries(t *testing.T) {
	tests := []struct {
		score int
		want  Level
	}{
		{-100, LevelBloodFeud},
		{-75, LevelBloodFeud},
		{-74, LevelHostile},
		{-50, LevelHostile},
		{-49, LevelDistrustful},
		{-25, LevelDistrustful},
		{-24, LevelNeutral},
		{0, LevelNeutral},
		{24, LevelNeutral},
		{25, LevelFriendly},
		{49, LevelFriendly},
		{50, LevelBonded},
		{74, LevelBonded},
		{75, LevelSworn},
		{100, LevelSworn},
	}
	for _, tt := range tests {
		require.Equalf(t, tt.want, LevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestParseLevelRoundTrips(t *testing.T) {
	for l := LevelBloodFeud; l <= LevelSworn; l++ {
		parsed, err := ParseLevel(l.String())
		require.NoError(t, err)
		require.Equal(t, l, parsed)
	}

	_, err := ParseLevel("chummy")
	require.ErrorIs(t, err, ErrUnknownLevel)
}

func TestClamp(t *testing.T) {
	require.Equal(t, 100, Clamp(95+20, MinScore, MaxScore))
	require.Equal(t, -100, Clamp(-95-20, MinScore, MaxScore))
	require.Equal(t, 42, Clamp(42, MinScore, MaxScore))
}

func TestRankForReputation(t *testing.T) {
	thresholds := DefaultRankThresholds()

	tests := []struct {
		reputation int
		want       Rank
	}{
		{-100, RankHated},
		{-51, RankHated},
		{-50, RankHostile},
		{-20, RankUnfriendly},
		{-1, RankUnfriendly},
		{0, RankNeutral},
		{19, RankNeutral},
		{20, RankFriendly},
		{50, RankHonored},
		{79, RankHonored},
		{80, RankExalted},
		{100, RankExalted},
	}
	for _, tt := range tests {
		require.Equalf(t, tt.want, thresholds.RankForReputation(tt.reputation), "reputation %d", tt.reputation)
	}
}

func TestRankForReputationSparseTable(t *testing.T) {
	// A campaign that only configures the extremes.
	thresholds := RankThresholds{
		RankHated:   -100,
		RankExalted: 90,
	}

	require.Equal(t, RankHated, thresholds.RankForReputation(0))
	require.Equal(t, RankExalted, thresholds.RankForReputation(95))
}

func TestParseRankRoundTrips(t *testing.T) {
	for r := RankHated; r <= RankExalted; r++ {
		parsed, err := ParseRank(r.String())
		require.NoError(t, err)
		require.Equal(t, r, parsed)
	}

	_, err := ParseRank("worshipped")
	require.ErrorIs(t, err, ErrUnknownRank)
}
