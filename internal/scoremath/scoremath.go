// Package scoremath holds the pure numeric rules of the Lore Chronicles
// engine: clamping, relationship-level banding and faction-rank thresholds.
// Every function is total over its input domain and never fails.
package scoremath

import (
	"log/slog"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
)

// MinScore and MaxScore bound every interaction-point score and faction reputation.
const (
	MinScore = -100
	MaxScore = 100
)

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Level is the seven-band qualitative classification of an interaction-point score.
// The ordinal values are ordered from worst to best so levels compare with <.
type Level int

const (
	LevelBloodFeud Level = iota
	LevelHostile
	LevelDistrustful
	LevelNeutral
	LevelFriendly
	LevelBonded
	LevelSworn
)

var levelNames = [...]string{"blood_feud", "hostile", "distrustful", "neutral", "friendly", "bonded", "sworn"}

// levelFloors[i] is the lowest score inside level i's band. The bands are
// contiguous, so level i covers [levelFloors[i], levelFloors[i+1]-1].
var levelFloors = [...]int{-100, -74, -49, -24, 25, 50, 75}

func (l Level) String() string {
	if l < LevelBloodFeud || l > LevelSworn {
		return "unknown"
	}
	return levelNames[l]
}

// MinScore returns the lowest score that still classifies as level l.
func (l Level) MinScore() int {
	if l < LevelBloodFeud || l > LevelSworn {
		return MinScore
	}
	return levelFloors[l]
}

var ErrUnknownLevel = errors.NewSentinel("unknown relationship level")

// ParseLevel maps a stored level name back to its ordinal.
func ParseLevel(name string) (Level, error) {
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return LevelNeutral, errors.Wrap(ErrUnknownLevel, "parse level", slog.String("name", name))
}

// LevelForScore bands a score into a relationship level. Scores outside
// [MinScore, MaxScore] band as if clamped.
func LevelForScore(score int) Level {
	switch {
	case score <= -75:
		return LevelBloodFeud
	case score <= -50:
		return LevelHostile
	case score <= -25:
		return LevelDistrustful
	case score <= 24:
		return LevelNeutral
	case score <= 49:
		return LevelFriendly
	case score <= 74:
		return LevelBonded
	default:
		return LevelSworn
	}
}

// Rank is the ordered qualitative tier of a faction standing. Like Level,
// ranks are ordinal so "is rank x at least rank y" is plain comparison
// instead of an array-index lookup.
type Rank int

const (
	RankHated Rank = iota
	RankHostile
	RankUnfriendly
	RankNeutral
	RankFriendly
	RankHonored
	RankExalted
)

var rankNames = [...]string{"hated", "hostile", "unfriendly", "neutral", "friendly", "honored", "exalted"}

func (r Rank) String() string {
	if r < RankHated || r > RankExalted {
		return "unknown"
	}
	return rankNames[r]
}

var ErrUnknownRank = errors.NewSentinel("unknown faction rank")

// ParseRank maps a stored rank name back to its ordinal.
func ParseRank(name string) (Rank, error) {
	for i, n := range rankNames {
		if n == name {
			return Rank(i), nil
		}
	}
	return RankNeutral, errors.Wrap(ErrUnknownRank, "parse rank", slog.String("name", name))
}

// RankThresholds maps each rank to the minimum reputation that earns it.
// Campaigns may configure these per faction; the stored rank column is only a
// cache of RankForReputation over the table in force at write time.
type RankThresholds map[Rank]int

// DefaultRankThresholds applies to factions without a configured table.
func DefaultRankThresholds() RankThresholds {
	return RankThresholds{
		RankHated:      -100,
		RankHostile:    -50,
		RankUnfriendly: -20,
		RankNeutral:    0,
		RankFriendly:   20,
		RankHonored:    50,
		RankExalted:    80,
	}
}

// RankForReputation selects the highest rank whose threshold does not exceed
// reputation. Missing entries in the table are skipped; a table with no
// entry at or below the reputation yields RankHated.
func (t RankThresholds) RankForReputation(reputation int) Rank {
	rank := RankHated
	for r := RankHated; r <= RankExalted; r++ {
		threshold, ok := t[r]
		if !ok {
			continue
		}
		if threshold <= reputation {
			rank = r
		}
	}
	return rank
}
