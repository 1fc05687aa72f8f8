package models

import (
	"time"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/scoremath"
)

// CanonicalPair orders two character ids lexicographically so that every
// pair-keyed row has exactly one storage identity. Every write path must go
// through this; it is the only duplicate-row defence the engine has.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// RelationshipScore is the single row of truth for how two characters regard
// each other within a session. CharA < CharB always holds. The Level column
// is a cache of scoremath.LevelForScore over Score, recomputed on every write.
type RelationshipScore struct {
	SessionID         string
	CharA             string
	CharB             string
	Score             int
	Level             scoremath.Level
	LastInteractionAt time.Time
}

// RelationshipChange is an append-only audit entry for one adjustment.
// Never mutated or deleted.
type RelationshipChange struct {
	ID             string
	SessionID      string
	CharA          string
	CharB          string
	Delta          int
	Score          int
	OldLevel       scoremath.Level
	NewLevel       scoremath.Level
	Reason         string
	SourceActionID string
	CreatedAt      time.Time
}

// FactionStanding tracks one character's reputation with one campaign
// faction. Rank caches the threshold-table computation the same way
// RelationshipScore.Level caches the banding function.
type FactionStanding struct {
	SessionID   string
	CharacterID string
	FactionID   string
	Reputation  int
	Rank        scoremath.Rank
	IsMember    bool
	JoinedAt    *time.Time
	BetrayedAt  *time.Time
}

// FactionRelationKind classifies the symmetric stance between two factions.
type FactionRelationKind string

const (
	FactionsAllied  FactionRelationKind = "allied"
	FactionsNeutral FactionRelationKind = "neutral"
	FactionsHostile FactionRelationKind = "hostile"
)

// FactionRelation holds the stance for one unordered faction pair.
// FactionA < FactionB via CanonicalPair.
type FactionRelation struct {
	FactionA string
	FactionB string
	Kind     FactionRelationKind
}

// FactionPerk unlocks once a character's rank reaches RequiredRank. Unlocking
// is recomputed live from the standing; nothing is persisted per perk.
type FactionPerk struct {
	ID           string
	FactionID    string
	Name         string
	Description  string
	RequiredRank scoremath.Rank
}

// Zone is one of four discrete closeness bands between two characters,
// ordered from closest to farthest.
type Zone int

const (
	ZoneAdjacent Zone = iota
	ZoneClose
	ZoneMid
	ZoneFar
)

var zoneNames = [...]string{"adjacent", "close", "mid", "far"}

// zoneLabels carry the human label and nominal distance used only for display.
var zoneLabels = [...]string{"Within reach (0-2m)", "Close by (2-10m)", "Across the scene (10-50m)", "Far away (50m+)"}

func (z Zone) String() string {
	if z < ZoneAdjacent || z > ZoneFar {
		return "unknown"
	}
	return zoneNames[z]
}

// Label returns the display name with the nominal distance range.
func (z Zone) Label() string {
	if z < ZoneAdjacent || z > ZoneFar {
		return "Unknown"
	}
	return zoneLabels[z]
}

// Within reports whether z is at or inside the required zone on the ordered list.
func (z Zone) Within(required Zone) bool {
	return z <= required
}

// ParseZone maps a stored zone name back to its ordinal, defaulting to ZoneFar
// for unknown values so a corrupt row degrades to the most restrictive gate.
func ParseZone(name string) Zone {
	for i, n := range zoneNames {
		if n == name {
			return Zone(i)
		}
	}
	return ZoneFar
}

// ProximityPosition records how close CharacterID perceives itself to
// RelativeTo. Rows are directional: A's zone to B and B's zone to A are
// independent rows and are not forced to agree. Each party controls their own
// approach, so asymmetry is intentional.
type ProximityPosition struct {
	SessionID   string
	CharacterID string
	RelativeTo  string
	Zone        Zone
	Scene       string
}

// PreparedAction is a hidden, not-yet-executed action queued against a
// target. Cancellation deletes the row; execution marks it used but keeps it
// for the action log.
type PreparedAction struct {
	ID                  string
	SessionID           string
	CharacterID         string
	TargetID            string
	Kind                string
	DetectionDifficulty int
	IsRevealed          bool
	IsUsed              bool
	CreatedAt           time.Time
}

// EventEffects is the payload applied when a random event fires.
type EventEffects struct {
	Message string `json:"message"`
	Stat    string `json:"stat,omitempty"`
	Delta   int    `json:"delta,omitempty"`
}

// RandomEvent is a campaign-scoped, probability-gated event. IsActive is the
// operator kill-switch and is independent of Probability. LastTriggeredTurn
// is nil until the event first fires.
type RandomEvent struct {
	ID                string
	CampaignID        string
	Category          string
	Probability       int
	Recurring         bool
	CooldownTurns     int
	LastTriggeredTurn *int
	IsActive          bool
	Effects           EventEffects
}
