package chronicle

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/scoremath"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

const (
	tableFactionStandings      = "faction_standings"
	tableFactionRelations      = "faction_relations"
	tableFactionRankThresholds = "faction_rank_thresholds"
	tableFactionPerks          = "faction_perks"
)

var (
	ErrNotMember       = errors.NewSentinel("character is not a member of the faction")
	ErrFactionBetrayed = errors.NewSentinel("faction was betrayed and cannot be rejoined")
)

var standingConflictKey = []string{"session_id", "character_id", "faction_id"}

// FactionStandingLedger tracks how favorably a character stands with each
// campaign faction and what that standing unlocks.
type FactionStandingLedger struct {
	store  store.Store
	logger *slog.Logger
}

func NewFactionStandingLedger(s store.Store, logger *slog.Logger) *FactionStandingLedger {
	return &FactionStandingLedger{
		store:  s,
		logger: logger.With("source", "FactionStandingLedger"),
	}
}

// StandingResult reports one reputation update's transition.
type StandingResult struct {
	Standing      models.FactionStanding
	OldReputation int
	OldRank       scoremath.Rank
}

// RankChanged reports whether the update crossed a rank threshold.
func (r StandingResult) RankChanged() bool {
	return r.OldRank != r.Standing.Rank
}

// GetStanding returns the character's standing with the faction, nil when the
// character has never interacted with it. The rank is recomputed from the
// reputation under the threshold table in force at read time.
func (l *FactionStandingLedger) GetStanding(
	ctx context.Context,
	sessionID, characterID, factionID string,
) (*models.FactionStanding, error) {
	records, err := l.store.Select(ctx, tableFactionStandings, store.Filter{
		"session_id":   sessionID,
		"character_id": characterID,
		"faction_id":   factionID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "read faction standing")
	}
	if len(records) == 0 {
		return nil, nil
	}

	thresholds, err := l.thresholds(ctx, factionID)
	if err != nil {
		return nil, err
	}
	standing := decodeFactionStanding(records[0], thresholds)
	return &standing, nil
}

// UpdateReputation applies a signed delta to the character's reputation with
// the faction, clamped to the score range, and recomputes the rank from the
// faction's threshold table. Creates the standing row when absent.
func (l *FactionStandingLedger) UpdateReputation(
	ctx context.Context,
	sessionID, characterID, factionID string,
	delta int,
) (*StandingResult, error) {
	existing, err := l.GetStanding(ctx, sessionID, characterID, factionID)
	if err != nil {
		return nil, err
	}
	thresholds, err := l.thresholds(ctx, factionID)
	if err != nil {
		return nil, err
	}

	oldReputation := 0
	isMember := false
	var joinedAt, betrayedAt *time.Time
	if existing != nil {
		oldReputation = existing.Reputation
		isMember = existing.IsMember
		joinedAt = existing.JoinedAt
		betrayedAt = existing.BetrayedAt
	}
	oldRank := thresholds.RankForReputation(oldReputation)

	newReputation := scoremath.Clamp(oldReputation+delta, scoremath.MinScore, scoremath.MaxScore)
	newRank := thresholds.RankForReputation(newReputation)

	if err = l.store.Upsert(ctx, tableFactionStandings, store.Record{
		"session_id":   sessionID,
		"character_id": characterID,
		"faction_id":   factionID,
		"reputation":   newReputation,
		"rank":         newRank.String(),
		"is_member":    boolColumn(isMember),
		"joined_at":    timeColumn(joinedAt),
		"betrayed_at":  timeColumn(betrayedAt),
	}, standingConflictKey); err != nil {
		return nil, errors.Wrap(err, "persist faction standing")
	}

	return &StandingResult{
		Standing: models.FactionStanding{
			SessionID:   sessionID,
			CharacterID: characterID,
			FactionID:   factionID,
			Reputation:  newReputation,
			Rank:        newRank,
			IsMember:    isMember,
			JoinedAt:    joinedAt,
			BetrayedAt:  betrayedAt,
		},
		OldReputation: oldReputation,
		OldRank:       oldRank,
	}, nil
}

// Join makes the character a member of the faction, keeping any accumulated
// reputation. Joining a faction the character has betrayed is rejected;
// betrayal is terminal.
func (l *FactionStandingLedger) Join(ctx context.Context, sessionID, characterID, factionID string) error {
	existing, err := l.GetStanding(ctx, sessionID, characterID, factionID)
	if err != nil {
		return err
	}
	if existing != nil && existing.BetrayedAt != nil {
		return errors.Wrap(ErrFactionBetrayed, "join faction",
			slog.String("characterID", characterID),
			slog.String("factionID", factionID))
	}

	thresholds, err := l.thresholds(ctx, factionID)
	if err != nil {
		return err
	}
	reputation := 0
	if existing != nil {
		reputation = existing.Reputation
	}
	now := time.Now()

	if err = l.store.Upsert(ctx, tableFactionStandings, store.Record{
		"session_id":   sessionID,
		"character_id": characterID,
		"faction_id":   factionID,
		"reputation":   reputation,
		"rank":         thresholds.RankForReputation(reputation).String(),
		"is_member":    1,
		"joined_at":    store.FormatTime(now),
		"betrayed_at":  nil,
	}, standingConflictKey); err != nil {
		return errors.Wrap(err, "persist faction membership")
	}
	return nil
}

// Betray is a one-way terminal transition: membership ends, reputation drops
// to the floor and the rank is forced to the worst band regardless of what it
// was. Betraying a faction the character never joined is rejected without
// creating a row.
func (l *FactionStandingLedger) Betray(ctx context.Context, sessionID, characterID, factionID string) error {
	existing, err := l.GetStanding(ctx, sessionID, characterID, factionID)
	if err != nil {
		return err
	}
	if existing == nil || !existing.IsMember {
		return errors.Wrap(ErrNotMember, "betray faction",
			slog.String("characterID", characterID),
			slog.String("factionID", factionID))
	}

	if err = l.store.Update(ctx, tableFactionStandings,
		store.Filter{
			"session_id":   sessionID,
			"character_id": characterID,
			"faction_id":   factionID,
		},
		store.Record{
			"reputation":  scoremath.MinScore,
			"rank":        scoremath.RankHated.String(),
			"is_member":   0,
			"betrayed_at": store.FormatTime(time.Now()),
		}); err != nil {
		return errors.Wrap(err, "persist faction betrayal")
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, "faction betrayed",
		slog.String("sessionID", sessionID),
		slog.String("characterID", characterID),
		slog.String("factionID", factionID))
	return nil
}

// AvailablePerks returns the faction's perks unlocked by the standing's
// current rank. Unlocking is recomputed live; a rank dropping below a perk's
// threshold locks it again.
func (l *FactionStandingLedger) AvailablePerks(
	ctx context.Context,
	factionID string,
	standing models.FactionStanding,
) ([]models.FactionPerk, error) {
	records, err := l.store.Select(ctx, tableFactionPerks, store.Filter{"faction_id": factionID})
	if err != nil {
		return nil, errors.Wrap(err, "read faction perks")
	}

	var unlocked []models.FactionPerk
	for _, record := range records {
		requiredRank, parseErr := scoremath.ParseRank(record.String("required_rank"))
		if parseErr != nil {
			// A perk with an unknown rank requirement never unlocks.
			l.logger.LogAttrs(ctx, slog.LevelWarn, "perk has unknown required rank",
				slog.String("perkID", record.String("id")),
				errors.SlogError(parseErr))
			continue
		}
		perk := models.FactionPerk{
			ID:           record.String("id"),
			FactionID:    record.String("faction_id"),
			Name:         record.String("name"),
			Description:  record.String("description"),
			RequiredRank: requiredRank,
		}
		if models.StandingUnlocks(standing, perk) {
			unlocked = append(unlocked, perk)
		}
	}
	sort.Slice(unlocked, func(i, j int) bool { return unlocked[i].ID < unlocked[j].ID })
	return unlocked, nil
}

// Relation returns the symmetric stance between two factions, neutral when no
// row exists.
func (l *FactionStandingLedger) Relation(ctx context.Context, factionA, factionB string) (models.FactionRelationKind, error) {
	a, b := models.CanonicalPair(factionA, factionB)
	records, err := l.store.Select(ctx, tableFactionRelations, store.Filter{
		"faction_a": a,
		"faction_b": b,
	})
	if err != nil {
		return models.FactionsNeutral, errors.Wrap(err, "read faction relation")
	}
	if len(records) == 0 {
		return models.FactionsNeutral, nil
	}
	return models.FactionRelationKind(records[0].String("kind")), nil
}

// SetRelation updates the stance for the unordered faction pair in place.
func (l *FactionStandingLedger) SetRelation(
	ctx context.Context,
	factionA, factionB string,
	kind models.FactionRelationKind,
) error {
	a, b := models.CanonicalPair(factionA, factionB)
	if err := l.store.Upsert(ctx, tableFactionRelations, store.Record{
		"faction_a": a,
		"faction_b": b,
		"kind":      string(kind),
	}, []string{"faction_a", "faction_b"}); err != nil {
		return errors.Wrap(err, "persist faction relation")
	}
	return nil
}

// thresholds loads the faction's rank-threshold table, falling back to the
// defaults when the campaign has not configured one.
func (l *FactionStandingLedger) thresholds(ctx context.Context, factionID string) (scoremath.RankThresholds, error) {
	records, err := l.store.Select(ctx, tableFactionRankThresholds, store.Filter{"faction_id": factionID})
	if err != nil {
		return nil, errors.Wrap(err, "read rank thresholds")
	}
	if len(records) == 0 {
		return scoremath.DefaultRankThresholds(), nil
	}

	thresholds := scoremath.RankThresholds{}
	for _, record := range records {
		rank, parseErr := scoremath.ParseRank(record.String("rank"))
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "parse configured rank threshold",
				slog.String("factionID", factionID))
		}
		thresholds[rank] = record.Int("min_reputation")
	}
	return thresholds, nil
}

// decodeFactionStanding rebuilds the model from a stored row, recomputing the
// rank from the reputation since the column is only a cache.
func decodeFactionStanding(record store.Record, thresholds scoremath.RankThresholds) models.FactionStanding {
	reputation := record.Int("reputation")
	return models.FactionStanding{
		SessionID:   record.String("session_id"),
		CharacterID: record.String("character_id"),
		FactionID:   record.String("faction_id"),
		Reputation:  reputation,
		Rank:        thresholds.RankForReputation(reputation),
		IsMember:    record.Bool("is_member"),
		JoinedAt:    record.TimePtr("joined_at"),
		BetrayedAt:  record.TimePtr("betrayed_at"),
	}
}

func boolColumn(v bool) int {
	if v {
		return 1
	}
	return 0
}

func timeColumn(t *time.Time) any {
	if t == nil {
		return nil
	}
	return store.FormatTime(*t)
}
