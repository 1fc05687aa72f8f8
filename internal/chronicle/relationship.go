// Package chronicle implements the relationship, reputation and convergence
// resolution engine behind the Lore Chronicles role-play mode.
//
// The engine is a library: it owns no wire protocol and performs no
// authorization. State lives in the persistent store, writes are
// last-write-wins, and other participants learn about them through the
// change-notification scope of the session (see Watcher).
package chronicle

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/scoremath"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

const (
	tableRelationshipScores  = "relationship_scores"
	tableRelationshipChanges = "relationship_changes"
)

var (
	ErrSelfRelationship = errors.NewSentinel("a character has no relationship with itself")
	ErrUnknownReason    = errors.NewSentinel("unknown canonical reason")
)

// relationshipConflictKey addresses the one row a pair may have.
var relationshipConflictKey = []string{"session_id", "char_a", "char_b"}

// RelationshipLedger is the single source of truth for how two characters
// regard each other within a session.
type RelationshipLedger struct {
	store  store.Store
	logger *slog.Logger
}

func NewRelationshipLedger(s store.Store, logger *slog.Logger) *RelationshipLedger {
	return &RelationshipLedger{
		store:  s,
		logger: logger.With("source", "RelationshipLedger"),
	}
}

// AdjustResult reports one adjustment's transition. Callers surface a
// relationship-change notice to the user when Transitioned reports true.
type AdjustResult struct {
	SessionID string
	CharA     string
	CharB     string
	Delta     int
	OldScore  int
	NewScore  int
	OldLevel  scoremath.Level
	NewLevel  scoremath.Level
}

// Transitioned reports whether the adjustment crossed a level band.
func (r AdjustResult) Transitioned() bool {
	return r.OldLevel != r.NewLevel
}

// GetScore looks up the pair's score regardless of argument order. It returns
// nil when the pair has never interacted; callers treat absence as score 0
// and level neutral.
func (l *RelationshipLedger) GetScore(ctx context.Context, sessionID, a, b string) (*models.RelationshipScore, error) {
	if a == b {
		return nil, errors.Wrap(ErrSelfRelationship, "get score", slog.String("characterID", a))
	}
	charA, charB := models.CanonicalPair(a, b)

	records, err := l.store.Select(ctx, tableRelationshipScores, store.Filter{
		"session_id": sessionID,
		"char_a":     charA,
		"char_b":     charB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "read relationship score")
	}
	if len(records) == 0 {
		return nil, nil
	}

	score := decodeRelationshipScore(records[0])
	return &score, nil
}

// Adjust applies a signed delta to the pair's score, clamped to the score
// range, persists the new score and appends an immutable change record. A
// missing prior row is the create path, not an error.
func (l *RelationshipLedger) Adjust(
	ctx context.Context,
	sessionID, a, b string,
	delta int,
	reason string,
	sourceActionID string,
) (*AdjustResult, error) {
	if a == b {
		return nil, errors.Wrap(ErrSelfRelationship, "adjust score", slog.String("characterID", a))
	}
	charA, charB := models.CanonicalPair(a, b)

	existing, err := l.GetScore(ctx, sessionID, charA, charB)
	if err != nil {
		return nil, err
	}
	oldScore := 0
	if existing != nil {
		oldScore = existing.Score
	}

	newScore := scoremath.Clamp(oldScore+delta, scoremath.MinScore, scoremath.MaxScore)
	oldLevel := scoremath.LevelForScore(oldScore)
	newLevel := scoremath.LevelForScore(newScore)
	now := time.Now()

	if err = l.store.Upsert(ctx, tableRelationshipScores, store.Record{
		"session_id":          sessionID,
		"char_a":              charA,
		"char_b":              charB,
		"score":               newScore,
		"level":               newLevel.String(),
		"last_interaction_at": store.FormatTime(now),
	}, relationshipConflictKey); err != nil {
		return nil, errors.Wrap(err, "persist relationship score")
	}

	if err = l.store.Insert(ctx, tableRelationshipChanges, store.Record{
		"id":               uuid.NewString(),
		"session_id":       sessionID,
		"char_a":           charA,
		"char_b":           charB,
		"delta":            delta,
		"score":            newScore,
		"old_level":        oldLevel.String(),
		"new_level":        newLevel.String(),
		"reason":           reason,
		"source_action_id": sourceActionID,
		"created_at":       store.FormatTime(now),
	}); err != nil {
		return nil, errors.Wrap(err, "append relationship change")
	}

	result := AdjustResult{
		SessionID: sessionID,
		CharA:     charA,
		CharB:     charB,
		Delta:     delta,
		OldScore:  oldScore,
		NewScore:  newScore,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
	if result.Transitioned() {
		l.logger.LogAttrs(ctx, slog.LevelInfo, "relationship level changed",
			slog.String("sessionID", sessionID),
			slog.String("charA", charA),
			slog.String("charB", charB),
			slog.String("oldLevel", oldLevel.String()),
			slog.String("newLevel", newLevel.String()))
	}
	return &result, nil
}

// AdjustForReason applies the canonical delta for a symbolic reason.
func (l *RelationshipLedger) AdjustForReason(
	ctx context.Context,
	sessionID, a, b string,
	reason string,
	sourceActionID string,
) (*AdjustResult, error) {
	delta, ok := DeltaForReason(reason)
	if !ok {
		return nil, errors.Wrap(ErrUnknownReason, "adjust for reason", slog.String("reason", reason))
	}
	return l.Adjust(ctx, sessionID, a, b, delta, reason, sourceActionID)
}

// HasRelationshipLevel reports whether the pair's current score reaches the
// minimum score of minLevel's band. A pair with no row counts as neutral.
func (l *RelationshipLedger) HasRelationshipLevel(
	ctx context.Context,
	sessionID, a, b string,
	minLevel scoremath.Level,
) (bool, error) {
	existing, err := l.GetScore(ctx, sessionID, a, b)
	if err != nil {
		return false, err
	}
	score := 0
	if existing != nil {
		score = existing.Score
	}
	return score >= minLevel.MinScore(), nil
}

// History returns the pair's change records, oldest first. Used purely for
// audit and history display.
func (l *RelationshipLedger) History(ctx context.Context, sessionID, a, b string) ([]models.RelationshipChange, error) {
	if a == b {
		return nil, errors.Wrap(ErrSelfRelationship, "read history", slog.String("characterID", a))
	}
	charA, charB := models.CanonicalPair(a, b)

	records, err := l.store.Select(ctx, tableRelationshipChanges, store.Filter{
		"session_id": sessionID,
		"char_a":     charA,
		"char_b":     charB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "read relationship history")
	}

	changes := make([]models.RelationshipChange, 0, len(records))
	for _, record := range records {
		changes = append(changes, decodeRelationshipChange(record))
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].CreatedAt.Before(changes[j].CreatedAt)
	})
	return changes, nil
}

// decodeRelationshipScore rebuilds the model from a stored row. The level is
// recomputed from the score instead of read back: the column is a cache, not
// a source of truth.
func decodeRelationshipScore(record store.Record) models.RelationshipScore {
	score := record.Int("score")
	return models.RelationshipScore{
		SessionID:         record.String("session_id"),
		CharA:             record.String("char_a"),
		CharB:             record.String("char_b"),
		Score:             score,
		Level:             scoremath.LevelForScore(score),
		LastInteractionAt: record.Time("last_interaction_at"),
	}
}

func decodeRelationshipChange(record store.Record) models.RelationshipChange {
	oldLevel, err := scoremath.ParseLevel(record.String("old_level"))
	if err != nil {
		oldLevel = scoremath.LevelNeutral
	}
	newLevel, err := scoremath.ParseLevel(record.String("new_level"))
	if err != nil {
		newLevel = scoremath.LevelNeutral
	}
	return models.RelationshipChange{
		ID:             record.String("id"),
		SessionID:      record.String("session_id"),
		CharA:          record.String("char_a"),
		CharB:          record.String("char_b"),
		Delta:          record.Int("delta"),
		Score:          record.Int("score"),
		OldLevel:       oldLevel,
		NewLevel:       newLevel,
		Reason:         record.String("reason"),
		SourceActionID: record.String("source_action_id"),
		CreatedAt:      record.Time("created_at"),
	}
}
