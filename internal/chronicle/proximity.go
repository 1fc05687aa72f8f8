package chronicle

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

const (
	tableProximityPositions = "proximity_positions"
	tablePreparedActions    = "prepared_actions"
)

var (
	ErrActionNotFound    = errors.NewSentinel("prepared action not found")
	ErrActionAlreadyUsed = errors.NewSentinel("prepared action was already executed")
)

var proximityConflictKey = []string{"session_id", "character_id", "relative_to"}

// Direction steps a zone along the ordered list.
type Direction string

const (
	DirectionCloser  Direction = "closer"
	DirectionFarther Direction = "farther"
)

// ProximityModel gates which actions are offered based on spatial closeness
// between characters.
//
// Positions are directional: the actor only ever writes its own perspective,
// so A's recorded zone to B need not equal B's recorded zone to A. Each party
// perceives and controls their own approach.
type ProximityModel struct {
	store  store.Store
	logger *slog.Logger
}

func NewProximityModel(s store.Store, logger *slog.Logger) *ProximityModel {
	return &ProximityModel{
		store:  s,
		logger: logger.With("source", "ProximityModel"),
	}
}

// stepZone moves one position along the ordered zone list, clamped at the ends.
func stepZone(zone models.Zone, direction Direction) models.Zone {
	switch direction {
	case DirectionCloser:
		if zone > models.ZoneAdjacent {
			return zone - 1
		}
	case DirectionFarther:
		if zone < models.ZoneFar {
			return zone + 1
		}
	}
	return zone
}

// ZoneTo returns the actor's recorded zone to the target. Pairs without a row
// count as far, the most restrictive fallback.
func (m *ProximityModel) ZoneTo(ctx context.Context, sessionID, actorID, targetID string) (models.Zone, error) {
	position, err := m.position(ctx, sessionID, actorID, targetID)
	if err != nil {
		return models.ZoneFar, err
	}
	if position == nil {
		return models.ZoneFar, nil
	}
	return position.Zone, nil
}

// MoveToward steps the actor's zone to the target one position closer or
// farther, clamped at adjacent and far, and returns the new zone. The first
// move against an untracked pair records the far baseline without stepping:
// approaching someone starts by entering the scene at its outer edge.
func (m *ProximityModel) MoveToward(
	ctx context.Context,
	sessionID, actorID, targetID string,
	direction Direction,
) (models.Zone, error) {
	position, err := m.position(ctx, sessionID, actorID, targetID)
	if err != nil {
		return models.ZoneFar, err
	}

	newZone := models.ZoneFar
	scene := ""
	if position != nil {
		newZone = stepZone(position.Zone, direction)
		scene = position.Scene
	}
	if err = m.SetZone(ctx, sessionID, actorID, targetID, newZone, scene); err != nil {
		return models.ZoneFar, err
	}
	return newZone, nil
}

// SetZone overrides the actor's zone to the target directly.
func (m *ProximityModel) SetZone(
	ctx context.Context,
	sessionID, actorID, targetID string,
	zone models.Zone,
	scene string,
) error {
	if err := m.store.Upsert(ctx, tableProximityPositions, store.Record{
		"session_id":   sessionID,
		"character_id": actorID,
		"relative_to":  targetID,
		"zone":         zone.String(),
		"scene":        scene,
	}, proximityConflictKey); err != nil {
		return errors.Wrap(err, "persist proximity position")
	}
	return nil
}

// Availability reports whether an action is offered and, when it is not,
// which gates denied it so the UI can explain the denial.
type Availability struct {
	Zone        models.Zone
	FailedGates []models.ActionGate
}

// Available reports whether every configured gate passed.
func (a Availability) Available() bool {
	return len(a.FailedGates) == 0
}

// CheckActionAvailability checks every configured gate of the action spec:
// the current zone must be at or inside the required range, the required
// inventory item (if any) must be held, and the required stat (if any) must
// meet its minimum.
func (m *ProximityModel) CheckActionAvailability(
	ctx context.Context,
	sessionID string,
	actor models.ActorState,
	targetID string,
	spec models.ActionSpec,
) (Availability, error) {
	zone, err := m.ZoneTo(ctx, sessionID, actor.CharacterID, targetID)
	if err != nil {
		return Availability{Zone: models.ZoneFar}, err
	}

	availability := Availability{Zone: zone}
	if !spec.RequireAnyZone && !zone.Within(spec.RequiredZone) {
		availability.FailedGates = append(availability.FailedGates, models.GateRange)
	}
	if spec.RequiredItem != "" && !actor.HasItem(spec.RequiredItem) {
		availability.FailedGates = append(availability.FailedGates, models.GateItem)
	}
	if spec.RequiredStat != "" && actor.Stat(spec.RequiredStat) < spec.RequiredStatMin {
		availability.FailedGates = append(availability.FailedGates, models.GateStat)
	}
	return availability, nil
}

// PrepareAction queues a hidden action against a target. Creating it reveals
// nothing to other participants; detection difficulty is carried on the
// action for the combat layer to roll against, not checked here.
func (m *ProximityModel) PrepareAction(
	ctx context.Context,
	sessionID, actorID, targetID, kind string,
	detectionDifficulty int,
) (*models.PreparedAction, error) {
	action := models.PreparedAction{
		ID:                  uuid.NewString(),
		SessionID:           sessionID,
		CharacterID:         actorID,
		TargetID:            targetID,
		Kind:                kind,
		DetectionDifficulty: detectionDifficulty,
		CreatedAt:           time.Now(),
	}
	if err := m.store.Insert(ctx, tablePreparedActions, store.Record{
		"id":                   action.ID,
		"session_id":           action.SessionID,
		"character_id":         action.CharacterID,
		"target_id":            action.TargetID,
		"kind":                 action.Kind,
		"detection_difficulty": action.DetectionDifficulty,
		"is_revealed":          0,
		"is_used":              0,
		"created_at":           store.FormatTime(action.CreatedAt),
	}); err != nil {
		return nil, errors.Wrap(err, "persist prepared action")
	}
	return &action, nil
}

// PreparedActions lists a character's queued actions, oldest first.
func (m *ProximityModel) PreparedActions(ctx context.Context, sessionID, characterID string) ([]models.PreparedAction, error) {
	records, err := m.store.Select(ctx, tablePreparedActions, store.Filter{
		"session_id":   sessionID,
		"character_id": characterID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "read prepared actions")
	}

	actions := make([]models.PreparedAction, 0, len(records))
	for _, record := range records {
		actions = append(actions, decodePreparedAction(record))
	}
	sort.Slice(actions, func(i, j int) bool {
		return actions[i].CreatedAt.Before(actions[j].CreatedAt)
	})
	return actions, nil
}

// RevealAction marks the action visible to other participants, either because
// it executed or because an opponent detected it.
func (m *ProximityModel) RevealAction(ctx context.Context, actionID string) error {
	action, err := m.preparedAction(ctx, actionID)
	if err != nil {
		return err
	}
	if err = m.store.Update(ctx, tablePreparedActions,
		store.Filter{"id": action.ID, "session_id": action.SessionID},
		store.Record{"is_revealed": 1}); err != nil {
		return errors.Wrap(err, "persist action reveal")
	}
	return nil
}

// UseAction executes the action: it becomes revealed and used, and stays in
// the store for the action log.
func (m *ProximityModel) UseAction(ctx context.Context, actionID string) error {
	action, err := m.preparedAction(ctx, actionID)
	if err != nil {
		return err
	}
	if action.IsUsed {
		return errors.Wrap(ErrActionAlreadyUsed, "use action", slog.String("actionID", actionID))
	}
	if err = m.store.Update(ctx, tablePreparedActions,
		store.Filter{"id": action.ID, "session_id": action.SessionID},
		store.Record{"is_revealed": 1, "is_used": 1}); err != nil {
		return errors.Wrap(err, "persist action use")
	}
	return nil
}

// CancelAction deletes a queued action before execution. Used actions stay
// for the action log and cannot be cancelled.
func (m *ProximityModel) CancelAction(ctx context.Context, actionID string) error {
	action, err := m.preparedAction(ctx, actionID)
	if err != nil {
		return err
	}
	if action.IsUsed {
		return errors.Wrap(ErrActionAlreadyUsed, "cancel action", slog.String("actionID", actionID))
	}
	if err = m.store.Delete(ctx, tablePreparedActions,
		store.Filter{"id": action.ID, "session_id": action.SessionID}); err != nil {
		return errors.Wrap(err, "delete prepared action")
	}
	return nil
}

func (m *ProximityModel) position(ctx context.Context, sessionID, actorID, targetID string) (*models.ProximityPosition, error) {
	records, err := m.store.Select(ctx, tableProximityPositions, store.Filter{
		"session_id":   sessionID,
		"character_id": actorID,
		"relative_to":  targetID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "read proximity position")
	}
	if len(records) == 0 {
		return nil, nil
	}

	position := models.ProximityPosition{
		SessionID:   records[0].String("session_id"),
		CharacterID: records[0].String("character_id"),
		RelativeTo:  records[0].String("relative_to"),
		Zone:        models.ParseZone(records[0].String("zone")),
		Scene:       records[0].String("scene"),
	}
	return &position, nil
}

func (m *ProximityModel) preparedAction(ctx context.Context, actionID string) (*models.PreparedAction, error) {
	records, err := m.store.Select(ctx, tablePreparedActions, store.Filter{"id": actionID})
	if err != nil {
		return nil, errors.Wrap(err, "read prepared action")
	}
	if len(records) == 0 {
		return nil, errors.Wrap(ErrActionNotFound, "find prepared action", slog.String("actionID", actionID))
	}
	action := decodePreparedAction(records[0])
	return &action, nil
}

func decodePreparedAction(record store.Record) models.PreparedAction {
	return models.PreparedAction{
		ID:                  record.String("id"),
		SessionID:           record.String("session_id"),
		CharacterID:         record.String("character_id"),
		TargetID:            record.String("target_id"),
		Kind:                record.String("kind"),
		DetectionDifficulty: record.Int("detection_difficulty"),
		IsRevealed:          record.Bool("is_revealed"),
		IsUsed:              record.Bool("is_used"),
		CreatedAt:           record.Time("created_at"),
	}
}
