package chronicle

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

const tableRandomEvents = "random_events"

// EventScheduler decides which configured random events may fire on a
// campaign turn. It produces the eligible set deterministically from state;
// rolling against each event's probability is the caller's job, which keeps
// eligibility and cooldown bookkeeping independent of any dice implementation.
type EventScheduler struct {
	store  store.Store
	logger *slog.Logger
}

func NewEventScheduler(s store.Store, logger *slog.Logger) *EventScheduler {
	return &EventScheduler{
		store:  s,
		logger: logger.With("source", "EventScheduler"),
	}
}

// EligibleEvents returns the campaign's events that may fire on the given
// turn, ordered by id. An event is eligible when its kill-switch is on and,
// once it has fired, only if it recurs and its cooldown has elapsed.
func (s *EventScheduler) EligibleEvents(ctx context.Context, campaignID string, turn int) ([]models.RandomEvent, error) {
	records, err := s.store.Select(ctx, tableRandomEvents, store.Filter{"campaign_id": campaignID})
	if err != nil {
		return nil, errors.Wrap(err, "read random events")
	}

	var eligible []models.RandomEvent
	for _, record := range records {
		event, decodeErr := decodeRandomEvent(record)
		if decodeErr != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "skipping event with undecodable effects",
				slog.String("eventID", record.String("id")),
				errors.SlogError(decodeErr))
			continue
		}
		if eventEligible(event, turn) {
			eligible = append(eligible, event)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible, nil
}

// eventEligible applies the kill-switch and cooldown rules. The cooldown has
// elapsed when at least CooldownTurns turns passed since the last trigger.
func eventEligible(event models.RandomEvent, turn int) bool {
	if !event.IsActive {
		return false
	}
	if event.LastTriggeredTurn == nil {
		return true
	}
	if !event.Recurring {
		return false
	}
	return turn-*event.LastTriggeredTurn >= event.CooldownTurns
}

// MarkTriggered records that the event fired on the given turn, starting its
// cooldown window.
func (s *EventScheduler) MarkTriggered(ctx context.Context, eventID string, turn int) error {
	if err := s.store.Update(ctx, tableRandomEvents,
		store.Filter{"id": eventID},
		store.Record{"last_triggered_turn": turn}); err != nil {
		return errors.Wrap(err, "persist event trigger", slog.String("eventID", eventID))
	}
	return nil
}

func decodeRandomEvent(record store.Record) (models.RandomEvent, error) {
	event := models.RandomEvent{
		ID:                record.String("id"),
		CampaignID:        record.String("campaign_id"),
		Category:          record.String("category"),
		Probability:       record.Int("probability"),
		Recurring:         record.Bool("recurring"),
		CooldownTurns:     record.Int("cooldown_turns"),
		LastTriggeredTurn: record.IntPtr("last_triggered_turn"),
		IsActive:          record.Bool("is_active"),
	}
	if raw := record.String("effects"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &event.Effects); err != nil {
			return event, errors.Wrap(err, "decode event effects")
		}
	}
	return event, nil
}
