package chronicle

import (
	"context"
	"log/slog"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/broker"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

// StateUpdate is delivered to a session participant after another
// participant's write. Exactly one of the typed fields is set for the tables
// the watcher understands; for other tables only Table is set and the
// consumer re-runs whatever query it cares about.
type StateUpdate struct {
	Table        string
	Relationship *models.RelationshipScore
	Standing     *models.FactionStanding
	Position     *models.ProximityPosition
}

// Watcher turns raw change notifications into fresh typed state. A change
// event's payload is only trusted for the table name and row key: the watcher
// re-queries the store for the current row instead of applying the payload,
// so a dropped or reordered notification cannot leave a stale value behind.
type Watcher struct {
	sessionID     string
	notifier      *broker.Notifier[string, store.ChangeEvent]
	events        chan store.ChangeEvent
	relationships *RelationshipLedger
	standings     *FactionStandingLedger
	proximity     *ProximityModel
	logger        *slog.Logger
	updates       chan StateUpdate
}

// NewWatcher subscribes to the session's change scope immediately, so writes
// made after it returns are guaranteed to be observed once Run is started.
// The notifier must already be running.
func NewWatcher(
	sessionID string,
	notifier *broker.Notifier[string, store.ChangeEvent],
	relationships *RelationshipLedger,
	standings *FactionStandingLedger,
	proximity *ProximityModel,
	logger *slog.Logger,
) *Watcher {
	return &Watcher{
		sessionID:     sessionID,
		notifier:      notifier,
		events:        notifier.Subscribe(sessionID),
		relationships: relationships,
		standings:     standings,
		proximity:     proximity,
		logger:        logger.With("source", "Watcher", "sessionID", sessionID),
		updates:       make(chan StateUpdate, 16),
	}
}

// Updates is the consumer's channel. It closes when Run returns.
func (w *Watcher) Updates() <-chan StateUpdate {
	return w.updates
}

// Run subscribes to the session's change scope and blocks until ctx is
// cancelled or the notifier stops, refreshing affected state per event.
// It should be called in a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.updates)

	for {
		select {
		case <-ctx.Done():
			w.notifier.Unsubscribe(w.sessionID, w.events)
			// Drain so the notifier's close cannot race a pending send.
			for range w.events {
			}
			return
		case event, ok := <-w.events:
			if !ok {
				return
			}
			update, err := w.refresh(ctx, event)
			if err != nil {
				w.logger.LogAttrs(ctx, slog.LevelError, "failed to refresh state after change",
					slog.String("table", event.Table),
					errors.SlogError(err))
				continue
			}
			select {
			case w.updates <- update:
			case <-ctx.Done():
			}
		}
	}
}

// refresh re-fetches the state a change event points at.
func (w *Watcher) refresh(ctx context.Context, event store.ChangeEvent) (StateUpdate, error) {
	update := StateUpdate{Table: event.Table}
	row := event.Row

	switch event.Table {
	case tableRelationshipScores:
		relationship, err := w.relationships.GetScore(ctx, w.sessionID, row.String("char_a"), row.String("char_b"))
		if err != nil {
			return update, err
		}
		update.Relationship = relationship
	case tableFactionStandings:
		standing, err := w.standings.GetStanding(ctx, w.sessionID, row.String("character_id"), row.String("faction_id"))
		if err != nil {
			return update, err
		}
		update.Standing = standing
	case tableProximityPositions:
		zone, err := w.proximity.ZoneTo(ctx, w.sessionID, row.String("character_id"), row.String("relative_to"))
		if err != nil {
			return update, err
		}
		update.Position = &models.ProximityPosition{
			SessionID:   w.sessionID,
			CharacterID: row.String("character_id"),
			RelativeTo:  row.String("relative_to"),
			Zone:        zone,
		}
	}
	return update, nil
}
