package chronicle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/chronicle"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/scoremath"
)

// One participant's write must surface to another participant of the same
// session as fresh state, while other sessions stay quiet.
func TestWatcherDeliversFreshState(t *testing.T) {
	t.Parallel()

	notifier := newTestNotifier(t)
	s, logger := newTestStore(t, notifier)

	relationships := chronicle.NewRelationshipLedger(s, logger)
	standings := chronicle.NewFactionStandingLedger(s, logger)
	proximity := chronicle.NewProximityModel(s, logger)

	watcher := chronicle.NewWatcher("session-1", notifier, relationships, standings, proximity, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	// A write in another session must not reach this watcher.
	_, err := relationships.Adjust(context.Background(), "session-2", "aria", "brom", 10, "helped_in_combat", "")
	require.NoError(t, err)

	_, err = relationships.Adjust(context.Background(), "session-1", "aria", "brom", 30, "saved_life", "")
	require.NoError(t, err)

	update := waitForUpdate(t, watcher, "relationship_scores")
	require.NotNil(t, update.Relationship)
	require.Equal(t, 30, update.Relationship.Score)
	require.Equal(t, scoremath.LevelFriendly, update.Relationship.Level)

	_, err = standings.UpdateReputation(context.Background(), "session-1", "aria", "crimson-order", 25)
	require.NoError(t, err)

	update = waitForUpdate(t, watcher, "faction_standings")
	require.NotNil(t, update.Standing)
	require.Equal(t, 25, update.Standing.Reputation)
	require.Equal(t, scoremath.RankFriendly, update.Standing.Rank)

	require.NoError(t, proximity.SetZone(context.Background(), "session-1", "aria", "brom", models.ZoneClose, "the archive"))

	update = waitForUpdate(t, watcher, "proximity_positions")
	require.NotNil(t, update.Position)
	require.Equal(t, models.ZoneClose, update.Position.Zone)
}

func TestWatcherClosesUpdatesOnCancel(t *testing.T) {
	t.Parallel()

	notifier := newTestNotifier(t)
	s, logger := newTestStore(t, notifier)

	relationships := chronicle.NewRelationshipLedger(s, logger)
	standings := chronicle.NewFactionStandingLedger(s, logger)
	proximity := chronicle.NewProximityModel(s, logger)

	watcher := chronicle.NewWatcher("session-1", notifier, relationships, standings, proximity, logger)
	ctx, cancel := context.WithCancel(context.Background())
	go watcher.Run(ctx)

	cancel()

	select {
	case _, ok := <-watcher.Updates():
		require.False(t, ok, "updates channel should close after cancel")
	case <-time.After(time.Second):
		t.Fatal("updates channel did not close")
	}
}

// waitForUpdate blocks until an update for the given table arrives, skipping
// updates for other tables (a ledger write can touch several).
func waitForUpdate(t *testing.T, watcher *chronicle.Watcher, table string) chronicle.StateUpdate {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		select {
		case update, ok := <-watcher.Updates():
			require.True(t, ok, "updates channel closed unexpectedly")
			if update.Table == table {
				return update
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s update", table)
			return chronicle.StateUpdate{}
		}
	}
}
