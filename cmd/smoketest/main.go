// Command smoketest runs one full play scenario against a real database and
// exits non-zero if any step misbehaves. It is meant to run against a fresh
// file after deployment; it writes under its own session id and leaves the
// rows behind for inspection.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/broker"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/chronicle"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/logging"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/scoremath"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/sqlite"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

var errUnexpectedState = errors.NewSentinel("unexpected state")

func testScenario(ctx context.Context, db *sqlite.Database, logger *slog.Logger) error {
	notifier := broker.NewNotifier[string, store.ChangeEvent]()
	go notifier.Start()
	defer notifier.Stop()

	s := store.NewSQLiteStore(db, notifier, logger)
	relationships := chronicle.NewRelationshipLedger(s, logger)
	standings := chronicle.NewFactionStandingLedger(s, logger)
	proximity := chronicle.NewProximityModel(s, logger)

	sessionID := "smoketest-" + uuid.NewString()
	watcher := chronicle.NewWatcher(sessionID, notifier, relationships, standings, proximity, logger)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go watcher.Run(watchCtx)

	result, err := relationships.Adjust(ctx, sessionID, "aria", "brom", 60, "saved_life", "")
	if err != nil {
		return errors.Wrap(err, "adjust relationship")
	}
	if !result.Transitioned() || result.NewLevel != scoremath.LevelBonded {
		return errors.Wrap(errUnexpectedState, "relationship level",
			slog.String("level", result.NewLevel.String()))
	}

	if err = standings.Join(ctx, sessionID, "aria", "crimson-order"); err != nil {
		return errors.Wrap(err, "join faction")
	}
	standing, err := standings.UpdateReputation(ctx, sessionID, "aria", "crimson-order", 30)
	if err != nil {
		return errors.Wrap(err, "update reputation")
	}
	if standing.Standing.Rank != scoremath.RankFriendly {
		return errors.Wrap(errUnexpectedState, "faction rank",
			slog.String("rank", standing.Standing.Rank.String()))
	}

	// First move records the far baseline, second one steps.
	if _, err = proximity.MoveToward(ctx, sessionID, "aria", "brom", chronicle.DirectionCloser); err != nil {
		return errors.Wrap(err, "enter scene")
	}
	zone, err := proximity.MoveToward(ctx, sessionID, "aria", "brom", chronicle.DirectionCloser)
	if err != nil {
		return errors.Wrap(err, "move closer")
	}
	if zone != models.ZoneMid {
		return errors.Wrap(errUnexpectedState, "zone after move", slog.String("zone", zone.String()))
	}

	// The watcher must have seen all three writes.
	seen := map[string]bool{}
	deadline := time.After(5 * time.Second)
	for len(seen) < 3 {
		select {
		case update, ok := <-watcher.Updates():
			if !ok {
				return errors.Wrap(errUnexpectedState, "updates channel closed early")
			}
			seen[update.Table] = true
		case <-deadline:
			return errors.Wrap(errUnexpectedState, "timed out waiting for updates",
				slog.Int("seen", len(seen)))
		}
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sqliteURL, ok := os.LookupEnv("CHRONICLE_SQLITE_URL")
	if !ok {
		logger.LogAttrs(ctx, slog.LevelError, "CHRONICLE_SQLITE_URL not set")
		os.Exit(1)
	}

	db, err := sqlite.NewDatabase(ctx, sqliteURL, logger)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating database",
			slog.String("url", sqliteURL), errors.SlogError(err))
		os.Exit(1)
	}

	if err = testScenario(ctx, db, logger); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "scenario failed", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
