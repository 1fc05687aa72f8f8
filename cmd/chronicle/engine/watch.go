package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/broker"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/chronicle"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/envstruct"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/pprofserver"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/sqlite"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

type watchConfig struct {
	SQLiteURL string `env:"CHRONICLE_SQLITE_URL" envDefault:"./chronicle.sqlite"`
	PprofPort string `env:"CHRONICLE_PPROF_PORT" envDefault:":6060"`
}

var Watch = &cobra.Command{
	Use:     "watch [session]",
	GroupID: "play",
	Short:   "Stream state updates for a session until interrupted",
	Long: `Subscribes to the session's change notifications and prints each
refreshed state row as writers touch it. Writes from other processes are
picked up by polling the database's data version and republishing the
session's rows through the notification pipeline.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var cfg watchConfig
		if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
			return
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

		// Watch is the one long-running command, so profiling is worth having.
		pprofserver.Launch(cfg.PprofPort, logger)

		db, err := sqlite.NewDatabase(cmd.Context(), cfg.SQLiteURL, logger)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = db.Close() }()

		notifier := broker.NewNotifier[string, store.ChangeEvent]()
		go notifier.Start()
		defer notifier.Stop()

		s := store.NewSQLiteStore(db, notifier, logger)
		watcher := chronicle.NewWatcher(args[0], notifier,
			chronicle.NewRelationshipLedger(s, logger),
			chronicle.NewFactionStandingLedger(s, logger),
			chronicle.NewProximityModel(s, logger),
			logger)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		go db.StartOptimizer(ctx)
		go watcher.Run(ctx)
		go pollChanges(ctx, db, s, notifier, args[0], logger)

		fmt.Printf("watching session %s\n", args[0])
		for update := range watcher.Updates() {
			switch {
			case update.Relationship != nil:
				fmt.Printf("relationship %s <-> %s: %d (%s)\n",
					update.Relationship.CharA, update.Relationship.CharB,
					update.Relationship.Score, update.Relationship.Level)
			case update.Standing != nil:
				fmt.Printf("standing %s @ %s: %d (%s)\n",
					update.Standing.CharacterID, update.Standing.FactionID,
					update.Standing.Reputation, update.Standing.Rank)
			case update.Position != nil:
				fmt.Printf("proximity %s -> %s: %s\n",
					update.Position.CharacterID, update.Position.RelativeTo, update.Position.Zone)
			default:
				fmt.Printf("change in %s\n", update.Table)
			}
		}
	},
}

// watchedTables are the tables the poller republishes; they match what the
// watcher refreshes.
var watchedTables = []string{"relationship_scores", "faction_standings", "proximity_positions"}

// pollChanges bridges writes from other processes into the in-process
// notifier. PRAGMA data_version only moves when a different connection writes
// the database, so the watcher's own refresh queries never trigger a refresh.
// On a version bump the session's current rows are republished wholesale; the
// watcher re-queries per row anyway, so the worst case is a redundant print.
func pollChanges(
	ctx context.Context,
	db *sqlite.Database,
	s store.Store,
	notifier *broker.Notifier[string, store.ChangeEvent],
	sessionID string,
	logger *slog.Logger,
) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// data_version is tracked per connection, so the poll must stay on one.
	conn, err := db.ReadOnly.Conn(ctx)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "poll connection failed")
		return
	}
	defer func() { _ = conn.Close() }()

	var lastVersion int64
	_ = conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&lastVersion)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var version int64
		if err := conn.QueryRowContext(ctx, "PRAGMA data_version").Scan(&version); err != nil {
			continue
		}
		if version == lastVersion {
			continue
		}
		lastVersion = version

		for _, table := range watchedTables {
			records, err := s.Select(ctx, table, store.Filter{"session_id": sessionID})
			if err != nil {
				logger.LogAttrs(ctx, slog.LevelWarn, "poll query failed",
					slog.String("table", table))
				continue
			}
			for _, record := range records {
				notifier.Publish(sessionID, store.ChangeEvent{
					Table: table,
					Type:  store.ChangeUpdate,
					Row:   record,
				})
			}
		}
	}
}
