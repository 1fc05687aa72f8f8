// Package engine wires the chronicle components into cobra commands for
// inspecting and driving a campaign database from the terminal.
package engine

import (
	"context"
	"log/slog"
	"os"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/chronicle"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/envstruct"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/sqlite"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

type config struct {
	SQLiteURL string `env:"CHRONICLE_SQLITE_URL" envDefault:"./chronicle.sqlite"`
	LogLevel  string `env:"CHRONICLE_LOG_LEVEL" envDefault:"warn"`
}

// Runtime holds the opened database and the components the commands act
// through. Commands run one operation and exit, so there is no notifier to
// fan changes out to.
type Runtime struct {
	DB            *sqlite.Database
	Relationships *chronicle.RelationshipLedger
	Standings     *chronicle.FactionStandingLedger
	Proximity     *chronicle.ProximityModel
	Resolver      *chronicle.RuleResolver
	Scheduler     *chronicle.EventScheduler
	Logger        *slog.Logger
}

// Open connects to the configured database and builds the component set.
func Open(ctx context.Context) (*Runtime, error) {
	var cfg config
	if err := envstruct.Populate(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	db, err := sqlite.NewDatabase(ctx, cfg.SQLiteURL, logger)
	if err != nil {
		return nil, err
	}

	s := store.NewSQLiteStore(db, nil, logger)
	return &Runtime{
		DB:            db,
		Relationships: chronicle.NewRelationshipLedger(s, logger),
		Standings:     chronicle.NewFactionStandingLedger(s, logger),
		Proximity:     chronicle.NewProximityModel(s, logger),
		Resolver:      chronicle.NewRuleResolver(s, logger),
		Scheduler:     chronicle.NewEventScheduler(s, logger),
		Logger:        logger,
	}, nil
}

// Close releases the database connections.
func (r *Runtime) Close() error {
	return r.DB.Close()
}
