package chronicle_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/broker"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/sqlite"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/testhelpers"
)

// newTestStore creates a store over a fresh in-memory database, optionally
// wired to a notifier for change-propagation tests.
func newTestStore(t *testing.T, notifier *broker.Notifier[string, store.ChangeEvent]) (*store.SQLiteStore, *slog.Logger) {
	t.Helper()

	logger := testhelpers.NewLogger(io.Discard)
	db, err := sqlite.NewDatabase(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	return store.NewSQLiteStore(db, notifier, logger), logger
}

// newTestNotifier starts a notifier that stops with the test.
func newTestNotifier(t *testing.T) *broker.Notifier[string, store.ChangeEvent] {
	t.Helper()

	notifier := broker.NewNotifier[string, store.ChangeEvent]()
	go notifier.Start()
	t.Cleanup(notifier.Stop)
	return notifier
}
