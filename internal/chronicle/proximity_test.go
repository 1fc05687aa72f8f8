package chronicle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/chronicle"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
)

func TestProximityModelZoneDefaultsToFar(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	model := chronicle.NewProximityModel(s, logger)

	zone, err := model.ZoneTo(context.Background(), "session-1", "aria", "brom")
	require.NoError(t, err)
	require.Equal(t, models.ZoneFar, zone)
}

// The first move on an untracked pair records the far baseline; after that,
// steps walk the ordered list and clamp at the ends.
func TestProximityModelMoveTowardClamps(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	model := chronicle.NewProximityModel(s, logger)
	ctx := context.Background()

	wantZones := []models.Zone{
		models.ZoneFar, models.ZoneMid, models.ZoneClose,
		models.ZoneAdjacent, models.ZoneAdjacent,
	}
	for _, want := range wantZones {
		zone, err := model.MoveToward(ctx, "session-1", "aria", "brom", chronicle.DirectionCloser)
		require.NoError(t, err)
		require.Equal(t, want, zone)
	}

	// And back out, clamped at far.
	wantZones = []models.Zone{models.ZoneClose, models.ZoneMid, models.ZoneFar, models.ZoneFar}
	for _, want := range wantZones {
		zone, err := model.MoveToward(ctx, "session-1", "aria", "brom", chronicle.DirectionFarther)
		require.NoError(t, err)
		require.Equal(t, want, zone)
	}
}

// A's zone to B and B's zone to A are independent rows: each party records
// their own perspective and the model does not force agreement.
func TestProximityModelAsymmetry(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	model := chronicle.NewProximityModel(s, logger)
	ctx := context.Background()

	require.NoError(t, model.SetZone(ctx, "session-1", "aria", "brom", models.ZoneAdjacent, "the archive"))
	require.NoError(t, model.SetZone(ctx, "session-1", "brom", "aria", models.ZoneFar, "the archive"))

	ariaToBrom, err := model.ZoneTo(ctx, "session-1", "aria", "brom")
	require.NoError(t, err)
	bromToAria, err := model.ZoneTo(ctx, "session-1", "brom", "aria")
	require.NoError(t, err)

	require.Equal(t, models.ZoneAdjacent, ariaToBrom)
	require.Equal(t, models.ZoneFar, bromToAria)
}

func TestProximityModelCheckActionAvailability(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	model := chronicle.NewProximityModel(s, logger)
	ctx := context.Background()

	require.NoError(t, model.SetZone(ctx, "session-1", "aria", "brom", models.ZoneMid, ""))

	actor := models.ActorState{
		CharacterID: "aria",
		Stats:       map[string]int{"persuasion": 4},
		Inventory:   []string{"lantern"},
	}

	tests := []struct {
		name            string
		spec            models.ActionSpec
		wantFailedGates []models.ActionGate
	}{
		{
			name: "range gate denies from mid when close is required",
			spec: models.ActionSpec{
				Kind:         models.InteractionCombat,
				RequiredZone: models.ZoneClose,
			},
			wantFailedGates: []models.ActionGate{models.GateRange},
		},
		{
			name: "any-zone action passes range",
			spec: models.ActionSpec{
				Kind:           models.InteractionDialogue,
				RequireAnyZone: true,
			},
			wantFailedGates: nil,
		},
		{
			name: "missing item and low stat reported together",
			spec: models.ActionSpec{
				Kind:            models.InteractionPersuasion,
				RequireAnyZone:  true,
				RequiredItem:    "signet ring",
				RequiredStat:    "persuasion",
				RequiredStatMin: 7,
			},
			wantFailedGates: []models.ActionGate{models.GateItem, models.GateStat},
		},
		{
			name: "all gates pass",
			spec: models.ActionSpec{
				Kind:            models.InteractionTrade,
				RequiredZone:    models.ZoneMid,
				RequiredItem:    "lantern",
				RequiredStat:    "persuasion",
				RequiredStatMin: 3,
			},
			wantFailedGates: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			availability, err := model.CheckActionAvailability(ctx, "session-1", actor, "brom", tt.spec)
			require.NoError(t, err)
			require.Equal(t, tt.wantFailedGates, availability.FailedGates)
			require.Equal(t, len(tt.wantFailedGates) == 0, availability.Available())
		})
	}
}

func TestProximityModelPreparedActionLifecycle(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	model := chronicle.NewProximityModel(s, logger)
	ctx := context.Background()

	action, err := model.PrepareAction(ctx, "session-1", "aria", "brom", "betrayal", 12)
	require.NoError(t, err)
	require.False(t, action.IsRevealed, "preparing reveals nothing")
	require.False(t, action.IsUsed)

	// Detection by an opponent reveals without using.
	require.NoError(t, model.RevealAction(ctx, action.ID))
	actions, err := model.PreparedActions(ctx, "session-1", "aria")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.True(t, actions[0].IsRevealed)
	require.False(t, actions[0].IsUsed)

	// Execution marks it used but keeps the row for the action log.
	require.NoError(t, model.UseAction(ctx, action.ID))
	actions, err = model.PreparedActions(ctx, "session-1", "aria")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.True(t, actions[0].IsUsed)

	// Used actions cannot be executed again or cancelled.
	require.ErrorIs(t, model.UseAction(ctx, action.ID), chronicle.ErrActionAlreadyUsed)
	require.ErrorIs(t, model.CancelAction(ctx, action.ID), chronicle.ErrActionAlreadyUsed)
}

func TestProximityModelCancelDeletesUnusedAction(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	model := chronicle.NewProximityModel(s, logger)
	ctx := context.Background()

	action, err := model.PrepareAction(ctx, "session-1", "aria", "brom", "ambush", 8)
	require.NoError(t, err)

	require.NoError(t, model.CancelAction(ctx, action.ID))

	actions, err := model.PreparedActions(ctx, "session-1", "aria")
	require.NoError(t, err)
	require.Empty(t, actions)

	require.ErrorIs(t, model.CancelAction(ctx, action.ID), chronicle.ErrActionNotFound)
}
