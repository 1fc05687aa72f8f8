package chronicle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/chronicle"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/store"
)

func TestResolveConvergence(t *testing.T) {
	t.Parallel()

	sameFactionParty := []models.Participant{
		{CharacterID: "aria", FactionID: "crimson-order", EntryPoint: "east-gate"},
		{CharacterID: "brom", FactionID: "crimson-order", EntryPoint: "west-gate"},
	}
	splitParty := []models.Participant{
		{CharacterID: "aria", FactionID: "crimson-order"},
		{CharacterID: "brom", FactionID: "ashen-pact"},
	}

	tests := []struct {
		name         string
		rules        []models.ConvergenceRule
		participants []models.Participant
		want         chronicle.ConvergenceResolution
	}{
		{
			name:         "no rules falls back to neutral",
			participants: sameFactionParty,
			want:         chronicle.ConvergenceResolution{Result: models.ResultNeutral},
		},
		{
			name: "higher priority wins when both match",
			rules: []models.ConvergenceRule{
				{ID: "rule-low", Priority: 5, Condition: models.FactionCondition{SameFaction: true}, Result: models.ResultNeutral},
				{ID: "rule-high", Priority: 10, Condition: models.FactionCondition{SameFaction: true}, Result: models.ResultAlly, Narrative: "old banners raised"},
			},
			participants: sameFactionParty,
			want: chronicle.ConvergenceResolution{
				Result:    models.ResultAlly,
				Narrative: "old banners raised",
				RuleID:    "rule-high",
			},
		},
		{
			name: "different factions match the split condition",
			rules: []models.ConvergenceRule{
				{ID: "rule-split", Priority: 1, Condition: models.FactionCondition{SameFaction: false}, Result: models.ResultEnemy},
			},
			participants: splitParty,
			want:         chronicle.ConvergenceResolution{Result: models.ResultEnemy, RuleID: "rule-split"},
		},
		{
			name: "flag condition requires the value on every participant",
			rules: []models.ConvergenceRule{
				{ID: "rule-flag", Priority: 1, Condition: models.FlagCondition{Flag: "oath_sworn", Value: "yes"}, Result: models.ResultAlly},
			},
			participants: []models.Participant{
				{CharacterID: "aria", Flags: map[string]string{"oath_sworn": "yes"}},
				{CharacterID: "brom", Flags: map[string]string{"oath_sworn": "no"}},
			},
			want: chronicle.ConvergenceResolution{Result: models.ResultNeutral},
		},
		{
			name: "entry point condition matches when all required gates are covered",
			rules: []models.ConvergenceRule{
				{
					ID:           "rule-gates",
					Priority:     1,
					Condition:    models.EntryPointCondition{Required: []string{"east-gate", "west-gate"}},
					Result:       models.ResultAlly,
					TargetNodeID: "node-courtyard",
				},
			},
			participants: sameFactionParty,
			want: chronicle.ConvergenceResolution{
				Result:       models.ResultAlly,
				TargetNodeID: "node-courtyard",
				RuleID:       "rule-gates",
			},
		},
		{
			name: "empty participants match nothing",
			rules: []models.ConvergenceRule{
				{ID: "rule-any", Priority: 1, Condition: models.FactionCondition{SameFaction: false}, Result: models.ResultEnemy},
			},
			want: chronicle.ConvergenceResolution{Result: models.ResultNeutral},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := chronicle.ResolveConvergence(tt.rules, tt.participants)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolveInteraction(t *testing.T) {
	t.Parallel()

	point := models.InteractionPoint{
		ID:               "point-parley",
		Kind:             models.InteractionPersuasion,
		StatRequirements: map[string]int{"persuasion": 5},
	}
	outcomes := []models.InteractionOutcome{
		{ID: "out-good", PointID: point.ID, Tone: models.OutcomeGood, Narrative: "they lower their blades"},
		{ID: "out-bad", PointID: point.ID, Tone: models.OutcomeBad, Narrative: "the parley collapses"},
		{ID: "out-neutral", PointID: point.ID, Tone: models.OutcomeNeutral, Narrative: "an uneasy silence"},
	}

	t.Run("meeting requirements selects the good outcome", func(t *testing.T) {
		t.Parallel()
		actor := models.ActorState{CharacterID: "aria", Stats: map[string]int{"persuasion": 6}}
		outcome := chronicle.ResolveInteraction(point, actor, outcomes)
		require.NotNil(t, outcome)
		require.Equal(t, "out-good", outcome.ID)
	})

	t.Run("failing requirements selects the bad outcome", func(t *testing.T) {
		t.Parallel()
		actor := models.ActorState{CharacterID: "aria", Stats: map[string]int{"persuasion": 4}}
		outcome := chronicle.ResolveInteraction(point, actor, outcomes)
		require.NotNil(t, outcome)
		require.Equal(t, "out-bad", outcome.ID)
	})

	t.Run("outcome condition can veto the preferred tone", func(t *testing.T) {
		t.Parallel()
		gated := []models.InteractionOutcome{
			{
				ID:        "out-good-gated",
				Tone:      models.OutcomeGood,
				Condition: models.FlagCondition{Flag: "knows_password", Value: "yes"},
			},
			{ID: "out-neutral", Tone: models.OutcomeNeutral},
		}
		actor := models.ActorState{CharacterID: "aria", Stats: map[string]int{"persuasion": 9}}
		outcome := chronicle.ResolveInteraction(point, actor, gated)
		require.NotNil(t, outcome)
		require.Equal(t, "out-neutral", outcome.ID)

		actor.Flags = map[string]string{"knows_password": "yes"}
		outcome = chronicle.ResolveInteraction(point, actor, gated)
		require.NotNil(t, outcome)
		require.Equal(t, "out-good-gated", outcome.ID)
	})

	t.Run("no applicable outcome resolves to nothing", func(t *testing.T) {
		t.Parallel()
		actor := models.ActorState{CharacterID: "aria"}
		outcome := chronicle.ResolveInteraction(point, actor, []models.InteractionOutcome{
			{ID: "out-good", Tone: models.OutcomeGood},
		})
		require.Nil(t, outcome)
	})
}

func TestThresholdEventsOverlappingBands(t *testing.T) {
	t.Parallel()

	bands := []models.ThresholdBand{
		{ID: "band-warm", Min: 25, Max: 100, Narrative: "they greet you warmly"},
		{ID: "band-bonded", Min: 50, Max: 74, Narrative: "a private confidence is shared"},
		{ID: "band-cold", Min: -100, Max: -25, Narrative: "doors close as you pass"},
	}

	fired := chronicle.ThresholdEvents(60, bands)
	require.Len(t, fired, 2)
	require.Equal(t, "band-warm", fired[0].ID)
	require.Equal(t, "band-bonded", fired[1].ID)

	require.Empty(t, chronicle.ThresholdEvents(0, bands))
}

func TestRuleResolverResolveNode(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	resolver := chronicle.NewRuleResolver(s, logger)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "convergence_nodes", store.Record{
		"id":          "node-bridge",
		"campaign_id": "campaign-1",
		"title":       "The Shattered Bridge",
		"type":        "clash",
	}))

	allyCondition, err := models.EncodeCondition(models.FactionCondition{SameFaction: true})
	require.NoError(t, err)
	require.NoError(t, s.Insert(ctx, "convergence_rules", store.Record{
		"id":             "rule-ally",
		"node_id":        "node-bridge",
		"priority":       10,
		"condition_type": "faction",
		"condition":      string(allyCondition),
		"result":         "ally",
		"narrative":      "comrades at the bridge",
		"target_node_id": "",
	}))
	// A corrupt payload is skipped, not fatal.
	require.NoError(t, s.Insert(ctx, "convergence_rules", store.Record{
		"id":             "rule-broken",
		"node_id":        "node-bridge",
		"priority":       99,
		"condition_type": "flag",
		"condition":      "not-json",
		"result":         "enemy",
		"narrative":      "",
		"target_node_id": "",
	}))

	resolution, err := resolver.ResolveNode(ctx, "node-bridge", []models.Participant{
		{CharacterID: "aria", FactionID: "crimson-order"},
		{CharacterID: "brom", FactionID: "crimson-order"},
	})
	require.NoError(t, err)
	require.Equal(t, models.ResultAlly, resolution.Result)
	require.Equal(t, "rule-ally", resolution.RuleID)

	_, err = resolver.ResolveNode(ctx, "node-missing", nil)
	require.ErrorIs(t, err, chronicle.ErrNodeNotFound)
}

func TestRuleResolverResolveInteractionPoint(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	resolver := chronicle.NewRuleResolver(s, logger)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "interaction_points", store.Record{
		"id":           "point-haggle",
		"campaign_id":  "campaign-1",
		"kind":         "trade",
		"title":        "Haggling at the Night Market",
		"requirements": `{"bargaining": 3}`,
	}))
	require.NoError(t, s.Insert(ctx, "interaction_outcomes", store.Record{
		"id":             "out-deal",
		"point_id":       "point-haggle",
		"tone":           "good",
		"condition_type": "",
		"condition":      "",
		"effects":        `{"stat_deltas":{"coin":-10},"reputation_deltas":{"merchant-guild":5}}`,
		"narrative":      "a fair price, grudgingly",
	}))

	outcome, err := resolver.ResolveInteractionPoint(ctx, "point-haggle", models.ActorState{
		CharacterID: "aria",
		Stats:       map[string]int{"bargaining": 4},
	})
	require.NoError(t, err)
	require.NotNil(t, outcome)
	require.Equal(t, "out-deal", outcome.ID)
	require.Equal(t, -10, outcome.Effects.StatDeltas["coin"])
	require.Equal(t, 5, outcome.Effects.ReputationDeltas["merchant-guild"])
}

func TestRuleResolverFireThresholdEvents(t *testing.T) {
	t.Parallel()

	s, logger := newTestStore(t, nil)
	resolver := chronicle.NewRuleResolver(s, logger)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, "threshold_bands", store.Record{
		"id":          "band-trusted",
		"campaign_id": "campaign-1",
		"min_score":   50,
		"max_score":   100,
		"narrative":   "the quartermaster opens the back room",
	}))
	require.NoError(t, s.Insert(ctx, "threshold_bands", store.Record{
		"id":          "band-other-campaign",
		"campaign_id": "campaign-2",
		"min_score":   50,
		"max_score":   100,
		"narrative":   "",
	}))

	fired, err := resolver.FireThresholdEvents(ctx, "campaign-1", 65)
	require.NoError(t, err)
	require.Len(t, fired, 1)
	require.Equal(t, "band-trusted", fired[0].ID)

	fired, err = resolver.FireThresholdEvents(ctx, "campaign-1", 10)
	require.NoError(t, err)
	require.Empty(t, fired)
}
