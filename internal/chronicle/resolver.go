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

const (
	tableConvergenceNodes    = "convergence_nodes"
	tableConvergenceRules    = "convergence_rules"
	tableInteractionPoints   = "interaction_points"
	tableInteractionOutcomes = "interaction_outcomes"
	tableThresholdBands      = "threshold_bands"
)

var ErrNodeNotFound = errors.NewSentinel("convergence node not found")

// ConvergenceResolution is the single outcome selected when independent story
// paths meet. The zero result is the defined fallback when no rule matches.
type ConvergenceResolution struct {
	Result       models.ConvergenceResult
	Narrative    string
	TargetNodeID string
	RuleID       string
}

// ResolveConvergence evaluates the node's rules in priority-descending order
// and returns the first whose condition holds for the participants. With no
// matching rule the resolution is neutral with no narrative and no redirect.
// Pure: it cannot fail, only fail to match.
func ResolveConvergence(rules []models.ConvergenceRule, participants []models.Participant) ConvergenceResolution {
	ordered := make([]models.ConvergenceRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	for _, rule := range ordered {
		if conditionHolds(rule.Condition, participants) {
			return ConvergenceResolution{
				Result:       rule.Result,
				Narrative:    rule.Narrative,
				TargetNodeID: rule.TargetNodeID,
				RuleID:       rule.ID,
			}
		}
	}
	return ConvergenceResolution{Result: models.ResultNeutral}
}

// conditionHolds evaluates one typed condition against the participants.
// The switch is exhaustive over the condition union; an unknown or nil
// condition never matches.
func conditionHolds(condition models.RuleCondition, participants []models.Participant) bool {
	if len(participants) == 0 {
		return false
	}
	switch c := condition.(type) {
	case models.FactionCondition:
		return sharedFaction(participants) == c.SameFaction
	case models.FlagCondition:
		for _, p := range participants {
			if p.Flags[c.Flag] != c.Value {
				return false
			}
		}
		return true
	case models.EntryPointCondition:
		present := map[string]bool{}
		for _, p := range participants {
			present[p.EntryPoint] = true
		}
		for _, required := range c.Required {
			if !present[required] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// sharedFaction reports whether every participant belongs to the same,
// non-empty faction.
func sharedFaction(participants []models.Participant) bool {
	faction := participants[0].FactionID
	if faction == "" {
		return false
	}
	for _, p := range participants[1:] {
		if p.FactionID != faction {
			return false
		}
	}
	return true
}

// ResolveInteraction selects one outcome for a scripted interaction. When the
// actor meets every stat minimum a good outcome is preferred, otherwise a bad
// one; either way the outcome's own condition must hold. With no applicable
// good or bad outcome the first applicable neutral outcome applies, and nil
// means the interaction resolves to nothing. Pure.
func ResolveInteraction(
	point models.InteractionPoint,
	actor models.ActorState,
	outcomes []models.InteractionOutcome,
) *models.InteractionOutcome {
	preferred := models.OutcomeBad
	if actor.MeetsRequirements(point.StatRequirements) {
		preferred = models.OutcomeGood
	}

	actorView := []models.Participant{{
		CharacterID: actor.CharacterID,
		Flags:       actor.Flags,
	}}
	applies := func(outcome models.InteractionOutcome) bool {
		return outcome.Condition == nil || conditionHolds(outcome.Condition, actorView)
	}

	for _, outcome := range outcomes {
		if outcome.Tone == preferred && applies(outcome) {
			o := outcome
			return &o
		}
	}
	for _, outcome := range outcomes {
		if outcome.Tone == models.OutcomeNeutral && applies(outcome) {
			o := outcome
			return &o
		}
	}
	return nil
}

// ThresholdEvents returns every band whose range contains the score. Several
// bands may fire simultaneously; this call site does not single-pick. Pure.
func ThresholdEvents(score int, bands []models.ThresholdBand) []models.ThresholdBand {
	var fired []models.ThresholdBand
	for _, band := range bands {
		if band.Contains(score) {
			fired = append(fired, band)
		}
	}
	return fired
}

// RuleResolver loads authored rule data from the store and applies the pure
// resolution functions to it. Rule authoring itself is a separate CRUD
// concern; rows are read-only here.
type RuleResolver struct {
	store  store.Store
	logger *slog.Logger
}

func NewRuleResolver(s store.Store, logger *slog.Logger) *RuleResolver {
	return &RuleResolver{
		store:  s,
		logger: logger.With("source", "RuleResolver"),
	}
}

// ResolveNode loads the convergence node's rules and resolves them for the
// participants.
func (r *RuleResolver) ResolveNode(
	ctx context.Context,
	nodeID string,
	participants []models.Participant,
) (ConvergenceResolution, error) {
	_, rules, err := r.LoadConvergence(ctx, nodeID)
	if err != nil {
		return ConvergenceResolution{Result: models.ResultNeutral}, err
	}
	return ResolveConvergence(rules, participants), nil
}

// LoadConvergence reads a convergence node and its rules, decoding each
// rule's condition payload into its typed variant. Rules whose payload fails
// to decode are skipped with a warning rather than failing the whole node.
func (r *RuleResolver) LoadConvergence(ctx context.Context, nodeID string) (*models.ConvergenceNode, []models.ConvergenceRule, error) {
	nodeRecords, err := r.store.Select(ctx, tableConvergenceNodes, store.Filter{"id": nodeID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "read convergence node")
	}
	if len(nodeRecords) == 0 {
		return nil, nil, errors.Wrap(ErrNodeNotFound, "find convergence node", slog.String("nodeID", nodeID))
	}
	node := models.ConvergenceNode{
		ID:         nodeRecords[0].String("id"),
		CampaignID: nodeRecords[0].String("campaign_id"),
		Title:      nodeRecords[0].String("title"),
		Type:       models.ConvergenceType(nodeRecords[0].String("type")),
	}

	ruleRecords, err := r.store.Select(ctx, tableConvergenceRules, store.Filter{"node_id": nodeID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "read convergence rules")
	}

	rules := make([]models.ConvergenceRule, 0, len(ruleRecords))
	for _, record := range ruleRecords {
		condition, decodeErr := models.DecodeCondition(
			models.ConditionType(record.String("condition_type")),
			[]byte(record.String("condition")),
		)
		if decodeErr != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "skipping rule with undecodable condition",
				slog.String("ruleID", record.String("id")),
				errors.SlogError(decodeErr))
			continue
		}
		rules = append(rules, models.ConvergenceRule{
			ID:           record.String("id"),
			NodeID:       record.String("node_id"),
			Priority:     record.Int("priority"),
			Condition:    condition,
			Result:       models.ConvergenceResult(record.String("result")),
			Narrative:    record.String("narrative"),
			TargetNodeID: record.String("target_node_id"),
		})
	}
	return &node, rules, nil
}

// ResolveInteractionPoint loads an interaction point and its outcomes and
// resolves them for the acting character.
func (r *RuleResolver) ResolveInteractionPoint(
	ctx context.Context,
	pointID string,
	actor models.ActorState,
) (*models.InteractionOutcome, error) {
	point, outcomes, err := r.LoadInteractionPoint(ctx, pointID)
	if err != nil {
		return nil, err
	}
	return ResolveInteraction(*point, actor, outcomes), nil
}

// LoadInteractionPoint reads an interaction point definition with its
// candidate outcomes.
func (r *RuleResolver) LoadInteractionPoint(ctx context.Context, pointID string) (*models.InteractionPoint, []models.InteractionOutcome, error) {
	pointRecords, err := r.store.Select(ctx, tableInteractionPoints, store.Filter{"id": pointID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "read interaction point")
	}
	if len(pointRecords) == 0 {
		return nil, nil, errors.Wrap(ErrNodeNotFound, "find interaction point", slog.String("pointID", pointID))
	}

	var requirements map[string]int
	if raw := pointRecords[0].String("requirements"); raw != "" {
		if err = json.Unmarshal([]byte(raw), &requirements); err != nil {
			return nil, nil, errors.Wrap(err, "decode stat requirements", slog.String("pointID", pointID))
		}
	}
	point := models.InteractionPoint{
		ID:               pointRecords[0].String("id"),
		CampaignID:       pointRecords[0].String("campaign_id"),
		Kind:             models.InteractionKind(pointRecords[0].String("kind")),
		Title:            pointRecords[0].String("title"),
		StatRequirements: requirements,
	}

	outcomeRecords, err := r.store.Select(ctx, tableInteractionOutcomes, store.Filter{"point_id": pointID})
	if err != nil {
		return nil, nil, errors.Wrap(err, "read interaction outcomes")
	}

	outcomes := make([]models.InteractionOutcome, 0, len(outcomeRecords))
	for _, record := range outcomeRecords {
		outcome := models.InteractionOutcome{
			ID:        record.String("id"),
			PointID:   record.String("point_id"),
			Tone:      models.OutcomeTone(record.String("tone")),
			Narrative: record.String("narrative"),
		}
		if raw := record.String("effects"); raw != "" {
			if err = json.Unmarshal([]byte(raw), &outcome.Effects); err != nil {
				return nil, nil, errors.Wrap(err, "decode outcome effects", slog.String("outcomeID", outcome.ID))
			}
		}
		if conditionType := record.String("condition_type"); conditionType != "" {
			condition, decodeErr := models.DecodeCondition(
				models.ConditionType(conditionType),
				[]byte(record.String("condition")),
			)
			if decodeErr != nil {
				r.logger.LogAttrs(ctx, slog.LevelWarn, "skipping outcome with undecodable condition",
					slog.String("outcomeID", outcome.ID),
					errors.SlogError(decodeErr))
				continue
			}
			outcome.Condition = condition
		}
		outcomes = append(outcomes, outcome)
	}
	return &point, outcomes, nil
}

// FireThresholdEvents loads the campaign's threshold bands and returns every
// one containing the score.
func (r *RuleResolver) FireThresholdEvents(ctx context.Context, campaignID string, score int) ([]models.ThresholdBand, error) {
	records, err := r.store.Select(ctx, tableThresholdBands, store.Filter{"campaign_id": campaignID})
	if err != nil {
		return nil, errors.Wrap(err, "read threshold bands")
	}

	bands := make([]models.ThresholdBand, 0, len(records))
	for _, record := range records {
		bands = append(bands, models.ThresholdBand{
			ID:         record.String("id"),
			CampaignID: record.String("campaign_id"),
			Min:        record.Int("min_score"),
			Max:        record.Int("max_score"),
			Narrative:  record.String("narrative"),
		})
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].ID < bands[j].ID })
	return ThresholdEvents(score, bands), nil
}
