package models

import (
	"encoding/json"
	"log/slog"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
)

// ConvergenceType describes how independent story paths meet at a node.
type ConvergenceType string

const (
	ConvergenceMerge     ConvergenceType = "merge"
	ConvergenceClash     ConvergenceType = "clash"
	ConvergenceNegotiate ConvergenceType = "negotiate"
)

// ConvergenceResult is the outcome a matched rule assigns to the meeting parties.
type ConvergenceResult string

const (
	ResultAlly    ConvergenceResult = "ally"
	ResultEnemy   ConvergenceResult = "enemy"
	ResultNeutral ConvergenceResult = "neutral"
)

// ConvergenceNode is a story node flagged as a point where players' paths intersect.
type ConvergenceNode struct {
	ID         string
	CampaignID string
	Title      string
	Type       ConvergenceType
}

// ConditionType discriminates the rule-condition union.
type ConditionType string

const (
	ConditionFaction    ConditionType = "faction"
	ConditionFlag       ConditionType = "flag"
	ConditionEntryPoint ConditionType = "entry_point"
)

// RuleCondition is the tagged union of convergence rule conditions. Each
// variant carries exactly the fields its evaluation needs, so the resolver's
// type switch is exhaustive instead of digging through an untyped payload.
type RuleCondition interface {
	ConditionType() ConditionType
}

// FactionCondition matches when all participants share a faction
// (SameFaction true) or when at least two of them differ (SameFaction false).
type FactionCondition struct {
	SameFaction bool `json:"same_faction"`
}

func (FactionCondition) ConditionType() ConditionType { return ConditionFaction }

// FlagCondition matches when every participant carries the named story flag
// with the given value.
type FlagCondition struct {
	Flag  string `json:"flag"`
	Value string `json:"value"`
}

func (FlagCondition) ConditionType() ConditionType { return ConditionFlag }

// EntryPointCondition matches when the participants' entry points cover every
// required entry point.
type EntryPointCondition struct {
	Required []string `json:"required"`
}

func (EntryPointCondition) ConditionType() ConditionType { return ConditionEntryPoint }

var ErrUnknownConditionType = errors.NewSentinel("unknown rule condition type")

// DecodeCondition unmarshals a stored condition payload into its typed variant.
func DecodeCondition(conditionType ConditionType, payload []byte) (RuleCondition, error) {
	switch conditionType {
	case ConditionFaction:
		var c FactionCondition
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, errors.Wrap(err, "decode faction condition")
		}
		return c, nil
	case ConditionFlag:
		var c FlagCondition
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, errors.Wrap(err, "decode flag condition")
		}
		return c, nil
	case ConditionEntryPoint:
		var c EntryPointCondition
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, errors.Wrap(err, "decode entry point condition")
		}
		return c, nil
	default:
		return nil, errors.Wrap(ErrUnknownConditionType, "decode condition",
			slog.String("conditionType", string(conditionType)))
	}
}

// EncodeCondition marshals a typed condition back into its storage payload.
func EncodeCondition(condition RuleCondition) ([]byte, error) {
	payload, err := json.Marshal(condition)
	if err != nil {
		return nil, errors.Wrap(err, "encode condition")
	}
	return payload, nil
}

// ConvergenceRule is one candidate outcome at a convergence node. Rules are
// read-only at resolution time; authoring them is a separate concern.
type ConvergenceRule struct {
	ID           string
	NodeID       string
	Priority     int
	Condition    RuleCondition
	Result       ConvergenceResult
	Narrative    string
	TargetNodeID string
}

// Participant is one player's character arriving at a convergence node.
type Participant struct {
	CharacterID string
	EntryPoint  string
	FactionID   string
	Flags       map[string]string
}

// InteractionKind names the multi-party interactions the engine can resolve.
type InteractionKind string

const (
	InteractionDialogue   InteractionKind = "dialogue"
	InteractionTrade      InteractionKind = "trade"
	InteractionCombat     InteractionKind = "combat"
	InteractionPersuasion InteractionKind = "persuasion"
	InteractionAlliance   InteractionKind = "alliance"
	InteractionBetrayal   InteractionKind = "betrayal"
)

// OutcomeTone tags how a candidate outcome treats the acting character.
type OutcomeTone string

const (
	OutcomeGood    OutcomeTone = "good"
	OutcomeBad     OutcomeTone = "bad"
	OutcomeNeutral OutcomeTone = "neutral"
)

// InteractionPoint defines a possible scripted interaction with the stat
// minimums the acting character must meet for a favorable resolution.
type InteractionPoint struct {
	ID               string
	CampaignID       string
	Kind             InteractionKind
	Title            string
	StatRequirements map[string]int
}

// OutcomeEffects is the payload applied when an interaction outcome fires.
type OutcomeEffects struct {
	StatDeltas       map[string]int    `json:"stat_deltas,omitempty"`
	FlagDeltas       map[string]string `json:"flag_deltas,omitempty"`
	ReputationDeltas map[string]int    `json:"reputation_deltas,omitempty"`
}

// InteractionOutcome is one candidate result of an interaction point. The
// optional Condition narrows when the outcome applies; nil always holds.
type InteractionOutcome struct {
	ID        string
	PointID   string
	Tone      OutcomeTone
	Condition RuleCondition
	Effects   OutcomeEffects
	Narrative string
}

// ThresholdBand fires a narrative event while a relationship or reputation
// score sits inside [Min, Max]. Bands may overlap, so several can fire at once.
type ThresholdBand struct {
	ID         string
	CampaignID string
	Min        int
	Max        int
	Narrative  string
}

// Contains reports whether score falls inside the band.
func (b ThresholdBand) Contains(score int) bool {
	return score >= b.Min && score <= b.Max
}

// ActionGate identifies which availability gate denied an action.
type ActionGate string

const (
	GateRange ActionGate = "range"
	GateItem  ActionGate = "item"
	GateStat  ActionGate = "stat"
)

// ActionSpec configures the gates checked before an action is offered.
// RequireAnyZone disables the range gate entirely.
type ActionSpec struct {
	Kind            InteractionKind
	RequiredZone    Zone
	RequireAnyZone  bool
	RequiredItem    string
	RequiredStat    string
	RequiredStatMin int
}

// ActorState is the acting character's view the gates are checked against.
type ActorState struct {
	CharacterID string
	Stats       map[string]int
	Inventory   []string
	Flags       map[string]string
}

// HasItem reports whether the actor carries the named item.
func (a ActorState) HasItem(item string) bool {
	for _, held := range a.Inventory {
		if held == item {
			return true
		}
	}
	return false
}

// Stat returns the actor's value for the named stat, zero when untracked.
func (a ActorState) Stat(name string) int {
	return a.Stats[name]
}

// MeetsRequirements reports whether the actor meets every stat minimum.
func (a ActorState) MeetsRequirements(requirements map[string]int) bool {
	for stat, minimum := range requirements {
		if a.Stat(stat) < minimum {
			return false
		}
	}
	return true
}

// StandingUnlocks reports whether a standing's rank satisfies a perk requirement.
func StandingUnlocks(standing FactionStanding, perk FactionPerk) bool {
	return standing.Rank >= perk.RequiredRank
}
