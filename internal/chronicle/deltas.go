package chronicle

// Canonical interaction-point deltas for common narrative actions. Call sites
// reference the symbolic reason instead of hard-coding numbers so the same
// action always moves a relationship by the same amount.
var canonicalDeltas = map[string]int{
	"helped_in_combat":   15,
	"saved_life":         30,
	"gave_gift":          10,
	"shared_secret":      10,
	"completed_quest":    20,
	"kept_promise":       10,
	"small_kindness":     5,
	"insulted":           -10,
	"stole_from":         -20,
	"broke_promise":      -20,
	"attacked":           -30,
	"betrayed":           -50,
	"abandoned_in_peril": -40,
}

// DeltaForReason looks up the canonical delta for a symbolic reason.
func DeltaForReason(reason string) (int, bool) {
	delta, ok := canonicalDeltas[reason]
	return delta, ok
}
