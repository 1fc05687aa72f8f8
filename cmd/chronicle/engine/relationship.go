package engine

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/chronicle"
)

var LedgerGroup = &cobra.Group{
	ID:    "ledger",
	Title: "Relationship ledger",
}

func init() {
	Adjust.Flags().String("reason", "", "symbolic reason applying its canonical delta instead of an explicit one")
	Adjust.Flags().Int("delta", 0, "explicit score delta")
}

var Adjust = &cobra.Command{
	Use:     "adjust [session] [character-a] [character-b]",
	GroupID: "ledger",
	Short:   "Adjust a pairwise relationship score",
	Long: `Adjusts the relationship score between two characters, either by an
explicit --delta or by the canonical delta of a symbolic --reason such as
helped_in_combat or betrayed.`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runtime, err := Open(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = runtime.Close() }()

		reason, _ := cmd.Flags().GetString("reason")
		delta, _ := cmd.Flags().GetInt("delta")

		var result *chronicle.AdjustResult
		if reason != "" && !cmd.Flags().Changed("delta") {
			result, err = runtime.Relationships.AdjustForReason(cmd.Context(), args[0], args[1], args[2], reason, "")
		} else {
			if reason == "" {
				reason = "manual"
			}
			result, err = runtime.Relationships.Adjust(cmd.Context(), args[0], args[1], args[2], delta, reason, "")
		}
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "adjust: %v\n", err)
			return
		}

		fmt.Printf("%s <-> %s: %d (%s)\n", result.CharA, result.CharB, result.NewScore, result.NewLevel)
		if result.Transitioned() {
			fmt.Printf("relationship level changed: %s -> %s\n", result.OldLevel, result.NewLevel)
		}
	},
}

var History = &cobra.Command{
	Use:     "history [session] [character-a] [character-b]",
	GroupID: "ledger",
	Short:   "Show the append-only change history for a pair",
	Args:    cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runtime, err := Open(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = runtime.Close() }()

		changes, err := runtime.Relationships.History(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "history: %v\n", err)
			return
		}
		for _, change := range changes {
			fmt.Printf("%s  %s  %+d -> %d (%s -> %s)\n",
				change.CreatedAt.Format("2006-01-02 15:04:05"),
				change.Reason,
				change.Delta,
				change.Score,
				change.OldLevel,
				change.NewLevel)
		}
		fmt.Printf("%d changes\n", len(changes))
	},
}
