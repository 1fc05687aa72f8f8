package engine

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var FactionGroup = &cobra.Group{
	ID:    "faction",
	Title: "Faction standings",
}

func init() {
	Standing.Flags().Int("delta", 0, "reputation delta to apply before printing")
}

var Standing = &cobra.Command{
	Use:     "standing [session] [character] [faction]",
	GroupID: "faction",
	Short:   "Show or adjust a faction standing",
	Long: `Prints the character's reputation, rank, and unlocked perks with the
faction. With --delta the reputation is adjusted first.`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runtime, err := Open(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = runtime.Close() }()

		if cmd.Flags().Changed("delta") {
			delta, _ := cmd.Flags().GetInt("delta")
			result, updateErr := runtime.Standings.UpdateReputation(cmd.Context(), args[0], args[1], args[2], delta)
			if updateErr != nil {
				_, _ = fmt.Fprintf(os.Stderr, "update reputation: %v\n", updateErr)
				return
			}
			if result.RankChanged() {
				fmt.Printf("rank changed: %s -> %s\n", result.OldRank, result.Standing.Rank)
			}
		}

		standing, err := runtime.Standings.GetStanding(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "read standing: %v\n", err)
			return
		}
		if standing == nil {
			fmt.Println("no standing recorded")
			return
		}

		membership := "outsider"
		if standing.IsMember {
			membership = "member"
		}
		if standing.BetrayedAt != nil {
			membership = "betrayer"
		}
		fmt.Printf("%s @ %s: %d (%s, %s)\n",
			standing.CharacterID, standing.FactionID, standing.Reputation, standing.Rank, membership)

		perks, err := runtime.Standings.AvailablePerks(cmd.Context(), args[2], *standing)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "read perks: %v\n", err)
			return
		}
		for _, perk := range perks {
			fmt.Printf("  perk: %s (%s)\n", perk.Name, perk.RequiredRank)
		}
	},
}

var Join = &cobra.Command{
	Use:     "join [session] [character] [faction]",
	GroupID: "faction",
	Short:   "Join a faction",
	Args:    cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runtime, err := Open(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = runtime.Close() }()

		if err = runtime.Standings.Join(cmd.Context(), args[0], args[1], args[2]); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "join: %v\n", err)
			return
		}
		fmt.Printf("%s joined %s\n", args[1], args[2])
	},
}

var Betray = &cobra.Command{
	Use:     "betray [session] [character] [faction]",
	GroupID: "faction",
	Short:   "Betray a faction (irreversible)",
	Args:    cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runtime, err := Open(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = runtime.Close() }()

		if err = runtime.Standings.Betray(cmd.Context(), args[0], args[1], args[2]); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "betray: %v\n", err)
			return
		}
		fmt.Printf("%s betrayed %s\n", args[1], args[2])
	},
}
