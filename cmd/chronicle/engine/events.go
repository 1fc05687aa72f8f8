package engine

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/random"
)

func init() {
	Tick.Flags().Bool("dry-run", false, "list eligible events without rolling or recording triggers")
}

var Tick = &cobra.Command{
	Use:     "tick [campaign] [turn]",
	GroupID: "play",
	Short:   "Run one campaign turn's random event roll",
	Long: `Collects the campaign's eligible random events for the turn, rolls a
percentile die against each event's probability, and records the triggers.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		runtime, err := Open(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = runtime.Close() }()

		var turn int
		if _, err = fmt.Sscanf(args[1], "%d", &turn); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "invalid turn %q\n", args[1])
			return
		}

		eligible, err := runtime.Scheduler.EligibleEvents(cmd.Context(), args[0], turn)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "eligible events: %v\n", err)
			return
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		for _, event := range eligible {
			if dryRun {
				fmt.Printf("eligible: %s (%d%%)\n", event.ID, event.Probability)
				continue
			}
			roll, rollErr := random.Percent()
			if rollErr != nil {
				_, _ = fmt.Fprintf(os.Stderr, "roll: %v\n", rollErr)
				return
			}
			if roll > event.Probability {
				continue
			}
			if err = runtime.Scheduler.MarkTriggered(cmd.Context(), event.ID, turn); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "record trigger: %v\n", err)
				return
			}
			fmt.Printf("fired: %s", event.ID)
			if event.Effects.Message != "" {
				fmt.Printf(" - %s", event.Effects.Message)
			}
			if event.Effects.Stat != "" {
				fmt.Printf(" (%s %+d)", event.Effects.Stat, event.Effects.Delta)
			}
			fmt.Println()
		}
	},
}
