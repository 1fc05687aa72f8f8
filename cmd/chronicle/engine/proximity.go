package engine

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/chronicle"
	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/models"
)

var PlayGroup = &cobra.Group{
	ID:    "play",
	Title: "Scene play",
}

func init() {
	Move.Flags().Bool("away", false, "step farther instead of closer")
	Zone.Flags().String("set", "", "override the zone (adjacent, close, mid, far)")
	Zone.Flags().String("scene", "", "scene label stored with the override")
}

var Move = &cobra.Command{
	Use:     "move [session] [actor] [target]",
	GroupID: "play",
	Short:   "Step the actor one zone toward (or away from) the target",
	Args:    cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runtime, err := Open(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = runtime.Close() }()

		direction := chronicle.DirectionCloser
		if away, _ := cmd.Flags().GetBool("away"); away {
			direction = chronicle.DirectionFarther
		}
		zone, err := runtime.Proximity.MoveToward(cmd.Context(), args[0], args[1], args[2], direction)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "move: %v\n", err)
			return
		}
		fmt.Printf("%s is now %s to %s\n", args[1], zone, args[2])
	},
}

var Zone = &cobra.Command{
	Use:     "zone [session] [actor] [target]",
	GroupID: "play",
	Short:   "Show or set the actor's zone to the target",
	Args:    cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		runtime, err := Open(cmd.Context())
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return
		}
		defer func() { _ = runtime.Close() }()

		if override, _ := cmd.Flags().GetString("set"); override != "" {
			scene, _ := cmd.Flags().GetString("scene")
			if err = runtime.Proximity.SetZone(cmd.Context(), args[0], args[1], args[2],
				models.ParseZone(override), scene); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "set zone: %v\n", err)
				return
			}
		}

		zone, err := runtime.Proximity.ZoneTo(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "read zone: %v\n", err)
			return
		}
		fmt.Printf("%s is %s to %s\n", args[1], zone, args[2])
	},
}
