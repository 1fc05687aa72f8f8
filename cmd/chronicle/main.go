package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/cmd/chronicle/engine"
)

func init() {
	// Missing .env is fine, the defaults and the real environment apply.
	_ = godotenv.Load()

	rootCmd.AddGroup(engine.LedgerGroup)
	rootCmd.AddCommand(engine.Adjust)
	rootCmd.AddCommand(engine.History)
	rootCmd.AddGroup(engine.FactionGroup)
	rootCmd.AddCommand(engine.Standing)
	rootCmd.AddCommand(engine.Join)
	rootCmd.AddCommand(engine.Betray)
	rootCmd.AddGroup(engine.PlayGroup)
	rootCmd.AddCommand(engine.Move)
	rootCmd.AddCommand(engine.Zone)
	rootCmd.AddCommand(engine.Tick)
	rootCmd.AddCommand(engine.Watch)
}

var rootCmd = &cobra.Command{
	Use:  "chronicle",
	Long: `Command line tools for driving a Lore Chronicles campaign database`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
