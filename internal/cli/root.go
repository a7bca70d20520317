package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "revisit",
	Short: "Resurface forgotten bookmarks as review cards",
	Long:  "Revisit picks a small batch of your bookmarks each session and deals them out as cards, spacing repeats out over time so the whole collection gets seen.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(flipCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(skipCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(postponeCmd)
	rootCmd.AddCommand(rescoreCmd)
	rootCmd.AddCommand(statsCmd)
}
