package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/jewelmatch/internal/config"
)

var (
	envName string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "jewelmatch",
	Short: "Find catalog jewelry that looks like a photo",
	Long: `jewelmatch captions a jewelry photo with a vision model, turns the caption
into a structured query and narrows a broad catalog search down to the
closest matches.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", config.GetEnv(), "config environment (local, dev, prod)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(serveCmd, matchCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}
