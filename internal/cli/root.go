// Package cli implements the gunplay command line: catalog listing, pattern
// plots and offline spray simulation.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "gunplay",
	Short:        "Weapon ballistics toolkit",
	Long:         `A CLI for inspecting the weapon catalog and plotting or simulating recoil.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
