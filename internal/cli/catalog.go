package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gunplay/internal/weapon"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the weapon catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		fmt.Fprintf(out, "%-8s %-8s %-10s %-10s %-6s %-8s %-10s %-8s\n",
			"ID", "Name", "Class", "Mode", "Mag", "Reserve", "RPM", "Pattern")
		fmt.Fprintln(out, "------------------------------------------------------------------------")

		for _, spec := range weapon.AllSpecs() {
			rpm := 0.0
			if spec.FireInterval > 0 {
				rpm = 60 / spec.FireInterval
			}
			pattern := "-"
			if spec.HasPattern() {
				pattern = "yes"
			}
			fmt.Fprintf(out, "%-8s %-8s %-10s %-10s %-6d %-8d %-10.0f %-8s\n",
				spec.ID,
				spec.Name,
				spec.Classification,
				spec.Mode,
				spec.MagazineSize,
				spec.ReserveAmmo,
				rpm,
				pattern,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
