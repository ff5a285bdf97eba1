package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gunplay/internal/render"
	"gunplay/internal/weapon"
)

var (
	patternOutput string
	patternWidth  int
	patternHeight int
)

// patternCmd represents the pattern command
var patternCmd = &cobra.Command{
	Use:   "pattern [weapon]",
	Short: "Plot a weapon's recoil pattern as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, ok := weapon.LookupSpec(args[0])
		if !ok {
			return fmt.Errorf("unknown weapon: %s", args[0])
		}

		path := patternOutput
		if path == "" {
			path = spec.ID + "_pattern.png"
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()

		opts := render.DefaultOptions()
		opts.Width, opts.Height = patternWidth, patternHeight
		if err := render.WritePatternPNG(f, spec, opts); err != nil {
			os.Remove(path)
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s pattern to %s\n", spec.Name, path)
		return nil
	},
}

func init() {
	def := render.DefaultOptions()
	patternCmd.Flags().StringVarP(&patternOutput, "output", "o", "", "output file (default <weapon>_pattern.png)")
	patternCmd.Flags().IntVar(&patternWidth, "width", def.Width, "image width in pixels")
	patternCmd.Flags().IntVar(&patternHeight, "height", def.Height, "image height in pixels")
	rootCmd.AddCommand(patternCmd)
}
