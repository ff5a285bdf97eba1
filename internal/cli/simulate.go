package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gunplay/internal/game"
)

var (
	simulateShots   int
	simulateSeed    int64
	simulateFPS     int
	simulateJSON    bool
	simulateVerbose bool
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate [weapon]",
	Short: "Simulate a spray against the target range",
	Long:  `Draws the weapon, fires a scripted burst at the default target range and reports hits and recovery.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zerolog.Nop()
		if simulateVerbose {
			logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		}

		res, err := game.Spray(game.SprayConfig{
			Weapon: args[0],
			Shots:  simulateShots,
			Seed:   simulateSeed,
			FPS:    simulateFPS,
		}, logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if simulateJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		fmt.Fprintf(out, "Weapon:          %s\n", res.Weapon)
		fmt.Fprintf(out, "Shots:           %d (%d frames)\n", res.Shots, res.SprayFrames)
		fmt.Fprintf(out, "Accuracy:        %.2f%%\n", res.Accuracy()*100)
		fmt.Fprintf(out, "Peak pitch:      %.4f rad\n", res.PeakPitch)
		fmt.Fprintf(out, "Release camera:  pitch %.4f yaw %.4f\n", res.ReleaseCamera.Pitch, res.ReleaseCamera.Yaw)
		fmt.Fprintf(out, "Final camera:    pitch %.4f yaw %.4f\n", res.FinalCamera.Pitch, res.FinalCamera.Yaw)
		if res.Recovered {
			fmt.Fprintf(out, "Recovered after: %d frames\n", res.RecoveryFrames)
		} else {
			fmt.Fprintf(out, "Recovered after: not within %d frames\n", res.RecoveryFrames)
		}

		fmt.Fprintln(out, "\nHits per target:")
		fmt.Fprintln(out, "--------------------")
		targets := make([]string, 0, len(res.Hits))
		for id := range res.Hits {
			targets = append(targets, id)
		}
		sort.Strings(targets)
		for _, id := range targets {
			fmt.Fprintf(out, "%-12s %d\n", id, res.Hits[id])
		}
		fmt.Fprintf(out, "%-12s %d\n", "miss", res.Misses)
		return nil
	},
}

func init() {
	simulateCmd.Flags().IntVarP(&simulateShots, "shots", "n", 0, "rounds to fire (0 empties the magazine)")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 1, "random seed for the scatter")
	simulateCmd.Flags().IntVar(&simulateFPS, "fps", 60, "simulation frame rate")
	simulateCmd.Flags().BoolVar(&simulateJSON, "json", false, "print the result as JSON")
	simulateCmd.Flags().BoolVarP(&simulateVerbose, "verbose", "v", false, "log frame events to stderr")
	rootCmd.AddCommand(simulateCmd)
}
