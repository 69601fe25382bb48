package commands

import (
	"fmt"

	"pixelbridge/internal/gamma"
	"pixelbridge/internal/printer"

	"github.com/spf13/cobra"
)

var (
	gammaValue      float64
	gammaBrightness float64
)

var gammaCmd = &cobra.Command{
	Use:   "gamma",
	Short: "Print the gamma table and the resulting PWM levels",
	RunE: func(cmd *cobra.Command, args []string) error {
		if gammaValue <= 0 || gammaBrightness < 0 || gammaBrightness > 1 {
			return printer.Error(
				"Invalid gamma parameters",
				fmt.Sprintf("gamma %.2f, brightness %.2f", gammaValue, gammaBrightness),
				[]string{"Use a positive gamma and a brightness between 0 and 1"},
			)
		}
		printGamma(gamma.New(gammaValue, gammaBrightness))
		return nil
	},
}

func init() {
	gammaCmd.Flags().Float64VarP(&gammaValue, "gamma", "g", 2.2, "Gamma exponent")
	gammaCmd.Flags().Float64VarP(&gammaBrightness, "brightness", "b", 1.0, "Brightness 0..1")
}

// printGamma prints raw -> 16 bit entry / 10 bit level, eight per line.
func printGamma(t *gamma.Table) {
	g, b := t.Params()
	printer.Section(fmt.Sprintf("gamma %.2f, brightness %.2f", g, b))
	entries := t.Entries()
	for i, v := range entries {
		printer.Info("%3d:%5d/%4d", i, v, v>>6)
		if i%8 == 7 {
			printer.Info("\n")
		} else {
			printer.Info("  ")
		}
	}
}
