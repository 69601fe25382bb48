// Package commands implements the pixelbridge CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultConfig = "configs/conf.toml"

var rootCmd = &cobra.Command{
	Use:   "pixelbridge",
	Short: "pixelbridge - E1.31 / Art-Net to PWM and serial pixel bridge",
	Long: `pixelbridge receives lighting-control data (E1.31, Art-Net, raw UDP and
MQTT), decides which source owns the channel buffer and drives it out to
PWM GPIO and a DMX512 or Renard serial line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.AddCommand(runCmd, checkCmd, gammaCmd)
}
