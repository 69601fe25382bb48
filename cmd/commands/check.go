package commands

import (
	"fmt"
	"strings"

	"pixelbridge/internal/config"
	"pixelbridge/internal/e131"
	"pixelbridge/internal/effects"
	"pixelbridge/internal/ingest"
	"pixelbridge/internal/output"
	"pixelbridge/internal/pipeline"
	"pixelbridge/internal/printer"

	"github.com/spf13/cobra"
)

var checkConfig string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a configuration file and show what it subscribes to",
	RunE: func(cmd *cobra.Command, args []string) error {
		return check(checkConfig)
	},
}

func init() {
	checkCmd.Flags().StringVarP(&checkConfig, "config", "c", defaultConfig, "Path to configuration file")
}

func check(path string) error {
	cfg, err := config.NewConfig(path)
	if err != nil {
		return printer.Error(
			"Invalid configuration",
			fmt.Sprintf("%s: %v", path, err),
			[]string{"Fix the file and run 'pixelbridge check' again"},
		)
	}

	sub := ingest.Subscription{
		Universe:      cfg.Input.Universe,
		ChannelStart:  cfg.Input.ChannelStart,
		ChannelCount:  cfg.Input.ChannelCount,
		UniverseLimit: cfg.Input.UniverseLimit,
	}

	printer.Section("Input")
	printer.Field("protocol", "%s", cfg.Input.Protocol)
	printer.Field("subscription", "%s", sub)
	if cfg.Input.Protocol == config.ProtocolE131 && cfg.Input.Multicast {
		var groups []string
		for _, u := range sub.Universes() {
			groups = append(groups, e131.MulticastAddr(u).String())
		}
		printer.Field("multicast", "%s", strings.Join(groups, ", "))
	}
	if cfg.Raw.Enabled {
		printer.Field("raw", "udp port %d %s", cfg.Raw.Port, cfg.Raw.MulticastGroup)
	}
	if cfg.MQTT.Enabled {
		printer.Field("mqtt", "%s:%s topic %s (client %s)", cfg.MQTT.Host, cfg.MQTT.Port, cfg.MQTT.Topic, cfg.MQTT.ClientID)
	}

	printer.Section("Effects")
	if cfg.Effects.IdleEnabled {
		printer.Field("idle", "%s after %s", cfg.Effects.Name, cfg.Effects.IdleTimeoutDuration())
	} else {
		printer.Field("idle", "disabled")
	}
	if !knownEffect(cfg.Effects.Name) {
		printer.Warning("unknown idle effect %q, known: %s\n", cfg.Effects.Name, strings.Join(effects.NewEngine().Names(), ", "))
	}

	printer.Section("Output")
	printer.Field("tick", "%s", cfg.Output.TickDuration())
	if cfg.Serial.Enabled {
		printer.Field("serial", "%s %s at %d baud", cfg.Serial.Type, cfg.Serial.Device, cfg.Serial.Baud)
	}
	if cfg.PWM.Enabled {
		mask := pipeline.GPIOMask(cfg)
		for _, p := range pipeline.Policies(cfg) {
			key := fmt.Sprintf("gpio%d", p.Pin)
			switch {
			case !p.Enabled:
				printer.Field(key, "disabled")
			case mask&(1<<uint(p.Pin)) == 0:
				printer.Warning("gpio%d is not usable in this output mode\n", p.Pin)
			default:
				printer.Field(key, "%s", describePolicy(p.Channel, p.Invert, p.Digital))
			}
		}
	}

	printer.Success("%s is valid\n", path)
	return nil
}

func knownEffect(name string) bool {
	for _, n := range effects.NewEngine().Names() {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func describePolicy(channel uint16, invert, digital bool) string {
	s := "unassigned"
	if channel != output.Unassigned {
		s = fmt.Sprintf("channel %d", channel)
	}
	if digital {
		s += ", digital"
	}
	if invert {
		s += ", inverted"
	}
	return s
}
