package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pixelbridge/internal/clientmqtt"
	"pixelbridge/internal/config"
	"pixelbridge/internal/logger"
	"pixelbridge/internal/output"
	"pixelbridge/internal/pipeline"
	"pixelbridge/internal/printer"

	"github.com/spf13/cobra"
)

var runConfig string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bridge",
	Long: `Start the bridge with the given configuration. SIGHUP reloads the
configuration file; SIGINT and SIGTERM shut down.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(runConfig)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runConfig, "config", "c", defaultConfig, "Path to configuration file")
}

func run(configFile string) error {
	cfg, err := config.NewConfig(configFile)
	if err != nil {
		return printer.Error(
			"Invalid configuration",
			fmt.Sprintf("%s: %v", configFile, err),
			[]string{"Run 'pixelbridge check --config " + configFile + "' for details"},
		)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return printer.Error("Failed to create a logger", err.Error(),
			[]string{"Set [logger] log-level to trace, debug, info, warn or error and format to text or json"})
	}
	log.With(logger.Fields{"module": "logger"}).Debug("newLogger created ok")

	sink, closeSink, err := pipeline.OpenSink(log, cfg)
	if err != nil {
		return printer.Error("Failed to open output", err.Error(),
			[]string{"Check the [serial] device and its permissions", "Disable the serial output"})
	}
	defer func() {
		if err := closeSink(); err != nil {
			log.Error("failed to close output:", err.Error())
		}
	}()

	engine := pipeline.New(log, cfg, sink, time.Now())
	log.With(logger.Fields{"module": "pipeline"}).Debug("New created ok")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = engine.Start(ctx); err != nil {
		return printer.Error("Failed to start listeners", err.Error(),
			[]string{"Make sure no other process uses the port", "Check [input] interface and [raw] multicast_group"})
	}
	defer engine.Stop()

	var client *clientmqtt.ClientMQTT
	if cfg.MQTT.Enabled {
		client = clientmqtt.NewClient(log, ConvertConfigClientMQTT(cfg.MQTT))
		status := func() interface{} { return engine.Status() }
		if err = client.Start(ctx, engine.Events(), status); err != nil {
			log.Error("failed to start MQTT service:", err.Error())
			cancel()
		}
	}

	go reload(ctx, log, configFile, engine, sink)

	if err := engine.Run(ctx); err != nil {
		log.Error("pipeline stopped:", err.Error())
	}

	if client != nil {
		if err := client.Stop(); err != nil {
			log.Error("failed to stop MQTT service:", err.Error())
		}
	}

	log.Info("shutdown complete")
	return nil
}

// reload re-reads the configuration on SIGHUP. Output hardware is opened once
// at startup and kept.
func reload(ctx context.Context, log *logger.Log, configFile string, engine *pipeline.Engine, sink output.Sink) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.NewConfig(configFile)
			if err != nil {
				log.With(logger.Fields{"module": "config"}).Errorf("reload: %v", err)
				continue
			}
			if err := engine.Reconfigure(cfg, sink, time.Now()); err != nil {
				log.With(logger.Fields{"module": "config"}).Errorf("reload: %v", err)
				continue
			}
			log.With(logger.Fields{"module": "config"}).Info("configuration reloaded")
		}
	}
}

// ConvertConfigClientMQTT преобразует структуры.
func ConvertConfigClientMQTT(cfg config.MQTTConf) clientmqtt.MQTTConf {
	return clientmqtt.MQTTConf{
		ClientID:       cfg.ClientID,
		Schema:         "tcp",
		Host:           cfg.Host,
		Port:           cfg.Port,
		User:           cfg.User,
		Password:       cfg.Password,
		Qos:            cfg.Qos,
		Topic:          cfg.Topic,
		StatusInterval: cfg.StatusIntervalDuration(),
	}
}
