package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zabeloliver/pihole-adapter/host"
	"github.com/zabeloliver/pihole-adapter/host/homie"
	"github.com/zabeloliver/pihole-adapter/plugin"
)

var (
	sugar      *zap.SugaredLogger
	level      = zap.NewAtomicLevel()
	configPath string
	cfg        config
)

func NewLogger(logFile string) (*zap.Logger, error) {
	c := zap.NewProductionConfig()
	c.Level = level
	c.OutputPaths = []string{"stdout"}
	if logFile != "" {
		c.OutputPaths = append(c.OutputPaths, logFile)
	}
	return c.Build()
}

func initLogger(logFile string) {
	logger, err := NewLogger(logFile)
	if err != nil {
		logger = zap.NewExample()
		logger.Error("Cannot open log output, falling back", zap.Error(err))
	}
	sugar = logger.Sugar()
}

func initCliFlags() {
	flag.StringVar(&configPath, "configFile", "config.yaml", "Path to the config.yaml File.")
	flag.Parse()
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		sugar.Debug("No .env file found, using environment variables")
	}
	var err error
	cfg, err = loadConfig(viper.New(), configPath, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	if cfg.Log.File != "" {
		initLogger(cfg.Log.File)
	}
	sugar.Infof("Configuration from %v (token set: %t)", configPath, cfg.Pihole.Token != "")
}

func main() {
	initLogger("")
	initCliFlags()
	initConfig()
	defer sugar.Sync() // flushes buffer, if any

	sugar.Info("Starting Pi-hole adapter")

	sugar.Info("Creating Metrics-Registry")
	// Create a non-global registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewBuildInfoCollector())
	reg.MustRegister(collectors.NewGoCollector())

	registry := host.NewMemoryRegistry()
	registry.AddObserver(NewMetrics(reg))

	if cfg.InfluxDB.Host != "" {
		sugar.Infof("Writing sensor updates to InfluxDB at %s", cfg.InfluxDB.Host)
		influxClient := influxdb2.NewClient(cfg.InfluxDB.Host, cfg.InfluxDB.Token)
		defer influxClient.Close()
		// Use blocking write client for writes to desired bucket
		writeApi := influxClient.WriteAPIBlocking(cfg.InfluxDB.Org, cfg.InfluxDB.Bucket)
		influx := newInfluxWriter(writeApi, cfg.InfluxDB.Timeout, influxQueueSize, sugar)
		defer influx.Close()
		registry.AddObserver(influx)
	}

	runtime := host.NewRuntime(cfg.Pihole.Heartbeat, cfg.Pihole.Timeout, sugar)

	if cfg.Mqtt.Broker != "" {
		client := homie.NewClient(cfg.Mqtt.Broker, cfg.Mqtt.TopicBase, cfg.Mqtt.Device)
		mirror := homie.NewMirror(client, cfg.Mqtt.TopicBase, cfg.Mqtt.Device, sugar)
		if err := mirror.Start(runtime.Command); err != nil {
			sugar.Fatal(err)
		}
		defer mirror.Stop()
		registry.AddObserver(mirror)
	}

	adapter := plugin.New(cfg.pluginParameters(), registry, runtime, sugar, &level)

	mux := http.NewServeMux()
	// Expose metrics and custom registry via an HTTP server
	// using the HandleFor function. "/metrics" is the usual endpoint for that.
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.Handle("/command", commandHandler(runtime, sugar))
	server := &http.Server{
		Addr:              ":" + cfg.Metrics.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		sugar.Infof("Metrics served at: %v", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runtime.Run(ctx, adapter); err != nil {
		sugar.Errorf("Adapter failed to start: %v", err)
	}

	sugar.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Error(err)
	}
}
