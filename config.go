package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/zabeloliver/pihole-adapter/plugin"
)

type config struct {
	Debug  bool `mapstructure:"debug"`
	Pihole struct {
		Address        string        `mapstructure:"address"`
		Port           string        `mapstructure:"port"`
		Token          string        `mapstructure:"token"`
		RecentBlocked  bool          `mapstructure:"recentblocked"`
		Heartbeat      time.Duration `mapstructure:"heartbeat"`
		PollHeartbeats int           `mapstructure:"pollheartbeats"`
		Timeout        time.Duration `mapstructure:"timeout"`
	} `mapstructure:"pihole"`
	Metrics struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"metrics"`
	Mqtt struct {
		Broker    string `mapstructure:"broker"`
		TopicBase string `mapstructure:"topicbase"`
		Device    string `mapstructure:"device"`
	} `mapstructure:"mqtt"`
	InfluxDB struct {
		Host    string        `mapstructure:"host"`
		Token   string        `mapstructure:"token"`
		Org     string        `mapstructure:"org"`
		Bucket  string        `mapstructure:"bucket"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"influxdb"`
	Log struct {
		File string `mapstructure:"file"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("pihole.address", "pi.hole")
	v.SetDefault("pihole.port", "80")
	v.SetDefault("pihole.token", "")
	v.SetDefault("pihole.recentblocked", true)
	v.SetDefault("pihole.heartbeat", "10s")
	v.SetDefault("pihole.pollheartbeats", plugin.DefaultPollHeartbeats)
	v.SetDefault("pihole.timeout", "5s")
	v.SetDefault("metrics.port", 9123)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topicbase", "homie")
	v.SetDefault("mqtt.device", "pihole")
	v.SetDefault("influxdb.host", "")
	v.SetDefault("influxdb.token", "")
	v.SetDefault("influxdb.org", "")
	v.SetDefault("influxdb.bucket", "pihole")
	v.SetDefault("influxdb.timeout", "10s")
	v.SetDefault("log.file", "")
}

// loadConfig reads defaults, the YAML file at path (if any) and ADAPTER_*
// environment variables, e.g. ADAPTER_PIHOLE_TOKEN.
func loadConfig(v *viper.Viper, path string, logger *zap.SugaredLogger) (config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("adapter")
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Info("No configuration file found. Using Default config")
	} else if err := v.ReadConfig(bytes.NewBuffer(data)); err != nil {
		return config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var c config
	if err := v.Unmarshal(&c); err != nil {
		return config{}, fmt.Errorf("decode config: %w", err)
	}
	if c.Pihole.Heartbeat <= 0 {
		return config{}, fmt.Errorf("pihole.heartbeat must be positive, got %v", c.Pihole.Heartbeat)
	}
	return c, nil
}

func (c config) pluginParameters() plugin.Parameters {
	return plugin.Parameters{
		Address:        c.Pihole.Address,
		Port:           c.Pihole.Port,
		Token:          c.Pihole.Token,
		Debug:          c.Debug,
		RecentBlocked:  c.Pihole.RecentBlocked,
		PollHeartbeats: c.Pihole.PollHeartbeats,
	}
}
