// Package pkg wires the topology, fabric, emulation and measurement pieces
// into one runnable benchmark.
package pkg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the full tool configuration. Every field has a working default;
// a config file only needs the keys it wants to change.
type Config struct {
	Topology   TopologyConfig   `toml:"topology"`
	Link       LinkConfig       `toml:"link"`
	Controller ControllerConfig `toml:"controller"`
	Hosts      HostsConfig      `toml:"hosts"`
	Probe      ProbeConfig      `toml:"probe"`
	Log        LogConfig        `toml:"log"`
	Results    ResultsConfig    `toml:"results"`
}

type TopologyConfig struct {
	K int `toml:"k"` // port count per switch, even
}

type LinkConfig struct {
	RateMbit uint64  `toml:"rate_mbit"`
	DelayMs  uint32  `toml:"delay_ms"`
	LossPct  float32 `toml:"loss_pct"`
}

type ControllerConfig struct {
	Address string `toml:"address"`
	Port    int    `toml:"port"`
}

// Target formats the controller the way ovs-vsctl set-controller wants it.
func (c ControllerConfig) Target() string {
	return fmt.Sprintf("tcp:%s:%d", c.Address, c.Port)
}

type HostsConfig struct {
	Image string `toml:"image"` // container image backing hosts
}

type ProbeConfig struct {
	DurationSec       int    `toml:"duration_sec"`
	SettleSec         int    `toml:"settle_sec"`
	ConvergeSec       int    `toml:"converge_sec"`
	CollectTimeoutSec int    `toml:"collect_timeout_sec"`
	Port              int    `toml:"port"`
	Label             string `toml:"label"`
}

type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	Dir   string `toml:"dir"`
}

type ResultsConfig struct {
	Csv    string `toml:"csv"`    // per-run totals, appended
	Report string `toml:"report"` // full report, .yaml or .json, optional
}

// DefaultConfig is what a zero-flag run uses: a k=4 fat-tree of 15 Mbit/s,
// 5 ms links, probed for 10 seconds against a local controller.
func DefaultConfig() Config {
	return Config{
		Topology:   TopologyConfig{K: 4},
		Link:       LinkConfig{RateMbit: 15, DelayMs: 5},
		Controller: ControllerConfig{Address: "127.0.0.1", Port: 6653},
		Probe: ProbeConfig{
			DurationSec:       10,
			SettleSec:         2,
			ConvergeSec:       3,
			CollectTimeoutSec: 30,
			Port:              5001,
		},
		Log:     LogConfig{Level: "info", Dir: "./logs"},
		Results: ResultsConfig{Csv: "results.csv"},
	}
}

// LoadConfig reads a TOML config file over the defaults. An empty path
// returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config file not found: %s", path)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if cfg.Probe.DurationSec < 1 {
		return Config{}, fmt.Errorf("probe duration must be at least 1 second, got %d", cfg.Probe.DurationSec)
	}
	if cfg.Controller.Address == "" {
		return Config{}, fmt.Errorf("controller address must not be empty")
	}
	return cfg, nil
}

// SetupLogger routes logs to stdout and a rotating file under cfg.Dir.
func SetupLogger(cfg LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.Warnf("Invalid log level %q, using info", cfg.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		log.Warnf("Failed to create log directory %s, logging to stdout only: %v", cfg.Dir, err)
		return
	}
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "ftbench.log"),
		MaxSize:    100, // MB
		MaxBackups: 7,
		MaxAge:     30, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, fileLogger))
}
