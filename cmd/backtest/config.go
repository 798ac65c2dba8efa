package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is every knob spec.md §6 lists as permissible: symbol, data
// path, starting cash, fee coefficients, short/long windows, and
// idle-shutdown seconds, plus the ambient logging/chart/monitor paths
// SPEC_FULL.md adds. Populated by viper from (ascending priority)
// built-in defaults, an optional YAML file, BACKTEST_-prefixed
// environment variables, and flag.Parse'd CLI flags merged in last.
type Config struct {
	Symbol   string
	DataPath string

	StartingCash float64
	FeeRate      float64

	ShortWindow  int
	LongWindow   int
	PriceFactor  float64
	VolumeFactor float64

	IdleShutdownSeconds int

	LogPath      string
	ChartPath    string
	MonitorAddr  string

	StrategyWeights []float64
}

func (c Config) IdleShutdown() time.Duration {
	return time.Duration(c.IdleShutdownSeconds) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "X")
	v.SetDefault("data_path", "data/bars.csv")
	v.SetDefault("starting_cash", 1000.0)
	v.SetDefault("fee_rate", 0.001)
	v.SetDefault("short_window", 5)
	v.SetDefault("long_window", 20)
	v.SetDefault("price_factor", 1.0)
	v.SetDefault("volume_factor", 1.0)
	v.SetDefault("idle_shutdown_seconds", 3)
	v.SetDefault("log_path", "Trading.log")
	v.SetDefault("chart_path", "equity.png")
	v.SetDefault("monitor_addr", "127.0.0.1:8090")
	v.SetDefault("strategy_weights", []float64{1.0})
}

// loadConfig builds the Config struct following the priority order
// documented on Config: viper defaults, an optional --config YAML file,
// BACKTEST_ environment variables, then CLI flags parsed with the
// standard library's flag package (the teacher's own idiom in
// cmd/server/main.go), merged in last via viper.Set.
func loadConfig(args []string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BACKTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	configFile := fs.String("config", "", "optional YAML config file")
	symbol := fs.String("symbol", "", "traded symbol")
	dataPath := fs.String("data", "", "path to the historical bar CSV")
	startingCash := fs.Float64("cash", 0, "starting cash")
	feeRate := fs.Float64("fee-rate", -1, "fee rate, as a fraction of trade notional")
	shortWindow := fs.Int("short-window", 0, "MA-crossover short window")
	longWindow := fs.Int("long-window", 0, "MA-crossover long window")
	idleShutdown := fs.Int("idle-shutdown-seconds", 0, "Event Manager idle-shutdown threshold")
	logPath := fs.String("log-path", "", "debug-level file log sink path")
	chartPath := fs.String("chart-path", "", "raster chart output path")
	monitorAddr := fs.String("monitor-addr", "", "operator monitor HTTP address; an empty flag keeps the configured value (an empty monitor_addr disables the monitor)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	if *symbol != "" {
		v.Set("symbol", *symbol)
	}
	if *dataPath != "" {
		v.Set("data_path", *dataPath)
	}
	if *startingCash != 0 {
		v.Set("starting_cash", *startingCash)
	}
	if *feeRate >= 0 {
		v.Set("fee_rate", *feeRate)
	}
	if *shortWindow != 0 {
		v.Set("short_window", *shortWindow)
	}
	if *longWindow != 0 {
		v.Set("long_window", *longWindow)
	}
	if *idleShutdown != 0 {
		v.Set("idle_shutdown_seconds", *idleShutdown)
	}
	if *logPath != "" {
		v.Set("log_path", *logPath)
	}
	if *chartPath != "" {
		v.Set("chart_path", *chartPath)
	}
	if *monitorAddr != "" {
		v.Set("monitor_addr", *monitorAddr)
	}

	cfg := Config{
		Symbol:              v.GetString("symbol"),
		DataPath:            v.GetString("data_path"),
		StartingCash:        v.GetFloat64("starting_cash"),
		FeeRate:             v.GetFloat64("fee_rate"),
		ShortWindow:         v.GetInt("short_window"),
		LongWindow:          v.GetInt("long_window"),
		PriceFactor:         v.GetFloat64("price_factor"),
		VolumeFactor:        v.GetFloat64("volume_factor"),
		IdleShutdownSeconds: v.GetInt("idle_shutdown_seconds"),
		LogPath:             v.GetString("log_path"),
		ChartPath:           v.GetString("chart_path"),
		MonitorAddr:         v.GetString("monitor_addr"),
		StrategyWeights:     v.GetFloat64Slice("strategy_weights"),
	}

	if cfg.ShortWindow >= cfg.LongWindow {
		return Config{}, fmt.Errorf("config: short_window (%d) must be < long_window (%d)", cfg.ShortWindow, cfg.LongWindow)
	}

	return cfg, nil
}
