package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jinzhu/configor"
	"go.melnet.tech/stf/consensus"
	"go.melnet.tech/stf/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config is the benchmark configuration. Values are read from the config
// file, then overridden by STFBENCH_* environment variables.
type Config struct {
	Network string `default:"custom02"`
	DBPath  string `default:"stfbench.db"`

	Log struct {
		File       string `default:"stfbench.log"`
		Level      string `default:"info"`
		MaxSizeMB  int    `default:"100"`
		MaxBackups int    `default:"3"`
		Compress   bool   `default:"true"`
	}

	Iterations int `default:"100000"`
	BatchSize  int `default:"1"`
	// QueueSize is the number of unspent coins kept before transactions
	// start spending them.
	QueueSize int `default:"5000"`
	// SealInterval and FlushInterval are in iterations.
	SealInterval  int `default:"10000"`
	FlushInterval int `default:"1"`
	Workers       int `default:"0"`
}

func loadConfig(files ...string) (Config, error) {
	var cfg Config
	err := configor.New(&configor.Config{ENVPrefix: "STFBENCH"}).Load(&cfg, files...)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.BatchSize <= 0 || cfg.SealInterval <= 0 || cfg.FlushInterval <= 0 {
		return Config{}, fmt.Errorf("batch size and intervals must be positive")
	}
	return cfg, nil
}

func parseNetwork(s string) (*consensus.Network, error) {
	switch s = strings.ToLower(s); s {
	case "mainnet":
		return nil, fmt.Errorf("faucet transactions are disabled on mainnet")
	case "testnet":
		return consensus.Testnet(), nil
	}
	for id := types.NetIDCustom02; id <= types.NetIDCustom08; id++ {
		if strings.EqualFold(id.String(), s) {
			return consensus.Custom(id), nil
		}
	}
	return nil, fmt.Errorf("unknown network %q", s)
}

// newLogger returns a logger writing JSON to a rotating log file and
// human-readable output to stderr.
func newLogger(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	file := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), file, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.Lock(os.Stderr), level),
	)
	return zap.New(core), nil
}
