// Command stfbench measures the throughput of the state-transition function
// against an on-disk store.
package main

import (
	"flag"
	"log"

	"go.melnet.tech/stf/store"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config file (YAML, TOML, or JSON)")
	flag.Parse()

	var files []string
	if *configPath != "" {
		files = append(files, *configPath)
	}
	cfg, err := loadConfig(files...)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	n, err := parseNetwork(cfg.Network)
	if err != nil {
		logger.Fatal("invalid network", zap.Error(err))
	}
	db, err := store.OpenBoltDB(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	cas, err := store.NewCAS(db)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}

	s := genesisConfig(n).Realize(store.NewLedger(cas)).Seal(nil).NextState()
	logger.Info("starting benchmark",
		zap.Stringer("network", n.ID),
		zap.String("db", cfg.DBPath),
		zap.Int("iterations", cfg.Iterations),
		zap.Int("batchSize", cfg.BatchSize))
	if err := newBench(cfg, s, cas.Flush, logger).run(); err != nil {
		logger.Error("benchmark failed", zap.Error(err))
		return
	}
	logger.Info("benchmark complete")
}
