package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/giftrail/giftrail/config"
	"github.com/giftrail/giftrail/core"
	"github.com/giftrail/giftrail/db"
	"github.com/giftrail/giftrail/logger"
)

const dbFileName = "giftrail.db"

func main() {
	home := flag.String("home", defaultHome(), "directory holding config and data")
	initConfig := flag.Bool("init", false, "write a default config file and exit")
	flag.Parse()

	if *initConfig {
		cfg := config.Default()
		cfg.DataDir = filepath.Join(*home, "data")
		if err := config.Save(&cfg, *home); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote default config under %s\n", *home)
		return
	}

	cfg, err := config.Load(*home)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = filepath.Join(*home, "data")
	}
	database, err := db.OpenFileDB(dataDir, dbFileName, true)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	service, err := core.NewService(cfg, log, database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to assemble service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := service.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("service exited with error")
	}
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".giftrail"
	}
	return filepath.Join(home, ".giftrail")
}
