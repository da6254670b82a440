// Command mock-backend serves an in-memory console backend for local
// development and demos.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/songzhibin97/adminconsole/internal/devserver"
	stdoutlog "github.com/songzhibin97/adminconsole/internal/log/driver/stdout"
	"github.com/songzhibin97/adminconsole/pkg/log"
)

var (
	configFile    = flag.String("config", "", "Optional YAML configuration file")
	address       = flag.String("address", "", "Listen address (overrides the configuration)")
	adminEmail    = flag.String("admin-email", "admin@example.com", "Seeded administrator email")
	adminPassword = flag.String("admin-password", "admin123", "Seeded administrator password")
	seed          = flag.Bool("seed", true, "Seed a sample catalogue")
	logLevel      = flag.String("log-level", "info", "Log level")
)

func main() {
	flag.Parse()

	logConfig := stdoutlog.DefaultConfig()
	logConfig.Level = log.ParseLevel(*logLevel)
	logger, err := stdoutlog.New(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Fatal("Failed to load configuration", log.Error(err))
	}
	if *address != "" {
		cfg.Address = *address
	}

	server, err := devserver.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create backend", log.Error(err))
	}

	if _, err := server.SeedAdmin(*adminEmail, *adminPassword); err != nil {
		logger.Fatal("Failed to seed administrator", log.Error(err))
	}
	if *seed {
		server.SeedSample()
	}

	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start backend", log.Error(err))
	}
	logger.Info("Mock backend started",
		log.String("address", cfg.Address),
		log.String("prefix", cfg.Prefix),
		log.String("admin", *adminEmail),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down mock backend...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("Mock backend forced to shutdown", log.Error(err))
	}
}

func loadConfig(path string) (devserver.Config, error) {
	cfg := devserver.DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return cfg, nil
}
