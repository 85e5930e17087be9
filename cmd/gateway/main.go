package main

import (
	"context"
	"log"
	"os"

	appconfig "github.com/lewisedginton/wa_gateway/internal/config"
	"github.com/lewisedginton/wa_gateway/internal/server"
	"github.com/lewisedginton/wa_gateway/pkg/config"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

func main() {
	ctx := context.Background()

	// Load configuration: optional yaml file, env vars take precedence.
	var cfg appconfig.AppConfig
	configFile := os.Getenv("CONFIG_FILE")
	var err error
	if configFile != "" {
		err = config.GetConfig(&cfg, configFile, false)
	} else {
		err = config.GetConfigFromEnvVars(&cfg)
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.Format,
		Service: cfg.ServiceName,
	})
	cfg.LogConfig(appLogger)

	srv, err := server.New(ctx, &cfg, appLogger, nil)
	if err != nil {
		appLogger.Error("Failed to initialize gateway", logger.ErrorField(err))
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		appLogger.Error("Gateway exited with error", logger.ErrorField(err))
		os.Exit(1)
	}
}
