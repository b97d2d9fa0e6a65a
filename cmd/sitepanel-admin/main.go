package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/sitepanel/pkg/cli"
	"github.com/platinummonkey/sitepanel/pkg/config"
)

func main() {
	logger := setupLogger(os.Getenv("SITEPANEL_LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	env := cli.NewEnv(cfg, logger)
	err = cli.NewRootCommand().Execute(env, os.Args[1:])
	if closeErr := env.Close(); closeErr != nil {
		logger.WithError(closeErr).Warn("Failed to close database")
	}
	if err != nil {
		logger.Errorf("Error: %v", err)
		os.Exit(1)
	}
}

func setupLogger(logLevel string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}
