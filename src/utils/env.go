package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEV_ENV = "development"

// InitEnvironmentVariables loads dir/.env.<goEnv>. Variables already set in the process
// environment win. In production the platform injects variables and no file is read.
func InitEnvironmentVariables(dir string, goEnv string) error {
	if os.Getenv("ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	if goEnv == "" {
		goEnv = DEV_ENV
	}

	envFile := filepath.Join(dir, fmt.Sprintf(".env.%s", goEnv))

	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load %s file: %w", envFile, err)
	}

	log.Debugf("loaded environment from %s", envFile)

	return nil
}

func GetEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s not set", key)
	}

	return value, nil
}

func GetEnvOrDefault(key string, fallback string) string {
	if value, err := GetEnv(key); err == nil {
		return value
	}

	return fallback
}
