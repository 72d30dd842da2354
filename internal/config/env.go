package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// envFiles are tried in order; the first one found is loaded.
var envFiles = []string{".env", ".env.local"}

// loadEnvFile loads environment variables from .env/.env.local files.
// Existing process environment variables are not overwritten.
func loadEnvFile() error {
	for _, envPath := range envFiles {
		if _, err := os.Stat(envPath); err != nil {
			continue
		}
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load %s: %w", envPath, err)
		}
		slog.Debug("Loaded environment variables", "file", envPath)
		return nil
	}
	return fmt.Errorf("no .env file found")
}
