package config

import (
	"fmt"
	"os"
	"path/filepath"

	"finrisk/internal/common"
	"finrisk/pkg/models"

	"gopkg.in/yaml.v3"
)

func GetConfigPath() string {
	// Check for environment variable first
	if configPath := os.Getenv("FINRISK_CONFIG"); configPath != "" {
		return filepath.Dir(configPath)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".finrisk")
}

func GetConfigFile() string {
	// Check for environment variable first
	if configFile := os.Getenv("FINRISK_CONFIG"); configFile != "" {
		// Validate the path to prevent directory traversal
		cleaned, err := common.CleanPath(configFile)
		if err != nil {
			// Fall back to default if invalid
			return filepath.Join(GetConfigPath(), "config.yaml")
		}
		return cleaned
	}
	return filepath.Join(GetConfigPath(), "config.yaml")
}

func Load() (*models.Config, error) {
	return LoadFile(GetConfigFile())
}

// LoadFile reads a pipeline configuration from an explicit path.
func LoadFile(path string) (*models.Config, error) {
	cleanedPath, err := common.CleanPath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
		return &models.Config{}, nil
	}

	data, err := os.ReadFile(cleanedPath) // #nosec G304 - path is validated
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func Save(config *models.Config) error {
	configPath := GetConfigPath()
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := GetConfigFile()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func Exists() bool {
	_, err := os.Stat(GetConfigFile())
	return err == nil
}
