package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds server settings. Values come from an optional YAML file
// (STUDYSYNC_CONFIG, default studysync.yaml) with environment variables
// taking precedence, so deployments can override single values without
// editing the file.
type Config struct {
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	DBPath             string `yaml:"db_path"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
}

// Load reads the config file if present and applies env overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Host:   "127.0.0.1",
		Port:   "8080",
		DBPath: "studysync.db",
	}

	path := os.Getenv("STUDYSYNC_CONFIG")
	if path == "" {
		path = "studysync.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(&cfg.Host, "HOST")
	applyEnv(&cfg.Port, "PORT")
	applyEnv(&cfg.DBPath, "STUDYSYNC_DB")
	applyEnv(&cfg.GoogleClientID, "GOOGLE_CLIENT_ID")
	applyEnv(&cfg.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")

	// The OAuth config builder reads these from the environment, so a
	// file-provided value is exported for it.
	exportIfSet("GOOGLE_CLIENT_ID", cfg.GoogleClientID)
	exportIfSet("GOOGLE_CLIENT_SECRET", cfg.GoogleClientSecret)

	return cfg, nil
}

func applyEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func exportIfSet(key, value string) {
	if value != "" && os.Getenv(key) == "" {
		os.Setenv(key, value)
	}
}
