package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tidexgo/pkg/core"
	"tidexgo/pkg/exchange/tidex"
	"tidexgo/pkg/ordertracker"
)

// Environment variables consulted when the config file leaves credentials
// empty.
const (
	envAPIKey = "TIDEX_API_KEY"
	envSecret = "TIDEX_SECRET"
)

// Config is the on-disk configuration of tidexctl. The exchange settings
// are inlined so a file reads like a core.Config.
type Config struct {
	core.Config `yaml:",inline"`

	Tracker ordertracker.Config `yaml:"tracker"`
	// Pretty switches logs to the human-readable console writer.
	Pretty bool `yaml:"pretty"`
}

// LoadConfig reads the optional dotenv file, then the optional YAML file with
// ${VAR} references expanded, on top of the Tidex defaults.
func LoadConfig(path, envFile string) (*Config, error) {
	if err := loadEnv(envFile); err != nil {
		return nil, err
	}

	cfg := &Config{Config: *tidex.DefaultConfig(), Pretty: true}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if cfg.Credentials == nil || (cfg.Credentials.APIKey == "" && cfg.Credentials.SecretKey == "") {
		if key, secret := os.Getenv(envAPIKey), os.Getenv(envSecret); key != "" || secret != "" {
			cfg.Credentials = &core.Credentials{APIKey: key, SecretKey: secret}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// loadEnv loads envFile into the process environment. A missing file is
// not an error.
func loadEnv(envFile string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}
