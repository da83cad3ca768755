package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	ModelRuntime struct {
		URL            string `yaml:"url"`
		ModelID        string `yaml:"model_id"`
		RequestTimeout int64  `yaml:"request_timeout_seconds"`
	} `yaml:"model_runtime"`
	Analysis struct {
		MaxTextLength       int     `yaml:"max_text_length"`
		MultiLabelThreshold float64 `yaml:"multi_label_threshold"`
	} `yaml:"analysis"`
	Auth struct {
		JWTSecret     string `yaml:"jwt_secret"`
		TokenTTLHours int64  `yaml:"token_ttl_hours"`
	} `yaml:"auth"`
}

// LoadConfig reads configuration from the specified YAML file. A .env file,
// if present, is loaded first; environment variables take precedence over
// the file for secrets and deploy-specific values.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	applyEnvOverrides(config)
	applyDefaults(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PORT"); v != "" {
		config.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}
	if v := os.Getenv("MODEL_RUNTIME_URL"); v != "" {
		config.ModelRuntime.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}

func applyDefaults(config *Config) {
	if config.Server.Port == "" {
		config.Server.Port = ":8080"
	}
	if config.ModelRuntime.RequestTimeout <= 0 {
		config.ModelRuntime.RequestTimeout = 30
	}
	if config.Analysis.MaxTextLength <= 0 {
		config.Analysis.MaxTextLength = 5000
	}
	if config.Analysis.MultiLabelThreshold <= 0 {
		config.Analysis.MultiLabelThreshold = 0.5
	}
	if config.Auth.TokenTTLHours <= 0 {
		config.Auth.TokenTTLHours = 24
	}
}
