package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	APITitle       string
	APIDescription string
	APIVersion     string
	ModelPath      string
	PythonPath     string
	Host           string
	Port           int
	DatabaseURL    string
	DataPath       string
	ScoreTimeout   time.Duration
}

type ConfigFile struct {
	API struct {
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Version     string `yaml:"version"`
	} `yaml:"api"`

	Model struct {
		Path         string `yaml:"path"`
		PythonPath   string `yaml:"pythonPath"`
		ScoreTimeout string `yaml:"scoreTimeout"`
	} `yaml:"model"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Storage struct {
		DatabaseURL string `yaml:"databaseURL"`
		DataPath    string `yaml:"dataPath"`
	} `yaml:"storage"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	scoreTimeout, err := time.ParseDuration(config.Model.ScoreTimeout)
	if err != nil {
		scoreTimeout = 5 * time.Second
	}

	settings := Settings{
		APITitle:       getEnvOrDefault("API_TITLE", withDefault(config.API.Title, "Sales Forecast API")),
		APIDescription: getEnvOrDefault("API_DESCRIPTION", withDefault(config.API.Description, "Gradient-boosted-tree sales forecasting over HTTP")),
		APIVersion:     getEnvOrDefault("API_VERSION", withDefault(config.API.Version, "1.0.0")),
		ModelPath:      getEnvOrDefault("MODEL_PATH", config.Model.Path),
		PythonPath:     getEnvOrDefault("PYTHON_PATH", config.Model.PythonPath),
		Host:           getEnvOrDefault("HOST", withDefault(config.Server.Host, "0.0.0.0")),
		Port:           getIntFromEnvOrConfig("PORT", config.Server.Port),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", config.Storage.DatabaseURL),
		DataPath:       getEnvOrDefault("DATA_PATH", config.Storage.DataPath),
		ScoreTimeout:   scoreTimeout,
	}
	if settings.Port == 0 {
		settings.Port = 8000
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		APITitle:       getEnvOrDefault("API_TITLE", "Sales Forecast API"),
		APIDescription: getEnvOrDefault("API_DESCRIPTION", "Gradient-boosted-tree sales forecasting over HTTP"),
		APIVersion:     getEnvOrDefault("API_VERSION", "1.0.0"),
		ModelPath:      getEnvOrDefault("MODEL_PATH", "model.txt"),
		PythonPath:     os.Getenv("PYTHON_PATH"), // optional
		Host:           getEnvOrDefault("HOST", "0.0.0.0"),
		Port:           getIntOrDefault("PORT", 8000),
		DatabaseURL:    getEnvOrDefault("DATABASE_URL", "api_logs.db"),
		DataPath:       os.Getenv("DATA_PATH"), // optional
		ScoreTimeout:   getDurationOrDefault("SCORE_TIMEOUT", 5*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func validateSettings(s *Settings) error {
	if s.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	if s.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", s.Port)
	}
	if s.ScoreTimeout <= 0 {
		return fmt.Errorf("SCORE_TIMEOUT must be positive, got %v", s.ScoreTimeout)
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func withDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getIntFromEnvOrConfig(key string, configVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return configVal
}

func getDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
