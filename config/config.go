package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LLMConfig holds the settings for the OpenAI-compatible provider used to
// generate LaTeX and email content. APIKey names the environment variable
// holding the key; LoadConfig resolves it to the actual value.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// GeoConfig controls the best-effort IP-to-location enrichment.
type GeoConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	BaseURL         string `mapstructure:"base_url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	CacheSize       int    `mapstructure:"cache_size"`
	CacheTTLMinutes int    `mapstructure:"cache_ttl_minutes"`
}

// CompileConfig controls the LaTeX-to-PDF compilation step.
type CompileConfig struct {
	Command     string `mapstructure:"command"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	WorkDir     string `mapstructure:"work_dir"`
}

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port string
	}
	Database struct {
		DSN string // "memory" or a SQLite file path
	}
	JWT struct {
		Secret      string `mapstructure:"secret"`
		ExpiryHours int    `mapstructure:"expiry_hours"`
	} `mapstructure:"jwt"`
	LLM              LLMConfig     `mapstructure:"llm"`
	Geo              GeoConfig     `mapstructure:"geo"`
	Compile          CompileConfig `mapstructure:"compile"`
	GuestWindowHours int           `mapstructure:"guest_window_hours"`
	FreeTrialCVLimit int           `mapstructure:"free_trial_cv_limit"`
}

// AppConfig is the global configuration instance.
var AppConfig Config

// LoadConfig loads configuration from .env, config.yaml and environment
// variables, in that order of increasing precedence for the overrides
// handled below.
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: [Config] No .env file found, relying on process environment.")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../config") // For running from locations like tests

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("database.dsn", "memory")
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.expiry_hours", 24*7)
	viper.SetDefault("llm.api_key", "OPENAI_API_KEY")
	viper.SetDefault("llm.base_url", "https://api.openai.com/v1")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("geo.enabled", true)
	viper.SetDefault("geo.base_url", "https://ipapi.co")
	viper.SetDefault("geo.timeout_seconds", 3)
	viper.SetDefault("geo.cache_size", 1024)
	viper.SetDefault("geo.cache_ttl_minutes", 60)
	viper.SetDefault("compile.command", "tectonic")
	viper.SetDefault("compile.max_attempts", 3)
	viper.SetDefault("compile.work_dir", os.TempDir())
	viper.SetDefault("guest_window_hours", 24)
	viper.SetDefault("free_trial_cv_limit", 1)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("WARN: [Config] Configuration file (config.yaml) not found. Using environment variables and defaults.")
		} else {
			log.Fatalf("FATAL: [Config] Error reading configuration file: %v", err)
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("FATAL: [Config] Failed to unmarshal configuration into AppConfig struct: %v", err)
	}

	// Environment variable overrides
	if port := os.Getenv("SERVER_PORT"); port != "" {
		AppConfig.Server.Port = port
		log.Printf("INFO: [Config] Server port overridden by environment variable SERVER_PORT: %s", port)
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		AppConfig.Database.DSN = dsn
		log.Println("INFO: [Config] Database DSN overridden by environment variable DATABASE_DSN.")
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		AppConfig.JWT.Secret = secret
		log.Println("INFO: [Config] JWT secret loaded from environment variable JWT_SECRET.")
	}
	if AppConfig.JWT.Secret == "" {
		log.Println("WARN: [Config] JWT secret is not set. Authenticated sessions will not verify; all callers will be treated as guests.")
	}

	// The llm.api_key setting names the environment variable holding the
	// actual key, so the key itself never lives in config.yaml.
	envVarNameForKey := AppConfig.LLM.APIKey
	if envValue := os.Getenv(envVarNameForKey); envValue != "" {
		AppConfig.LLM.APIKey = envValue
		log.Printf("INFO: [Config] Loaded LLM API key from environment variable '%s'.", envVarNameForKey)
	} else if envVarNameForKey != "" && !strings.HasSuffix(envVarNameForKey, "_KEY") {
		log.Printf("WARN: [Config] LLM API key appears to be set directly in config.yaml. Consider using an environment variable instead.")
	} else {
		AppConfig.LLM.APIKey = ""
		log.Printf("WARN: [Config] LLM API key (env var '%s') is not set. Document generation will fail until it is provided.", envVarNameForKey)
	}

	log.Println("INFO: [Config] Configuration loading complete.")
}
