package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	AI       AIConfig       `mapstructure:"ai"`
	Salary   SalaryConfig   `mapstructure:"salary"`
	Activity ActivityConfig `mapstructure:"activity"`
}

type AppConfig struct {
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"` // dev | prod
	Origins string `mapstructure:"origins"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type AIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type SalaryConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type ActivityConfig struct {
	FlushBatchSize int           `mapstructure:"flush_batch_size"`
	FlushInterval  time.Duration `mapstructure:"flush_interval"`
}

// Load reads config.yaml if present and overlays PATHWISE_* env vars.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PATHWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.mode", "dev")
	v.SetDefault("app.origins", "*")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=pathwise port=5432 sslmode=disable")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.max_tokens", 2048)
	v.SetDefault("ai.request_timeout", 60*time.Second)
	v.SetDefault("salary.base_url", "https://api.salarybench.dev")
	v.SetDefault("salary.request_timeout", 15*time.Second)
	v.SetDefault("activity.flush_batch_size", 10)
	v.SetDefault("activity.flush_interval", 5*time.Second)
}
