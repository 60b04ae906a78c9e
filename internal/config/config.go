// Package config loads checkout settings from an optional YAML file, a .env
// file and CHECKOUT_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CHECKOUT"

type Config struct {
	Gateway    GatewayConfig    `mapstructure:"gateway"`
	Callback   CallbackConfig   `mapstructure:"callback"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
}

type GatewayConfig struct {
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Breaker   BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes per-host failure tracking. A zero threshold disables it.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

// CallbackConfig configures the local listener receiving redirect returns.
// An empty BaseURL means the listener's own address.
type CallbackConfig struct {
	Addr    string `mapstructure:"addr"`
	BaseURL string `mapstructure:"base_url"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

type ClassifierConfig struct {
	Rules []RuleConfig `mapstructure:"rules"`
}

// RuleConfig is one routing override evaluated before the default table.
type RuleConfig struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
	Route      string `mapstructure:"route"`
}

// Load reads configuration. configFile may be empty, in which case only
// ./checkout.yaml is tried and its absence is not an error.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("checkout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("gateway.user_agent", "checkout-orchestrator/1.0")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.breaker.failure_threshold", 5)
	v.SetDefault("gateway.breaker.reset_timeout", 30*time.Second)

	v.SetDefault("callback.addr", "127.0.0.1:8787")
	v.SetDefault("callback.base_url", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "checkout-orchestrator")
}
