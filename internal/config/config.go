package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Gmail     GmailConfig     `yaml:"gmail" mapstructure:"gmail"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GmailConfig holds Gmail API credentials. Either a literal access token or
// a path to an OAuth token file must be set.
type GmailConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	TokenFile string `yaml:"token_file" mapstructure:"token_file"`
}

// ResolveToken returns the access token, reading the token file when no
// literal token is configured. The file may be the JSON written by the OAuth
// flow or a bare token string.
func (g GmailConfig) ResolveToken() (string, error) {
	if g.Token != "" {
		return g.Token, nil
	}
	raw, err := os.ReadFile(g.TokenFile)
	if err != nil {
		return "", eris.Wrapf(err, "config: read gmail token file %s", g.TokenFile)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &tok); err == nil && tok.AccessToken != "" {
		return tok.AccessToken, nil
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", eris.Errorf("config: gmail token file %s holds no token", g.TokenFile)
	}
	return token, nil
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	Limit int    `yaml:"limit" mapstructure:"limit"`
	Query string `yaml:"query" mapstructure:"query"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MAILSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("batch.limit", 10)
	v.SetDefault("batch.query", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration required for the given mode is
// present. Missing credentials abort the run before any message processing
// begins; nothing past startup is allowed to fail on configuration.
func (c *Config) Validate(mode string) error {
	var missing []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			// DatabaseURL falls back to a local file at open time.
		default:
			missing = append(missing, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "process":
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if c.Gmail.Token == "" && c.Gmail.TokenFile == "" {
			missing = append(missing, "gmail.token or gmail.token_file is required")
		}
		checkStore()
	case "store":
		checkStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
