package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"labgate/internal/bootstrap/logging"
	"labgate/internal/errs"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Mail       MailConfig       `mapstructure:"mail"`
	Escalation EscalationConfig `mapstructure:"escalation"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// BaseURL is the externally reachable prefix embedded in action links.
	BaseURL string `mapstructure:"base_url"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type EscalationConfig struct {
	// QualityManager receives every level-1 escalation regardless of company.
	QualityManager string `mapstructure:"quality_manager"`
	// ProductionContact is included on final-decision notices.
	ProductionContact string `mapstructure:"production_contact"`
	// Companies maps a company code to its level-2 decision maker.
	Companies     map[string]string `mapstructure:"companies"`
	TokenTTLHours int               `mapstructure:"token_ttl_hours"`
}

func (c EscalationConfig) TokenTTL() time.Duration {
	if c.TokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if cfg.Database.DSN == "" {
		return Config{}, errors.New("database.dsn is required")
	}
	if cfg.Server.BaseURL != "" {
		cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.Int("companies", len(cfg.Escalation.Companies)),
	)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "labgate")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/labgate.sqlite")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("mail.port", 587)
	v.SetDefault("escalation.token_ttl_hours", 24)
}
