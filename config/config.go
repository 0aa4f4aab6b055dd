// Package config loads process-wide configuration for an agent graph
// deployment: base directories, default model identifiers, vector-backend
// selection, and the guardrail approval timeout override. Precedence
// follows viper's own: explicit flags/env beat file values beat defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// VectorBackend names a memory.VectorBackend implementation to construct.
type VectorBackend string

const (
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendBolt     VectorBackend = "bolt"
	VectorBackendPGVector VectorBackend = "pgvector"
)

// SessionBackend names a session.Store implementation to construct.
type SessionBackend string

const (
	SessionBackendMemory SessionBackend = "memory"
	SessionBackendSQLite SessionBackend = "sqlite"
	SessionBackendMySQL  SessionBackend = "mysql"
)

// Config is the typed configuration surface every long-running component
// reads from. Zero values are usable defaults suitable for local
// development.
type Config struct {
	BaseDir string `mapstructure:"base_dir"`

	DefaultModelProvider string `mapstructure:"default_model_provider"`
	DefaultModelName     string `mapstructure:"default_model_name"`

	VectorBackend   VectorBackend `mapstructure:"vector_backend"`
	VectorBoltPath  string        `mapstructure:"vector_bolt_path"`
	VectorPGDSN     string        `mapstructure:"vector_pg_dsn"`

	SessionBackend    SessionBackend `mapstructure:"session_backend"`
	SessionSQLitePath string         `mapstructure:"session_sqlite_path"`
	SessionMySQLDSN   string         `mapstructure:"session_mysql_dsn"`

	ApprovalTimeout time.Duration `mapstructure:"approval_timeout"`

	EventBusRedisAddr string `mapstructure:"event_bus_redis_addr"`

	CredentialsPrefix string `mapstructure:"credentials_prefix"`
}

// defaults are applied to v before any file, env, or flag source is read,
// so every key below is always present with a sane fallback.
func defaults() Config {
	return Config{
		BaseDir:              ".",
		DefaultModelProvider: "anthropic",
		DefaultModelName:     "claude-sonnet-4",
		VectorBackend:        VectorBackendMemory,
		VectorBoltPath:       "./agentgraph-vectors.db",
		SessionBackend:       SessionBackendMemory,
		SessionSQLitePath:    "./agentgraph-sessions.db",
		ApprovalTimeout:      5 * time.Minute,
		CredentialsPrefix:    "AGENTGRAPH",
	}
}

// Load reads configuration from (in ascending precedence) the defaults,
// an optional config file, and environment variables prefixed
// AGENTGRAPH_. configPath may be empty, in which case Load searches the
// current directory and $HOME for agentgraph.yaml and proceeds on a
// config file and proceeds with defaults/env alone if neither is found.
func Load(configPath string) (Config, error) {
	v := viper.New()
	setDefaults(v, defaults())

	v.SetEnvPrefix("AGENTGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("agentgraph")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("base_dir", d.BaseDir)
	v.SetDefault("default_model_provider", d.DefaultModelProvider)
	v.SetDefault("default_model_name", d.DefaultModelName)
	v.SetDefault("vector_backend", string(d.VectorBackend))
	v.SetDefault("vector_bolt_path", d.VectorBoltPath)
	v.SetDefault("session_backend", string(d.SessionBackend))
	v.SetDefault("session_sqlite_path", d.SessionSQLitePath)
	v.SetDefault("approval_timeout", d.ApprovalTimeout)
	v.SetDefault("credentials_prefix", d.CredentialsPrefix)
}
