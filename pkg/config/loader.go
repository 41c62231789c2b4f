package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const EnvPrefix = "CHAT"

// matches the 10 node bits of pkg/snowflake
const snowflakeNodeMax = 1023

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "chat-app")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.frontendURL", "http://localhost:5173")
	v.SetDefault("server.readTimeout", "15s")
	v.SetDefault("server.writeTimeout", "15s")
	v.SetDefault("server.maxBodyBytes", 8<<20)

	v.SetDefault("auth.jwtSecret", "")
	v.SetDefault("auth.tokenTTL", "24h")

	v.SetDefault("store.backend", "memory")

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "chatApp")
	v.SetDefault("mongo.maxPoolSize", 100)
	v.SetDefault("mongo.maxRetry", 3)
	v.SetDefault("mongo.timeout", "10s")

	v.SetDefault("scylla.hosts", []string{"localhost:9042"})
	v.SetDefault("scylla.keyspace", "chat")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "chat-events")

	v.SetDefault("media.backend", "memory")
	v.SetDefault("media.baseURL", "")
	v.SetDefault("media.maxBytes", 5<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("telemetry.endpoint", "")
	// -1 means unset: a single process falls back to node 1, a process
	// sharing storage with others through kafka must pick its own node
	v.SetDefault("snowflake.node", -1)
}

// Load reads defaults, then an optional YAML file named fileName from the
// working directory, then CHAT_* environment variables.
func Load(log *zap.Logger, fileName string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(fileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config file")
		}
		log.Warn("config file not found, using defaults and environment", zap.String("file", fileName))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.Scylla.Hosts = splitList(cfg.Scylla.Hosts)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	if cfg.Snowflake.Node < 0 && len(cfg.Kafka.Brokers) == 0 {
		cfg.Snowflake.Node = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (CHAT_AUTH_JWTSECRET) is required")
	}
	switch c.Store.Backend {
	case "memory", "mongo", "scylla":
	default:
		return errors.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	switch c.Media.Backend {
	case "memory", "gridfs":
	default:
		return errors.Errorf("unknown media.backend %q", c.Media.Backend)
	}
	if c.Snowflake.Node < 0 {
		if len(c.Kafka.Brokers) > 0 {
			return errors.New("snowflake.node (CHAT_SNOWFLAKE_NODE) must be set to a value unique per process when kafka.brokers is configured")
		}
		return errors.Errorf("snowflake.node must not be negative, got %d", c.Snowflake.Node)
	}
	if c.Snowflake.Node > snowflakeNodeMax {
		return errors.Errorf("snowflake.node must be at most %d, got %d", snowflakeNodeMax, c.Snowflake.Node)
	}
	return nil
}

// env values arrive as one comma separated string
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
