package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("CHAT_AUTH_JWTSECRET", "s3cret")
	t.Setenv("CHAT_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("CHAT_SERVER_ADDR", ":6000")
	t.Setenv("CHAT_SNOWFLAKE_NODE", "7")

	cfg, err := Load(zap.NewNop(), "does-not-exist")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":6000" {
		t.Errorf("expected env override :6000, got %s", cfg.Server.Addr)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected memory backend by default, got %s", cfg.Store.Backend)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("expected 24h token ttl, got %v", cfg.Auth.TokenTTL)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Topic != "chat-events" {
		t.Errorf("unexpected topic %s", cfg.Kafka.Topic)
	}
	if cfg.Snowflake.Node != 7 {
		t.Errorf("expected snowflake node 7, got %d", cfg.Snowflake.Node)
	}
}

func TestSnowflakeNodeDefaultsForSingleProcess(t *testing.T) {
	t.Setenv("CHAT_AUTH_JWTSECRET", "s3cret")

	cfg, err := Load(zap.NewNop(), "does-not-exist")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Snowflake.Node != 1 {
		t.Errorf("expected node 1 without kafka, got %d", cfg.Snowflake.Node)
	}
}

func TestKafkaRequiresExplicitSnowflakeNode(t *testing.T) {
	t.Setenv("CHAT_AUTH_JWTSECRET", "s3cret")
	t.Setenv("CHAT_KAFKA_BROKERS", "k1:9092")

	if _, err := Load(zap.NewNop(), "does-not-exist"); err == nil {
		t.Fatal("expected error when kafka is configured without snowflake.node")
	}

	t.Setenv("CHAT_SNOWFLAKE_NODE", "2048")
	if _, err := Load(zap.NewNop(), "does-not-exist"); err == nil {
		t.Error("expected error for a node outside the id layout")
	}

	t.Setenv("CHAT_SNOWFLAKE_NODE", "3")
	cfg, err := Load(zap.NewNop(), "does-not-exist")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Snowflake.Node != 3 {
		t.Errorf("expected node 3, got %d", cfg.Snowflake.Node)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("CHAT_AUTH_JWTSECRET", "")
	if _, err := Load(zap.NewNop(), "does-not-exist"); err == nil {
		t.Fatal("expected error without jwt secret")
	}
}

func TestValidateBackends(t *testing.T) {
	cfg := &Config{
		Auth:  AuthConfig{JWTSecret: "x"},
		Store: StoreConfig{Backend: "postgres"},
		Media: MediaConfig{Backend: "memory"},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown store backend to fail")
	}
	cfg.Store.Backend = "scylla"
	if err := cfg.Validate(); err != nil {
		t.Errorf("scylla backend rejected: %v", err)
	}
}
