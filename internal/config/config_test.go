// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileWithDefaults(t *testing.T) {
	path := writeConfig(t, `
kafka:
  brokers: "kafka-0:9092,kafka-1:9092"
zookeeper:
  servers: "zk1:2181"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ServiceName != "nakadi" {
		t.Errorf("service_name = %q; want nakadi", cfg.ServiceName)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "kafka-0:9092" {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.PollTimeout != 200*time.Millisecond {
		t.Errorf("poll_timeout = %v; want 200ms", cfg.Kafka.PollTimeout)
	}
	if cfg.Kafka.DefaultTopicRetentionMs != 86400000 {
		t.Errorf("default_topic_retention_ms = %d", cfg.Kafka.DefaultTopicRetentionMs)
	}
	if cfg.ZooKeeper.SessionTimeout != 10*time.Second {
		t.Errorf("zookeeper session_timeout = %v", cfg.ZooKeeper.SessionTimeout)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http.addr = %q", cfg.HTTP.Addr)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `
kafka:
  brokers: "kafka-0:9092"
zookeeper:
  servers: "zk1:2181"
`)
	t.Setenv("NAKADI_LOGGING_LEVEL", "debug")
	t.Setenv("NAKADI_KAFKA_POLL_TIMEOUT", "1s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q; want debug", cfg.Logging.Level)
	}
	if cfg.Kafka.PollTimeout != time.Second {
		t.Errorf("poll_timeout = %v; want 1s", cfg.Kafka.PollTimeout)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			name: "no brokers",
			body: "zookeeper:\n  servers: \"zk1:2181\"\n",
		},
		{
			name: "no zookeeper",
			body: "kafka:\n  brokers: \"kafka-0:9092\"\n",
		},
		{
			name: "bad acks",
			body: "kafka:\n  brokers: \"kafka-0:9092\"\n  acks: quorum\nzookeeper:\n  servers: \"zk1:2181\"\n",
		},
		{
			name: "bad log level",
			body: "kafka:\n  brokers: \"kafka-0:9092\"\nzookeeper:\n  servers: \"zk1:2181\"\nlogging:\n  level: verbose\n",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, c.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
