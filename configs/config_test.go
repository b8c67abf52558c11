package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
app:
  http_addr: ":8080"
database:
  driver: sqlite
  dsn: ./base.db
cache:
  ttl: 5m
`)
	writeFile(t, dir, "staging.yaml", `
database:
  dsn: ./staging.db
`)
	t.Setenv("STOREFRONT_DATABASE__DSN", "./env.db")
	t.Setenv("STOREFRONT_OUTBOX__BATCH_SIZE", "7")

	cfg, err := Load(dir, "staging")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.DSN != "./env.db" {
		t.Errorf("dsn = %q, want env override", cfg.Database.DSN)
	}
	if cfg.Outbox.BatchSize != 7 {
		t.Errorf("batch size = %d, want 7", cfg.Outbox.BatchSize)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
	if cfg.RedisEnabled() || cfg.RabbitEnabled() || cfg.KafkaEnabled() {
		t.Errorf("optional integrations should be disabled by default")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.App.HTTPAddr = ":8080"
		c.Database.Driver = "sqlite"
		c.Database.DSN = "x.db"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"no http addr", func(c *Config) { c.App.HTTPAddr = "" }, true},
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }, true},
		{"no dsn", func(c *Config) { c.Database.DSN = "" }, true},
		{"kafka without topic", func(c *Config) { c.Kafka.Brokers = []string{"k:9092"}; c.Kafka.GroupID = "g" }, true},
		{"rabbit without exchange", func(c *Config) { c.Rabbit.URL = "amqp://x" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
