package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearTelegramEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_API_ID", "TELEGRAM_API_HASH"} {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	clearTelegramEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_API_ID", "1")
	t.Setenv("TELEGRAM_API_HASH", "hash")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Meili.Index != "telegram_messages" {
		t.Fatalf("index default = %q", cfg.Meili.Index)
	}
	if cfg.Meili.Timeout != 5*time.Second {
		t.Fatalf("timeout default = %v", cfg.Meili.Timeout)
	}
	if cfg.Redis.Port != 6379 {
		t.Fatalf("redis port default = %d", cfg.Redis.Port)
	}
	if cfg.Search.DefaultLimit != 20 || cfg.Search.MaxLimit != 100 {
		t.Fatalf("search defaults = %+v", cfg.Search)
	}
	if cfg.Indexer.BatchSize != 100 {
		t.Fatalf("batch size default = %d", cfg.Indexer.BatchSize)
	}
}

func TestLoadMissingTelegramCredsFails(t *testing.T) {
	clearTelegramEnv(t)
	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation error for missing telegram credentials")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearTelegramEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	os.WriteFile(path, []byte(`
[telegram]
bot_token = "file-token"
api_id = "file-id"
api_hash = "file-hash"

[meili]
host = "file-host"
`), 0o644)

	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_API_ID", "env-id")
	t.Setenv("TELEGRAM_API_HASH", "env-hash")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.BotToken != "env-token" {
		t.Fatalf("expected env to win over file, got %q", cfg.Telegram.BotToken)
	}
	if cfg.Meili.Host != "file-host" {
		t.Fatalf("expected file value retained where env unset, got %q", cfg.Meili.Host)
	}
}

func TestLoadMissingFileIsNotFatal(t *testing.T) {
	clearTelegramEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_API_ID", "1")
	t.Setenv("TELEGRAM_API_HASH", "hash")

	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("expected missing config file to be non-fatal, got %v", err)
	}
}

func TestGenerateDefaultTOMLRoundTrips(t *testing.T) {
	cfg := Config{
		Telegram: Telegram{BotToken: "tok", APIID: "1", APIHash: "hash"},
		Meili:    Meili{Host: "localhost:7700", Index: "telegram_messages"},
	}
	data, err := GenerateDefaultTOML(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty TOML output")
	}
}
