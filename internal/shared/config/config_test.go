package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg := load(viper.New())
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.KVStoreType != "sqlite" {
		t.Fatalf("expected sqlite kv, got %q", cfg.KVStoreType)
	}
	if cfg.BootstrapInterval != 100*time.Millisecond || cfg.BootstrapTimeout != 10*time.Second {
		t.Fatalf("unexpected bootstrap timings %v/%v", cfg.BootstrapInterval, cfg.BootstrapTimeout)
	}
	if cfg.PDFEngineInstances != 1 {
		t.Fatalf("expected one engine instance, got %d", cfg.PDFEngineInstances)
	}
}

func TestLoadEnvFileAndOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "KV_STORE=redis\nHOST_URL=http://localhost:9090/\nBOOTSTRAP_TIMEOUT=3s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("BOOTSTRAP_TIMEOUT", "5s")

	cfg := load(viper.New(), path)
	if cfg.KVStoreType != "redis" {
		t.Fatalf("expected redis from env file, got %q", cfg.KVStoreType)
	}
	if cfg.HostURL != "http://localhost:9090" {
		t.Fatalf("expected trimmed host url, got %q", cfg.HostURL)
	}
	if cfg.BootstrapTimeout != 5*time.Second {
		t.Fatalf("expected environment to win, got %v", cfg.BootstrapTimeout)
	}
}

func TestNormalizers(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		fn   func(string) string
	}{
		{"prod", "production", normalizeEnv},
		{"whatever", "dev", normalizeEnv},
		{"S3", "s3", normalizeStoreType},
		{"disk", "local", normalizeStoreType},
		{"pg", "postgres", normalizeKVType},
		{"mem", "memory", normalizeKVType},
		{"", "sqlite", normalizeKVType},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			if got := tt.fn(tt.raw); got != tt.want {
				t.Fatalf("normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestLoadDBPool(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")

	cfg := load(viper.New())
	if cfg.DBPool.MaxOpenConns != 7 || cfg.DBPool.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("unexpected pool %+v", cfg.DBPool)
	}
	if cfg.DBPool.MaxIdleConns != 0 || cfg.DBPool.PingTimeout != 0 {
		t.Fatalf("unset pool fields should stay zero, got %+v", cfg.DBPool)
	}
}

func TestLoadSessionTokenKeys(t *testing.T) {
	t.Setenv("RESUMIND_TOKEN", " abc ")
	t.Setenv("RESUMIND_TOKEN_FILE", "/tmp/token")

	cfg := load(viper.New())
	if cfg.SessionToken != "abc" || cfg.TokenFile != "/tmp/token" {
		t.Fatalf("unexpected token settings %q %q", cfg.SessionToken, cfg.TokenFile)
	}
}
