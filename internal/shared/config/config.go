package config

import (
	"strings"
	"time"

	"resumind/internal/shared/telemetry"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Env             string
	Port            string
	CORSAllowOrigin []string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	KVStoreType   string
	SQLitePath    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// DBPool overrides the postgres pool defaults; zero fields keep them.
	DBPool DBPool

	LLMProvider  string
	LLMModel     string
	OpenAIAPIKey string

	JWTSecret  string
	SessionTTL time.Duration

	HostUserID    string
	HostUsername  string
	HostUserName  string
	HostUserEmail string

	// HostURL is the daemon the client binds to; empty means the in-process host.
	HostURL           string
	BootstrapInterval time.Duration
	BootstrapTimeout  time.Duration
	// SessionToken, when set, is used instead of the token file.
	SessionToken      string
	TokenFile         string

	RateLimitRPS   float64
	RateLimitBurst int

	PDFEngineInstances int
}

// DBPool carries DB_* pool settings.
type DBPool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var defaults = map[string]any{
	"env":                  "dev",
	"port":                 "8080",
	"cors_allow_origins":   "http://localhost:5173",
	"object_store":         "local",
	"local_store_dir":      "./data",
	"kv_store":             "sqlite",
	"sqlite_path":          "./data/kv.db",
	"redis_addr":           "localhost:6379",
	"redis_db":             0,
	"llm_provider":         "openai",
	"session_ttl":          "24h",
	"host_user_id":         "local:dev",
	"host_username":        "dev",
	"host_user_name":       "Local Developer",
	"host_user_email":      "dev@localhost",
	"bootstrap_interval":   "100ms",
	"bootstrap_timeout":    "10s",
	"rate_limit_rps":       20.0,
	"rate_limit_burst":     40,
	"pdf_engine_instances": 1,
}

// Load reads configuration from env files and environment variables with sensible defaults.
func Load() Config {
	return load(viper.New(), ".env", "cmd/.env")
}

func load(v *viper.Viper, envFiles ...string) Config {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(v, envFiles...)
	v.AutomaticEnv()

	env := normalizeEnv(v.GetString("env"))
	dbURL := v.GetString("database_url")
	kvType := normalizeKVType(v.GetString("kv_store"))

	if env == "production" && kvType == "postgres" && dbURL == "" {
		telemetry.Warn("config.database_url.missing", map[string]any{"env": env})
	}

	return Config{
		Env:             env,
		Port:            v.GetString("port"),
		CORSAllowOrigin: splitAndTrim(v.GetString("cors_allow_origins")),

		ObjectStoreType: normalizeStoreType(v.GetString("object_store")),
		LocalStoreDir:   v.GetString("local_store_dir"),
		AWSRegion:       v.GetString("aws_region"),
		S3Bucket:        v.GetString("s3_bucket"),
		S3Prefix:        v.GetString("s3_prefix"),
		SSEKMSKeyID:     v.GetString("sse_kms_key_id"),

		KVStoreType:   kvType,
		SQLitePath:    v.GetString("sqlite_path"),
		DatabaseURL:   dbURL,
		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		DBPool: DBPool{
			MaxOpenConns:    v.GetInt("db_max_open_conns"),
			MaxIdleConns:    v.GetInt("db_max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db_conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("db_conn_max_idle_time"),
			PingTimeout:     v.GetDuration("db_ping_timeout"),
		},

		LLMProvider:  strings.ToLower(strings.TrimSpace(v.GetString("llm_provider"))),
		LLMModel:     v.GetString("llm_model"),
		OpenAIAPIKey: v.GetString("openai_api_key"),

		JWTSecret:  v.GetString("jwt_secret"),
		SessionTTL: positiveDuration(v.GetDuration("session_ttl"), 24*time.Hour),

		HostUserID:    v.GetString("host_user_id"),
		HostUsername:  v.GetString("host_username"),
		HostUserName:  v.GetString("host_user_name"),
		HostUserEmail: v.GetString("host_user_email"),

		HostURL:           strings.TrimRight(strings.TrimSpace(v.GetString("host_url")), "/"),
		BootstrapInterval: positiveDuration(v.GetDuration("bootstrap_interval"), 100*time.Millisecond),
		BootstrapTimeout:  positiveDuration(v.GetDuration("bootstrap_timeout"), 10*time.Second),
		SessionToken:      strings.TrimSpace(v.GetString("resumind_token")),
		TokenFile:         strings.TrimSpace(v.GetString("resumind_token_file")),

		RateLimitRPS:   v.GetFloat64("rate_limit_rps"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),

		PDFEngineInstances: max(1, v.GetInt("pdf_engine_instances")),
	}
}

func positiveDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeKVType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "memory", "mem":
		return "memory"
	case "postgres", "postgresql", "pg":
		return "postgres"
	case "redis":
		return "redis"
	default:
		return "sqlite"
	}
}
