// Package bootstrap assembles the host stack from configuration.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"resumind/internal/host"
	"resumind/internal/host/local"
	"resumind/internal/hostapi"
	"resumind/internal/llm"
	openai "resumind/internal/llm/openai"
	"resumind/internal/shared/auth"
	"resumind/internal/shared/config"
	"resumind/internal/shared/server"
	"resumind/internal/shared/storage/db"
	"resumind/internal/shared/storage/kv"
	"resumind/internal/shared/storage/kv/memory"
	redisstore "resumind/internal/shared/storage/kv/redis"
	"resumind/internal/shared/storage/kv/sqlkv"
	"resumind/internal/shared/storage/object"
	localstore "resumind/internal/shared/storage/object/local"
	s3store "resumind/internal/shared/storage/object/s3"
	"resumind/internal/shared/telemetry"
)

// App holds the host dependencies shared by the daemon and the in-process client.
type App struct {
	Config  config.Config
	Objects object.ObjectStore
	KV      kv.Store
	LLM     llm.Client
	Tokens  *auth.Issuer
	Backend *local.Backend
	Router  *gin.Engine
}

// Build wires stores, the model client and the host API router.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	objects, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	values, err := buildKV(ctx, cfg)
	if err != nil {
		return nil, err
	}

	model, err := buildLLM(cfg)
	if err != nil {
		_ = values.Close()
		return nil, err
	}

	tokens, err := auth.NewIssuer(cfg.JWTSecret, cfg.Env, cfg.SessionTTL)
	if err != nil {
		_ = values.Close()
		return nil, err
	}

	backend := &local.Backend{
		Objects: objects,
		KV:      values,
		LLM:     model,
		Model:   cfg.LLMModel,
		Tokens:  tokens,
		Identity: host.Identity{
			ID:       cfg.HostUserID,
			Username: cfg.HostUsername,
			Name:     cfg.HostUserName,
			Email:    cfg.HostUserEmail,
		},
	}

	app := &App{
		Config:  cfg,
		Objects: objects,
		KV:      values,
		LLM:     model,
		Tokens:  tokens,
		Backend: backend,
	}
	app.Router = server.NewRouter(cfg, hostapi.NewHandler(backend, server.RateLimit(cfg)))

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"object_store": cfg.ObjectStoreType,
		"kv_store":     cfg.KVStoreType,
		"llm_provider": cfg.LLMProvider,
	})
	return app, nil
}

// Close releases the KV backend.
func (a *App) Close() error {
	if a == nil || a.KV == nil {
		return nil
	}
	return a.KV.Close()
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildKV(ctx context.Context, cfg config.Config) (kv.Store, error) {
	switch cfg.KVStoreType {
	case "memory":
		return memory.New(), nil
	case "redis":
		return redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), nil
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultServerOptions().Override(db.Options(cfg.DBPool)))
		if err != nil {
			return nil, err
		}
		return migrated(ctx, sqlDB, db.DialectPostgres, sqlkv.Postgres)
	default:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath, db.DefaultSQLiteOptions())
		if err != nil {
			return nil, err
		}
		return migrated(ctx, sqlDB, db.DialectSQLite, sqlkv.SQLite)
	}
}

func migrated(ctx context.Context, sqlDB *sql.DB, dialect string, kind sqlkv.Dialect) (kv.Store, error) {
	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlkv.New(sqlDB, kind), nil
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}, nil
	}
	client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	if err != nil {
		return nil, err
	}
	return llm.WithRetry(client), nil
}
