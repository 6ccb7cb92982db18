package main

// Run KV migrations against DATABASE_URL (postgres) or SQLITE_PATH:
//   go run ./cmd/migrate

import (
	"context"
	"database/sql"
	"log"
	"os"

	"resumind/internal/shared/config"
	"resumind/internal/shared/storage/db"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var (
		sqlDB   *sql.DB
		err     error
		dialect string
	)
	if cfg.KVStoreType == "postgres" {
		dialect = db.DialectPostgres
		sqlDB, err = db.Connect(ctx, cfg.DatabaseURL, db.DefaultMigrateOptions().Override(db.Options(cfg.DBPool)))
	} else {
		dialect = db.DialectSQLite
		sqlDB, err = db.OpenSQLite(ctx, cfg.SQLitePath, db.DefaultSQLiteOptions())
	}
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	log.Printf("migrations applied (%s)", dialect)
}
