// Package main provisions the navgate database schema.
//
// The schema is idempotent, so provisioning an already-provisioned
// database is a no-op. Run it once before first start and after every
// upgrade that ships schema changes.
package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"

	"navgate/pkg/logger"
)

//go:embed schema.sql
var schema string

func main() {
	_ = godotenv.Load()

	log := logger.Default()

	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	connCfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		log.Fatalw("parse DB_URL", "error", err)
	}
	// The schema is a multi-statement script; the extended protocol only
	// accepts one statement per call.
	connCfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, connCfg)
	if err != nil {
		log.Fatalw("connect", "error", err)
	}
	defer conn.Close(context.Background())

	log.Info("applying schema")
	if _, err := conn.Exec(ctx, schema); err != nil {
		log.Fatalw("apply schema", "error", err)
	}

	log.Info("schema applied")
}
