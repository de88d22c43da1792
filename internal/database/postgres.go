package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/AnshRaj112/flags-survey-backend/internal/logger"
)

// ConnectPostgres opens the pool used by the postgres record store and makes
// sure the responses table carries one boolean column per answer key.
func ConnectPostgres(ctx context.Context, postgresURI string, answerColumns []string) (*sql.DB, error) {
	db, err := sql.Open("postgres", postgresURI)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("✅ Connected to PostgreSQL")

	if err = InitPostgresTables(ctx, db, answerColumns); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// InitPostgresTables creates the responses table if needed and adds any answer
// column introduced since it was created.
func InitPostgresTables(ctx context.Context, db *sql.DB, answerColumns []string) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS responses (
			submission_id UUID PRIMARY KEY,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			id VARCHAR(64) NOT NULL,
			flags NUMERIC(78, 0) NOT NULL,
			platforms TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_id ON responses(id)`,
		`CREATE INDEX IF NOT EXISTS idx_responses_created_at ON responses(created_at)`,
	}
	for _, column := range answerColumns {
		queries = append(queries, fmt.Sprintf(
			`ALTER TABLE responses ADD COLUMN IF NOT EXISTS %s BOOLEAN NOT NULL DEFAULT FALSE`,
			pq.QuoteIdentifier(column),
		))
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("init responses table: %s: %w", strings.Fields(query)[0], err)
		}
	}

	logger.Info("✅ PostgreSQL tables initialized")
	return nil
}
