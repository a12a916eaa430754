package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// schema holds the tables the service needs. The ledger tables carry
// explicit ids assigned by the arena counters; only users and
// refresh_tokens keep AUTO_INCREMENT because those ids are allocated by
// the database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		email         VARCHAR(255)    NOT NULL,
		password_hash VARCHAR(255)    NOT NULL,
		role          VARCHAR(16)     NOT NULL DEFAULT 'USER',
		created_at    DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME        NOT NULL,
		revoked_at DATETIME        NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_user (user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS restaurants (
		id         BIGINT UNSIGNED NOT NULL,
		name       TEXT            NOT NULL,
		location   TEXT            NOT NULL,
		owner_id   BIGINT UNSIGNED NOT NULL,
		is_active  BOOLEAN         NOT NULL DEFAULT TRUE,
		created_at DATETIME        NOT NULL,
		PRIMARY KEY (id)
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id            BIGINT UNSIGNED  NOT NULL,
		restaurant_id BIGINT UNSIGNED  NOT NULL,
		reviewer_id   BIGINT UNSIGNED  NOT NULL,
		food_quality  TINYINT UNSIGNED NOT NULL,
		service       TINYINT UNSIGNED NOT NULL,
		atmosphere    TINYINT UNSIGNED NOT NULL,
		price_value   TINYINT UNSIGNED NOT NULL,
		overall       TINYINT UNSIGNED NOT NULL,
		comment       TEXT             NOT NULL,
		is_verified   BOOLEAN          NOT NULL DEFAULT FALSE,
		created_at    DATETIME         NOT NULL,
		PRIMARY KEY (id),
		UNIQUE KEY uq_reviews_pair (restaurant_id, reviewer_id),
		KEY idx_reviews_reviewer (reviewer_id)
	)`,
}

// Migrate creates any missing tables. It is safe to run on every boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
