package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
    CREATE TABLE IF NOT EXISTS users (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        email VARCHAR(255) NOT NULL UNIQUE,
        password_hash VARCHAR(255) NOT NULL,
        nickname VARCHAR(32) NOT NULL,
        role VARCHAR(16) NOT NULL DEFAULT 'USER',
        created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
        updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6)
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
	{"todos", `
    CREATE TABLE IF NOT EXISTS todos (
        id BIGINT AUTO_INCREMENT PRIMARY KEY,
        user_id BIGINT NOT NULL,
        title VARCHAR(255) NOT NULL,
        contents TEXT NOT NULL,
        weather VARCHAR(64) NOT NULL,
        created_at DATETIME(6) NOT NULL,
        modified_at DATETIME(6) NOT NULL,
        INDEX idx_todos_owner_modified (user_id, modified_at),
        INDEX idx_todos_owner_weather (user_id, weather),
        CONSTRAINT fk_todos_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
    ) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`},
}

// Migrate creates the tables used by the service when they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, s := range schema {
		if _, err := db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", s.name, err)
		}
	}
	return nil
}
