package operator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresRepository struct {
	db *sql.DB
}

const (
	createOperatorsTable = `
		CREATE TABLE IF NOT EXISTS operators (
			username TEXT PRIMARY KEY,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	getOperatorQuery = `
		SELECT username, password_hash, created_at
		FROM operators
		WHERE username = $1
	`
	insertOperatorQuery = `
		INSERT INTO operators (username, password_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createOperatorsTable); err != nil {
		return fmt.Errorf("create operators table: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (Operator, error) {
	var op Operator
	err := r.db.QueryRowContext(ctx, getOperatorQuery, username).Scan(&op.Username, &op.PasswordHash, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Operator{}, ErrNotFound
	}
	if err != nil {
		return Operator{}, fmt.Errorf("get operator: %w", err)
	}
	return op, nil
}

func (r *PostgresRepository) Create(ctx context.Context, op Operator) error {
	res, err := r.db.ExecContext(ctx, insertOperatorQuery, op.Username, op.PasswordHash, op.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert operator: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrExists
	}
	return nil
}
