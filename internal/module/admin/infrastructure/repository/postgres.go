// Package repository provides repository implementations for the admin module.
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dustforce-relay/internal/module/admin/domain"
)

// operatorDTO is the infrastructure-only row shape for the operators table.
type operatorDTO struct {
	ID           string
	Username     string
	PasswordHash string
}

// PostgresOperatorRepository implements domain.OperatorRepository using PostgreSQL.
type PostgresOperatorRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOperatorRepository creates a new PostgreSQL operator repository.
func NewPostgresOperatorRepository(pool *pgxpool.Pool) domain.OperatorRepository {
	return &PostgresOperatorRepository{pool: pool}
}

// Create creates a new operator account.
func (r *PostgresOperatorRepository) Create(ctx context.Context, operator *domain.Operator) error {
	dto := operatorDTO{ID: operator.ID, Username: operator.Username, PasswordHash: operator.PasswordHash}
	if dto.ID == "" {
		dto.ID = uuid.New().String()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO operators (id, username, password_hash) VALUES ($1, $2, $3)`,
		dto.ID, dto.Username, dto.PasswordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}

	operator.ID = dto.ID
	return nil
}

// GetByUsername retrieves an operator by username.
func (r *PostgresOperatorRepository) GetByUsername(ctx context.Context, username string) (*domain.Operator, error) {
	var dto operatorDTO
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash FROM operators WHERE username = $1`, username,
	).Scan(&dto.ID, &dto.Username, &dto.PasswordHash)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get operator by username: %w", err)
	}
	return &domain.Operator{ID: dto.ID, Username: dto.Username, PasswordHash: dto.PasswordHash}, nil
}

// GetByID retrieves an operator by id.
func (r *PostgresOperatorRepository) GetByID(ctx context.Context, id string) (*domain.Operator, error) {
	var dto operatorDTO
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash FROM operators WHERE id = $1`, id,
	).Scan(&dto.ID, &dto.Username, &dto.PasswordHash)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get operator by id: %w", err)
	}
	return &domain.Operator{ID: dto.ID, Username: dto.Username, PasswordHash: dto.PasswordHash}, nil
}
