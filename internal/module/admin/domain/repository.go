package domain

import "context"

// OperatorRepository defines the interface for operator account storage.
type OperatorRepository interface {
	Create(ctx context.Context, operator *Operator) error
	GetByUsername(ctx context.Context, username string) (*Operator, error)
	GetByID(ctx context.Context, id string) (*Operator, error)
}
