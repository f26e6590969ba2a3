// Package application provides use cases for the admin module.
package application

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"dustforce-relay/internal/module/admin/domain"
	"dustforce-relay/internal/shared/logger"
	"dustforce-relay/internal/shared/response"
)

// JWTManager issues and validates operator session tokens.
type JWTManager interface {
	GenerateTokenPair(operatorID string) (*domain.TokenPair, error)
	ValidateToken(token string) (string, error)
}

// UseCase handles operator authentication for the admin API.
type UseCase struct {
	operators domain.OperatorRepository
	jwtMgr    JWTManager
	logger    *logger.Logger
}

// NewUseCase creates a new admin auth use case.
func NewUseCase(operators domain.OperatorRepository, jwtMgr JWTManager, l *logger.Logger) *UseCase {
	return &UseCase{operators: operators, jwtMgr: jwtMgr, logger: l}
}

// RegisterRequest represents a request to provision a new operator account.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents an operator login request.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register provisions a new operator account.
func (uc *UseCase) Register(ctx context.Context, req RegisterRequest) (*domain.Operator, *domain.TokenPair, error) {
	existing, err := uc.operators.GetByUsername(ctx, req.Username)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to check operator existence: %v", err)
		return nil, nil, response.NewInternalError("registration failed", err)
	}
	if existing != nil {
		return nil, nil, response.NewConflictError("operator already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to hash password: %v", err)
		return nil, nil, response.NewInternalError("registration failed", err)
	}

	operator := &domain.Operator{Username: req.Username, PasswordHash: string(hashed)}
	if err := uc.operators.Create(ctx, operator); err != nil {
		uc.logger.Errorf(ctx, "Failed to create operator: %v", err)
		return nil, nil, response.NewInternalError("registration failed", err)
	}

	tokens, err := uc.jwtMgr.GenerateTokenPair(operator.ID)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to generate tokens: %v", err)
		return nil, nil, response.NewInternalError("registration failed", err)
	}

	uc.logger.Infof(ctx, "Operator registered: %s", operator.ID)
	return operator, tokens, nil
}

// Login authenticates an operator.
func (uc *UseCase) Login(ctx context.Context, req LoginRequest) (*domain.Operator, *domain.TokenPair, error) {
	operator, err := uc.operators.GetByUsername(ctx, req.Username)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to get operator: %v", err)
		return nil, nil, response.NewInternalError("login failed", err)
	}
	if operator == nil {
		return nil, nil, response.NewUnauthorizedError("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, response.NewUnauthorizedError("invalid credentials")
	}

	tokens, err := uc.jwtMgr.GenerateTokenPair(operator.ID)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to generate tokens: %v", err)
		return nil, nil, response.NewInternalError("login failed", err)
	}

	uc.logger.Infof(ctx, "Operator logged in: %s", operator.ID)
	return operator, tokens, nil
}

// RefreshToken issues a new token pair for the operator identified by a
// still-valid refresh token.
func (uc *UseCase) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	operatorID, err := uc.jwtMgr.ValidateToken(refreshToken)
	if err != nil {
		return nil, response.NewUnauthorizedError("invalid or expired refresh token")
	}

	operator, err := uc.operators.GetByID(ctx, operatorID)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to get operator: %v", err)
		return nil, response.NewInternalError("token refresh failed", err)
	}
	if operator == nil {
		return nil, response.NewUnauthorizedError("operator not found")
	}

	tokens, err := uc.jwtMgr.GenerateTokenPair(operator.ID)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to generate tokens: %v", err)
		return nil, response.NewInternalError("token refresh failed", err)
	}
	return tokens, nil
}

// Me returns the operator identified by id, used to back the admin API's
// "who am I" endpoint.
func (uc *UseCase) Me(ctx context.Context, operatorID string) (*domain.Operator, error) {
	operator, err := uc.operators.GetByID(ctx, operatorID)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to get operator: %v", err)
		return nil, response.NewInternalError("failed to load operator", err)
	}
	if operator == nil {
		return nil, response.NewUnauthorizedError("operator not found")
	}
	return operator, nil
}

// ValidateToken validates a bearer token and returns the operator id.
func (uc *UseCase) ValidateToken(ctx context.Context, token string) (string, error) {
	operatorID, err := uc.jwtMgr.ValidateToken(token)
	if err != nil {
		return "", response.NewUnauthorizedError("invalid or expired token")
	}

	operator, err := uc.operators.GetByID(ctx, operatorID)
	if err != nil {
		uc.logger.Errorf(ctx, "Failed to get operator: %v", err)
		return "", response.NewInternalError("token validation failed", err)
	}
	if operator == nil {
		return "", response.NewUnauthorizedError("operator not found")
	}

	return operatorID, nil
}
