package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"dustforce-relay/internal/module/admin/domain"
	"dustforce-relay/internal/shared/logger"
)

type fakeOperatorRepo struct {
	byUsername map[string]*domain.Operator
	byID       map[string]*domain.Operator
}

func newFakeOperatorRepo() *fakeOperatorRepo {
	return &fakeOperatorRepo{byUsername: map[string]*domain.Operator{}, byID: map[string]*domain.Operator{}}
}

func (r *fakeOperatorRepo) Create(_ context.Context, operator *domain.Operator) error {
	if operator.ID == "" {
		operator.ID = "op-" + operator.Username
	}
	r.byUsername[operator.Username] = operator
	r.byID[operator.ID] = operator
	return nil
}

func (r *fakeOperatorRepo) GetByUsername(_ context.Context, username string) (*domain.Operator, error) {
	return r.byUsername[username], nil
}

func (r *fakeOperatorRepo) GetByID(_ context.Context, id string) (*domain.Operator, error) {
	return r.byID[id], nil
}

type fakeJWTManager struct {
	byToken map[string]string
	counter int
}

func newFakeJWTManager() *fakeJWTManager {
	return &fakeJWTManager{byToken: map[string]string{}}
}

func (m *fakeJWTManager) GenerateTokenPair(operatorID string) (*domain.TokenPair, error) {
	m.counter++
	access := operatorID + "-access"
	refresh := operatorID + "-refresh"
	m.byToken[access] = operatorID
	m.byToken[refresh] = operatorID
	return &domain.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(15 * time.Minute / time.Second)}, nil
}

func (m *fakeJWTManager) ValidateToken(token string) (string, error) {
	id, ok := m.byToken[token]
	if !ok {
		return "", assert.AnError
	}
	return id, nil
}

func newTestUseCase() (*UseCase, *fakeOperatorRepo, *fakeJWTManager) {
	repo := newFakeOperatorRepo()
	jwtMgr := newFakeJWTManager()
	l := logger.New("error", false)
	return NewUseCase(repo, jwtMgr, l), repo, jwtMgr
}

func TestUseCase_Register_CreatesOperatorAndReturnsTokens(t *testing.T) {
	uc, repo, _ := newTestUseCase()

	operator, tokens, err := uc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "alice", operator.Username)
	assert.NotEmpty(t, tokens.AccessToken)

	stored := repo.byUsername["alice"]
	require.NotNil(t, stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter22")))
}

func TestUseCase_Register_RejectsDuplicateUsername(t *testing.T) {
	uc, _, _ := newTestUseCase()

	_, _, err := uc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	_, _, err = uc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "different1"})
	assert.Error(t, err)
}

func TestUseCase_Login_Success(t *testing.T) {
	uc, _, _ := newTestUseCase()
	_, _, err := uc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	operator, tokens, err := uc.Login(context.Background(), LoginRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "alice", operator.Username)
	assert.NotEmpty(t, tokens.AccessToken)
}

func TestUseCase_Login_WrongPasswordRejected(t *testing.T) {
	uc, _, _ := newTestUseCase()
	_, _, err := uc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	_, _, err = uc.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrongpass"})
	assert.Error(t, err)
}

func TestUseCase_Login_UnknownUsernameRejected(t *testing.T) {
	uc, _, _ := newTestUseCase()

	_, _, err := uc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "whatever1"})
	assert.Error(t, err)
}

func TestUseCase_ValidateToken_RoundTripsOperatorID(t *testing.T) {
	uc, _, _ := newTestUseCase()
	operator, tokens, err := uc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	operatorID, err := uc.ValidateToken(context.Background(), tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, operator.ID, operatorID)
}

func TestUseCase_RefreshToken_IssuesFreshTokenPair(t *testing.T) {
	uc, _, _ := newTestUseCase()
	_, tokens, err := uc.Register(context.Background(), RegisterRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	fresh, err := uc.RefreshToken(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.AccessToken)
}
