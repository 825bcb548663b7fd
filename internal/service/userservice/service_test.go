package userservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
	"pololo/internal/service/userservice"
)

// MockUserRepository é uma implementação mock da interface UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, role domain.UserRole) error {
	args := m.Called(ctx, id, passwordHash, role)
	return args.Error(0)
}

// MockTokenService é uma implementação mock do TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateToken(userID string, email string, userRole string) (string, error) {
	args := m.Called(userID, email, userRole)
	return args.String(0), args.Error(1)
}

func hashOf(t *testing.T, password string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLogin_Success(t *testing.T) {
	repo := new(MockUserRepository)
	tokens := new(MockTokenService)
	svc := userservice.NewService(repo, tokens, logger.Nop())

	repo.On("FindByEmail", mock.Anything, "admin@pololo.com").Return(domain.User{
		ID: 1, Email: "admin@pololo.com", PasswordHash: hashOf(t, "segredo123"), Role: domain.RoleAdmin,
	}, nil)
	tokens.On("GenerateToken", "1", "admin@pololo.com", "admin").Return("jwt-token", nil)

	token, err := svc.Login(context.Background(), "admin@pololo.com", "segredo123")

	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)
	tokens.AssertExpectations(t)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	repo := new(MockUserRepository)
	tokens := new(MockTokenService)
	svc := userservice.NewService(repo, tokens, logger.Nop())

	repo.On("FindByEmail", mock.Anything, "admin@pololo.com").Return(domain.User{
		ID: 1, PasswordHash: hashOf(t, "segredo123"), Role: domain.RoleAdmin,
	}, nil)
	repo.On("FindByEmail", mock.Anything, "ninguem@pololo.com").Return(domain.User{}, apperror.NewNotFoundError("x"))

	_, err := svc.Login(context.Background(), "admin@pololo.com", "errada")
	assert.IsType(t, &apperror.UnauthorizedError{}, err)

	_, err = svc.Login(context.Background(), "ninguem@pololo.com", "qualquer")
	assert.IsType(t, &apperror.UnauthorizedError{}, err)

	_, err = svc.Login(context.Background(), "", "")
	assert.IsType(t, &apperror.UnauthorizedError{}, err)

	tokens.AssertNotCalled(t, "GenerateToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestLogin_RepositoryFailure(t *testing.T) {
	repo := new(MockUserRepository)
	svc := userservice.NewService(repo, new(MockTokenService), logger.Nop())

	repo.On("FindByEmail", mock.Anything, mock.Anything).Return(domain.User{}, apperror.NewDBError("falha", errors.New("timeout")))

	_, err := svc.Login(context.Background(), "admin@pololo.com", "segredo123")

	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestEnsureAdmin_CreatesWhenMissing(t *testing.T) {
	repo := new(MockUserRepository)
	svc := userservice.NewService(repo, new(MockTokenService), logger.Nop()).WithCost(bcrypt.MinCost)

	repo.On("FindByEmail", mock.Anything, "admin@pololo.com").Return(domain.User{}, apperror.NewNotFoundError("x"))
	repo.On("Save", mock.Anything, mock.MatchedBy(func(u domain.User) bool {
		return u.Email == "admin@pololo.com" && u.Role == domain.RoleAdmin &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("segredo123")) == nil
	})).Return(domain.User{ID: 1, Email: "admin@pololo.com", Role: domain.RoleAdmin}, nil)

	user, created, err := svc.EnsureAdmin(context.Background(), " Admin@Pololo.com ", "segredo123")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), user.ID)
	repo.AssertExpectations(t)
}

func TestEnsureAdmin_ResetsExisting(t *testing.T) {
	repo := new(MockUserRepository)
	svc := userservice.NewService(repo, new(MockTokenService), logger.Nop()).WithCost(bcrypt.MinCost)

	repo.On("FindByEmail", mock.Anything, "admin@pololo.com").Return(domain.User{ID: 9, Email: "admin@pololo.com", Role: domain.RoleUser}, nil)
	repo.On("UpdatePassword", mock.Anything, int64(9), mock.AnythingOfType("string"), domain.RoleAdmin).Return(nil)

	user, created, err := svc.EnsureAdmin(context.Background(), "admin@pololo.com", "segredo123")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, domain.RoleAdmin, user.Role)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestEnsureAdmin_ShortPassword(t *testing.T) {
	repo := new(MockUserRepository)
	svc := userservice.NewService(repo, new(MockTokenService), logger.Nop())

	_, _, err := svc.EnsureAdmin(context.Background(), "admin@pololo.com", "curta")

	assert.IsType(t, &apperror.ValidationError{}, err)
	repo.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}
