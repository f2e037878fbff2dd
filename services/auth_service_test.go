package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/ouerghi0x/cv-maker-sub000/models"
)

// MockUserRepository is a mock type for the UserRepository interface.
// Shared by the auth and entitlement service tests in this package.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByID(userID uint) (*models.User, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) CreateSubscription(sub *models.Subscription) error {
	args := m.Called(sub)
	return args.Error(0)
}

func (m *MockUserRepository) HasActiveSubscription(userID uint) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) IncrementFreeTrialUsed(userID uint) error {
	args := m.Called(userID)
	return args.Error(0)
}

const testSecret = "unit-test-secret"

func TestAuthService_Signup(t *testing.T) {
	t.Run("Creates the user with a hashed password and a starter subscription", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testSecret, 7*24*time.Hour)

		repo.On("FindByEmail", "new@example.com").Return(nil, nil)
		repo.On("CreateUser", mock.MatchedBy(func(u *models.User) bool {
			// The stored password must be a hash, never the plaintext.
			return u.Email == "new@example.com" &&
				u.Password != "hunter22" &&
				bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("hunter22")) == nil
		})).Run(func(args mock.Arguments) {
			args.Get(0).(*models.User).ID = 7
		}).Return(nil)
		repo.On("CreateSubscription", mock.MatchedBy(func(s *models.Subscription) bool {
			return s.UserID == 7 && s.Plan == "free" && s.Status == models.SubscriptionStatusActive
		})).Return(nil)

		user, err := svc.Signup("new@example.com", "hunter22")

		assert.NoError(t, err)
		assert.Equal(t, uint(7), user.ID)
		repo.AssertExpectations(t)
	})

	t.Run("Duplicate email is rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testSecret, 7*24*time.Hour)

		repo.On("FindByEmail", "taken@example.com").Return(&models.User{ID: 1, Email: "taken@example.com"}, nil)

		user, err := svc.Signup("taken@example.com", "pw")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrUserExists)
		repo.AssertNotCalled(t, "CreateUser", mock.Anything)
	})

	t.Run("Empty credentials are rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testSecret, 7*24*time.Hour)

		_, err := svc.Signup("", "")
		assert.Error(t, err)
	})
}

func TestAuthService_Login(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	stored := &models.User{ID: 7, Email: "new@example.com", Password: string(hashed)}

	t.Run("Valid credentials produce a verifiable token", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testSecret, 7*24*time.Hour)

		repo.On("FindByEmail", "new@example.com").Return(stored, nil)

		token, user, err := svc.Login("new@example.com", "hunter22")

		assert.NoError(t, err)
		assert.Equal(t, uint(7), user.ID)

		principal, err := svc.VerifyToken(token)
		assert.NoError(t, err)
		assert.Equal(t, uint(7), principal.UserID)
		assert.Equal(t, "new@example.com", principal.Email)
	})

	t.Run("Wrong password is rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testSecret, 7*24*time.Hour)

		repo.On("FindByEmail", "new@example.com").Return(stored, nil)

		token, user, err := svc.Login("new@example.com", "wrong")

		assert.Empty(t, token)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown email is rejected with the same error", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc := NewAuthService(repo, testSecret, 7*24*time.Hour)

		repo.On("FindByEmail", "nobody@example.com").Return(nil, nil)

		_, _, err := svc.Login("nobody@example.com", "pw")

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_VerifyToken(t *testing.T) {
	repo := new(MockUserRepository)
	svc := NewAuthService(repo, testSecret, 7*24*time.Hour)

	signToken := func(secret string, claims jwt.MapClaims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		assert.NoError(t, err)
		return token
	}

	t.Run("Expired token is rejected", func(t *testing.T) {
		token := signToken(testSecret, jwt.MapClaims{
			"userId": 7,
			"exp":    time.Now().Add(-time.Hour).Unix(),
		})
		principal, err := svc.VerifyToken(token)
		assert.Nil(t, principal)
		assert.Error(t, err)
	})

	t.Run("Token signed with a different secret is rejected", func(t *testing.T) {
		token := signToken("other-secret", jwt.MapClaims{
			"userId": 7,
			"exp":    time.Now().Add(time.Hour).Unix(),
		})
		principal, err := svc.VerifyToken(token)
		assert.Nil(t, principal)
		assert.Error(t, err)
	})

	t.Run("Token without a user identifier is rejected", func(t *testing.T) {
		token := signToken(testSecret, jwt.MapClaims{
			"email": "a@b.c",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		principal, err := svc.VerifyToken(token)
		assert.Nil(t, principal)
		assert.Error(t, err)
	})

	t.Run("Garbage token is rejected", func(t *testing.T) {
		principal, err := svc.VerifyToken("not-a-jwt")
		assert.Nil(t, principal)
		assert.Error(t, err)
	})
}
