package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ouerghi0x/cv-maker-sub000/models"
	"github.com/ouerghi0x/cv-maker-sub000/repository"
)

var (
	// ErrUserExists is returned by Signup when the email is taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials is returned by Login on a bad email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AuthService owns account creation and session token issuance/verification.
type AuthService interface {
	Signup(email, password string) (*models.User, error)
	Login(email, password string) (string, *models.User, error)
	VerifyToken(token string) (*Principal, error)
	TokenTTL() time.Duration
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Signup creates the account with a bcrypt-hashed password and a starter
// "free" subscription row with a one-month trial end.
func (s *authService) Signup(email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	existing, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Email: email, Password: string(hashed)}
	if err := s.userRepo.CreateUser(user); err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		UserID:       user.ID,
		Plan:         "free",
		Status:       models.SubscriptionStatusActive,
		StartDate:    time.Now(),
		TrialEndDate: time.Now().AddDate(0, 1, 0),
	}
	if err := s.userRepo.CreateSubscription(sub); err != nil {
		// The account exists; a missing free-plan row only affects display.
		log.Printf("WARN: [AuthService] Failed to create starter subscription for user ID %d: %v", user.ID, err)
	}

	log.Printf("INFO: [AuthService] Signed up user ID %d ('%s').", user.ID, user.Email)
	return user, nil
}

// Login verifies the credentials and returns a signed session token.
func (s *authService) Login(email, password string) (string, *models.User, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"userId": user.ID,
		"email":  user.Email,
		"iat":    now.Unix(),
		"exp":    now.Add(s.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	log.Printf("INFO: [AuthService] User ID %d ('%s') logged in.", user.ID, user.Email)
	return token, user, nil
}

// VerifyToken parses and verifies a session token and decodes its
// Principal. Every failure mode (bad signature, expiry, malformed claims,
// missing userId) is an error; callers decide whether that means
// "unauthorized" or merely "anonymous".
func (s *authService) VerifyToken(tokenString string) (*Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("token claims are not well-formed")
	}

	rawUserID, ok := claims["userId"].(float64)
	if !ok || rawUserID <= 0 {
		return nil, errors.New("token payload is missing a user identifier")
	}
	email, _ := claims["email"].(string)

	return &Principal{UserID: uint(rawUserID), Email: email}, nil
}

// TokenTTL reports the configured session lifetime, used to set the cookie
// max-age alongside the JWT exp claim.
func (s *authService) TokenTTL() time.Duration {
	return s.tokenTTL
}
