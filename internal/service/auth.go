package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/store"
	"github.com/maktabahq/maktaba/internal/validate"
)

// SessionPrincipal is the identity carried by a validated session token.
type SessionPrincipal struct {
	UserID string
	Email  string
}

// AuthService handles user signup, login, and session token validation for
// the management API. Sessions are stateless HS256 JWTs.
type AuthService struct {
	store     *store.Store
	jwtSecret []byte
	jwtExpiry time.Duration
}

// NewAuthService creates an AuthService. expiry bounds the lifetime of
// issued session tokens.
func NewAuthService(st *store.Store, jwtSecret string, expiry time.Duration) *AuthService {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &AuthService{
		store:     st,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: expiry,
	}
}

// Signup validates and creates a new user account.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validate.Email(email); err != nil {
		return nil, err
	}
	if err := validate.Password(password); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login checks credentials and returns a signed session token together with
// the user. Unknown emails and wrong passwords are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user.ID, user.Email)
	if err != nil {
		return "", nil, err
	}

	// Last-login bookkeeping must not fail the login.
	go s.store.UpdateUserLastLogin(context.Background(), user.ID)

	return token, user, nil
}

// IssueToken creates a signed session JWT for the given user.
func (s *AuthService) IssueToken(userID, email string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiry)),
			Issuer:    "maktaba",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// SessionTTL reports the lifetime of newly issued session tokens.
func (s *AuthService) SessionTTL() time.Duration {
	return s.jwtExpiry
}

// ValidateSession verifies a session token and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, tokenStr string) (*SessionPrincipal, error) {
	claims := &sessionClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return &SessionPrincipal{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

type sessionClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
