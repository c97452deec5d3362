package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// AuthService handles registration, login, and credential checks
type AuthService struct {
	store     *store.Store
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store *store.Store, jwtSecret string, tokenTTLHours int) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: jwtSecret,
		tokenTTL:  time.Duration(tokenTTLHours) * time.Hour,
		logger:    util.GetLogger(),
	}
}

// RegisterRequest represents a registration payload. A role field is
// accepted for wire compatibility but never honored: every self-registration
// gets the customer role.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"`
}

// LoginRequest represents a login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries a fresh session token and the public user fields
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates a user and issues a session token. Duplicate emails are
// rejected case-insensitively.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         models.RoleCustomer,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if isDuplicate(err) {
			return nil, invalidf("Email already registered.")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	util.UsersRegisteredTotal.Inc()
	s.logger.Info("User registered", zap.Int64("user_id", user.ID))

	return s.issueToken(user)
}

// Login verifies credentials and issues a fresh session token. Unknown email
// and wrong password produce the same error.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		util.LoginFailuresTotal.Inc()
		return nil, unauthorizedf("Invalid email or password.")
	}

	return s.issueToken(user)
}

func (s *AuthService) issueToken(user *models.User) (*AuthResponse, error) {
	token, err := auth.CreateToken(user.ID, user.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// Authenticate verifies a bearer token and returns the acting user's id
func (s *AuthService) Authenticate(tokenString string) (int64, error) {
	userID, err := auth.VerifyToken(tokenString, s.jwtSecret)
	if err != nil {
		return 0, unauthorizedf("Invalid or expired token.")
	}
	return userID, nil
}

// IsAdmin reports whether the user currently holds the admin role. The role
// is read from the store, not the token, so demotions take effect
// immediately.
func (s *AuthService) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	role, err := s.store.GetUserRole(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to look up role: %w", err)
	}
	return role == models.RoleAdmin, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, store.ErrDuplicate)
}
