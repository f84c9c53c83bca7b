package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"todoapp/internal/model"
	"todoapp/pkg/logger"
	"todoapp/pkg/metrics"
)

const (
	minPasswordLength = 6
	// bcrypt.GenerateFromPassword rejects longer input
	maxPasswordBytes = 72
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type UserStore interface {
	CreateUser(ctx context.Context, u *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int) (*model.User, error)
}

type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

type AuthService struct {
	users      UserStore
	bcryptCost int
	logger     *zap.Logger
}

func NewAuthService(users UserStore, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new user.
func (s *AuthService) Register(ctx context.Context, in SignupInput) (*model.User, error) {
	log := logger.WithTrace(ctx, s.logger)

	var verr model.ValidationError
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = normalizeEmail(in.Email)

	if in.FirstName == "" {
		verr.Add("firstName", "First name is required")
	}
	if in.Email == "" {
		verr.Add("email", "Email is required")
	} else if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		verr.Add("email", "Email is not valid")
	}
	if in.Password == "" {
		verr.Add("password", "Password is required")
	} else if len(in.Password) < minPasswordLength {
		verr.Add("password", "Password must be at least 6 characters")
	} else if len(in.Password) > maxPasswordBytes {
		verr.Add("password", "Password must be at most 72 bytes")
	}
	if err := verr.OrNil(); err != nil {
		metrics.IncrementAuthAttempt("signup", "invalid")
		return nil, err
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	u := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			metrics.IncrementAuthAttempt("signup", "invalid")
			verr.Add("email", "Email is already registered")
			return nil, &verr
		}
		metrics.IncrementAuthAttempt("signup", "error")
		log.Error("Failed to create user", zap.Error(err))
		return nil, err
	}

	metrics.IncrementAuthAttempt("signup", "ok")
	log.Info("User registered", zap.Int("user_id", u.ID))
	return u, nil
}

// Login checks user credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.IncrementAuthAttempt("login", "denied")
			return nil, ErrInvalidCredentials
		}
		metrics.IncrementAuthAttempt("login", "error")
		return nil, err
	}

	if !CheckPassword(password, u.PasswordHash) {
		metrics.IncrementAuthAttempt("login", "denied")
		return nil, ErrInvalidCredentials
	}

	metrics.IncrementAuthAttempt("login", "ok")
	return u, nil
}

// User returns the user with id.
func (s *AuthService) User(ctx context.Context, id int) (*model.User, error) {
	return s.users.FindByID(ctx, id)
}
