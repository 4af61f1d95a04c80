package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"keepsake/internal/domain"
	"keepsake/internal/repository"
)

// UserService gestiona las cuentas de administracion.
type UserService struct {
	logger *zap.Logger
	users  repository.UserRepository
	roles  repository.RoleRepository
}

func NewUserService(logger *zap.Logger, users repository.UserRepository, roles repository.RoleRepository) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		logger: logger,
		users:  users,
		roles:  roles,
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = fmt.Errorf("%w: invalid email", ErrValidation)
	ErrWeakPassword       = fmt.Errorf("%w: password must have at least %d characters", ErrValidation, minPasswordLen)
	ErrRateLimited        = errors.New("rate limited")
	// ErrRoleGrantFailed indica que la cuenta quedo creada pero sin el rol.
	ErrRoleGrantFailed = errors.New("account created without role")
)

const minPasswordLen = 8

// CreateUser crea una cuenta con contraseña; no concede ningun rol.
func (s *UserService) CreateUser(ctx context.Context, email, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return domain.User{}, ErrWeakPassword
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hashBytes),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// CreateAdmin crea una cuenta y le concede el rol admin. Si la concesion
// falla la cuenta ya existe: devuelve el usuario junto a ErrRoleGrantFailed
// para que se reintente solo el rol con GrantRole.
func (s *UserService) CreateAdmin(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.CreateUser(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.roles.Grant(ctx, user.ID, domain.RoleAdmin); err != nil {
		s.logger.Error("admin role grant failed", zap.Error(err), zap.String("user_id", user.ID))
		return user, fmt.Errorf("%w: grant admin: %w", ErrRoleGrantFailed, err)
	}
	s.logger.Info("admin created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return user, nil
}

// GrantRole concede role al usuario con ese email.
func (s *UserService) GrantRole(ctx context.Context, email, role string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return fmt.Errorf("%w: role is required", ErrValidation)
	}
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	return s.roles.Grant(ctx, user.ID, role)
}

func (s *UserService) Authenticate(ctx context.Context, emailAddr, password string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("user service not configured")
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
