package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/maxicoach/backend/internal/storage/models"
	"github.com/maxicoach/backend/internal/storage/sqlite"
	"github.com/maxicoach/backend/pkg/logger"
)

var (
	ErrUserNotFound           = errors.New("usuario no encontrado")
	ErrInvalidPassword        = errors.New("contraseña incorrecta")
	ErrPasswordChangeRequired = errors.New("password change required")
	ErrPasswordMismatch       = errors.New("las nuevas contraseñas no coinciden")
	ErrPasswordTooShort       = errors.New("la nueva contraseña es demasiado corta")
	ErrNoAccess               = errors.New("user has no coach access")
)

// PasswordStore keeps the bcrypt hash of passwords users chose themselves.
type PasswordStore interface {
	GetPasswordHash(ctx context.Context, username string) (string, error)
	SetPasswordHash(ctx context.Context, o *models.PasswordOverride) error
}

type Service struct {
	users         *Directory
	passwords     PasswordStore
	resetPassword string
	minPassword   int
}

func NewService(users *Directory, passwords PasswordStore, resetPassword string, minPassword int) *Service {
	if minPassword <= 0 {
		minPassword = 4
	}
	return &Service{
		users:         users,
		passwords:     passwords,
		resetPassword: resetPassword,
		minPassword:   minPassword,
	}
}

// Login checks the credentials. Until the user has chosen a password,
// entering the reset password never logs in; it returns
// ErrPasswordChangeRequired so the caller can ask for a new one.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	user, ok := s.users.Find(username)
	if !ok {
		return nil, ErrUserNotFound
	}

	hash, chosen, err := s.storedHash(ctx, user)
	if err != nil {
		return nil, err
	}
	if !chosen && s.isReset(password) {
		logger.Info("Password change requested", zap.String("username", user.Username))
		return nil, ErrPasswordChangeRequired
	}

	if err := verify(user, hash, chosen, password); err != nil {
		return nil, err
	}
	if !user.HasAccess() {
		return nil, ErrNoAccess
	}

	logger.Info("User logged in", zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return &user, nil
}

// storedHash returns the hash of the password the user chose, if any.
func (s *Service) storedHash(ctx context.Context, user User) (string, bool, error) {
	hash, err := s.passwords.GetPasswordHash(ctx, user.Username)
	switch {
	case errors.Is(err, sqlite.ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to load password: %w", err)
	}
	return hash, true, nil
}

func (s *Service) isReset(password string) bool {
	return s.resetPassword != "" && password == s.resetPassword
}

func verify(user User, hash string, chosen bool, password string) error {
	if !chosen {
		if password != user.Password {
			return ErrInvalidPassword
		}
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// ChangePassword stores a new password and logs the user in. The reset
// password stands in for current only until the user has chosen a password;
// after that current must be the chosen one.
func (s *Service) ChangePassword(ctx context.Context, username, current, newPassword, confirm string) (*User, error) {
	user, ok := s.users.Find(username)
	if !ok {
		return nil, ErrUserNotFound
	}

	hash, chosen, err := s.storedHash(ctx, user)
	if err != nil {
		return nil, err
	}
	if chosen || !s.isReset(current) {
		if err := verify(user, hash, chosen, current); err != nil {
			return nil, err
		}
	}
	if newPassword != confirm {
		return nil, ErrPasswordMismatch
	}
	if len([]rune(newPassword)) < s.minPassword {
		return nil, ErrPasswordTooShort
	}
	if !user.HasAccess() {
		return nil, ErrNoAccess
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.passwords.SetPasswordHash(ctx, &models.PasswordOverride{
		Username:     user.Username,
		PasswordHash: string(newHash),
	}); err != nil {
		return nil, err
	}

	logger.Info("Password changed", zap.String("username", user.Username))
	return &user, nil
}
