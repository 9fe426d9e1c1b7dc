package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
	"cardkey-service/internal/infra/logging"
	"cardkey-service/internal/infra/metrics"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

const MinPasswordLength = 6

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}

type AuthUseCase interface {
	// Login checks credentials and stamps the last login time.
	Login(ctx context.Context, username, password string) (*model.Admin, error)
	ChangePassword(ctx context.Context, adminID, oldPassword, newPassword string) error
	// EnsureAdmin creates the bootstrap admin when no admin exists yet.
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
}

type authUC struct {
	admins repository.AdminRepository
	hasher PasswordHasher
	now    func() time.Time

	log *zerolog.Logger
}

func NewAuthUseCase(admins repository.AdminRepository, hasher PasswordHasher, logger *zerolog.Logger) *authUC {
	return &authUC{admins: admins, hasher: hasher, now: time.Now, log: logger}
}

func (u *authUC) Login(ctx context.Context, username, password string) (*model.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidArgument)
	}
	a, err := u.admins.FindByUsername(ctx, repository.NoTX, username)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncAdminAction("login", "denied")
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := u.hasher.Compare(a.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IncAdminAction("login", "denied")
		logging.With(ctx, u.log).Warn().Str("username", username).Msg("admin login rejected")
		return nil, domain.ErrInvalidCredentials
	}
	now := u.now()
	if err := u.admins.TouchLogin(ctx, repository.NoTX, a.ID, now); err != nil {
		logging.With(ctx, u.log).Warn().Err(err).Str("admin_id", a.ID).Msg("touch last login")
	} else {
		a.LastLogin = &now
	}
	metrics.IncAdminAction("login", "ok")
	return a, nil
}

func (u *authUC) ChangePassword(ctx context.Context, adminID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: old and new password are required", domain.ErrInvalidArgument)
	}
	if len(newPassword) < MinPasswordLength {
		return fmt.Errorf("%w: new password must be at least %d characters", domain.ErrInvalidArgument, MinPasswordLength)
	}
	a, err := u.admins.FindByID(ctx, repository.NoTX, adminID)
	if err != nil {
		return err
	}
	ok, err := u.hasher.Compare(a.PasswordHash, oldPassword)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrWrongPassword
	}
	hash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := u.admins.UpdatePassword(ctx, repository.NoTX, a.ID, hash); err != nil {
		return err
	}
	metrics.IncAdminAction("change_password", "ok")
	logging.With(ctx, u.log).Info().Str("admin_id", a.ID).Msg("admin password changed")
	return nil
}

func (u *authUC) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	n, err := u.admins.Count(ctx, repository.NoTX)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if len(password) < MinPasswordLength {
		return false, fmt.Errorf("%w: bootstrap password must be at least %d characters", domain.ErrInvalidArgument, MinPasswordLength)
	}
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return false, err
	}
	a, err := model.NewAdmin("", username, hash)
	if err != nil {
		return false, err
	}
	if err := u.admins.Save(ctx, repository.NoTX, a); err != nil {
		return false, err
	}
	logging.With(ctx, u.log).Info().Str("username", a.Username).Msg("bootstrap admin created")
	return true, nil
}
