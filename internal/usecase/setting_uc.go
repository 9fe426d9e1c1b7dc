// File: internal/usecase/setting_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/domain/ports/repository"
	"cardkey-service/internal/infra/logging"
)

// Compile-time check
var _ SettingUseCase = (*settingUC)(nil)

type SettingUseCase interface {
	All(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, name string) (*model.Setting, error)
	Set(ctx context.Context, name, value string) error
	// SetMany upserts all values in one transaction.
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, name string) error
	// APIEnabled reports whether the public verification endpoint is switched on.
	APIEnabled(ctx context.Context) (bool, error)
	SeedDefaults(ctx context.Context) error
}

type settingUC struct {
	settings repository.SettingRepository
	tm       repository.TransactionManager

	log *zerolog.Logger
}

func NewSettingUseCase(settings repository.SettingRepository, tm repository.TransactionManager, logger *zerolog.Logger) *settingUC {
	return &settingUC{settings: settings, tm: tm, log: logger}
}

func (u *settingUC) All(ctx context.Context) (map[string]string, error) {
	list, err := u.settings.All(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, s := range list {
		out[s.Name] = s.Value
	}
	return out, nil
}

func (u *settingUC) Get(ctx context.Context, name string) (*model.Setting, error) {
	return u.settings.Get(ctx, repository.NoTX, strings.TrimSpace(name))
}

func (u *settingUC) Set(ctx context.Context, name, value string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: setting name is required", domain.ErrInvalidArgument)
	}
	if err := u.settings.Upsert(ctx, repository.NoTX, name, value); err != nil {
		return err
	}
	logging.With(ctx, u.log).Info().Str("setting", name).Msg("setting updated")
	return nil
}

func (u *settingUC) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: no settings given", domain.ErrInvalidArgument)
	}
	for name := range values {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: setting name is required", domain.ErrInvalidArgument)
		}
	}
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for name, value := range values {
			if err := u.settings.Upsert(ctx, tx, strings.TrimSpace(name), value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	logging.With(ctx, u.log).Info().Int("count", len(values)).Msg("settings updated")
	return nil
}

func (u *settingUC) Delete(ctx context.Context, name string) error {
	return u.settings.Delete(ctx, repository.NoTX, strings.TrimSpace(name))
}

func (u *settingUC) APIEnabled(ctx context.Context) (bool, error) {
	s, err := u.settings.Get(ctx, repository.NoTX, model.SettingAPIEnabled)
	if errors.Is(err, domain.ErrSettingNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(s.Value) == "1", nil
}

func (u *settingUC) SeedDefaults(ctx context.Context) error {
	return u.settings.InsertMissing(ctx, repository.NoTX, model.DefaultSettings())
}
