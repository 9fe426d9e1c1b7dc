// File: internal/usecase/apikey_uc.go
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
	"cardkey-service/internal/infra/security"
)

// Compile-time check
var _ APIKeyUseCase = (*apiKeyUC)(nil)

const (
	APIKeyLength       = 32
	apiKeyRecentWindow = 24 * time.Hour
)

type APIKeyPage struct {
	Keys  []*model.APIKey
	Total int64
	Page  int
	Limit int
}

type APIKeyUseCase interface {
	List(ctx context.Context, f model.APIKeyFilter, page, limit int) (*APIKeyPage, error)
	Create(ctx context.Context, name, description string) (*model.APIKey, error)
	SetStatus(ctx context.Context, id string, status model.APIKeyStatus) error
	Delete(ctx context.Context, id string) error
	// Rotate issues a new secret for the key and resets its counters.
	Rotate(ctx context.Context, id string) (*model.APIKey, error)
	Stats(ctx context.Context) (model.APIKeyCounts, error)
	// Authenticate checks a presented key and records one use. The returned
	// key carries the post-increment use count.
	Authenticate(ctx context.Context, key string) (*model.APIKey, error)
}

type apiKeyUC struct {
	keys repository.APIKeyRepository
	now  func() time.Time

	log *zerolog.Logger
}

func NewAPIKeyUseCase(keys repository.APIKeyRepository, logger *zerolog.Logger) *apiKeyUC {
	return &apiKeyUC{keys: keys, now: time.Now, log: logger}
}

func (u *apiKeyUC) List(ctx context.Context, f model.APIKeyFilter, page, limit int) (*APIKeyPage, error) {
	page, limit = normalizePage(page, limit)
	f.Offset = (page - 1) * limit
	f.Limit = limit
	keys, err := u.keys.List(ctx, repository.NoTX, f)
	if err != nil {
		return nil, err
	}
	total, err := u.keys.Count(ctx, repository.NoTX, f)
	if err != nil {
		return nil, err
	}
	return &APIKeyPage{Keys: keys, Total: total, Page: page, Limit: limit}, nil
}

func (u *apiKeyUC) Create(ctx context.Context, name, description string) (*model.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: key_name is required", domain.ErrInvalidArgument)
	}
	exists, err := u.keys.ExistsByName(ctx, repository.NoTX, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyExists
	}
	secret, err := security.RandomString(APIKeyLength)
	if err != nil {
		return nil, err
	}
	k, err := model.NewAPIKey(name, secret, strings.TrimSpace(description))
	if err != nil {
		return nil, err
	}
	if err := u.keys.Create(ctx, repository.NoTX, k); err != nil {
		metrics.IncAdminAction("api_key_create", "error")
		return nil, err
	}
	metrics.IncAdminAction("api_key_create", "ok")
	logging.With(ctx, u.log).Info().Str("api_key_id", k.ID).Str("key_name", k.Name).Msg("api key created")
	return k, nil
}

func (u *apiKeyUC) SetStatus(ctx context.Context, id string, status model.APIKeyStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: status must be 0 or 1", domain.ErrInvalidArgument)
	}
	err := u.keys.SetStatus(ctx, repository.NoTX, id, status)
	u.record(ctx, "api_key_status", id, err)
	return err
}

func (u *apiKeyUC) Delete(ctx context.Context, id string) error {
	err := u.keys.Delete(ctx, repository.NoTX, id)
	u.record(ctx, "api_key_delete", id, err)
	return err
}

func (u *apiKeyUC) Rotate(ctx context.Context, id string) (*model.APIKey, error) {
	secret, err := security.RandomString(APIKeyLength)
	if err != nil {
		return nil, err
	}
	if err := u.keys.Rotate(ctx, repository.NoTX, id, secret); err != nil {
		u.record(ctx, "api_key_reset", id, err)
		return nil, err
	}
	u.record(ctx, "api_key_reset", id, nil)
	return u.keys.FindByID(ctx, repository.NoTX, id)
}

func (u *apiKeyUC) Stats(ctx context.Context) (model.APIKeyCounts, error) {
	return u.keys.Stats(ctx, repository.NoTX, u.now().Add(-apiKeyRecentWindow))
}

func (u *apiKeyUC) Authenticate(ctx context.Context, key string) (*model.APIKey, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		metrics.IncAPIKeyRequest("missing_key")
		return nil, domain.ErrAPIKeyNotFound
	}
	k, err := u.keys.FindByKey(ctx, repository.NoTX, key)
	if err != nil {
		if errors.Is(err, domain.ErrAPIKeyNotFound) {
			metrics.IncAPIKeyRequest("bad_key")
		} else {
			metrics.IncAPIKeyRequest("error")
		}
		return nil, err
	}
	if !k.Enabled() {
		metrics.IncAPIKeyRequest("disabled_key")
		return nil, domain.ErrAPIKeyDisabled
	}
	now := u.now()
	n, err := u.keys.RecordUse(ctx, repository.NoTX, k.ID, now)
	if err != nil {
		metrics.IncAPIKeyRequest("error")
		return nil, err
	}
	k.UseCount = n
	k.LastUseTime = &now
	metrics.IncAPIKeyRequest("ok")
	return k, nil
}

func (u *apiKeyUC) record(ctx context.Context, action, id string, err error) {
	log := logging.With(ctx, u.log)
	if err != nil {
		metrics.IncAdminAction(action, "error")
		log.Warn().Err(err).Str("action", action).Str("api_key_id", id).Msg("api key action failed")
		return
	}
	metrics.IncAdminAction(action, "ok")
	log.Info().Str("action", action).Str("api_key_id", id).Msg("api key action")
}
