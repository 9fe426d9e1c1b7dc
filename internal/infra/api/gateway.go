package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/infra/i18n"
	"cardkey-service/internal/infra/logging"
	"cardkey-service/internal/infra/metrics"
	"cardkey-service/internal/infra/redis"
)

const APIKeyHeader = "X-API-Key"

type APISwitch interface {
	APIEnabled(ctx context.Context) (bool, error)
}

type KeyAuthenticator interface {
	Authenticate(ctx context.Context, key string) (*model.APIKey, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Gateway guards the verification endpoint: the API switch first, then the
// caller's API key, then the optional per-key rate limit.
type Gateway struct {
	settings  APISwitch
	keys      KeyAuthenticator
	limiter   Limiter
	perMinute int
	tr        *i18n.Translator
	log       *zerolog.Logger
	now       func() time.Time
}

func NewGateway(settings APISwitch, keys KeyAuthenticator, limiter Limiter, perMinute int, tr *i18n.Translator, logger *zerolog.Logger) *Gateway {
	return &Gateway{
		settings:  settings,
		keys:      keys,
		limiter:   limiter,
		perMinute: perMinute,
		tr:        tr,
		log:       logger,
		now:       time.Now,
	}
}

// presentedKey reads the header, or the api_key query parameter on GET only.
func presentedKey(r *http.Request) string {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("api_key")
	}
	return ""
}

func (g *Gateway) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := logging.With(ctx, g.log)

			enabled, err := g.settings.APIEnabled(ctx)
			if err != nil {
				log.Error().Err(err).Msg("read api switch")
				metrics.IncAPIKeyRequest("error")
				fail(w, r, CodeSystemError, g.tr.T(i18n.MsgSystemError))
				return
			}
			if !enabled {
				metrics.IncAPIKeyRequest("api_disabled")
				fail(w, r, CodeAPIDisabled, g.tr.T(i18n.MsgAPIDisabled))
				return
			}

			key, err := g.keys.Authenticate(ctx, presentedKey(r))
			switch {
			case errors.Is(err, domain.ErrAPIKeyNotFound), errors.Is(err, domain.ErrAPIKeyDisabled):
				fail(w, r, CodeBadAPIKey, g.tr.T(i18n.MsgAPIKeyInvalid))
				return
			case err != nil:
				log.Error().Err(err).Msg("authenticate api key")
				fail(w, r, CodeSystemError, g.tr.T(i18n.MsgSystemError))
				return
			}
			ctx = logging.WithAPIKeyID(ctx, key.ID)

			if g.limiter != nil && g.perMinute > 0 {
				ok, err := g.limiter.Allow(ctx, redis.VerifyClientKey(key.ID, g.now()), g.perMinute, time.Minute)
				if err != nil {
					log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
				} else if !ok {
					metrics.IncAPIKeyRequest("rate_limited")
					respond(w, r, http.StatusTooManyRequests, Response{Code: CodeSystemError, Message: g.tr.T(i18n.MsgRateLimited)})
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
