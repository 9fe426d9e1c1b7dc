package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"cardkey-service/internal/config"
	"cardkey-service/internal/domain"
	ucport "cardkey-service/internal/domain/ports/usecase"
	"cardkey-service/internal/infra/i18n"
	"cardkey-service/internal/infra/logging"
)

// Server exposes the public verification API.
type Server struct {
	verifier ucport.Verifier
	keys     KeyAuthenticator
	gateway  *Gateway
	tr       *i18n.Translator
	log      *zerolog.Logger
	now      func() time.Time
}

func NewServer(verifier ucport.Verifier, keys KeyAuthenticator, gateway *Gateway, tr *i18n.Translator, logger *zerolog.Logger) *Server {
	return &Server{verifier: verifier, keys: keys, gateway: gateway, tr: tr, log: logger, now: time.Now}
}

// Register attaches the public routes under /api.
func (s *Server) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(s.gateway.Middleware())
		r.Get("/verify", s.handleVerify)
		r.Post("/verify", s.handleVerify)
	})
	r.Post("/verify-api-key", s.handleVerifyAPIKey)
	r.Get("/health", s.handleHealth)
}

// Mounter registers a route group under /api, e.g. the admin surface.
type Mounter interface {
	Register(r chi.Router)
}

// NewRouter builds the root handler: shared middlewares, CORS, /metrics and
// every mounted group under /api.
func NewRouter(cfg config.ServerConfig, logger *zerolog.Logger, systemMsg string, groups ...Mounter) http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		RequestLog(logger),
		Recover(logger, systemMsg),
		Timeout(cfg.WriteTimeout),
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", APIKeyHeader, TraceHeader},
		ExposedHeaders:   []string{TraceHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		for _, g := range groups {
			g.Register(r)
		}
	})
	return r
}

type apiKeyData struct {
	KeyName  string `json:"key_name"`
	UseCount int64  `json:"use_count"`
}

func (s *Server) handleVerifyAPIKey(w http.ResponseWriter, r *http.Request) {
	presented := r.Header.Get(APIKeyHeader)
	if presented == "" {
		respond(w, r, http.StatusUnauthorized, Response{Code: http.StatusUnauthorized, Message: s.tr.T(i18n.MsgAPIKeyMissing)})
		return
	}
	k, err := s.keys.Authenticate(r.Context(), presented)
	switch {
	case errors.Is(err, domain.ErrAPIKeyNotFound):
		respond(w, r, http.StatusUnauthorized, Response{Code: http.StatusUnauthorized, Message: s.tr.T(i18n.MsgAPIKeyInvalid)})
		return
	case errors.Is(err, domain.ErrAPIKeyDisabled):
		respond(w, r, http.StatusForbidden, Response{Code: http.StatusForbidden, Message: s.tr.T(i18n.MsgAPIKeyDisabled)})
		return
	case err != nil:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("verify api key")
		respond(w, r, http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Message: s.tr.T(i18n.MsgSystemError)})
		return
	}
	respond(w, r, http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: s.tr.T(i18n.MsgAPIKeyValid),
		Data:    apiKeyData{KeyName: k.Name, UseCount: k.UseCount},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: s.tr.T(i18n.MsgHealthy),
		Data: map[string]string{
			"status":    "ok",
			"timestamp": s.now().UTC().Format(time.RFC3339),
		},
	})
}
