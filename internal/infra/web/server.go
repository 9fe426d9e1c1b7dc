package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"cardkey-service/internal/usecase"
)

// Server is the admin surface under /api/admin.
type Server struct {
	auth       *AuthManager
	authUC     usecase.AuthUseCase
	cardUC     usecase.CardUseCase
	apiKeyUC   usecase.APIKeyUseCase
	settingUC  usecase.SettingUseCase
	statsUC    usecase.StatsUseCase
	loginLimit int
	validate   *validator.Validate
	now        func() time.Time
	log        *zerolog.Logger
}

func NewServer(
	auth *AuthManager,
	authUC usecase.AuthUseCase,
	cardUC usecase.CardUseCase,
	apiKeyUC usecase.APIKeyUseCase,
	settingUC usecase.SettingUseCase,
	statsUC usecase.StatsUseCase,
	loginPerMinute int,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		auth:       auth,
		authUC:     authUC,
		cardUC:     cardUC,
		apiKeyUC:   apiKeyUC,
		settingUC:  settingUC,
		statsUC:    statsUC,
		loginLimit: loginPerMinute,
		validate:   newValidator(),
		now:        time.Now,
		log:        logger,
	}
}

// Register attaches the admin routes under /admin of the given router.
func (s *Server) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.loginLimit > 0 {
				r.Use(httprate.Limit(s.loginLimit, time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						fail(w, r, http.StatusTooManyRequests, "too many login attempts, try again later")
					}),
				))
			}
			r.Post("/login", s.handleLogin)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireAdmin)

			r.Post("/logout", s.handleLogout)
			r.Post("/change-password", s.handleChangePassword)

			r.Route("/cards", func(r chi.Router) {
				r.Get("/", s.handleListCards)
				r.Get("/export", s.handleExportCards)
				r.Post("/generate", s.handleGenerateCards)
				r.Post("/batch-delete", s.handleBatchDeleteCards)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetCard)
					r.Delete("/", s.handleDeleteCard)
					r.Post("/disable", s.handleDisableCard)
					r.Post("/enable", s.handleEnableCard)
					r.Post("/extend", s.handleExtendCard)
					r.Post("/add-count", s.handleAddCount)
					r.Post("/unbind", s.handleUnbindCard)
					r.Post("/update-device", s.handleUpdateDevice)
				})
			})

			r.Route("/apis", func(r chi.Router) {
				r.Get("/", s.handleListAPIKeys)
				r.Post("/", s.handleCreateAPIKey)
				r.Get("/stats", s.handleAPIKeyStats)
				r.Post("/{id}/status", s.handleAPIKeyStatus)
				r.Post("/{id}/reset", s.handleResetAPIKey)
				r.Delete("/{id}", s.handleDeleteAPIKey)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", s.handleListSettings)
				r.Post("/", s.handleSaveSettings)
				r.Get("/{name}", s.handleGetSetting)
				r.Put("/{name}", s.handlePutSetting)
				r.Delete("/{name}", s.handleDeleteSetting)
			})

			r.Get("/stats", s.handleStats)
			r.Get("/stats/trends", s.handleTrends)
		})
	})
}
