package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/infra/logging"
	"cardkey-service/internal/usecase"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "login", err)
		return
	}
	admin, err := s.authUC.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		failErr(w, r, s.log, "login", err)
		return
	}
	token, err := s.auth.Mint(w, admin)
	if err != nil {
		failErr(w, r, s.log, "login", fmt.Errorf("mint token: %w", err))
		return
	}
	ok(w, r, "login succeeded", map[string]interface{}{
		"token": token,
		"user": map[string]string{
			"id":       admin.ID,
			"username": admin.Username,
		},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Clear(w)
	ok(w, r, "logged out", nil)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=128"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "change_password", err)
		return
	}
	adminID := logging.AdminID(r.Context())
	if err := s.authUC.ChangePassword(r.Context(), adminID, req.OldPassword, req.NewPassword); err != nil {
		failErr(w, r, s.log, "change_password", err)
		return
	}
	ok(w, r, "password changed", nil)
}

// ===== Stats =====

type cardStatsDTO struct {
	Total     int64           `json:"total"`
	Used      int64           `json:"used"`
	Unused    int64           `json:"unused"`
	Disabled  int64           `json:"disabled"`
	UsageRate decimal.Decimal `json:"usage_rate"`
}

type apiStatsDTO struct {
	Total      int64 `json:"total"`
	Active     int64 `json:"active"`
	TotalCalls int64 `json:"total_calls"`
}

type recentStatsDTO struct {
	NewCards   int64 `json:"new_cards"`
	RecentUsed int64 `json:"recent_used"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	o, err := s.statsUC.Overview(r.Context())
	if err != nil {
		failErr(w, r, s.log, "stats", err)
		return
	}
	ok(w, r, "ok", map[string]interface{}{
		"cards": cardStatsDTO{
			Total:     o.Cards.Total,
			Used:      o.Cards.Used,
			Unused:    o.Cards.Unused,
			Disabled:  o.Cards.Disabled,
			UsageRate: o.UsageRate,
		},
		"apis": apiStatsDTO{
			Total:      o.APIKeys.Total,
			Active:     o.APIKeys.Active,
			TotalCalls: o.APIKeys.TotalCalls,
		},
		"recent": recentStatsDTO{
			NewCards:   o.Recent.NewCards,
			RecentUsed: o.Recent.RecentUsed,
		},
	})
}

type trendDTO struct {
	Date      string `json:"date"`
	NewCards  int64  `json:"new_cards"`
	UsedCards int64  `json:"used_cards"`
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	days := usecase.DefaultTrendDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			failErr(w, r, s.log, "trends", fmt.Errorf("%w: days must be a number", domain.ErrInvalidArgument))
			return
		}
		days = n
	}
	buckets, err := s.statsUC.Trends(r.Context(), days)
	if err != nil {
		failErr(w, r, s.log, "trends", err)
		return
	}
	out := make([]trendDTO, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, trendDTO{
			Date:      b.Date.Format("2006-01-02"),
			NewCards:  b.NewCards,
			UsedCards: b.UsedCards,
		})
	}
	ok(w, r, "ok", map[string]interface{}{
		"trends": out,
		"period": fmt.Sprintf("%dd", len(out)),
	})
}
