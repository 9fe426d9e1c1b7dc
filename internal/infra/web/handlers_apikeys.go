package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
)

type apiKeyDTO struct {
	ID          string  `json:"id"`
	KeyName     string  `json:"key_name"`
	APIKey      string  `json:"api_key"`
	Status      int     `json:"status"`
	UseCount    int64   `json:"use_count"`
	LastUseTime *string `json:"last_use_time"`
	CreateTime  string  `json:"create_time"`
	Description string  `json:"description"`
}

func toAPIKeyDTO(k *model.APIKey) apiKeyDTO {
	return apiKeyDTO{
		ID:          k.ID,
		KeyName:     k.Name,
		APIKey:      k.Key,
		Status:      int(k.Status),
		UseCount:    k.UseCount,
		LastUseTime: formatTime(k.LastUseTime),
		CreateTime:  k.CreateTime.Format(TimeLayout),
		Description: k.Description,
	}
}

func (s *Server) handleListAPIKeys(w http.ResponseWriter, r *http.Request) {
	var f model.APIKeyFilter
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		n, err := strconv.Atoi(v)
		st := model.APIKeyStatus(n)
		if err != nil || !st.Valid() {
			failErr(w, r, s.log, "list_api_keys", fmt.Errorf("%w: status must be 0 or 1", domain.ErrInvalidArgument))
			return
		}
		f.Status = &st
	}
	page, limit := pageParams(r)
	res, err := s.apiKeyUC.List(r.Context(), f, page, limit)
	if err != nil {
		failErr(w, r, s.log, "list_api_keys", err)
		return
	}
	keys := make([]apiKeyDTO, 0, len(res.Keys))
	for _, k := range res.Keys {
		keys = append(keys, toAPIKeyDTO(k))
	}
	ok(w, r, "ok", map[string]interface{}{
		"apiKeys":    keys,
		"pagination": newPagination(res.Page, res.Limit, res.Total),
	})
}

type createAPIKeyRequest struct {
	KeyName     string `json:"key_name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req createAPIKeyRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "create_api_key", err)
		return
	}
	k, err := s.apiKeyUC.Create(r.Context(), req.KeyName, req.Description)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			fail(w, r, http.StatusBadRequest, "key_name already exists")
			return
		}
		failErr(w, r, s.log, "create_api_key", err)
		return
	}
	ok(w, r, "api key created", toAPIKeyDTO(k))
}

type apiKeyStatusRequest struct {
	Status *int `json:"status" validate:"required,oneof=0 1"`
}

func (s *Server) handleAPIKeyStatus(w http.ResponseWriter, r *http.Request) {
	var req apiKeyStatusRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "api_key_status", err)
		return
	}
	st := model.APIKeyStatus(*req.Status)
	if err := s.apiKeyUC.SetStatus(r.Context(), chi.URLParam(r, "id"), st); err != nil {
		failErr(w, r, s.log, "api_key_status", err)
		return
	}
	msg := "api key disabled"
	if st == model.APIKeyEnabled {
		msg = "api key enabled"
	}
	ok(w, r, msg, nil)
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := s.apiKeyUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		failErr(w, r, s.log, "delete_api_key", err)
		return
	}
	ok(w, r, "deleted", nil)
}

func (s *Server) handleResetAPIKey(w http.ResponseWriter, r *http.Request) {
	k, err := s.apiKeyUC.Rotate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, r, s.log, "reset_api_key", err)
		return
	}
	ok(w, r, "api key reset", map[string]string{"new_api_key": k.Key})
}

func (s *Server) handleAPIKeyStats(w http.ResponseWriter, r *http.Request) {
	c, err := s.apiKeyUC.Stats(r.Context())
	if err != nil {
		failErr(w, r, s.log, "api_key_stats", err)
		return
	}
	ok(w, r, "ok", map[string]interface{}{
		"overview": map[string]int64{
			"total_keys":    c.Total,
			"total_calls":   c.TotalCalls,
			"active_keys":   c.Active,
			"recent_active": c.RecentActive,
		},
	})
}
