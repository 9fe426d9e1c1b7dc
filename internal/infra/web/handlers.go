package web

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"cardkey-service/internal/domain"
	"cardkey-service/internal/domain/model"
	"cardkey-service/internal/usecase"
)

// TimeLayout is the admin wire format for timestamps.
const TimeLayout = "2006-01-02 15:04:05"

const (
	defaultDuration   = 30
	defaultTotalCount = 100
)

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(TimeLayout)
	return &s
}

type cardDTO struct {
	ID             string  `json:"id"`
	CardKey        string  `json:"card_key"`
	Status         int     `json:"status"`
	CardType       string  `json:"card_type"`
	Duration       int     `json:"duration"`
	TotalCount     int     `json:"total_count"`
	RemainingCount int     `json:"remaining_count"`
	AllowReverify  bool    `json:"allow_reverify"`
	DeviceID       string  `json:"device_id"`
	VerifyMethod   string  `json:"verify_method"`
	UseTime        *string `json:"use_time"`
	ExpireTime     *string `json:"expire_time"`
	CreateTime     string  `json:"create_time"`
	Remark         string  `json:"remark"`
}

func toCardDTO(c *model.Card) cardDTO {
	return cardDTO{
		ID:             c.ID,
		CardKey:        c.PlainKey,
		Status:         int(c.Status),
		CardType:       string(c.Type),
		Duration:       c.DurationDays,
		TotalCount:     c.TotalCount,
		RemainingCount: c.RemainingCount,
		AllowReverify:  c.AllowReverify,
		DeviceID:       c.DeviceID,
		VerifyMethod:   string(c.VerifyMethod),
		UseTime:        formatTime(c.UseTime),
		ExpireTime:     formatTime(c.ExpireTime),
		CreateTime:     c.CreateTime.Format(TimeLayout),
		Remark:         c.Remark,
	}
}

func toCardDTOs(cards []*model.Card) []cardDTO {
	out := make([]cardDTO, 0, len(cards))
	for _, c := range cards {
		out = append(out, toCardDTO(c))
	}
	return out
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newPagination(page, limit int, total int64) pagination {
	pages := 0
	if limit > 0 {
		pages = int(math.Ceil(float64(total) / float64(limit)))
	}
	return pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// pageParams reads page and limit; zero values let the use case apply defaults.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	return page, limit
}

// cardFilter reads status, card_type and search from the query string.
func cardFilter(r *http.Request) (model.CardFilter, error) {
	q := r.URL.Query()
	var f model.CardFilter
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, fmt.Errorf("%w: status must be 0, 1 or 2", domain.ErrInvalidArgument)
		}
		st, err := model.ParseCardStatus(n)
		if err != nil {
			return f, fmt.Errorf("%w: status must be 0, 1 or 2", domain.ErrInvalidArgument)
		}
		f.Status = &st
	}
	if v := strings.TrimSpace(q.Get("card_type")); v != "" {
		t := model.CardType(v)
		if !t.Valid() {
			return f, fmt.Errorf("%w: card_type must be time or count", domain.ErrInvalidArgument)
		}
		f.Type = t
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	return f, nil
}

// ===== Cards =====

type generateRequest struct {
	Count         int    `json:"count" validate:"required,min=1,max=1000"`
	CardType      string `json:"card_type" validate:"omitempty,oneof=time count"`
	Duration      *int   `json:"duration" validate:"omitempty,min=0,max=36500"`
	TotalCount    *int   `json:"total_count" validate:"omitempty,min=1,max=1000000"`
	AllowReverify *bool  `json:"allow_reverify"`
	Remark        string `json:"remark" validate:"max=255"`
}

func (g generateRequest) toUseCase() usecase.GenerateRequest {
	spec := model.CardSpec{
		Type:          model.CardTypeTime,
		DurationDays:  defaultDuration,
		AllowReverify: true,
		Remark:        strings.TrimSpace(g.Remark),
	}
	if g.CardType != "" {
		spec.Type = model.CardType(g.CardType)
	}
	if g.AllowReverify != nil {
		spec.AllowReverify = *g.AllowReverify
	}
	if spec.Type == model.CardTypeCount {
		spec.DurationDays = 0
		spec.TotalCount = defaultTotalCount
		if g.TotalCount != nil {
			spec.TotalCount = *g.TotalCount
		}
	} else if g.Duration != nil {
		spec.DurationDays = *g.Duration
	}
	return usecase.GenerateRequest{Count: g.Count, Spec: spec}
}

type generatedCard struct {
	CardKey    string `json:"card_key"`
	CardType   string `json:"card_type"`
	Duration   int    `json:"duration"`
	TotalCount int    `json:"total_count"`
}

func (s *Server) handleGenerateCards(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "generate", err)
		return
	}
	cards, err := s.cardUC.Generate(r.Context(), req.toUseCase())
	if err != nil {
		failErr(w, r, s.log, "generate", err)
		return
	}
	out := make([]generatedCard, 0, len(cards))
	for _, c := range cards {
		out = append(out, generatedCard{
			CardKey:    c.PlainKey,
			CardType:   string(c.Type),
			Duration:   c.DurationDays,
			TotalCount: c.TotalCount,
		})
	}
	ok(w, r, fmt.Sprintf("generated %d card keys", len(out)), map[string]interface{}{
		"cards": out,
		"count": len(out),
	})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	f, err := cardFilter(r)
	if err != nil {
		failErr(w, r, s.log, "list_cards", err)
		return
	}
	page, limit := pageParams(r)
	res, err := s.cardUC.List(r.Context(), f, page, limit)
	if err != nil {
		failErr(w, r, s.log, "list_cards", err)
		return
	}
	ok(w, r, "ok", map[string]interface{}{
		"cards":      toCardDTOs(res.Cards),
		"pagination": newPagination(res.Page, res.Limit, res.Total),
	})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	c, err := s.cardUC.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, r, s.log, "get_card", err)
		return
	}
	ok(w, r, "ok", toCardDTO(c))
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.cardUC.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		failErr(w, r, s.log, "delete_card", err)
		return
	}
	ok(w, r, "deleted", nil)
}

type batchDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=1000,dive,required"`
}

func (s *Server) handleBatchDeleteCards(w http.ResponseWriter, r *http.Request) {
	var req batchDeleteRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "batch_delete", err)
		return
	}
	n, err := s.cardUC.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		failErr(w, r, s.log, "batch_delete", err)
		return
	}
	ok(w, r, fmt.Sprintf("deleted %d card keys", n), map[string]int64{"deleted": n})
}

func (s *Server) handleDisableCard(w http.ResponseWriter, r *http.Request) {
	if err := s.cardUC.Disable(r.Context(), chi.URLParam(r, "id")); err != nil {
		failErr(w, r, s.log, "disable_card", err)
		return
	}
	ok(w, r, "card disabled", nil)
}

func (s *Server) handleEnableCard(w http.ResponseWriter, r *http.Request) {
	if err := s.cardUC.Enable(r.Context(), chi.URLParam(r, "id")); err != nil {
		failErr(w, r, s.log, "enable_card", err)
		return
	}
	ok(w, r, "card enabled", nil)
}

type extendRequest struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

func (s *Server) handleExtendCard(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "extend_card", err)
		return
	}
	c, err := s.cardUC.Extend(r.Context(), chi.URLParam(r, "id"), req.Days)
	if err != nil {
		failErr(w, r, s.log, "extend_card", err)
		return
	}
	ok(w, r, fmt.Sprintf("card extended by %d days", req.Days), map[string]interface{}{
		"expire_time": formatTime(c.ExpireTime),
		"duration":    c.DurationDays,
	})
}

type addCountRequest struct {
	Count int `json:"count" validate:"required,min=1,max=10000"`
}

func (s *Server) handleAddCount(w http.ResponseWriter, r *http.Request) {
	var req addCountRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "add_count", err)
		return
	}
	c, err := s.cardUC.AddCount(r.Context(), chi.URLParam(r, "id"), req.Count)
	if err != nil {
		failErr(w, r, s.log, "add_count", err)
		return
	}
	ok(w, r, fmt.Sprintf("added %d uses", req.Count), map[string]int{
		"total_count":     c.TotalCount,
		"remaining_count": c.RemainingCount,
	})
}

func (s *Server) handleUnbindCard(w http.ResponseWriter, r *http.Request) {
	if err := s.cardUC.Unbind(r.Context(), chi.URLParam(r, "id")); err != nil {
		failErr(w, r, s.log, "unbind_card", err)
		return
	}
	ok(w, r, "device unbound", nil)
}

type updateDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=255"`
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	var req updateDeviceRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "update_device", err)
		return
	}
	if err := s.cardUC.UpdateDevice(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.DeviceID)); err != nil {
		failErr(w, r, s.log, "update_device", err)
		return
	}
	ok(w, r, "device updated", nil)
}
