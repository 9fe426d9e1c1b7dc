package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"cardkey-service/internal/domain/model"
	ucport "cardkey-service/internal/domain/ports/usecase"
	"cardkey-service/internal/infra/i18n"
)

// TimeLayout is the wire format of use_time and expire_time.
const TimeLayout = "2006-01-02 15:04:05"

type verifyRequest struct {
	CardKey  string `json:"card_key"`
	DeviceID string `json:"device_id"`
}

// VerifyData is the success payload of /api/verify.
type VerifyData struct {
	CardKey        string  `json:"card_key"`
	Status         int     `json:"status"`
	UseTime        *string `json:"use_time"`
	ExpireTime     *string `json:"expire_time"`
	CardType       string  `json:"card_type"`
	Duration       *int    `json:"duration,omitempty"`
	RemainingCount *int    `json:"remaining_count,omitempty"`
	TotalCount     *int    `json:"total_count,omitempty"`
	DeviceID       string  `json:"device_id"`
	AllowReverify  bool    `json:"allow_reverify"`
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(TimeLayout)
	return &s
}

func newVerifyData(c *model.Card, deviceID string) VerifyData {
	d := VerifyData{
		CardKey:       c.PlainKey,
		Status:        int(c.Status),
		UseTime:       formatTime(c.UseTime),
		ExpireTime:    formatTime(c.ExpireTime),
		CardType:      string(c.Type),
		DeviceID:      deviceID,
		AllowReverify: c.AllowReverify,
	}
	if c.Type == model.CardTypeCount {
		remaining, total := c.RemainingCount, c.TotalCount
		d.RemainingCount = &remaining
		d.TotalCount = &total
	} else {
		duration := c.DurationDays
		d.Duration = &duration
	}
	return d
}

// readVerifyRequest takes the query on GET and a JSON or form body on POST.
func readVerifyRequest(r *http.Request) verifyRequest {
	var req verifyRequest
	if r.Method != http.MethodPost {
		q := r.URL.Query()
		req.CardKey, req.DeviceID = q.Get("card_key"), q.Get("device_id")
		return req
	}
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		req.CardKey, req.DeviceID = r.PostFormValue("card_key"), r.PostFormValue("device_id")
		return req
	}
	// An unreadable body leaves both fields empty, which the engine rejects.
	_ = render.DecodeJSON(r.Body, &req)
	return req
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	req := readVerifyRequest(r)
	out := s.verifier.Verify(r.Context(), req.CardKey, req.DeviceID, model.MethodFromHTTP(r.Method))

	code := out.Kind.Code()
	if !out.Kind.Success() {
		fail(w, r, code, s.outcomeMessage(out))
		return
	}
	respond(w, r, http.StatusOK, Response{
		Code:    code,
		Message: s.outcomeMessage(out),
		Data:    newVerifyData(out.Card, strings.TrimSpace(req.DeviceID)),
	})
}

func (s *Server) outcomeMessage(out ucport.Outcome) string {
	switch out.Kind {
	case ucport.OutcomeActivated:
		if out.Card.Type == model.CardTypeCount {
			return s.tr.T(i18n.MsgVerifyCountSuccess, out.Card.RemainingCount)
		}
		return s.tr.T(i18n.MsgVerifySuccess)
	case ucport.OutcomeReverified:
		if out.Card.Type == model.CardTypeCount {
			return s.tr.T(i18n.MsgVerifyCountSuccess, out.Card.RemainingCount)
		}
		return s.tr.T(i18n.MsgVerifyReverified)
	case ucport.OutcomeRebound:
		return s.tr.T(i18n.MsgVerifyRebound)
	case ucport.OutcomeInvalidOrBound:
		return s.tr.T(i18n.MsgInvalidOrBound)
	case ucport.OutcomeDisabledByAdmin:
		return s.tr.T(i18n.MsgCardDisabled)
	case ucport.OutcomeReverifyNotAllowed:
		return s.tr.T(i18n.MsgReverifyNotAllowed)
	case ucport.OutcomeCountExhausted:
		return s.tr.T(i18n.MsgCountExhausted)
	default:
		return s.tr.T(i18n.MsgSystemError)
	}
}
