package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	all, err := s.settingUC.All(r.Context())
	if err != nil {
		failErr(w, r, s.log, "list_settings", err)
		return
	}
	ok(w, r, "ok", all)
}

// handleSaveSettings upserts a flat name to value object in one transaction.
func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "settings must be an object of string values")
		return
	}
	if err := s.settingUC.SetMany(r.Context(), req); err != nil {
		failErr(w, r, s.log, "save_settings", err)
		return
	}
	ok(w, r, "settings saved", nil)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	st, err := s.settingUC.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		failErr(w, r, s.log, "get_setting", err)
		return
	}
	ok(w, r, "ok", map[string]string{
		"setting_name":  st.Name,
		"setting_value": st.Value,
		"update_time":   st.UpdateTime.Format(TimeLayout),
	})
}

type putSettingRequest struct {
	Value *string `json:"value" validate:"required"`
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var req putSettingRequest
	if err := s.decode(r, &req); err != nil {
		failErr(w, r, s.log, "put_setting", err)
		return
	}
	if err := s.settingUC.Set(r.Context(), chi.URLParam(r, "name"), *req.Value); err != nil {
		failErr(w, r, s.log, "put_setting", err)
		return
	}
	ok(w, r, "setting updated", nil)
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if err := s.settingUC.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		failErr(w, r, s.log, "delete_setting", err)
		return
	}
	ok(w, r, "deleted", nil)
}
