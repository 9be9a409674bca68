package plate

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for plate records. Every route expects an
// identity placed in the request context by the auth middleware.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	id, err := access.FromContext(r.Context())
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, h.svc.Form(id))
}

func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	id, f, ok := h.decode(w, r)
	if !ok {
		return
	}
	pv, err := h.svc.Preview(r.Context(), id, f)
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, pv)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, f, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Create(r.Context(), id, f)
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	id, err := access.FromContext(r.Context())
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	rows, err := h.svc.List(r.Context(), id, r.URL.Query().Get("province"))
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, rows)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := access.FromContext(r.Context())
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	p, err := h.svc.Get(r.Context(), id, r.PathValue("id"))
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, f, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Update(r.Context(), id, r.PathValue("id"), f)
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := access.FromContext(r.Context())
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id, r.PathValue("id")); err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (access.Identity, entity.Fields, bool) {
	id, err := access.FromContext(r.Context())
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return id, entity.Fields{}, false
	}
	var f entity.Fields
	if err := utilities.DecodeJSON(r, &f); err != nil {
		h.logger.Debugw("invalid plate payload", "err", err)
		apperr.Respond(w, h.logger, apperr.Invalid("requête invalide"))
		return id, f, false
	}
	return id, f, true
}
