package department

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

// Handler contains dependencies for handling department endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := access.FromContext(r.Context())
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	var in Input
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.logger.Debugw("invalid department payload", "err", err)
		apperr.Respond(w, h.logger, apperr.Invalid("requête invalide"))
		return
	}
	d, err := h.svc.Create(r.Context(), id, in)
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, d)
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
