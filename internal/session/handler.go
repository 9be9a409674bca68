package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

const heartbeatInterval = 25 * time.Second

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type LoginRequest struct {
	Matricule string `json:"matricule"`
	Password  string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// MeResponse describes the acting account and what the UI may offer it.
type MeResponse struct {
	State        State               `json:"state"`
	Identity     access.Identity     `json:"identity"`
	Capabilities access.Capabilities `json:"capabilities"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		apperr.Respond(w, h.logger, apperr.Invalid("requête invalide"))
		return
	}
	res, err := h.svc.Login(r.Context(), req.Matricule, req.Password)
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid refresh payload", "err", err)
		apperr.Respond(w, h.logger, apperr.Invalid("requête invalide"))
		return
	}
	res, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.logger, apperr.ErrAuthentication)
		return
	}
	var req RefreshRequest
	if r.ContentLength != 0 {
		if err := utilities.DecodeJSON(r, &req); err != nil {
			apperr.Respond(w, h.logger, apperr.Invalid("requête invalide"))
			return
		}
	}
	if err := h.svc.Logout(r.Context(), c, req.RefreshToken); err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.logger, apperr.ErrAuthentication)
		return
	}
	var req ChangePasswordRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid change-password payload", "err", err)
		apperr.Respond(w, h.logger, apperr.Invalid("requête invalide"))
		return
	}
	res, err := h.svc.ChangePassword(r.Context(), c, req.NewPassword)
	if err != nil {
		apperr.Respond(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.logger, apperr.ErrAuthentication)
		return
	}
	id := c.Identity()
	caps := access.Capabilities{}
	if !c.FirstLoginPending {
		caps = access.CapabilitiesOf(id)
	}
	utilities.WriteJSON(w, http.StatusOK, MeResponse{State: h.svc.State(c), Identity: id, Capabilities: caps})
}

// Events streams snapshots of the caller's session as server-sent events
// until the client goes away or the session is signed out.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok {
		apperr.Respond(w, h.logger, apperr.ErrAuthentication)
		return
	}
	id := c.Identity()
	flusher, ok := w.(http.Flusher)
	if !ok {
		apperr.Respond(w, h.logger, errors.New("response writer cannot stream"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.svc.Subscribe(c.SessionID)
	defer cancel()
	first := true
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap, ok := <-ch:
			if !ok {
				return
			}
			// A valid token with no published state yet (e.g. after a restart)
			// reports the state its claims carry.
			if first && snap.State == Anonymous {
				snap = Snapshot{State: h.svc.State(c), Identity: &id}
			}
			first = false
			data, err := json.Marshal(snap)
			if err != nil {
				h.logger.Warnw("encode session snapshot", "err", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: session\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
			if snap.State == Anonymous && snap.Identity == nil {
				h.logger.Debugw("session stream closed on sign-out", "account", id.AccountID)
				return
			}
		}
	}
}

func (h *Handler) JWKS(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, h.svc.Issuer().JWKS())
}
