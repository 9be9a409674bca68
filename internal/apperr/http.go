package apperr

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

// CodeFirstLoginRequired marks responses that ask the client to rotate its secret.
const CodeFirstLoginRequired = "FIRST_LOGIN_REQUIRED"

// Body is the JSON error envelope.
type Body struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Fields any    `json:"fields,omitempty"`
}

// Status maps an error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, ErrFirstLoginRequired), errors.Is(err, ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// BodyOf builds the client-facing envelope. Internal failures never leak driver text.
func BodyOf(err error) Body {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return Body{Error: ve.Error(), Fields: ve.Fields}
	case errors.Is(err, ErrAuthentication):
		return Body{Error: "matricule ou mot de passe incorrect"}
	case errors.Is(err, ErrFirstLoginRequired):
		return Body{Error: "changement du mot de passe requis", Code: CodeFirstLoginRequired}
	case errors.Is(err, ErrAuthorization):
		return Body{Error: "accès refusé"}
	case errors.Is(err, ErrNotFound):
		return Body{Error: "introuvable"}
	case errors.Is(err, ErrConflict):
		return Body{Error: "existe déjà"}
	case errors.Is(err, ErrEncoding):
		return Body{Error: "échec de la génération du code QR"}
	default:
		return Body{Error: "erreur interne"}
	}
}

// Respond writes err to w and logs it at a level matching its status.
func Respond(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status := Status(err)
	if status >= http.StatusInternalServerError {
		logger.Errorw("request failed", "err", err)
	} else {
		logger.Debugw("request rejected", "status", status, "err", err)
	}
	utilities.WriteJSON(w, status, BodyOf(err))
}
