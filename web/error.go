package web

import (
	"errors"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/onboard/authclient"
)

// Errors returned by NewServer. Auth service failures keep the authclient
// sentinels.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrNilParameter     = errors.New("nil parameter")
)

// unavailableMessage is shown when the auth service can't be reached or
// failed.
const unavailableMessage = "Authentication service unavailable, please try again."

// failure turns an auth service error into the message and status shown in
// a form. Service errors keep their message and status; anything else is
// reported as the service being unavailable.
func failure(logger hclog.Logger, op string, err error) (string, int) {
	if apiErr, ok := authclient.AsAPIError(err); ok {
		if apiErr.StatusCode >= http.StatusInternalServerError {
			logger.Error("auth service failed", "op", op, "error", err)
			return unavailableMessage, http.StatusBadGateway
		}
		logger.Warn("auth service rejected request", "op", op, "status", apiErr.StatusCode, "code", apiErr.Code)
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return msg, apiErr.StatusCode
	}
	if errors.Is(err, authclient.ErrInvalidParameter) {
		logger.Warn("invalid request", "op", op, "error", err)
		return "Please check the form and try again.", http.StatusBadRequest
	}
	logger.Error("auth service unavailable", "op", op, "error", err)
	return unavailableMessage, http.StatusBadGateway
}
