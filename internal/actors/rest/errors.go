package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	log "github.com/sirupsen/logrus"
)

// errorResponse is the body of every non 2xx response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var conflictReasons = []error{
	model.ErrAlreadyRegistered,
	model.ErrEventFull,
	model.ErrEventCancelled,
	model.ErrAlreadyCancelled,
	model.ErrEmailTaken,
}

// abortWithError maps the error taxonomy of the core to an HTTP status.
func abortWithError(c *gin.Context, operation string, err error) {
	var (
		status  int
		code    string
		message string
	)
	switch {
	case errors.Is(err, model.ErrUnauthenticated):
		status, code, message = http.StatusUnauthorized, "unauthenticated", "could not validate credentials"
	case errors.Is(err, model.ErrNotFound):
		status, code, message = http.StatusNotFound, "not_found", "not found"
	case errors.Is(err, model.ErrForbidden):
		status, code, message = http.StatusForbidden, "forbidden", "not allowed"
	case errors.Is(err, model.ErrConflict):
		status, code, message = http.StatusConflict, "conflict", conflictMessage(err)
	case errors.Is(err, model.ErrEventInPast):
		status, code, message = http.StatusBadRequest, "event_in_past", model.ErrEventInPast.Error()
	case errors.Is(err, model.ErrInvalidInput):
		status, code, message = http.StatusBadRequest, "invalid_input", err.Error()
	default:
		log.WithError(err).WithField("operation", operation).Error("error invoking usecase")
		status, code, message = http.StatusInternalServerError, "internal", "internal error"
	}
	if status != http.StatusInternalServerError {
		log.WithError(err).WithField("operation", operation).WithField("status", status).Debug("request refused")
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: message})
}

func abortInvalid(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: message})
}

func conflictMessage(err error) string {
	for _, reason := range conflictReasons {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	return model.ErrConflict.Error()
}
