package handler

import (
	"net/http"

	"backend/internal/service"
	"backend/pkg/apperror"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// actorFrom builds the acting identity from the context values set by the
// auth middleware.
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				actor.ID = id
			}
		}
	}
	if v, ok := c.Get("userRole"); ok {
		if s, ok := v.(string); ok {
			actor.Role = s
		}
	}
	return actor
}

// writeError maps a service error to an HTTP status. Typed business-rule
// failures get 4xx codes; anything untyped is a 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperror.KindOf(err) {
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindForbidden:
		status = http.StatusForbidden
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindInvalidState,
		apperror.KindInvalidTransition,
		apperror.KindDuplicateInvoice,
		apperror.KindNotPausable,
		apperror.KindNotRenewable,
		apperror.KindNotClosable,
		apperror.KindReasonRequired,
		apperror.KindRetryFailed:
		status = http.StatusConflict
	}
	c.JSON(status, response.Error(status, err.Error()))
}
