package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/inkwell/internal/application"
	"github.com/oksasatya/inkwell/internal/interface/middleware"
	"github.com/oksasatya/inkwell/pkg/helpers"
	"github.com/oksasatya/inkwell/pkg/response"
	"github.com/oksasatya/inkwell/pkg/validation"
)

// Public error codes carried in error.code.
const (
	CodeInvalidPayload     = "invalid_payload"
	CodeValidation         = "validation_failed"
	CodeEmailTaken         = "email_taken"
	CodeInvalidCredentials = "invalid_credentials"
	CodeUnauthenticated    = "unauthenticated"
	CodeInvalidToken       = "invalid_token"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeSearchUnavailable  = "search_unavailable"
	CodeInternal           = "internal"
)

func badPayload(c *gin.Context, err error) {
	response.Error(c, http.StatusBadRequest, "invalid payload", response.ErrorBody{Code: CodeInvalidPayload, Details: validation.ToDetails(err)})
}

func badInput(c *gin.Context, fields map[string]string) {
	response.Error(c, http.StatusBadRequest, "validation failed", response.ErrorBody{Code: CodeValidation, Details: fields})
}

// respondError maps application outcomes onto HTTP. Anything unrecognised is
// logged with the request id and answered with a generic 500.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		badInput(c, verr.Fields)
	case errors.Is(err, application.ErrEmailTaken):
		response.Error(c, http.StatusConflict, "email already registered", response.ErrorBody{Code: CodeEmailTaken})
	case errors.Is(err, application.ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "invalid email or password", response.ErrorBody{Code: CodeInvalidCredentials})
	case errors.Is(err, application.ErrUnauthenticated):
		response.Error(c, http.StatusUnauthorized, "authentication required", response.ErrorBody{Code: CodeUnauthenticated})
	case errors.Is(err, application.ErrUserNotFound):
		// subject vanished after the middleware resolved it
		response.Error(c, http.StatusUnauthorized, "invalid token", response.ErrorBody{Code: CodeInvalidToken})
	case errors.Is(err, application.ErrForbidden):
		response.Error(c, http.StatusForbidden, "you do not own this post", response.ErrorBody{Code: CodeForbidden})
	case errors.Is(err, application.ErrPostNotFound):
		response.Error(c, http.StatusNotFound, "post not found", response.ErrorBody{Code: CodeNotFound})
	case errors.Is(err, application.ErrSearchUnavailable):
		response.Error(c, http.StatusServiceUnavailable, "search is not enabled", response.ErrorBody{Code: CodeSearchUnavailable})
	default:
		helpers.LogError(logger, "request failed", err, middleware.RequestFields(c))
		response.Error(c, http.StatusInternalServerError, "internal server error", response.ErrorBody{Code: CodeInternal})
	}
}
