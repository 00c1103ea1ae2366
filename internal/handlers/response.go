package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spinnernet/backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAPIError maps a service error to the response envelope, honoring an
// embedded *apierr.Error status/code when present.
func RespondAPIError(c *gin.Context, fallbackStatus int, fallbackCode string, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		status := ae.Status
		if status == 0 {
			status = fallbackStatus
		}
		code := ae.Code
		if code == "" {
			code = fallbackCode
		}
		RespondError(c, status, code, ae.Err)
		return
	}
	RespondError(c, fallbackStatus, fallbackCode, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
