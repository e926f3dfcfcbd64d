package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gapscan/internal/domain"
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

// statusFor maps service errors onto HTTP status codes and stable error codes.
func statusFor(err error) (int, string) {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrEmptyCorpus):
		return http.StatusBadRequest, "empty_corpus"
	case domain.IsUpstream(err):
		return http.StatusBadGateway, "upstream"
	case errors.Is(err, domain.ErrNotAnalyzed):
		return http.StatusConflict, "not_analyzed"
	case errors.Is(err, domain.ErrAnalysisInProgress):
		return http.StatusConflict, "analysis_in_progress"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func respondServiceError(c *gin.Context, err error) {
	status, code := statusFor(err)
	_ = c.Error(err)
	RespondError(c, status, code, err)
}
