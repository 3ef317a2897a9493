package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quotepanel/internal/client/jquants"
	"quotepanel/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// errorStatus maps a pipeline error onto an HTTP status and a meta "kind".
func errorStatus(err error) (int, string) {
	var validation *service.ValidationError
	var authErr *jquants.AuthError
	var upstream *service.UpstreamFetchError
	var apiErr *jquants.APIError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation"
	case errors.As(err, &authErr):
		return http.StatusBadGateway, "auth"
	case errors.As(err, &upstream), errors.As(err, &apiErr), errors.Is(err, jquants.ErrPaginationLimit):
		return http.StatusBadGateway, "upstream"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(c *gin.Context, err error, meta map[string]any) {
	status, kind := errorStatus(err)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["kind"] = kind
	if kind == "validation" {
		var validation *service.ValidationError
		if errors.As(err, &validation) && validation.Field != "" {
			meta["field"] = validation.Field
		}
	}
	Error(c, status, err.Error(), meta)
}
