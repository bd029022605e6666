package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stack21/flowengine/pkg/schema"
)

type errorBody struct {
	Error *schema.Error `json:"error"`
}

// statusFor maps error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case schema.ErrCodeNotFound, schema.ErrCodeWorkflowNotFound:
		return http.StatusNotFound
	case schema.ErrCodeValidation, schema.ErrCodeUnsupportedStepType, schema.ErrCodeExpression:
		return http.StatusBadRequest
	case schema.ErrCodeConflict:
		return http.StatusConflict
	case schema.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := errorBody{}

		var se *schema.Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &se):
			status = statusFor(se.Code)
			body.Error = se
		case errors.As(err, &he):
			status = he.Code
			body.Error = schema.NewError(httpCode(he.Code), httpMessage(he))
		default:
			body.Error = schema.NewError(schema.ErrCodeExecution, err.Error())
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("path", c.Path()),
				slog.String("error", err.Error()),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return schema.ErrCodeNotFound
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return schema.ErrCodeValidation
	default:
		return schema.ErrCodeExecution
	}
}

func httpMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	return http.StatusText(he.Code)
}
