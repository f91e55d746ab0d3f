package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// Transport-level kinds that have no counterpart in apperrors.
const (
	KindTimeout          = "TIMEOUT"
	KindPayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	KindRateLimited      = "RATE_LIMITED"
	KindMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// HTTPErrorHandler renders every error as {"error":{"kind","message"}}.
// Application errors keep their kind; echo errors get one derived from the
// status code. Internal causes are logged and never sent to the client.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, kind, msg := classify(err)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", fmt.Sprintf("%v", c.Get("request_id"))).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = writeError(c, status, kind, msg)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

func classify(err error) (int, string, string) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return apperrors.HTTPStatus(appErr.Kind), string(appErr.Kind), apperrors.PublicMessage(err)
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		if he.Code >= http.StatusInternalServerError && he.Code != http.StatusGatewayTimeout {
			msg = "internal server error"
		}
		return he.Code, kindForStatus(he.Code), msg
	}

	return http.StatusInternalServerError, string(apperrors.KindInternal), "internal server error"
}

func kindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType:
		return string(apperrors.KindValidation)
	case http.StatusUnauthorized:
		return string(apperrors.KindUnauthorized)
	case http.StatusForbidden:
		return string(apperrors.KindForbidden)
	case http.StatusNotFound:
		return string(apperrors.KindNotFound)
	case http.StatusMethodNotAllowed:
		return KindMethodNotAllowed
	case http.StatusConflict:
		return string(apperrors.KindConflict)
	case http.StatusUnprocessableEntity:
		return string(apperrors.KindInvalidTransition)
	case http.StatusRequestEntityTooLarge:
		return KindPayloadTooLarge
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return string(apperrors.KindInternal)
	}
}

func writeError(c echo.Context, status int, kind, msg string) error {
	rid, _ := c.Get("request_id").(string)
	return c.JSON(status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: msg, RequestID: rid}})
}
