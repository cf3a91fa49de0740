package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hnms/hnms/pkg/response"
)

// HTTPErrorHandler renders every error returned from a handler or middleware
// as a response envelope. The wrapped cause is only included when verbose is
// set, which the server enables in development.
func HTTPErrorHandler(logger zerolog.Logger, verbose bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err, verbose)
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, body)
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("failed to write error response")
		}
	}
}

func render(err error, verbose bool) (int, *response.Envelope) {
	var appErr *Error
	if errors.As(err, &appErr) {
		body := response.Fail(appErr.Message)
		if appErr.Kind == KindInternal && body.Message == "" {
			body.Message = "Internal server error."
		}
		if verbose && appErr.Err != nil {
			body.Error = appErr.Err.Error()
		}
		return appErr.Kind.Status(), body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		case nil:
		default:
			msg = fmt.Sprint(m)
		}
		if he.Code == http.StatusNotFound && he.Message == echo.ErrNotFound.Message {
			msg = "Route not found"
		}
		body := response.Fail(msg)
		if verbose && he.Internal != nil {
			body.Error = he.Internal.Error()
		}
		return he.Code, body
	}

	body := response.Fail("Internal server error.")
	if verbose {
		body.Error = err.Error()
	}
	return http.StatusInternalServerError, body
}
