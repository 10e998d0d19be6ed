package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nhle/disposal-planner/internal/schedule"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	var (
		ve *schedule.ValidationError
		nf *schedule.NotFoundError
		re *schedule.ReferentialError
		ie *schedule.InfrastructureError
		he *echo.HTTPError
	)
	switch {
	case errors.Is(err, schedule.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &re):
		return http.StatusUnprocessableEntity
	case errors.As(err, &ie):
		return http.StatusServiceUnavailable
	case errors.As(err, &he):
		return he.Code
	default:
		return http.StatusInternalServerError
	}
}

func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := statusFor(err)
		body := errorBody{Error: err.Error()}

		var ve *schedule.ValidationError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ve):
			body.Field = ve.Field
		case errors.As(err, &he):
			if msg, ok := he.Message.(string); ok {
				body.Error = msg
			}
		}
		if status == http.StatusInternalServerError {
			log.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("unhandled error")
			body.Error = http.StatusText(status)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("writing error response")
		}
	}
}

func badRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
