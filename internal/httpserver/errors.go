package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/nz_walks/internal/service"
	"github.com/Skotchmaster/nz_walks/pkg/logging"
)

const internalErrorMessage = "Something went wrong! We are looking into resolving this."

type internalError struct {
	Id           uuid.UUID `json:"Id"`
	ErrorMessage string    `json:"ErrorMessage"`
}

// ErrorHandler renders *echo.HTTPError as usual. Anything else is an
// unexpected failure: it is logged under a fresh id and the client gets only
// that id back.
func ErrorHandler(base *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			c.Echo().DefaultHTTPErrorHandler(he, c)
			return
		}

		l := logging.FromContext(c.Request().Context())
		if l == slog.Default() && base != nil {
			l = base
		}
		id := uuid.New()
		l.Error("unhandled_error", "status", http.StatusInternalServerError, "error_id", id.String(), "error", err)

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(http.StatusInternalServerError)
			return
		}
		_ = c.JSON(http.StatusInternalServerError, internalError{Id: id, ErrorMessage: internalErrorMessage})
	}
}

// badRequest turns a validation failure into a 400. Field errors from ozzo are
// returned as a map keyed by field name.
func badRequest(err error) *echo.HTTPError {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"errors": verrs})
	}
	msg := strings.TrimPrefix(err.Error(), service.ErrValidation.Error()+": ")
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
