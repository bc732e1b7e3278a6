package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"healthathome/internal/service"

	"github.com/labstack/echo/v4"
)

func decodeJSON(c echo.Context, target any) error {
	decoder := json.NewDecoder(c.Request().Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"message": message})
}

// writeServiceError maps the service error taxonomy to HTTP statuses.
// NotFound and credential failures get deliberately generic bodies so the
// response does not reveal which lookup or field failed; unexpected errors
// never echo internal detail to the client.
func writeServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		return writeError(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrEmailTaken):
		return writeError(c, http.StatusConflict, err.Error())
	}
	return writeError(c, http.StatusInternalServerError, "internal server error")
}
