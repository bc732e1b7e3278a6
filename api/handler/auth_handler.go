package handler

import (
	"net/http"

	"healthathome/internal/dto"
	"healthathome/internal/entity"
	"healthathome/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	Service  *service.AccountService
	Validate *validator.Validate
}

func NewAuthHandler(svc *service.AccountService, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{Service: svc, Validate: validate}
}

// LoginFor returns the login handler for one principal kind.
func (h *AuthHandler) LoginFor(kind entity.Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req dto.LoginRequest
		if err := decodeJSON(c, &req); err != nil {
			return writeError(c, http.StatusBadRequest, err.Error())
		}
		if err := h.validate(req); err != nil {
			return writeError(c, http.StatusBadRequest, err.Error())
		}
		result, err := h.Service.Login(c.Request().Context(), kind, req.Email, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(http.StatusOK, dto.LoginResponse{
			Token:     result.AccessToken,
			ExpiresIn: result.ExpiresIn,
		})
	}
}

func (h *AuthHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}
