package handler

import (
	"net/http"

	"healthathome/internal/dto"
	"healthathome/internal/entity"
	"healthathome/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PrincipalHandler serves the lifecycle and retrieval endpoints for one
// principal kind; the router registers one instance per kind.
type PrincipalHandler struct {
	Kind     entity.Kind
	Service  *service.AccountService
	Validate *validator.Validate
}

func NewPrincipalHandler(kind entity.Kind, svc *service.AccountService, validate *validator.Validate) *PrincipalHandler {
	return &PrincipalHandler{Kind: kind, Service: svc, Validate: validate}
}

func (h *PrincipalHandler) Register(c echo.Context) error {
	var req dto.RegisterRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	principal, err := h.Service.Register(c.Request().Context(), h.Kind, service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.Profile,
	})
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) VerifyEmail(c echo.Context) error {
	principal, err := h.Service.VerifyEmail(c.Request().Context(), h.Kind, c.Param("token"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) ResendVerification(c echo.Context) error {
	if _, err := h.Service.ResendVerification(c.Request().Context(), h.Kind, c.Param("email")); err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "verification email sent"})
}

func (h *PrincipalHandler) Approve(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}
	principal, err := h.Service.Approve(c.Request().Context(), h.Kind, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) Reject(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}
	var req dto.RejectRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	principal, err := h.Service.Reject(c.Request().Context(), h.Kind, id, req.Reason)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) Block(c echo.Context) error {
	principal, err := h.Service.Block(c.Request().Context(), h.Kind, c.Param("email"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) Reactivate(c echo.Context) error {
	principal, err := h.Service.Reactivate(c.Request().Context(), h.Kind, c.Param("email"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) DeleteByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}
	if _, err := h.Service.DeleteByID(c.Request().Context(), h.Kind, id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PrincipalHandler) DeleteByEmail(c echo.Context) error {
	if _, err := h.Service.DeleteByEmail(c.Request().Context(), h.Kind, c.Param("email")); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PrincipalHandler) PasswordForgot(c echo.Context) error {
	var req dto.PasswordForgotRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if _, err := h.Service.ForgotPassword(c.Request().Context(), h.Kind, req.Email); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *PrincipalHandler) PasswordReset(c echo.Context) error {
	var req dto.PasswordResetRequest
	if err := decodeJSON(c, &req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if err := h.validate(req); err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	if _, err := h.Service.ResetPassword(c.Request().Context(), h.Kind, req.Token, req.NewPassword); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PrincipalHandler) GetByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}
	principal, err := h.Service.GetByID(c.Request().Context(), h.Kind, id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) GetByEmail(c echo.Context) error {
	principal, err := h.Service.GetByEmail(c.Request().Context(), h.Kind, c.Param("email"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) Exists(c echo.Context) error {
	exists, err := h.Service.ExistsByEmail(c.Request().Context(), h.Kind, c.Param("email"))
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.ExistsResponse{Exists: exists})
}

func (h *PrincipalHandler) List(c echo.Context) error {
	return h.list(c, "")
}

// ListByStatus serves the per-status retrieval routes (active, blocked,
// deleted).
func (h *PrincipalHandler) ListByStatus(status entity.AccountStatus) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h.list(c, status)
	}
}

func (h *PrincipalHandler) list(c echo.Context, status entity.AccountStatus) error {
	principals, err := h.Service.List(c.Request().Context(), h.Kind, status)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponsesFromEntities(principals))
}

func (h *PrincipalHandler) UpdateByID(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid id")
	}
	input, err := h.decodeUpdate(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	principal, err := h.Service.UpdateByID(c.Request().Context(), h.Kind, id, input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) UpdateByEmail(c echo.Context) error {
	input, err := h.decodeUpdate(c)
	if err != nil {
		return writeError(c, http.StatusBadRequest, err.Error())
	}
	principal, err := h.Service.UpdateByEmail(c.Request().Context(), h.Kind, c.Param("email"), input)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, dto.PrincipalResponseFromEntity(principal))
}

func (h *PrincipalHandler) decodeUpdate(c echo.Context) (service.UpdateInput, error) {
	var req dto.UpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		return service.UpdateInput{}, err
	}
	if err := h.validate(req); err != nil {
		return service.UpdateInput{}, err
	}
	return service.UpdateInput{
		Profile:        req.Profile,
		Password:       req.Password,
		ActivationStep: req.ActivationStep,
	}, nil
}

func (h *PrincipalHandler) validate(payload any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(payload)
}
