package routes

import (
	"time"

	"healthathome/api/handler"
	"healthathome/api/middleware"
	"healthathome/internal/entity"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	Patients       *handler.PrincipalHandler
	Practitioners  *handler.PrincipalHandler
	Admins         *handler.PrincipalHandler
	AuthMiddleware middleware.AuthMiddleware
	AuthRate       *middleware.RateLimiter
	LoginRate      *middleware.RateLimiter
}

func NewRouter(
	e *echo.Echo,
	auth *handler.AuthHandler,
	patients *handler.PrincipalHandler,
	practitioners *handler.PrincipalHandler,
	admins *handler.PrincipalHandler,
	authMiddleware middleware.AuthMiddleware,
) *Router {
	return &Router{
		Echo:           e,
		Auth:           auth,
		Patients:       patients,
		Practitioners:  practitioners,
		Admins:         admins,
		AuthMiddleware: authMiddleware,
		AuthRate:       middleware.NewRateLimiter(rate.Limit(5), 10, 5*time.Minute),
		LoginRate:      middleware.NewRateLimiter(rate.Limit(2), 4, 10*time.Minute),
	}
}

func (r *Router) RegisterRoutes() {
	e := r.Echo

	e.POST("/auth/patient/login", r.Auth.LoginFor(entity.KindPatient), r.LoginRate.Middleware())
	e.POST("/auth/practitioner/login", r.Auth.LoginFor(entity.KindPractitioner), r.LoginRate.Middleware())
	e.POST("/auth/admin/login", r.Auth.LoginFor(entity.KindAdmin), r.LoginRate.Middleware())

	r.registerPrincipalRoutes("/patients", r.Patients)
	r.registerPrincipalRoutes("/practitioners", r.Practitioners)
	r.registerPrincipalRoutes("/admins", r.Admins)
}

func (r *Router) registerPrincipalRoutes(prefix string, h *handler.PrincipalHandler) {
	requireAuth := r.AuthMiddleware.RequireAuth
	requireAdmin := middleware.RequireRole(string(entity.KindAdmin))
	group := r.Echo.Group(prefix)

	group.POST("", h.Register, r.AuthRate.Middleware())
	group.GET("/verify/:token", h.VerifyEmail, r.AuthRate.Middleware())
	group.POST("/resend-verification/:email", h.ResendVerification, r.AuthRate.Middleware())
	group.GET("/exists/:email", h.Exists, r.AuthRate.Middleware())
	group.POST("/password/forgot", h.PasswordForgot, r.LoginRate.Middleware())
	group.POST("/password/reset", h.PasswordReset, r.AuthRate.Middleware())

	group.GET("", h.List, requireAuth, requireAdmin)
	group.GET("/active", h.ListByStatus(entity.AccountActive), requireAuth, requireAdmin)
	group.GET("/blocked", h.ListByStatus(entity.AccountBlocked), requireAuth, requireAdmin)
	group.GET("/deleted", h.ListByStatus(entity.AccountDeleted), requireAuth, requireAdmin)

	group.GET("/:id", h.GetByID, requireAuth)
	group.GET("/email/:email", h.GetByEmail, requireAuth)
	group.PATCH("/:id", h.UpdateByID, requireAuth)
	group.PATCH("/email/:email", h.UpdateByEmail, requireAuth)
	group.DELETE("/:id", h.DeleteByID, requireAuth)
	group.DELETE("/email/:email", h.DeleteByEmail, requireAuth)

	group.PATCH("/:id/approve", h.Approve, requireAuth, requireAdmin)
	group.PATCH("/:id/reject", h.Reject, requireAuth, requireAdmin)
	group.PATCH("/block/:email", h.Block, requireAuth, requireAdmin)
	group.PATCH("/reactivate/:email", h.Reactivate, requireAuth, requireAdmin)
}
