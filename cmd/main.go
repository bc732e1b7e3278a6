package main

import (
	"net/http"
	"os"
	"time"

	"healthathome/api/handler"
	apiMiddleware "healthathome/api/middleware"
	"healthathome/api/routes"
	"healthathome/config"
	"healthathome/internal/entity"
	"healthathome/internal/repository"
	"healthathome/internal/service"
	"healthathome/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
)

func main() {
	db := config.ConnectDB()
	validate := validator.New()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	secret := []byte(os.Getenv("JWT_SECRET"))
	if len(secret) == 0 {
		logger.Fatal("JWT_SECRET is required")
	}
	jwtManager := utils.JWTManager{
		Secret:         secret,
		Issuer:         os.Getenv("JWT_ISSUER"),
		AccessTokenTTL: 30 * time.Minute,
	}

	notifier := service.NewResendNotifier(
		os.Getenv("RESEND_API_KEY"),
		os.Getenv("MAIL_FROM"),
		os.Getenv("FRONTEND_URL"),
	)
	dispatcher := service.NewDispatcher(notifier, logger)

	principalRepo := repository.NewPrincipalRepository(db)
	accountService := service.NewAccountService(
		principalRepo,
		dispatcher,
		service.BcryptPasswordHasher{},
		service.HexTokenSource{},
		service.JWTAccessIssuer{Manager: &jwtManager},
		service.RealClock{},
		logger,
	)

	authHandler := handler.NewAuthHandler(accountService, validate)
	patientHandler := handler.NewPrincipalHandler(entity.KindPatient, accountService, validate)
	practitionerHandler := handler.NewPrincipalHandler(entity.KindPractitioner, accountService, validate)
	adminHandler := handler.NewPrincipalHandler(entity.KindAdmin, accountService, validate)

	app := echo.New()
	app.HideBanner = true
	app.HidePort = true
	app.Use(echoMiddleware.Recover())
	app.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:   true,
		LogMethod:   true,
		LogURI:      true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"status": v.Status,
				"method": v.Method,
				"uri":    v.URI,
				"ip":     v.RemoteIP,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request")
				return nil
			}
			entry.Info("request")
			return nil
		},
	}))

	authMiddleware := apiMiddleware.AuthMiddleware{JWT: &jwtManager}
	router := routes.NewRouter(app, authHandler, patientHandler, practitionerHandler, adminHandler, authMiddleware)
	router.RegisterRoutes()

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithField("addr", addr).Info("server started")
	if err := app.StartServer(server); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
