package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"tasktrack/internal/auth"
	"tasktrack/internal/clock"
	"tasktrack/internal/config"
	v1 "tasktrack/internal/delivery/http/v1"
	"tasktrack/internal/services"
	"tasktrack/internal/store"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	jwtCfg := config.Global().JWT
	systemClock := clock.System()

	tokenService := auth.NewTokenService(
		jwtCfg.Issuer,
		jwtCfg.Audience,
		[]byte(jwtCfg.SigningKey),
		jwtCfg.TokenTTL,
		systemClock,
	)
	credentialStore := store.NewCredentialStore(globalLogger, globalPostgresPool)
	authenticator := auth.NewAuthenticator(globalLogger, tokenService, credentialStore)

	v1Handler := v1.New(
		globalLogger,
		authenticator,
		services.NewAuthService(globalLogger, credentialStore, tokenService, systemClock),
		services.NewTaskService(globalLogger, globalPostgresPool, systemClock),
		services.NewUserService(globalLogger, credentialStore, systemClock),
	)
	router = router.Group("/api/v1")

	authRouter := router.Group("/auth")
	authRouter.POST("/register", v1Handler.HandleRegister)
	authRouter.POST("/login", v1Handler.HandleLogin)
	authRouter.POST("/password", v1Handler.HandleAuthMiddleware, v1Handler.HandleChangePassword)

	taskRouter := router.Group("/tasks", v1Handler.HandleAuthMiddleware)
	taskRouter.GET("", v1Handler.HandleListTasks)
	taskRouter.POST("", v1Handler.HandleCreateTask)
	taskRouter.GET("/stats", v1Handler.HandleTaskStats)
	taskRouter.GET("/:id", v1Handler.HandleGetTask)
	taskRouter.PATCH("/:id", v1Handler.HandleUpdateTask)
	taskRouter.DELETE("/:id", v1Handler.HandleDeleteTask)
	taskRouter.POST("/:id/comments", v1Handler.HandleAddComment)

	userRouter := router.Group("/users", v1Handler.HandleAuthMiddleware, v1Handler.HandleAdminMiddleware)
	userRouter.GET("", v1Handler.HandleListUsers)
	userRouter.PATCH("/:id/active", v1Handler.HandleSetUserActive)
}
