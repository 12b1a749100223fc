package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tasktrack/internal/auth"
	"tasktrack/internal/services"
)

type Handler interface {
	HandleRegister(c *gin.Context)
	HandleLogin(c *gin.Context)
	HandleChangePassword(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)
	HandleAdminMiddleware(c *gin.Context)

	HandleListTasks(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleCreateTask(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleAddComment(c *gin.Context)
	HandleTaskStats(c *gin.Context)

	HandleListUsers(c *gin.Context)
	HandleSetUserActive(c *gin.Context)
}

type handlerImpl struct {
	logger        zerolog.Logger
	authenticator *auth.Authenticator
	auth          services.AuthService
	tasks         services.TaskService
	users         services.UserService
}

func New(
	logger zerolog.Logger,
	authenticator *auth.Authenticator,
	authService services.AuthService,
	taskService services.TaskService,
	userService services.UserService,
) Handler {
	return &handlerImpl{
		logger:        logger,
		authenticator: authenticator,
		auth:          authService,
		tasks:         taskService,
		users:         userService,
	}
}
