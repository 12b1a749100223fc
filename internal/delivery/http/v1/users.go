package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktrack/internal/services"
)

func (h *handlerImpl) HandleListUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to list users")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := make([]userResponse, len(users))
	for i, user := range users {
		response[i] = newUserResponse(user)
	}

	c.JSON(http.StatusOK, response)
}

type setUserActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *handlerImpl) HandleSetUserActive(c *gin.Context) {
	var req setUserActiveRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	user, err := h.users.SetActive(c, c.Param("id"), *req.Active)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to update user active flag")
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			abort(c, newNotFoundError(services.ErrUserNotFound.Error()))
		default:
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}
