package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tasktrack/internal/models"
	"tasktrack/internal/query"
	"tasktrack/internal/services"
)

type taskResponse struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Category     string     `json:"category"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	AssignedToID string     `json:"assigned_to_id"`
	CreatedByID  string     `json:"created_by_id"`
	Tags         []string   `json:"tags,omitempty"`
	Archived     bool       `json:"archived"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func newTaskResponse(task *models.Task) taskResponse {
	return taskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Status:       string(task.Status),
		Priority:     string(task.Priority),
		Category:     task.Category,
		DueDate:      task.DueDate,
		CompletedAt:  task.CompletedAt,
		AssignedToID: task.AssignedToID,
		CreatedByID:  task.CreatedByID,
		Tags:         task.Tags,
		Archived:     task.Archived,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}
}

type commentResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type listTasksResponse struct {
	Items    []taskResponse `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Pages    int64          `json:"pages"`
}

func (h *handlerImpl) HandleListTasks(c *gin.Context) {
	callerID, role, ok := callerFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))

	params := query.Params{
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Category:   c.Query("category"),
		AssignedTo: c.Query("assignedTo"),
		CreatedBy:  c.Query("createdBy"),
		Archived:   c.Query("archived"),
		DueDate:    c.Query("dueDate"),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
		Page:       page,
		PageSize:   pageSize,
	}

	result, err := h.tasks.List(c, callerID, role, params)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to list tasks")
		abortTaskError(c, err)
		return
	}

	items := make([]taskResponse, len(result.Items))
	for i, task := range result.Items {
		items[i] = newTaskResponse(task)
	}

	c.JSON(http.StatusOK, listTasksResponse{
		Items:    items,
		Total:    result.Total,
		Page:     result.Page,
		PageSize: result.PageSize,
		Pages:    result.Pages,
	})
}

type getTaskResponse struct {
	taskResponse
	Comments []commentResponse `json:"comments"`
}

func (h *handlerImpl) HandleGetTask(c *gin.Context) {
	callerID, role, ok := callerFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	detail, err := h.tasks.Get(c, callerID, role, c.Param("id"))
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to get task")
		abortTaskError(c, err)
		return
	}

	comments := make([]commentResponse, len(detail.Comments))
	for i, comment := range detail.Comments {
		comments[i] = commentResponse{
			ID:        comment.ID,
			AuthorID:  comment.AuthorID,
			Content:   comment.Content,
			CreatedAt: comment.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, getTaskResponse{
		taskResponse: newTaskResponse(detail.Task),
		Comments:     comments,
	})
}

type createTaskRequest struct {
	Title        string     `json:"title" binding:"required,max=200"`
	Description  string     `json:"description" binding:"max=1000"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	Category     string     `json:"category" binding:"max=50"`
	DueDate      *time.Time `json:"due_date"`
	AssignedToID string     `json:"assigned_to_id"`
	Tags         []string   `json:"tags" binding:"max=20,dive,max=30"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	callerID, role, ok := callerFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.Create(c, callerID, role, services.CreateTaskParams{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		Category:     req.Category,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
		Tags:         req.Tags,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to create task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newTaskResponse(task))
}

type updateTaskRequest struct {
	Title        *string    `json:"title,omitempty"`
	Description  *string    `json:"description,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
	Category     *string    `json:"category,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ClearDueDate bool       `json:"clear_due_date,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Archived     *bool      `json:"archived,omitempty"`
	AssignedToID *string    `json:"assigned_to_id,omitempty"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	callerID, role, ok := callerFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	changes := models.TaskChanges{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
		Tags:         req.Tags,
		Archived:     req.Archived,
		AssignedToID: req.AssignedToID,
	}
	if req.Status != nil {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			abortTaskError(c, err)
			return
		}
		changes.Status = &status
	}
	if req.Priority != nil {
		priority, err := models.ParsePriority(*req.Priority)
		if err != nil {
			abortTaskError(c, err)
			return
		}
		changes.Priority = &priority
	}

	task, err := h.tasks.Update(c, callerID, role, c.Param("id"), changes)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to update task")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	callerID, role, ok := callerFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	err := h.tasks.Delete(c, callerID, role, c.Param("id"))
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to delete task")
		abortTaskError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type addCommentRequest struct {
	Content string `json:"content" binding:"required,max=500"`
}

func (h *handlerImpl) HandleAddComment(c *gin.Context) {
	callerID, role, ok := callerFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var req addCommentRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	comment, err := h.tasks.AddComment(c, callerID, role, c.Param("id"), req.Content)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to add comment")
		abortTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, commentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	})
}

type taskStatsResponse struct {
	ByStatus           map[string]int64 `json:"by_status"`
	ByPriority         map[string]int64 `json:"by_priority"`
	Overdue            int64            `json:"overdue"`
	CompletedThisMonth int64            `json:"completed_this_month"`
}

func (h *handlerImpl) HandleTaskStats(c *gin.Context) {
	callerID, role, ok := callerFromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	stats, err := h.tasks.StatsByScope(c, callerID, role)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to aggregate task stats")
		abort(c, newStatusTextError(http.StatusInternalServerError))
		return
	}

	response := taskStatsResponse{
		ByStatus:           make(map[string]int64, len(stats.ByStatus)),
		ByPriority:         make(map[string]int64, len(stats.ByPriority)),
		Overdue:            stats.Overdue,
		CompletedThisMonth: stats.CompletedThisMonth,
	}
	for status, count := range stats.ByStatus {
		response.ByStatus[string(status)] = count
	}
	for priority, count := range stats.ByPriority {
		response.ByPriority[string(priority)] = count
	}

	c.JSON(http.StatusOK, response)
}
