package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"tasktrack/internal/access"
	"tasktrack/internal/clock"
	"tasktrack/internal/models"
	"tasktrack/internal/query"
)

type taskServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
	clock  clock.Clock
}

func NewTaskService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	clk clock.Clock,
) TaskService {
	return &taskServiceImpl{
		logger: logger,
		pgPool: pgPool,
		clock:  clk,
	}
}

const taskColumns = `id,
       title,
       description,
       status,
       priority,
       category,
       due_date,
       completed_at,
       assigned_to_id,
       created_by_id,
       tags,
       archived,
       created_at,
       updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	task := new(models.Task)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.Category,
		&task.DueDate,
		&task.CompletedAt,
		&task.AssignedToID,
		&task.CreatedByID,
		&task.Tags,
		&task.Archived,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// reassignmentForbidden reports whether handing the task to target is a
// reassignment the caller's role does not permit. Assigning to oneself
// or resubmitting the current assignee is never a reassignment.
func reassignmentForbidden(callerID string, role models.Role, currentAssigneeID, target string) bool {
	return target != callerID &&
		target != currentAssigneeID &&
		!access.CanReassign(role)
}

// mapAssigneeError translates the foreign-key violation raised by a
// nonexistent assignee into a validation failure instead of a plain
// storage error.
func mapAssigneeError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("%w: assigned user does not exist", models.ErrValidation)
	}
	return err
}

func (s *taskServiceImpl) loadTask(ctx context.Context, taskID string) (*models.Task, error) {
	const selectTaskByIDQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1
`
	task, err := scanTask(s.pgPool.QueryRow(ctx, selectTaskByIDQuery, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn().
				Str("task_id", taskID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select task by id")
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) List(ctx context.Context, callerID string, role models.Role, params query.Params) (*TaskPage, error) {
	descriptor, err := query.Build(callerID, role, params, s.clock.Now())
	if err != nil {
		return nil, err
	}

	// Page and count run off the same rendered predicate so
	// pages = ceil(total/limit) stays consistent.
	selectQuery := "SELECT " + taskColumns + " FROM tasks"
	countQuery := "SELECT COUNT(*) FROM tasks"
	if descriptor.Where != "" {
		selectQuery += " WHERE " + descriptor.Where
		countQuery += " WHERE " + descriptor.Where
	}
	selectQuery += " ORDER BY " + descriptor.OrderBy
	selectQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d",
		len(descriptor.Args)+1, len(descriptor.Args)+2)

	pageArgs := make([]any, 0, len(descriptor.Args)+2)
	pageArgs = append(pageArgs, descriptor.Args...)
	pageArgs = append(pageArgs, descriptor.Limit, descriptor.Offset)

	rows, err := s.pgPool.Query(ctx, selectQuery, pageArgs...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0, descriptor.Limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	var total int64
	err = s.pgPool.QueryRow(ctx, countQuery, descriptor.Args...).Scan(&total)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to count tasks")
		return nil, err
	}

	s.logger.Debug().
		Int("count", len(tasks)).
		Int64("total", total).
		Int("page", descriptor.Page).
		Msg("selected tasks")
	return &TaskPage{
		Items:    tasks,
		Total:    total,
		Page:     descriptor.Page,
		PageSize: descriptor.PageSize,
		Pages:    (total + int64(descriptor.PageSize) - 1) / int64(descriptor.PageSize),
	}, nil
}

func (s *taskServiceImpl) Get(ctx context.Context, callerID string, role models.Role, taskID string) (*TaskDetail, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !access.CanView(callerID, role, task) {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("caller_id", callerID).
			Msg("caller may not view task")
		return nil, ErrForbidden
	}

	const selectCommentsQuery = `
SELECT id,
       task_id,
       author_id,
       content,
       created_at
FROM comments
WHERE task_id = $1
ORDER BY created_at ASC
`
	rows, err := s.pgPool.Query(ctx, selectCommentsQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select comments")
		return nil, err
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		comment := new(models.Comment)
		err = rows.Scan(
			&comment.ID,
			&comment.TaskID,
			&comment.AuthorID,
			&comment.Content,
			&comment.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan comment")
			return nil, err
		}
		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	return &TaskDetail{
		Task:     task,
		Comments: comments,
	}, nil
}

func (s *taskServiceImpl) Create(ctx context.Context, callerID string, role models.Role, params CreateTaskParams) (*models.Task, error) {
	assignedTo := params.AssignedToID
	if assignedTo == "" {
		assignedTo = callerID
	}
	if reassignmentForbidden(callerID, role, callerID, assignedTo) {
		s.logger.Warn().
			Str("caller_id", callerID).
			Str("assigned_to_id", assignedTo).
			Msg("caller may not assign tasks to others")
		return nil, ErrForbidden
	}

	status := models.StatusPending
	if params.Status != "" {
		parsed, err := models.ParseStatus(params.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	priority := models.PriorityMedium
	if params.Priority != "" {
		parsed, err := models.ParsePriority(params.Priority)
		if err != nil {
			return nil, err
		}
		priority = parsed
	}
	category := params.Category
	if category == "" {
		category = models.DefaultCategory
	}

	now := s.clock.Now()
	task := &models.Task{
		Title:        params.Title,
		Description:  params.Description,
		Priority:     priority,
		Category:     category,
		DueDate:      params.DueDate,
		AssignedToID: assignedTo,
		CreatedByID:  callerID,
		Tags:         params.Tags,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	task.SetStatus(status, now)

	err := task.Validate(now, true)
	if err != nil {
		return nil, err
	}

	taskUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}
	task.ID = taskUUID.String()

	const insertTaskQuery = `
INSERT INTO tasks (id,
                   title,
                   description,
                   status,
                   priority,
                   category,
                   due_date,
                   completed_at,
                   assigned_to_id,
                   created_by_id,
                   tags,
                   archived,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertTaskQuery,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.Category,
		task.DueDate,
		task.CompletedAt,
		task.AssignedToID,
		task.CreatedByID,
		task.Tags,
		task.Archived,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		err = mapAssigneeError(err)
		if errors.Is(err, models.ErrValidation) {
			s.logger.Warn().
				Str("assigned_to_id", task.AssignedToID).
				Msg("assignee does not exist")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("created_by_id", task.CreatedByID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) Update(ctx context.Context, callerID string, role models.Role, taskID string, changes models.TaskChanges) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !access.CanModify(callerID, role, task) {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("caller_id", callerID).
			Msg("caller may not modify task")
		return nil, ErrForbidden
	}

	// The reassignment check runs before any write.
	if changes.AssignedToID != nil &&
		reassignmentForbidden(callerID, role, task.AssignedToID, *changes.AssignedToID) {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("caller_id", callerID).
			Str("assigned_to_id", *changes.AssignedToID).
			Msg("caller may not reassign task")
		return nil, ErrForbidden
	}

	now := s.clock.Now()
	task.Apply(changes, role, now)

	err = task.Validate(now, false)
	if err != nil {
		return nil, err
	}

	const updateTaskQuery = `
UPDATE tasks
SET title = $1,
    description = $2,
    status = $3,
    priority = $4,
    category = $5,
    due_date = $6,
    completed_at = $7,
    assigned_to_id = $8,
    tags = $9,
    archived = $10,
    updated_at = $11
WHERE id = $12
`
	_, err = s.pgPool.Exec(
		ctx,
		updateTaskQuery,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.Category,
		task.DueDate,
		task.CompletedAt,
		task.AssignedToID,
		task.Tags,
		task.Archived,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		err = mapAssigneeError(err)
		if errors.Is(err, models.ErrValidation) {
			s.logger.Warn().
				Str("task_id", task.ID).
				Str("assigned_to_id", task.AssignedToID).
				Msg("assignee does not exist")
			return nil, err
		}

		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return nil, err
	}

	s.logger.Info().
		Str("task_id", task.ID).
		Str("caller_id", callerID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) Delete(ctx context.Context, callerID string, role models.Role, taskID string) error {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	if !access.CanModify(callerID, role, task) {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("caller_id", callerID).
			Msg("caller may not delete task")
		return ErrForbidden
	}

	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := s.pgPool.Exec(ctx, deleteTaskQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("caller_id", callerID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) AddComment(ctx context.Context, callerID string, role models.Role, taskID, content string) (*models.Comment, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !access.CanModify(callerID, role, task) {
		s.logger.Warn().
			Str("task_id", taskID).
			Str("caller_id", callerID).
			Msg("caller may not comment on task")
		return nil, ErrForbidden
	}

	err = models.ValidateComment(content)
	if err != nil {
		return nil, err
	}

	commentUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate comment uuid")
		return nil, err
	}

	comment := &models.Comment{
		ID:        commentUUID.String(),
		TaskID:    taskID,
		AuthorID:  callerID,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}

	const insertCommentQuery = `
INSERT INTO comments (id,
                      task_id,
                      author_id,
                      content,
                      created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertCommentQuery,
		comment.ID,
		comment.TaskID,
		comment.AuthorID,
		comment.Content,
		comment.CreatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert comment")
		return nil, err
	}

	s.logger.Info().
		Str("comment_id", comment.ID).
		Str("task_id", taskID).
		Msg("added comment")
	return comment, nil
}

func (s *taskServiceImpl) StatsByScope(ctx context.Context, callerID string, role models.Role) (*TaskStats, error) {
	now := s.clock.Now()
	stats := &TaskStats{
		ByStatus:   make(map[models.Status]int64),
		ByPriority: make(map[models.Priority]int64),
	}

	err := s.countGrouped(ctx, callerID, role, "status", func(key string, count int64) {
		stats.ByStatus[models.Status(key)] = count
	})
	if err != nil {
		return nil, err
	}

	err = s.countGrouped(ctx, callerID, role, "priority", func(key string, count int64) {
		stats.ByPriority[models.Priority(key)] = count
	})
	if err != nil {
		return nil, err
	}

	overdueScope := query.NewBuilder()
	overdueScope.OwnershipScope(callerID, role)
	overdueScope.And("archived = FALSE")
	overdueScope.And(fmt.Sprintf("(due_date < %s AND status NOT IN (%s, %s))",
		overdueScope.Bind(now),
		overdueScope.Bind(models.StatusCompleted),
		overdueScope.Bind(models.StatusCancelled)))

	stats.Overdue, err = s.countWhere(ctx, overdueScope)
	if err != nil {
		return nil, err
	}

	// Calendar-month window in the server timezone; archived tasks
	// still count here.
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthScope := query.NewBuilder()
	monthScope.OwnershipScope(callerID, role)
	monthScope.And(fmt.Sprintf("(completed_at >= %s AND completed_at < %s)",
		monthScope.Bind(monthStart),
		monthScope.Bind(monthStart.AddDate(0, 1, 0))))

	stats.CompletedThisMonth, err = s.countWhere(ctx, monthScope)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("caller_id", callerID).
		Int64("overdue", stats.Overdue).
		Int64("completed_this_month", stats.CompletedThisMonth).
		Msg("aggregated task stats")
	return stats, nil
}

func (s *taskServiceImpl) countGrouped(ctx context.Context, callerID string, role models.Role, column string, visit func(key string, count int64)) error {
	scope := query.NewBuilder()
	scope.OwnershipScope(callerID, role)
	scope.And("archived = FALSE")
	where, args := scope.Where()

	groupQuery := "SELECT " + column + ", COUNT(*) FROM tasks"
	if where != "" {
		groupQuery += " WHERE " + where
	}
	groupQuery += " GROUP BY " + column

	rows, err := s.pgPool.Query(ctx, groupQuery, args...)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("column", column).
			Msg("failed to count tasks by column")
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		err = rows.Scan(&key, &count)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan count")
			return err
		}
		visit(key, count)
	}
	return rows.Err()
}

func (s *taskServiceImpl) countWhere(ctx context.Context, scope *query.Builder) (int64, error) {
	where, args := scope.Where()
	countQuery := "SELECT COUNT(*) FROM tasks"
	if where != "" {
		countQuery += " WHERE " + where
	}

	var count int64
	err := s.pgPool.QueryRow(ctx, countQuery, args...).Scan(&count)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to count tasks")
		return 0, err
	}
	return count, nil
}
