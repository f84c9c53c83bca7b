package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"todoapp/internal/model"
	"todoapp/internal/service"
	"todoapp/pkg/logger"
)

type TodoHandler struct {
	todos  *service.TodoService
	users  *service.AuthService
	logger *zap.Logger
}

func NewTodoHandler(todos *service.TodoService, users *service.AuthService, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, users: users, logger: logger}
}

type createTodoRequest struct {
	Title   string `form:"title" json:"title"`
	DueDate string `form:"dueDate" json:"dueDate"`
}

type completionRequest struct {
	Completed *bool `form:"completed" json:"completed"`
}

// ListTodos handles GET /todos
func (h *TodoHandler) ListTodos(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	groups, err := h.todos.Classify(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if WantsJSON(c) {
		c.JSON(http.StatusOK, groups.All)
		return
	}
	h.renderTodos(c, http.StatusOK, userID, groups, createTodoRequest{}, nil)
}

// CreateTodo handles POST /todos
func (h *TodoHandler) CreateTodo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req createTodoRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.todos.AddTaskFromInput(ctx, userID, req.Title, req.DueDate); err != nil {
		fields, isValidation := fieldErrors(err)
		if !isValidation || WantsJSON(c) {
			writeError(c, h.logger, err)
			return
		}
		groups, cerr := h.todos.Classify(ctx, userID)
		if cerr != nil {
			writeError(c, h.logger, cerr)
			return
		}
		h.renderTodos(c, http.StatusUnprocessableEntity, userID, groups, req, fields)
		return
	}

	c.Redirect(http.StatusFound, "/todos")
}

// GetTodo handles GET /todos/:id
func (h *TodoHandler) GetTodo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	t, err := h.todos.Task(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateTodo handles PUT /todos/:id
func (h *TodoHandler) UpdateTodo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	t, err := h.todos.Task(ctx, id, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	var req completionRequest
	if err := c.ShouldBind(&req); err != nil || req.Completed == nil {
		var verr model.ValidationError
		verr.Add("completed", "Completed must be true or false")
		writeError(c, h.logger, &verr)
		return
	}

	updated, err := h.todos.SetCompletionStatus(ctx, t, *req.Completed, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteTodo handles DELETE /todos/:id
func (h *TodoHandler) DeleteTodo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	t, err := h.todos.Task(ctx, id, userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.todos.RemoveTask(ctx, t, userID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AllTodos handles GET /alltodos
func (h *TodoHandler) AllTodos(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	tasks, err := h.todos.ListWithStatus(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (h *TodoHandler) renderTodos(c *gin.Context, status, userID int, groups *service.Classification, form createTodoRequest, fields map[string]string) {
	u, err := h.users.User(c.Request.Context(), userID)
	if err != nil {
		logger.WithTrace(c.Request.Context(), h.logger).Error("Failed to load user for todo page",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	data := page(c, "Todo Manager")
	data["user"] = u
	data["groups"] = groups
	data["form"] = form
	if fields != nil {
		data["errors"] = fields
	}
	c.HTML(status, "todos.tmpl", data)
}
