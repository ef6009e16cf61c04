package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"workbench/internal/logging"
	"workbench/internal/services"
	"workbench/internal/todo"
)

type workspaceRequest struct {
	Name string `json:"name"`
}

type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// todoStatus maps todo failures to status codes. Missing workspaces answer
// 400 like every other client error on these routes.
func todoStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrTimeout), errors.Is(err, services.ErrFilesystem):
		return http.StatusInternalServerError
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) todoError(c *gin.Context, err error) {
	status := todoStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logging.WithContext(c.Request.Context(), s.logger), "todo request failed", "todo_failed",
			logging.Error(err),
			logging.String("todo_document", s.todo.Path()),
			logging.String(logging.FieldErrorHint, "check the todo document permissions and whether another writer holds the lock"),
			logging.String(logging.FieldImpact, "todo change not applied"),
		)
	}
	c.JSON(status, gin.H{"success": false, "error": services.Message(err)})
}

func (s *Server) todoOK(c *gin.Context, extra gin.H) {
	body := gin.H{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.todoError(c, services.Fail(services.ErrValidation, "Invalid JSON body", err))
		return false
	}
	return true
}

func taskIndex(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(strings.TrimSpace(c.Param("index")))
	if err != nil {
		return 0, services.Fail(services.ErrValidation, todo.MsgIndexOutOfRange, err)
	}
	return index, nil
}

func (s *Server) handleTodoWorkspaces(c *gin.Context) {
	names, err := s.todo.Workspaces()
	if err != nil {
		s.todoError(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	s.todoOK(c, gin.H{"workspaces": names})
}

func (s *Server) handleTodoAddWorkspace(c *gin.Context) {
	var req workspaceRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.todo.AddWorkspace(c.Request.Context(), req.Name); err != nil {
		s.todoError(c, err)
		return
	}
	s.todoOK(c, nil)
}

func (s *Server) handleTodoRemoveWorkspace(c *gin.Context) {
	if err := s.todo.RemoveWorkspace(c.Request.Context(), c.Param("name")); err != nil {
		s.todoError(c, err)
		return
	}
	s.todoOK(c, nil)
}

func (s *Server) handleTodoTasks(c *gin.Context) {
	tasks, err := s.todo.Tasks(c.Param("workspace"))
	if err != nil {
		s.todoError(c, err)
		return
	}
	if tasks == nil {
		tasks = []todo.Task{}
	}
	s.todoOK(c, gin.H{"tasks": tasks})
}

func (s *Server) handleTodoAddTask(c *gin.Context) {
	var req taskRequest
	if !s.bindJSON(c, &req) {
		return
	}
	if err := s.todo.AddTask(c.Request.Context(), c.Param("workspace"), req.Title, req.Description); err != nil {
		s.todoError(c, err)
		return
	}
	s.todoOK(c, nil)
}

func (s *Server) handleTodoRemoveTask(c *gin.Context) {
	index, err := taskIndex(c)
	if err != nil {
		s.todoError(c, err)
		return
	}
	if err := s.todo.RemoveTask(c.Request.Context(), c.Param("workspace"), index); err != nil {
		s.todoError(c, err)
		return
	}
	s.todoOK(c, nil)
}

func (s *Server) handleTodoEditTask(c *gin.Context) {
	index, err := taskIndex(c)
	if err != nil {
		s.todoError(c, err)
		return
	}
	var update todo.TaskUpdate
	if !s.bindJSON(c, &update) {
		return
	}
	if err := s.todo.EditTask(c.Request.Context(), c.Param("workspace"), index, update); err != nil {
		s.todoError(c, err)
		return
	}
	s.todoOK(c, nil)
}
