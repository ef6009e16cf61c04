package httpapi

import (
	_ "embed"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"workbench/internal/history"
	"workbench/internal/logging"
	"workbench/internal/preflight"
)

//go:embed index.html
var indexHTML []byte

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	preflight.Report
	Ready         bool             `json:"ready"`
	WorkspaceRoot string           `json:"workspace_root"`
	TodoDocument  string           `json:"todo_document"`
	History       *history.Summary `json:"history,omitempty"`
}

// HistoryResponse is the payload of GET /api/history.
type HistoryResponse struct {
	Enabled bool          `json:"enabled"`
	Runs    []history.Run `json:"runs"`
}

func (s *Server) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) handleStatus(c *gin.Context) {
	report := preflight.Collect(s.cfg)
	resp := StatusResponse{
		Ready:         report.Ready(),
		WorkspaceRoot: s.cfg.Paths.WorkspaceRoot,
		TodoDocument:  s.todo.Path(),
		Report:        report,
	}
	if s.history != nil {
		summary, err := s.history.Summarize(c.Request.Context())
		if err != nil {
			logging.WarnWithContext(logging.WithContext(c.Request.Context(), s.logger), "history summary failed", "history_summary_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "status omits history counts"),
			)
		} else {
			resp.History = &summary
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}
	if s.history == nil {
		c.JSON(http.StatusOK, HistoryResponse{Enabled: false, Runs: []history.Run{}})
		return
	}
	runs, err := s.history.List(c.Request.Context(), history.ClampLimit(limit))
	if err != nil {
		logging.WarnWithContext(logging.WithContext(c.Request.Context(), s.logger), "history list failed", "history_list_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the data_dir history.db file"),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read history"})
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	c.JSON(http.StatusOK, HistoryResponse{Enabled: true, Runs: runs})
}
