package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"workbench/internal/config"
	"workbench/internal/deps"
	"workbench/internal/history"
	"workbench/internal/logging"
	"workbench/internal/params"
	"workbench/internal/processing"
	"workbench/internal/services"
	"workbench/internal/services/pdftools"
	"workbench/internal/services/videotools"
	"workbench/internal/todo"
	"workbench/internal/workspace"
)

// RequestIDHeader carries the correlation identifier in both directions.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 5 * time.Second

// Server owns the gin engine and the collaborators its handlers call.
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	limits    params.Limits
	maxUpload int64

	runner  *processing.Runner
	pdf     *pdftools.Tools
	video   *videotools.Tools
	todo    *todo.Store
	history *history.Store

	engine   *gin.Engine
	listener net.Listener
	server   *http.Server
}

type options struct {
	exec    services.Executor
	history *history.Store
	todo    *todo.Store
}

// Option customises a Server.
type Option func(*options)

// WithExecutor routes Ghostscript, ffmpeg and ffprobe invocations through exec.
func WithExecutor(exec services.Executor) Option {
	return func(o *options) { o.exec = exec }
}

// WithHistory records every file-processing run in store and serves it from
// /api/history. The caller keeps ownership of store.
func WithHistory(store *history.Store) Option {
	return func(o *options) { o.history = store }
}

// WithTodoStore replaces the todo store built from the configuration.
func WithTodoStore(store *todo.Store) Option {
	return func(o *options) { o.todo = store }
}

// New wires the handlers for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("httpapi: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := options{exec: services.CommandExecutor{}}
	for _, opt := range opts {
		opt(&o)
	}

	manager := workspace.NewManager(cfg.Paths.WorkspaceRoot, logger)
	var runnerOpts []processing.Option
	if o.history != nil {
		runnerOpts = append(runnerOpts, processing.WithRecorder(o.history, cfg.History.Retain))
	}
	todoStore := o.todo
	if todoStore == nil {
		todoStore = todo.NewFromConfig(cfg, logger)
	}

	s := &Server{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "api-server"),
		limits: params.Limits{
			MaxImages:    cfg.Limits.MaxImages,
			MaxVideos:    cfg.Limits.MaxVideos,
			MinMergePDFs: cfg.Limits.MinMergePDFs,
			MaxDimension: cfg.Limits.MaxDimension,
		},
		maxUpload: cfg.MaxUploadBytes(),
		runner:    processing.NewRunner(manager, logger, runnerOpts...),
		pdf:       pdftools.New(cfg.Tools.Ghostscript, logger, pdftools.WithExecutor(o.exec)),
		video: videotools.New(
			cfg.Tools.FFmpeg,
			deps.ResolveFFprobe(cfg.Tools.FFmpeg, cfg.Tools.FFprobe),
			o.exec,
			logger,
		),
		todo:    todoStore,
		history: o.history,
	}
	s.engine = s.buildEngine()
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler exposes the routes for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.MaxMultipartMemory = 32 << 20
	engine.Use(s.requestID(), s.accessLog(), gin.CustomRecovery(s.recovered))
	if len(s.cfg.API.CORSOrigins) > 0 {
		engine.Use(cors.New(corsConfig(s.cfg.API.CORSOrigins)))
	}

	engine.GET("/", s.handleIndex)

	images := engine.Group("/api/image-tools")
	images.POST("/resize", s.handleResize)
	images.POST("/filters", s.handleFilters)

	pdfs := engine.Group("/pdf-tools")
	pdfs.POST("/merge", s.handleMerge)
	pdfs.POST("/split", s.handleSplit)
	pdfs.POST("/compress", s.handleCompress)

	engine.POST("/api/video-tools/process", s.handleVideo)

	todos := engine.Group("/api/todo")
	todos.GET("/workspaces", s.handleTodoWorkspaces)
	todos.POST("/workspace", s.handleTodoAddWorkspace)
	todos.DELETE("/workspace/:name", s.handleTodoRemoveWorkspace)
	todos.GET("/tasks/:workspace", s.handleTodoTasks)
	todos.POST("/tasks/:workspace", s.handleTodoAddTask)
	todos.DELETE("/tasks/:workspace/:index", s.handleTodoRemoveTask)
	todos.PUT("/tasks/:workspace/:index", s.handleTodoEditTask)

	engine.GET("/api/status", s.handleStatus)
	engine.GET("/api/history", s.handleHistory)
	return engine
}

func corsConfig(origins []string) cors.Config {
	conf := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
		ExposeHeaders: []string{"Content-Disposition", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			conf.AllowAllOrigins = true
			return conf
		}
	}
	conf.AllowOrigins = origins
	return conf
}

// Start listens on the configured bind address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	bind := strings.TrimSpace(s.cfg.API.Bind)
	if bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the listener down, waiting for in-flight requests up to five
// seconds.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(services.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// validRequestID accepts 1-64 characters from [A-Za-z0-9._-].
func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		logger := logging.WithContext(c.Request.Context(), s.logger)
		attrs := []logging.Attr{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", c.Writer.Status()),
			logging.Int("response_bytes", c.Writer.Size()),
			logging.Duration("duration", time.Since(started)),
			logging.String(logging.FieldEventType, "http_request"),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("http request", logging.Args(attrs...)...)
			return
		}
		logger.Debug("http request", logging.Args(attrs...)...)
	}
}

func (s *Server) recovered(c *gin.Context, recovered any) {
	logging.ErrorWithContext(logging.WithContext(c.Request.Context(), s.logger), "handler panic", "handler_panic",
		logging.String("panic", fmt.Sprint(recovered)),
		logging.String("path", c.Request.URL.Path),
		logging.String(logging.FieldErrorHint, "inspect the stack trace and the request that triggered it"),
		logging.String(logging.FieldImpact, "request failed with 500"),
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// writeError renders a file-route failure as {"error": msg}.
func (s *Server) writeError(c *gin.Context, err error) {
	c.JSON(services.HTTPStatus(err), gin.H{"error": services.Message(err)})
}
