package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mdx-assistant/internal/core"
	"mdx-assistant/internal/i18n"
	"mdx-assistant/internal/session"
	"mdx-assistant/pkg"
)

// DefaultMaxBodyBytes bounds the size of a submitted form.
const DefaultMaxBodyBytes = 1 << 20

// HealthChecker is implemented by backends that can report readiness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server bundles together the dependencies required by HTTP handlers.
type Server struct {
	Diagnosis    *core.DiagnosisService
	Catalog      *i18n.Catalog
	Health       HealthChecker
	Logger       zerolog.Logger
	MaxBodyBytes int64
	AllowOrigins []string
}

// NewServer constructs a Server.  health may be nil when the session store
// is process local.
func NewServer(diagnosis *core.DiagnosisService, catalog *i18n.Catalog, health HealthChecker, logger zerolog.Logger) *Server {
	return &Server{
		Diagnosis:    diagnosis,
		Catalog:      catalog,
		Health:       health,
		Logger:       logger.With().Str("component", "http").Logger(),
		MaxBodyBytes: DefaultMaxBodyBytes,
		AllowOrigins: []string{"*"},
	}
}

// Router builds the gin engine serving the API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(
		s.requestLogger(),
		gin.Recovery(),
		limitBodySize(s.MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: s.AllowOrigins,
			AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}),
		gzip.Gzip(gzip.DefaultCompression),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.handleReady)

	api := router.Group("/api")
	api.POST("/sessions", s.handleCreateSession)
	api.POST("/sessions/:id/diagnosis", s.handleSubmit)
	api.GET("/sessions/:id/diagnosis", s.handleLast)
	api.DELETE("/sessions/:id/diagnosis", s.handleForget)
	api.POST("/preview", s.handlePreview)
	api.GET("/languages", s.handleLanguages)
	return router
}

func (s *Server) handleReady(c *gin.Context) {
	if s.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": "memory"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.Health.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "sessions": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": "redis"})
}

// handleCreateSession issues an anonymous session id.  Nothing is stored
// until the session's first successful diagnosis.
func (s *Server) handleCreateSession(c *gin.Context) {
	c.JSON(http.StatusCreated, gin.H{"session_id": uuid.NewString()})
}

// handleSubmit runs one diagnosis.  With ?format=html the rendered fragment
// is returned instead of JSON, for direct insertion into the page.
func (s *Server) handleSubmit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var in pkg.PatientInput
	if !s.bindInput(c, &in) {
		return
	}
	resp, err := s.Diagnosis.Submit(c.Request.Context(), id, in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if c.Query("format") == "html" {
		s.writeFragment(c, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleLast re-renders the session's cached result without a model call.
func (s *Server) handleLast(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	resp, err := s.Diagnosis.Last(c.Request.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		language := c.Query("language")
		if !s.Catalog.HasLanguage(language) {
			language = s.Catalog.DefaultLanguage()
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "no diagnosis for session",
			"notice": s.Catalog.Resolve(language, "notice_no_diagnosis_yet"),
		})
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	if c.Query("format") == "html" {
		s.writeFragment(c, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleForget drops the session's cached result.
func (s *Server) handleForget(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := s.Diagnosis.Forget(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handlePreview(c *gin.Context) {
	var in pkg.PatientInput
	if !s.bindInput(c, &in) {
		return
	}
	lines, err := s.Diagnosis.Preview(in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": lines})
}

func (s *Server) handleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"default":   s.Catalog.DefaultLanguage(),
		"languages": s.Catalog.Languages(),
	})
}

// sessionID reads the :id path parameter.  Ids are the UUIDs issued by
// POST /api/sessions; anything else is rejected before touching the store.
func sessionID(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return "", false
	}
	return id.String(), true
}

func (s *Server) bindInput(c *gin.Context, in *pkg.PatientInput) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return false
	}
	return true
}

func (s *Server) writeError(c *gin.Context, err error) {
	if ve, ok := core.AsValidationError(err); ok {
		fields := make([]pkg.FieldErrorResponse, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			fields = append(fields, pkg.FieldErrorResponse{Field: f.Field, Rule: f.Rule, Message: f.Message})
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid patient data", "fields": fields})
		return
	}
	s.Logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

var fragmentTemplate = template.Must(template.New("fragment").Parse(
	`{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}{{.HTML}}`))

func (s *Server) writeFragment(c *gin.Context, resp *pkg.DiagnosisResponse) {
	data := struct {
		Notice string
		HTML   template.HTML
	}{
		Notice: resp.Notice,
		// already escaped by core.RenderHTML
		HTML: template.HTML(resp.HTML),
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := fragmentTemplate.Execute(c.Writer, data); err != nil {
		s.Logger.Error().Err(err).Msg("failed to write fragment")
	}
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// requestLogger replaces gin's default logger with a zerolog line per
// request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		evt := s.Logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			evt = s.Logger.Error()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
