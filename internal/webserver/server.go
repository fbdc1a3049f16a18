// Package webserver serves the HTML pages and the JSON analysis API.
package webserver

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_vidsum/internal/analysis"
	"github.com/anatolykoptev/go_vidsum/internal/contact"
	"github.com/anatolykoptev/go_vidsum/internal/engine"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Config wires the server to its collaborators.
type Config struct {
	Analysis *analysis.Service
	Contact  *contact.Recorder
	// UploadDir is served read-only under /static/uploads.
	UploadDir string
	// MaxUploadBytes caps a request body; 0 means 512 MiB.
	MaxUploadBytes int64
}

type server struct {
	cfg Config
}

// NewRouter constructs a gin engine with all routes registered.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 512 << 20
	}
	s := &server{cfg: cfg}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.html")))

	r.GET("/", s.index)
	r.POST("/", s.analyzePage)
	r.GET("/about", func(c *gin.Context) { c.HTML(http.StatusOK, "about.html", nil) })
	r.GET("/contact", func(c *gin.Context) { c.HTML(http.StatusOK, "contact.html", gin.H{"Success": false}) })
	r.POST("/contact", s.contactSubmit)
	r.POST("/api/analyze", s.analyzeAPI)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, engine.FormatMetrics()) })
	if cfg.UploadDir != "" {
		r.Static("/static/uploads", cfg.UploadDir)
	}
	return r
}

// requestLogger logs one line per request through slog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

func (s *server) page(extra gin.H) gin.H {
	h := gin.H{"URLVariant": s.cfg.Analysis.Variant() == analysis.VariantURL}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func (s *server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.page(nil))
}

func (s *server) readInput(c *gin.Context) (analysis.Input, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	return analysis.ReadInput(c.Request, 32<<20)
}

// analyzePage always answers 200; failures are a bare text message.
func (s *server) analyzePage(c *gin.Context) {
	in, err := s.readInput(c)
	if err != nil {
		c.String(http.StatusOK, "Error processing video: %v", err)
		return
	}
	res, err := s.cfg.Analysis.Analyze(c.Request.Context(), in)
	if err != nil {
		c.String(http.StatusOK, "%s", analysis.AsError(err).Message)
		return
	}
	c.HTML(http.StatusOK, "index.html", s.page(gin.H{"Result": res}))
}

func (s *server) analyzeAPI(c *gin.Context) {
	in, err := s.readInput(c)
	if err != nil {
		status := http.StatusBadRequest
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": gin.H{"kind": analysis.KindValidation, "message": err.Error()}})
		return
	}
	res, err := s.cfg.Analysis.Analyze(c.Request.Context(), in)
	if err != nil {
		ae := analysis.AsError(err)
		c.JSON(ae.Kind.HTTPStatus(), gin.H{"error": gin.H{"kind": ae.Kind, "message": ae.Message}})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *server) contactSubmit(c *gin.Context) {
	engine.IncrContactMessages()
	s.cfg.Contact.Record(c.Request.Context(), contact.Message{
		Name:    strings.TrimSpace(c.PostForm("name")),
		Email:   strings.TrimSpace(c.PostForm("email")),
		Message: strings.TrimSpace(c.PostForm("message")),
	})
	c.HTML(http.StatusOK, "contact.html", gin.H{"Success": true})
}
