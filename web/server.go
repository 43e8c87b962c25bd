package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"go.jacobcolvin.com/crdview/crd"
	"go.jacobcolvin.com/crdview/metrics"
	"go.jacobcolvin.com/crdview/session"
	"go.jacobcolvin.com/crdview/source"
)

// ErrBusy indicates a load was requested while another was in flight.
var ErrBusy = errors.New("a load is already in progress")

//go:embed templates/*.html
var templates embed.FS

// Server is the browser front end. It holds one [session.Session] for the
// loaded collection; selection and expansion live in each request's URL.
type Server struct {
	sess    *session.Session
	metrics *metrics.Metrics
	engine  *gin.Engine
	src     source.Source
	urlSrc  func(url string) source.Source
	mu      sync.RWMutex
}

// Option configures a [Server].
type Option func(*Server)

// WithMetrics sets the collectors the server records into and serves on
// /metrics. Defaults to a fresh [metrics.New].
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithURLSource sets the constructor for sources loaded by URL through the
// reload endpoints. Defaults to [source.NewURL].
func WithURLSource(fn func(url string) source.Source) Option {
	return func(s *Server) {
		s.urlSrc = fn
	}
}

// New creates a [Server] that loads from src. Nothing is loaded until
// [Server.Reload] is called.
func New(src source.Source, opts ...Option) (*Server, error) {
	s := &Server{
		sess: session.New(),
		src:  src,
		urlSrc: func(url string) source.Source {
			return source.NewURL(url)
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"badge": badgeClass,
	}).ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), logRequests())
	s.engine.SetHTMLTemplate(tmpl)
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.engine.GET("/", s.index)
	s.engine.GET("/crds/:name", s.page)
	s.engine.POST("/reload", s.reloadForm)
	s.engine.POST("/clear", s.clearForm)

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := s.engine.Group("/api")
	{
		api.GET("/definitions", s.listDefinitions)
		api.GET("/definitions/:name", s.getDefinition)
		api.GET("/definitions/:name/versions/:version/rows", s.getRows)
		api.POST("/reload", s.reload)
		api.POST("/clear", s.clear)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Reload loads src, or the current source when src is nil, through the
// session's busy gate. It returns [ErrBusy] when a load is in flight. A
// failed load keeps the previous collection.
func (s *Server) Reload(ctx context.Context, src source.Source) error {
	s.mu.Lock()
	if src == nil {
		src = s.src
	}

	if src == nil {
		s.mu.Unlock()

		return fmt.Errorf("%w: no source configured", crd.ErrAcquire)
	}

	ok := s.sess.Begin(src.String())
	s.mu.Unlock()

	if !ok {
		return ErrBusy
	}

	start := time.Now()
	defs, err := crd.Load(ctx, src)
	s.metrics.ObserveLoad(time.Since(start), len(defs), err)

	s.mu.Lock()
	s.sess.Finish(defs, err)

	if err == nil {
		s.src = src
	}
	s.mu.Unlock()

	if err != nil {
		slog.Warn("load definitions",
			slog.String("source", src.String()),
			slog.Any("error", err),
		)

		return err
	}

	slog.Info("loaded definitions",
		slog.String("source", src.String()),
		slog.Int("count", len(defs)),
	)

	return nil
}

// Clear drops the loaded collection.
func (s *Server) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sess.Clear()
	s.metrics.SetDefinitions(0)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() {
		errc <- srv.ListenAndServe()
	}()

	slog.Info("serving", slog.String("addr", addr))

	select {
	case err := <-errc:
		return fmt.Errorf("serve %s: %w", addr, err)

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return nil
	}
}

// find returns a copy of the definition named name.
func (s *Server) find(name string) (crd.Definition, bool) {
	for _, d := range s.sess.Definitions() {
		if d.Name == name {
			return d, true
		}
	}

	return crd.Definition{}, false
}

func logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		slog.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
