package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/cogniscan/internal/api"
	"github.com/agenthands/cogniscan/internal/config"
	"github.com/agenthands/cogniscan/internal/dataset"
	"github.com/agenthands/cogniscan/internal/docstore"
	"github.com/agenthands/cogniscan/internal/identity"
	"github.com/agenthands/cogniscan/internal/model"
	"github.com/agenthands/cogniscan/internal/pipeline"
	"github.com/agenthands/cogniscan/internal/telemetry"
	"github.com/agenthands/cogniscan/internal/visuals"
)

//go:embed templates/*.html
var templateFiles embed.FS

// Backend is the backend API as seen by one workspace.
type Backend interface {
	pipeline.Backend
	pipeline.TrainBackend
	pipeline.SingleBackend
}

// BackendFactory builds a backend client that authenticates with tokens.
type BackendFactory func(tokens api.TokenSource) Backend

// ClientFactory adapts the HTTP API client to a BackendFactory.
func ClientFactory(baseURL string, opts ...api.Option) BackendFactory {
	return func(tokens api.TokenSource) Backend {
		return api.New(baseURL, tokens, opts...)
	}
}

type Deps struct {
	Config    *config.Config
	Auth      identity.Authenticator
	Docs      docstore.Store
	Backend   BackendFactory
	Telemetry *telemetry.Telemetry
	Logger    *slog.Logger
}

type Server struct {
	cfg        *config.Config
	auth       identity.Authenticator
	docs       docstore.Store
	backend    BackendFactory
	telemetry  *telemetry.Telemetry
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	views      *template.Template
	validator  *dataset.Validator
	Workspaces *Workspaces

	pingInterval time.Duration
}

func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		deps.Config = config.Default()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Auth == nil || deps.Docs == nil || deps.Backend == nil {
		return nil, errors.New("server: auth, docs and backend are required")
	}

	views, err := template.New("").Funcs(viewFuncs).ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:          deps.Config,
		auth:         deps.Auth,
		docs:         deps.Docs,
		backend:      deps.Backend,
		telemetry:    deps.Telemetry,
		logger:       deps.Logger,
		views:        views,
		validator:    dataset.NewValidator(deps.Config.Upload.PreviewRows),
		pingInterval: 30 * time.Second,
	}
	if deps.Telemetry != nil {
		s.metrics = deps.Telemetry.Metrics
	}
	s.Workspaces = NewWorkspaces(s.newWorkspace, deps.Config.Server.IdleTimeout.Duration)
	return s, nil
}

// newWorkspace holds only the session; the pipeline, trainer and registry are
// built per user once someone signs in.
func (s *Server) newWorkspace(id string) *Workspace {
	logger := s.logger.With("workspace", id)
	store := identity.NewStore()
	provider := identity.NewProvider(store, s.auth, s.docs,
		identity.WithSignInTimeout(s.cfg.Identity.SignInTimeout.Duration),
		identity.WithLogger(logger),
	)
	backend := s.backend(store)

	return &Workspace{
		ID:       id,
		Provider: provider,
		newView: func(owner string) *View {
			logger := logger.With("user", owner)
			registry := visuals.NewRegistry(visuals.WithObserver(s.metrics.HandleObserver()))
			return &View{
				Owner:    owner,
				Registry: registry,
				Pipeline: pipeline.New(backend, s.docs, registry,
					pipeline.WithValidator(s.validator),
					pipeline.WithLogger(logger),
					pipeline.WithMetrics(s.metrics),
				),
				Trainer: pipeline.NewTrainer(backend, s.docs, s.validator, logger, s.metrics),
				Single:  pipeline.NewSinglePredictor(backend, s.docs),
			}
		},
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))
	// Uploads are buffered in memory after the size check; keep the multipart
	// parser from spilling a maximum-size file to disk.
	r.MaxMultipartMemory = s.cfg.Upload.MaxFileSize + 1<<20

	r.GET("/health", s.Health)
	if s.telemetry != nil {
		r.GET("/metrics", gin.WrapH(s.telemetry.Handler()))
	}

	app := r.Group("/", s.workspace(false))
	app.GET("/", s.LoginPage)
	app.GET("/register", s.RegisterPage)
	app.POST("/auth/logout", s.Logout)

	signIn := r.Group("/auth", s.workspace(true))
	signIn.POST("/login", s.Login)
	signIn.POST("/register", s.Register)
	signIn.POST("/google", s.GoogleLogin)

	pages := app.Group("/", s.requireSession(false))
	pages.GET("/dashboard", s.Dashboard)
	pages.POST("/dashboard/predict", s.SubmitDataset)
	pages.POST("/dashboard/train", s.SubmitTraining)
	pages.POST("/dashboard/patient", s.SubmitPatient)
	pages.GET("/visuals/:id", s.Visual)

	data := app.Group("/api", s.requireSession(true))
	data.GET("/session", s.SessionJSON)
	data.GET("/state", s.StateJSON)
	data.GET("/results", s.ResultsJSON)
	data.GET("/distribution", s.DistributionJSON)
	data.GET("/training", s.TrainingJSON)
	data.GET("/events", s.Events)

	return r
}

// Close tears down every workspace, releasing their visualization handles.
func (s *Server) Close() {
	s.Workspaces.Close()
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "workspaces": s.Workspaces.Len()})
}

const (
	workspaceKey = "workspace"
	viewKey      = "view"
)

// workspace resolves the caller's workspace from its cookie. Only sign-in
// routes create one when the cookie is missing or names an evicted
// workspace; everywhere else an anonymous caller has no workspace at all.
func (s *Server) workspace(create bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := s.cfg.Server.CookieName
		var w *Workspace
		if id, err := c.Cookie(name); err == nil {
			w, _ = s.Workspaces.Get(id)
		}
		if w == nil && create {
			w = s.Workspaces.Create()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(name, w.ID, 0, "/", "", s.cfg.Server.SecureCookie, true)
		}
		if w != nil {
			c.Set(workspaceKey, w)
		}
		c.Next()
	}
}

// workspaceOf returns nil for callers without a workspace.
func workspaceOf(c *gin.Context) *Workspace {
	w, _ := c.Get(workspaceKey)
	ws, _ := w.(*Workspace)
	return ws
}

// viewOf is only valid behind requireSession.
func viewOf(c *gin.Context) *View {
	return c.MustGet(viewKey).(*View)
}

type unauthorizedView struct {
	Delay int
}

// requireSession stops requests from signed-out workspaces and hands the rest
// the signed-in user's view. Pages get the unauthorized notice and are sent
// back to the login page after the redirect delay; API calls get a JSON 401.
func (s *Server) requireSession(jsonOnly bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if w := workspaceOf(c); w != nil {
			if v := w.View(); v != nil {
				c.Set(viewKey, v)
				c.Next()
				return
			}
		}
		if jsonOnly {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized Access"})
			return
		}
		delay := int(s.cfg.Server.RedirectDelay.Seconds())
		s.render(c, http.StatusUnauthorized, "unauthorized", unauthorizedView{Delay: delay})
		c.Abort()
	}
}

// render executes the template into a buffer first so a failing template
// never leaves a half-written page.
func (s *Server) render(c *gin.Context, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.views.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("template render failed", "template", name, "error", err)
		c.String(http.StatusInternalServerError, "Template error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

var viewFuncs = template.FuncMap{
	"add":        func(a, b int) int { return a + b },
	"sub":        func(a, b int) int { return a - b },
	"percent":    func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"className":  model.ClassName,
	"classLabel": model.ClassLabel,
	"optional": func(v *int) string {
		if v == nil {
			return "-"
		}
		return fmt.Sprint(*v)
	},
	"sexLabel": func(v *int) string {
		switch {
		case v == nil:
			return "-"
		case *v == model.SexMale:
			return "Male"
		case *v == model.SexFemale:
			return "Female"
		default:
			return fmt.Sprint(*v)
		}
	},
}
