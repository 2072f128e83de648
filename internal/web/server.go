// Package web serves the dashboard: server-rendered HTML pages for the
// operator and a JSON API under /api exposing the same operations.
package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/internal/activity"
	"github.com/celerix-dev/celerix-dash/internal/auth"
	"github.com/celerix-dev/celerix-dash/internal/config"
	"github.com/celerix-dev/celerix-dash/internal/users"
	"github.com/celerix-dev/celerix-dash/internal/view"
	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

// Deps are the containers the web layer operates on.
type Deps struct {
	Auth          *auth.Store
	Authenticator auth.Authenticator
	Activity      *activity.Store
	Users         *users.Service
	// Demo is the credential pair prefilled on the login form.
	Demo config.AuthConfig
	UI   config.UIConfig
	Log  *zap.Logger
}

// Server routes requests to the dashboard's stores and services. It keeps
// the view state of the single operator: the inline edit buffer and the
// pending flash notice.
type Server struct {
	auth     *auth.Store
	authn    auth.Authenticator
	activity *activity.Store
	users    *users.Service
	demo     config.AuthConfig
	ui       config.UIConfig
	log      *zap.Logger

	edit  view.EditBuffer
	flash view.Flash

	router *gin.Engine
}

// New builds the server and its routes.
func New(d Deps) (*Server, error) {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.UI.LogPageSize <= 0 {
		d.UI.LogPageSize = 10
	}

	s := &Server{
		auth:     d.Auth,
		authn:    d.Authenticator,
		activity: d.Activity,
		users:    d.Users,
		demo:     d.Demo,
		ui:       d.UI,
		log:      d.Log,
	}

	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	r := gin.New()
	r.Use(requestLogger(d.Log.Named("http")), gin.Recovery())
	r.SetHTMLTemplate(tmpl)
	s.router = r
	s.routes()

	return s, nil
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Initialized records that the application started.
func (s *Server) Initialized(ctx context.Context) {
	s.activity.Record(ctx, schema.ActionPageView, "Application initialized", schema.PageApp)
}

func (s *Server) routes() {
	r := s.router

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.StaticFS("/static", http.FS(staticFiles()))

	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/dashboard") })
	r.GET("/login", s.loginPage)
	r.POST("/login", s.login)

	pages := r.Group("/", s.requirePage)
	{
		pages.POST("/logout", s.logout)
		pages.GET("/dashboard", s.dashboard)
		pages.GET("/users", s.usersPage)
		pages.POST("/users/:id/edit", s.editUser)
		pages.POST("/users/:id/save", s.saveUser)
		pages.POST("/users/:id/cancel", s.cancelEdit)
		pages.POST("/users/:id/delete", s.deleteUser)
		pages.GET("/user/:id", s.userPage)
		pages.GET("/logs", s.logsPage)
		pages.POST("/logs/clear", s.clearLogs)
	}

	api := r.Group("/api")
	{
		api.POST("/login", s.apiLogin)
		api.GET("/session", s.apiSession)

		authed := api.Group("", s.requireAPI)
		authed.POST("/logout", s.apiLogout)
		authed.GET("/users", s.apiListUsers)
		authed.GET("/users/:id", s.apiGetUser)
		authed.PATCH("/users/:id", s.apiUpdateUser)
		authed.DELETE("/users/:id", s.apiDeleteUser)
		authed.GET("/logs", s.apiLogs)
		authed.DELETE("/logs", s.apiClearLogs)
		authed.GET("/stats", s.apiStats)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
			return
		}
		c.Redirect(http.StatusFound, "/dashboard")
	})
}
