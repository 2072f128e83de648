package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-dash/internal/view"
	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

func (s *Server) apiLogin(c *gin.Context) {
	ctx := c.Request.Context()

	var input loginForm
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := s.authn.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		s.activity.Record(ctx, schema.ActionLoginFailed, "Failed login attempt: "+input.Email, schema.PageAuth)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := s.auth.Login(ctx, token); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.activity.Record(ctx, schema.ActionLogin, "User logged in: "+input.Email, schema.PageAuth)

	c.JSON(http.StatusOK, s.auth.Session())
}

func (s *Server) apiSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"isAuthenticated": s.auth.IsAuthenticated()})
}

func (s *Server) apiLogout(c *gin.Context) {
	ctx := c.Request.Context()

	if err := s.auth.Logout(ctx); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.edit.Discard()
	s.activity.Record(ctx, schema.ActionLogout, "User logged out", schema.PageAuth)

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) apiListUsers(c *gin.Context) {
	list, err := s.users.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.FilterUsers(list, c.Query("q")))
}

func (s *Server) apiGetUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	u, err := s.users.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) apiUpdateUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var patch schema.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	u, err := s.users.Update(c.Request.Context(), id, patch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) apiDeleteUser(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := s.users.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) apiLogs(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	entries, p := view.PageOf(s.activity.Entries(), s.ui.LogPageSize, n)
	if entries == nil {
		entries = []schema.LogEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":     entries,
		"page":     p.Number,
		"pages":    p.Pages,
		"pageSize": p.Size,
		"total":    p.Total,
	})
}

func (s *Server) apiClearLogs(c *gin.Context) {
	if err := s.activity.ClearAll(c.Request.Context()); err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) apiStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.activity.Stats())
}
