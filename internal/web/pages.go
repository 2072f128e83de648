package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-dash/internal/view"
	"github.com/celerix-dev/celerix-dash/pkg/schema"
)

type loginForm struct {
	Email    string `form:"email" json:"email" binding:"required,email"`
	Password string `form:"password" json:"password" binding:"required,min=8"`
	Next     string `form:"next" json:"-"`
}

// fieldErrors turns a binding failure into the messages shown under the
// login inputs.
func fieldErrors(err error) (email, password string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid email address", ""
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Email":
			email = "Invalid email address"
		case "Password":
			password = "Password must be at least 8 characters"
		}
	}
	return email, password
}

func (s *Server) loginData(email, password, next string) gin.H {
	return gin.H{
		"Email":        email,
		"Password":     password,
		"Next":         next,
		"DemoEmail":    s.demo.Email,
		"DemoPassword": s.demo.Password,
	}
}

func (s *Server) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login", s.loginData(s.demo.Email, s.demo.Password, c.Query("next")))
}

func (s *Server) login(c *gin.Context) {
	ctx := c.Request.Context()

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		data := s.loginData(form.Email, form.Password, form.Next)
		data["EmailError"], data["PasswordError"] = fieldErrors(err)
		c.HTML(http.StatusBadRequest, "login", data)
		return
	}

	token, err := s.authn.Authenticate(ctx, form.Email, form.Password)
	if err != nil {
		s.activity.Record(ctx, schema.ActionLoginFailed, "Failed login attempt: "+form.Email, schema.PageAuth)
		data := s.loginData(form.Email, form.Password, form.Next)
		data["Failed"] = true
		c.HTML(http.StatusUnauthorized, "login", data)
		return
	}

	if err := s.auth.Login(ctx, token); err != nil {
		c.Error(err)
		data := s.loginData(form.Email, form.Password, form.Next)
		data["Failed"] = true
		c.HTML(http.StatusInternalServerError, "login", data)
		return
	}
	s.activity.Record(ctx, schema.ActionLogin, "User logged in: "+form.Email, schema.PageAuth)

	c.Redirect(http.StatusSeeOther, safeNext(form.Next))
}

func (s *Server) logout(c *gin.Context) {
	ctx := c.Request.Context()

	if err := s.auth.Logout(ctx); err != nil {
		c.Error(err)
		c.String(http.StatusInternalServerError, "logout failed")
		return
	}
	s.edit.Discard()
	s.activity.Record(ctx, schema.ActionLogout, "User logged out", schema.PageAuth)

	c.Redirect(http.StatusSeeOther, "/login")
}

func (s *Server) dashboard(c *gin.Context) {
	s.activity.Record(c.Request.Context(), schema.ActionPageView, "Viewed dashboard", schema.PageDashboard)

	c.HTML(http.StatusOK, "dashboard", s.page("Dashboard", "dashboard", gin.H{
		"Stats": s.activity.Stats(),
	}))
}

// usersPage renders the users table. With partial=1 only the table is
// rendered, for the debounced search box, and no page view is recorded.
func (s *Server) usersPage(c *gin.Context) {
	ctx := c.Request.Context()
	q := c.Query("q")
	partial := c.Query("partial") == "1"

	if !partial {
		s.activity.Record(ctx, schema.ActionPageView, "Viewed users page", schema.PageUsers)
	}

	editingID, editing := s.edit.Editing()
	data := gin.H{
		"Query":      q,
		"DebounceMS": int64(s.ui.SearchDebounce / time.Millisecond),
		"Editing":    editing,
		"EditingID":  editingID,
		"Draft":      s.edit.Draft(),
	}

	status := http.StatusOK
	list, err := s.users.List(ctx)
	if err != nil {
		c.Error(err)
		status = http.StatusBadGateway
		data["LoadError"] = true
	} else {
		data["Users"] = view.FilterUsers(list, q)
	}

	if partial {
		c.HTML(status, "users_table", data)
		return
	}
	c.HTML(status, "users", s.page("Users", "users", data))
}

// backToUsers redirects to the users page, keeping the search query.
func backToUsers(c *gin.Context) {
	target := "/users"
	if q := c.PostForm("q"); q != "" {
		target += "?q=" + url.QueryEscape(q)
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (s *Server) editUser(c *gin.Context) {
	defer backToUsers(c)

	id, ok := userID(c)
	if !ok {
		s.flash.Error("Invalid user id")
		return
	}

	list, err := s.users.List(c.Request.Context())
	if err != nil {
		c.Error(err)
		s.flash.Error("Failed to load users")
		return
	}
	for _, u := range list {
		if u.ID == id {
			s.edit.Begin(u)
			return
		}
	}
	s.flash.Error("User not found")
}

func (s *Server) saveUser(c *gin.Context) {
	defer backToUsers(c)

	id, ok := userID(c)
	if editingID, editing := s.edit.Editing(); !ok || !editing || editingID != id {
		s.flash.Error("No user is being edited")
		return
	}

	for _, field := range []string{view.FieldName, view.FieldUsername, view.FieldEmail} {
		if v, ok := c.GetPostForm(field); ok {
			if err := s.edit.Set(field, v); err != nil {
				s.log.Debug("edit buffer", zap.Error(err))
			}
		}
	}

	if _, err := s.users.Update(c.Request.Context(), id, s.edit.Patch()); err != nil {
		c.Error(err)
		s.flash.Error("Failed to update user")
		return
	}
	s.edit.Discard()
	s.flash.Success("User updated successfully")
}

func (s *Server) cancelEdit(c *gin.Context) {
	s.edit.Discard()
	backToUsers(c)
}

func (s *Server) deleteUser(c *gin.Context) {
	defer backToUsers(c)

	id, ok := userID(c)
	if !ok {
		s.flash.Error("Invalid user id")
		return
	}
	if editingID, editing := s.edit.Editing(); editing && editingID == id {
		s.edit.Discard()
	}

	if err := s.users.Delete(c.Request.Context(), id); err != nil {
		c.Error(err)
		s.flash.Error("Failed to delete user")
		return
	}
	s.flash.Success("User deleted successfully")
}

func (s *Server) userPage(c *gin.Context) {
	ctx := c.Request.Context()

	id, ok := userID(c)
	if !ok {
		c.HTML(http.StatusNotFound, "user", s.page("User Details", "users", gin.H{"NotFound": true}))
		return
	}

	u, err := s.users.Get(ctx, id)
	if err != nil {
		c.Error(err)
		c.HTML(statusOf(err), "user", s.page("User Details", "users", gin.H{"NotFound": true}))
		return
	}
	s.activity.Record(ctx, schema.ActionUserView, "Viewed user: "+u.Name, schema.PageUserDetail)

	c.HTML(http.StatusOK, "user", s.page(u.Name, "users", gin.H{"User": u}))
}

// logsPage renders one page of the activity log. Only the first visit of
// the page counts as a page view, not moving between pages.
func (s *Server) logsPage(c *gin.Context) {
	pageParam, paging := c.GetQuery("page")
	if !paging {
		s.activity.Record(c.Request.Context(), schema.ActionPageView, "Viewed logs page", schema.PageLogs)
	}

	n, _ := strconv.Atoi(pageParam)
	entries, p := view.PageOf(s.activity.Entries(), s.ui.LogPageSize, n)

	c.HTML(http.StatusOK, "logs", s.page("Activity Logs", "logs", gin.H{
		"Entries": entries,
		"Page":    p,
	}))
}

func (s *Server) clearLogs(c *gin.Context) {
	if err := s.activity.ClearAll(c.Request.Context()); err != nil {
		c.Error(err)
		s.flash.Error("Failed to clear logs")
	}
	c.Redirect(http.StatusSeeOther, "/logs")
}
