package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/cogniscan/internal/apperr"
	"github.com/agenthands/cogniscan/internal/identity"
	"github.com/agenthands/cogniscan/internal/model"
)

type authView struct {
	Notices        []model.Notice
	Name           string
	Email          string
	GoogleClientID string
}

func (s *Server) authView(w *Workspace) authView {
	return authView{
		Notices:        w.TakeNotices(),
		GoogleClientID: s.cfg.Identity.GoogleClientID,
	}
}

func (s *Server) LoginPage(c *gin.Context) {
	w := workspaceOf(c)
	if _, ok := w.Session(); ok {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	s.render(c, http.StatusOK, "login", s.authView(w))
}

func (s *Server) RegisterPage(c *gin.Context) {
	w := workspaceOf(c)
	if _, ok := w.Session(); ok {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	s.render(c, http.StatusOK, "register", s.authView(w))
}

func (s *Server) Login(c *gin.Context) {
	w := workspaceOf(c)
	var form identity.LoginForm
	_ = c.ShouldBind(&form)

	err := identity.ValidateForm(form)
	if err == nil {
		err = w.Provider.SignIn(c.Request.Context(), form.Email, form.Password)
	}
	if err != nil {
		view := s.authView(w)
		view.Email = form.Email
		view.Notices = append(view.Notices, authNotice("Login Failed", err))
		s.render(c, authStatus(err), "login", view)
		return
	}

	w.Notify(model.Notice{Level: model.NoticeSuccess, Title: "Login Successful", Text: "Welcome back!"})
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) Register(c *gin.Context) {
	w := workspaceOf(c)
	var form identity.RegisterForm
	_ = c.ShouldBind(&form)

	err := identity.ValidateForm(form)
	if err == nil {
		err = w.Provider.SignUp(c.Request.Context(), form.Name, form.Email, form.Password)
	}
	if err != nil {
		view := s.authView(w)
		view.Name, view.Email = form.Name, form.Email
		view.Notices = append(view.Notices, authNotice("Registration Failed", err))
		s.render(c, authStatus(err), "register", view)
		return
	}

	w.Notify(model.Notice{Level: model.NoticeSuccess, Title: "Registration Successful", Text: "Your account has been created."})
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// GoogleLogin accepts the ID token posted by Google Identity Services.
func (s *Server) GoogleLogin(c *gin.Context) {
	w := workspaceOf(c)
	token := c.PostForm("credential")

	var err error
	if token == "" {
		err = apperr.Validation("Missing Google credential.")
	} else {
		err = w.Provider.SignInWithGoogle(c.Request.Context(), token)
	}
	if err != nil {
		view := s.authView(w)
		view.Notices = append(view.Notices, authNotice("Login Failed", err))
		s.render(c, authStatus(err), "login", view)
		return
	}

	w.Notify(model.Notice{Level: model.NoticeSuccess, Title: "Login Successful", Text: "Welcome!"})
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout tears down the user's view so the next person on this browser
// starts from an empty dashboard.
func (s *Server) Logout(c *gin.Context) {
	if w := workspaceOf(c); w != nil {
		w.SignOut()
		w.Notify(model.Notice{Level: model.NoticeSuccess, Title: "Signed Out", Text: "You have been signed out."})
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// authNotice shows platform messages as they are; on the login form a
// "sign in again" prefix would be noise.
func authNotice(title string, err error) model.Notice {
	var ae *apperr.AuthenticationError
	if errors.As(err, &ae) {
		return model.Notice{Level: model.NoticeError, Title: title, Text: ae.Message}
	}
	return apperr.Notice(title, err)
}

func authStatus(err error) int {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	return http.StatusUnauthorized
}
