package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/typicaltools/internal/common"
)

const (
	msgLoginIncomplete  = "Please fill in all required fields."
	msgLoginFailed      = "UserName or Password Incorrect"
	msgPasswordMismatch = "Password and Confirmation do not match"
	msgUsernameTaken    = "Username already exists. Choose a different username."
	msgUserAdded        = "New User Added."
)

type loginForm struct {
	Username  string
	ReturnURL string
}

type registerForm struct {
	Username string
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	ret := r.URL.Query().Get("return_url")
	if ret == "" {
		ret = r.URL.Query().Get("ReturnUrl")
	}
	s.render(w, r, http.StatusOK, "login", page{Title: "Log in", Data: loginForm{ReturnURL: localRedirect(ret)}})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	form := loginForm{
		Username:  strings.TrimSpace(r.PostFormValue("username")),
		ReturnURL: localRedirect(r.PostFormValue("return_url")),
	}
	password := r.PostFormValue("password")

	if form.Username == "" || password == "" {
		s.render(w, r, http.StatusUnprocessableEntity, "login", page{Title: "Log in", Error: msgLoginIncomplete, Data: form})
		return
	}

	account, err := s.users.Authenticate(r.Context(), form.Username, password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			s.metrics.LoginFailures.Inc()
			s.render(w, r, http.StatusUnauthorized, "login", page{Title: "Log in", Error: msgLoginFailed, Data: form})
			return
		}
		s.serverError(w, r, err)
		return
	}

	token, err := s.users.IssueSession(account)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.setAuthCookie(w, r, token)
	http.Redirect(w, r, form.ReturnURL, http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w, r)
	http.Redirect(w, r, defaultRedirect, http.StatusSeeOther)
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "register", page{Title: "Create account", Data: registerForm{}})
}

// register compares password and confirmation before touching storage.
// Success re-renders an empty form with a confirmation.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	form := registerForm{Username: strings.TrimSpace(r.PostFormValue("username"))}
	password := r.PostFormValue("password")

	if password != r.PostFormValue("password_confirmation") {
		s.render(w, r, http.StatusUnprocessableEntity, "register",
			page{Title: "Create account", Error: msgPasswordMismatch, Data: form})
		return
	}

	_, err := s.users.Register(r.Context(), form.Username, password)
	switch {
	case err == nil:
		s.render(w, r, http.StatusOK, "register",
			page{Title: "Create account", Message: msgUserAdded, Data: registerForm{}})
	case errors.Is(err, common.ErrUsernameTaken):
		s.render(w, r, http.StatusConflict, "register",
			page{Title: "Create account", Error: msgUsernameTaken, Data: form})
	case errors.Is(err, common.ErrValidation):
		s.render(w, r, http.StatusUnprocessableEntity, "register",
			page{Title: "Create account", Error: validationMessage(err), Data: form})
	default:
		s.serverError(w, r, err)
	}
}
