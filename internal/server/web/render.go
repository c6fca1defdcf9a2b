package web

import (
	"bytes"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

const defaultRedirect = "/products"

var pageNames = []string{
	"products", "product", "product_new", "product_edit",
	"comments", "comments_all", "comment_new", "comment_edit", "comment_delete",
	"login", "register",
	"warranty", "file_delete",
	"error",
}

var templateFuncs = template.FuncMap{
	// Comment text is stored already sanitized and entity-escaped.
	"safeComment": func(s string) template.HTML { return template.HTML(s) },
	"price":       func(d decimal.Decimal) string { return d.StringFixed(2) },
	"when":        func(t time.Time) string { return t.Local().Format("02 Jan 2006 15:04") },
	"pathEscape":  url.PathEscape,
}

func parseTemplates() (map[string]*template.Template, error) {
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// page is what every template receives.
type page struct {
	Title   string
	Actor   policy.Actor
	CSRF    string
	Flash   string
	Error   string
	Message string
	Data    any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	t, ok := s.templates[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown template %q", name))
		return
	}

	p.Actor = actorFrom(r.Context())
	p.CSRF = csrfFrom(r.Context())
	if p.Flash == "" {
		p.Flash = popFlash(w, r)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		s.logger.Error(r.Context(), "render", "template", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.render(w, r, status, "error", page{Title: http.StatusText(status), Error: msg})
}

// serverError logs err and shows the generic error page.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	s.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

// forbidden sends anonymous visitors to the login page and shows
// everyone else a 403.
func (s *Server) forbidden(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r.Context()).Authenticated() {
		target := defaultRedirect
		if r.Method == http.MethodGet {
			target = r.URL.RequestURI()
		}
		http.Redirect(w, r, "/login?return_url="+url.QueryEscape(target), http.StatusFound)
		return
	}
	s.renderError(w, r, http.StatusForbidden, "You do not have permission to do that.")
}

// authorize checks a role-only action and answers the request when denied.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, action policy.Action) bool {
	if err := s.policy.Authorize(actorFrom(r.Context()), action, nil); err != nil {
		s.forbidden(w, r)
		return false
	}
	return true
}

func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, target, msg string) {
	if msg != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     common.FlashCookieName,
			Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
			Path:     "/",
			MaxAge:   60,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(common.FlashCookieName)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: common.FlashCookieName, Path: "/", MaxAge: -1})

	b, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return ""
	}
	return string(b)
}

// localRedirect accepts only same-origin relative paths and falls back to
// the product list for anything else.
func localRedirect(raw string) string {
	if raw == "" || raw[0] != '/' || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n\t") {
		return defaultRedirect
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return defaultRedirect
	}
	return raw
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// validationMessage turns a wrapped common.ErrValidation into form text.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
