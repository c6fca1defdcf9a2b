package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/common"
	"github.com/dmitrijs2005/typicaltools/internal/server/policy"
)

type ctxKey string

const (
	sessionKey ctxKey = "sessionID"
	actorKey   ctxKey = "actor"
	csrfKey    ctxKey = "csrf"
)

const (
	// maxBodyBytes caps every POST body, uploads included.
	maxBodyBytes = 16 << 20
	// maxFormMemory is kept in memory by ParseMultipartForm, the rest spills to disk.
	maxFormMemory = 4 << 20

	csrfTokenBytes = 32
)

func sessionFrom(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

func actorFrom(ctx context.Context) policy.Actor {
	a, _ := ctx.Value(actorKey).(policy.Actor)
	return a
}

func csrfFrom(ctx context.Context) string {
	t, _ := ctx.Value(csrfKey).(string)
	return t
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
		)
	})
}

// withSession keeps an anonymous session alive for every visitor. An unknown
// or expired id is replaced, so its comments are no longer editable from
// this browser.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var id string
		if c, err := r.Cookie(common.SessionCookieName); err == nil {
			ok, err := s.sessions.Touch(ctx, c.Value)
			if err != nil {
				s.serverError(w, r, err)
				return
			}
			if ok {
				id = c.Value
			}
		}

		if id == "" {
			var err error
			if id, err = s.sessions.Create(ctx); err != nil {
				s.serverError(w, r, err)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     common.SessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteStrictMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, sessionKey, id)))
	})
}

// withActor resolves who is calling. A valid staff cookie adds username and
// role; it is re-issued once less than half its lifetime remains.
func (s *Server) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actor := policy.Actor{SessionID: sessionFrom(ctx)}

		if c, err := r.Cookie(common.AuthCookieName); err == nil {
			claims, err := s.users.VerifySession(c.Value)
			if err != nil {
				if !errors.Is(err, common.ErrTokenExpired) {
					s.logger.Warn(ctx, "rejected staff cookie", "error", err)
				}
				s.clearAuthCookie(w, r)
			} else {
				actor.Username, actor.Role = claims.Username, claims.Role

				ttl := s.users.SessionTTL()
				if claims.ExpiresAt != nil && time.Until(claims.ExpiresAt.Time) < ttl/2 {
					if token, err := s.users.RenewSession(claims); err != nil {
						s.logger.Error(ctx, "renew staff cookie", "error", err)
					} else {
						s.setAuthCookie(w, r, token)
					}
				}
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, actorKey, actor)))
	})
}

// withCSRF implements a double-submit token: the cookie value must come
// back in the csrf_token form field (or X-CSRF-Token header) on every POST.
func (s *Server) withCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if c, err := r.Cookie(common.CSRFCookieName); err == nil && len(c.Value) == 2*csrfTokenBytes {
			token = c.Value
		}
		if token == "" {
			var err error
			if token, err = common.MakeRandHexString(csrfTokenBytes); err != nil {
				s.serverError(w, r, err)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     common.CSRFCookieName,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteStrictMode,
			})
		}

		if r.Method == http.MethodPost {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
				var tooBig *http.MaxBytesError
				if errors.As(err, &tooBig) {
					s.renderError(w, r, http.StatusRequestEntityTooLarge, "The submitted data is too large.")
					return
				}
				s.renderError(w, r, http.StatusBadRequest, "The form could not be read.")
				return
			}

			sent := r.PostFormValue(common.CSRFFieldName)
			if sent == "" {
				sent = r.Header.Get("X-CSRF-Token")
			}
			if subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
				s.logger.Warn(r.Context(), "csrf token mismatch", "path", r.URL.Path)
				s.renderError(w, r, http.StatusForbidden, "The form has expired. Please go back and try again.")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfKey, token)))
	})
}

func (s *Server) setAuthCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AuthCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.users.SessionTTL() / time.Second),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearAuthCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AuthCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
