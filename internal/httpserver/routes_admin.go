// internal/httpserver/routes_admin.go
//
// Admin access to the lead capture submissions.
//   - POST /admin/login  → check ADMIN_PASSWORD_HASH (bcrypt), set a JWT cookie
//   - POST /admin/logout → clear the cookie
//   - GET  /ideas        → most recent submissions (admin only)
//
// There are no user accounts; a single shared admin password is enough for
// reading submissions. Login is disabled when no hash is configured.

package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminSubject  = "admin"
	adminTokenTTL = 12 * time.Hour
)

func (s *Server) mountAdmin(r chi.Router) {
	r.Post("/admin/login", s.handleAdminLogin)
	r.Post("/admin/logout", s.handleAdminLogout)
	r.With(s.requireAdmin).Get("/ideas", s.handleListIdeas)
}

type loginReq struct {
	Password string `json:"password"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AdminPasswordHash == "" {
		writeError(w, http.StatusServiceUnavailable, "admin_disabled")
		return
	}
	var body loginReq
	if err := decodeBody(r, &body); err != nil {
		writeBodyError(w, err, "invalid_json")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(body.Password)) != nil {
		hlog.FromRequest(r).Warn().Msg("admin login failed")
		writeError(w, http.StatusUnauthorized, "invalid_password")
		return
	}
	tok, exp, err := s.signJWT()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setAuthCookie(w, tok, exp)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "expiresAt": exp.UTC().Format(time.RFC3339)})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.clearAuthCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type recentQuery struct {
	Limit int `schema:"limit"`
}

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	var q recentQuery
	if err := s.decoder.Decode(&q, r.URL.Query()); err != nil {
		writeError(w, http.StatusBadRequest, "bad_query")
		return
	}
	entries, err := s.ideas.Recent(r.Context(), q.Limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list ideas")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 admin token.
func (s *Server) signJWT() (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(adminTokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

func (s *Server) cookieSameSite() http.SameSite {
	if s.cfg.Production {
		return http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	return http.SameSiteLaxMode
}

// setAuthCookie writes the admin token cookie.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: s.cookieSameSite(),
		Expires:  exp,
	})
}

// clearAuthCookie deletes the admin token cookie.
func (s *Server) clearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: s.cookieSameSite(),
		MaxAge:   -1,
	})
}

// bearerOrCookie extracts a bearer token from the Authorization header or the cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// requireAdmin rejects requests without a valid admin token. With no admin
// password configured every admin route is off, whatever the token says.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminPasswordHash == "" {
			writeError(w, http.StatusServiceUnavailable, "admin_disabled")
			return
		}
		tokenStr := s.bearerOrCookie(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.Subject != adminSubject {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
