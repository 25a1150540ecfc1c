package core

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const (
	sessionName          = "portal_session"
	defaultSessionMaxAge = 3600 // 1h

	sessionCtxKey   = "session"
	sessionUserKey  = "session_user"
	csrfTokenKey    = "csrf_token"
	csrfHeader      = "X-CSRF-Token"
	requestIDHeader = "X-Request-ID"
)

var errCSRFEntropy = errors.New("csrf token: no entropy available")

// RequestLogger tags each request with an X-Request-ID and logs one line when it completes.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(reqID); err != nil {
			reqID = uuid.NewString()
		}
		c.Set("request_id", reqID)
		c.Header(requestIDHeader, reqID)

		c.Next()

		slog.InfoContext(c.Request.Context(), "request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// SessionMiddleware loads the session and the SessionUser it carries into the
// gin context. Anonymous sessions are never written back; an existing session
// is re-saved so its expiry slides with activity.
func SessionMiddleware(cfg Config, store sessions.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := store.Get(c.Request, sessionName)
		var decodeErr securecookie.Error
		if err != nil && sess != nil && errors.As(err, &decodeErr) && decodeErr.IsDecode() {
			// forged or stale cookie: continue anonymously
			sess, err = sessions.NewSession(store, sessionName), nil
			sess.IsNew = true
		}
		if err != nil {
			slog.WarnContext(c.Request.Context(), "session load failed", "error", err)
			respondError(c, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "session error")
			c.Abort()
			return
		}
		user := decodeSessionUser(sess)
		if !sess.IsNew && user != nil {
			sess.Options = sessionOptions(cfg)
			if err := sess.Save(c.Request, c.Writer); err != nil {
				respondError(c, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "failed to persist session")
				c.Abort()
				return
			}
		}
		c.Set(sessionCtxKey, sess)
		c.Set(sessionUserKey, user)
		c.Next()
	}
}

// sessionDeleter is implemented by stores that keep session state server-side.
type sessionDeleter interface {
	Delete(ctx context.Context, id string) error
}

// rotateSession replaces the request's session with a fresh one holding only u
// and a new CSRF token. Server-side state of the previous session is removed.
func rotateSession(c *gin.Context, cfg Config, store sessions.Store, u SessionUser) (string, error) {
	if old := currentSession(c); old != nil && old.ID != "" {
		if d, ok := store.(sessionDeleter); ok {
			if err := d.Delete(c.Request.Context(), old.ID); err != nil {
				return "", err
			}
		}
	}

	token, err := newCSRFToken()
	if err != nil {
		return "", err
	}
	sess := sessions.NewSession(store, sessionName)
	sess.IsNew = true
	sess.Options = sessionOptions(cfg)
	storeSessionUser(sess, u)
	sess.Values[csrfTokenKey] = token
	if err := sess.Save(c.Request, c.Writer); err != nil {
		return "", err
	}
	c.Set(sessionCtxKey, sess)
	c.Set(sessionUserKey, &u)
	return token, nil
}

// endSession deletes the session and expires its cookie.
func endSession(c *gin.Context, cfg Config) error {
	sess := currentSession(c)
	if sess == nil {
		return nil
	}
	sess.Values = map[interface{}]interface{}{}
	sess.Options = sessionOptions(cfg)
	sess.Options.MaxAge = -1
	return sess.Save(c.Request, c.Writer)
}

// OriginRefererMiddleware rejects cross-origin requests whose Origin (or Referer
// when Origin is absent) is not in cfg.AllowedOrigins, and answers CORS preflights.
func OriginRefererMiddleware(cfg Config) gin.HandlerFunc {
	allowed := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}

	return func(c *gin.Context) {
		origin := requestOrigin(c.Request)
		if origin == "" {
			// same-origin navigation
			c.Next()
			return
		}
		if !allowed[origin] {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+csrfHeader+", "+requestIDHeader)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Expose-Headers", csrfHeader+", "+requestIDHeader)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestOrigin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return strings.ToLower(o)
	}
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// CSRFMiddleware requires state-changing requests to echo the session's CSRF
// token in X-CSRF-Token. Login is exempt since it issues the token. Anonymous
// sessions hold no token, so every guarded request from them is refused.
func CSRFMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if sess := currentSession(c); sess != nil {
			token, _ = sess.Values[csrfTokenKey].(string)
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if c.Request.URL.Path != "/api/v1/auth/login" && !csrfTokenMatches(token, c.GetHeader(csrfHeader)) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "invalid csrf token")
				c.Abort()
				return
			}
		}

		if token != "" {
			c.Header(csrfHeader, token)
		}
		c.Next()
	}
}

func csrfTokenMatches(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

func newCSRFToken() (string, error) {
	b := securecookie.GenerateRandomKey(32)
	if b == nil {
		return "", errCSRFEntropy
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// sessionOptions returns the cookie options for cfg; MaxAge falls back to an hour.
func sessionOptions(cfg Config) *sessions.Options {
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}
	sameSite := http.SameSiteStrictMode
	switch strings.ToLower(cfg.CookieSameSite) {
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: sameSite,
	}
}

// decodeSessionUser reads the SessionUser written by storeSessionUser; nil when anonymous.
func decodeSessionUser(sess *sessions.Session) *SessionUser {
	id, ok := sess.Values["account_id"].(int64)
	if !ok || id <= 0 {
		return nil
	}
	username, _ := sess.Values["username"].(string)
	role, _ := sess.Values["role"].(string)
	policy, _ := sess.Values["policy_enforced"].(bool)
	mustChange, _ := sess.Values["must_change_password"].(bool)
	return &SessionUser{
		ID:                 id,
		Username:           username,
		Role:               Role(role),
		PolicyEnforced:     policy,
		MustChangePassword: mustChange,
	}
}

func storeSessionUser(sess *sessions.Session, u SessionUser) {
	sess.Values["account_id"] = u.ID
	sess.Values["username"] = u.Username
	sess.Values["role"] = string(u.Role)
	sess.Values["policy_enforced"] = u.PolicyEnforced
	sess.Values["must_change_password"] = u.MustChangePassword
}
