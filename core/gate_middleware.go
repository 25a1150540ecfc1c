package core

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// RequireArea lets the request through only when the session may enter area.
func RequireArea(area Area) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := authorizedUser(c)
		changing := strings.HasSuffix(c.Request.URL.Path, "/change-password")
		ok, dest := Authorize(user, area, changing)
		if ok {
			c.Next()
			return
		}
		switch {
		case user == nil:
			respondDenied(c, http.StatusUnauthorized, "UNAUTHORIZED", "Требуется вход", dest)
		case user.MustChangePassword && dest == ChangePasswordFor(user.Role):
			respondDenied(c, http.StatusForbidden, "PASSWORD_CHANGE_REQUIRED", "Необходимо установить пароль", dest)
		default:
			respondDenied(c, http.StatusForbidden, "FORBIDDEN", "Доступ запрещен", dest)
		}
		c.Abort()
	}
}

func currentSession(c *gin.Context) *sessions.Session {
	v, _ := c.Get(sessionCtxKey)
	sess, _ := v.(*sessions.Session)
	return sess
}

// authorizedUser is the SessionUser decoded by SessionMiddleware; nil when anonymous.
func authorizedUser(c *gin.Context) *SessionUser {
	v, _ := c.Get(sessionUserKey)
	u, _ := v.(*SessionUser)
	return u
}
