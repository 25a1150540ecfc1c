package core

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// NewRouter constructs the Gin engine with routes wired.
func NewRouter(cfg Config, store sessions.Store, authService AuthService, admin *AdminService, accounts AccountRepository) *gin.Engine {
	r := gin.New()

	// Global middleware: recovery -> request log -> origin/CORS -> session -> CSRF
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(OriginRefererMiddleware(cfg))
	r.Use(SessionMiddleware(cfg, store))
	r.Use(CSRFMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Username string `json:"username" form:"username"`
				Password string `json:"password" form:"password"`
			}
			if err := c.ShouldBind(&req); err != nil {
				respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
				return
			}

			res, err := authService.Login(c.Request.Context(), req.Username, req.Password)
			if err != nil {
				respondFailure(c, err)
				return
			}

			token, err := rotateSession(c, cfg, store, res.User)
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "session rotation failed", "error", err)
				respondError(c, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "failed to set session")
				return
			}

			c.Header(csrfHeader, token)
			c.JSON(http.StatusOK, gin.H{"user": sessionUserJSON(res.User), "next": res.Next})
		})

		api.POST("/auth/logout", func(c *gin.Context) {
			if err := endSession(c, cfg); err != nil {
				respondError(c, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "failed to clear session")
				return
			}
			c.Status(http.StatusNoContent)
		})

		api.GET("/session", func(c *gin.Context) {
			u := authorizedUser(c)
			if u == nil {
				c.JSON(http.StatusOK, gin.H{"authenticated": false, "next": DestLogin})
				return
			}
			c.JSON(http.StatusOK, gin.H{"authenticated": true, "user": sessionUserJSON(*u), "next": NextDestination(*u)})
		})

		user := api.Group("/user")
		user.Use(RequireArea(AreaUser))
		{
			user.GET("/profile", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"user": sessionUserJSON(*authorizedUser(c))})
			})
			user.GET("/change-password", changePasswordFormHandler(accounts))
			user.POST("/change-password", changePasswordHandler(cfg, authService))
		}

		adm := api.Group("/admin")
		adm.Use(RequireArea(AreaAdmin))
		{
			adm.GET("/change-password", changePasswordFormHandler(accounts))
			adm.POST("/change-password", changePasswordHandler(cfg, authService))

			adm.GET("/users", func(c *gin.Context) {
				items, err := admin.ListAccounts(c.Request.Context())
				if err != nil {
					respondFailure(c, err)
					return
				}
				out := make([]gin.H, 0, len(items))
				for _, a := range items {
					out = append(out, accountJSON(a))
				}
				c.JSON(http.StatusOK, gin.H{"items": out, "total_items": len(out)})
			})

			adm.GET("/users/:id", func(c *gin.Context) {
				id, ok := parseAccountID(c)
				if !ok {
					return
				}
				d, err := admin.GetAccount(c.Request.Context(), id)
				if err != nil {
					respondAdminFailure(c, err)
					return
				}
				c.JSON(http.StatusOK, gin.H{"user": accountJSON(d.Account), "prev_id": d.PrevID, "next_id": d.NextID})
			})

			adm.POST("/users", func(c *gin.Context) {
				var req struct {
					Username string `json:"username" form:"username"`
				}
				if err := c.ShouldBind(&req); err != nil {
					respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
					return
				}
				a, err := admin.CreateAccount(c.Request.Context(), req.Username)
				if err != nil {
					respondFailure(c, err)
					return
				}
				c.JSON(http.StatusCreated, accountJSON(*a))
			})

			adm.POST("/users/:id/lock", setLockedHandler(admin, true))
			adm.POST("/users/:id/unlock", setLockedHandler(admin, false))
			adm.POST("/users/:id/policy/on", setPolicyHandler(admin, true))
			adm.POST("/users/:id/policy/off", setPolicyHandler(admin, false))

			adm.GET("/system/status", func(c *gin.Context) {
				sum, err := admin.Summary(c.Request.Context(), cfg.MaxFailedAttempts)
				if err != nil {
					respondFailure(c, err)
					return
				}
				c.JSON(http.StatusOK, gin.H{"accounts": sum, "max_failed_attempts": cfg.MaxFailedAttempts})
			})
		}
	}

	return r
}

func changePasswordFormHandler(accounts AccountRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := authorizedUser(c)
		a, err := accounts.FindByID(c.Request.Context(), u.ID)
		if err != nil {
			respondFailure(c, storageErr("find account", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"show_policy_hint":    a.PolicyEnforced,
			"old_password_needed": a.HasCredential(),
		})
	}
}

func changePasswordHandler(cfg Config, authService AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			OldPassword     string `json:"old_password" form:"oldPassword"`
			NewPassword     string `json:"new_password" form:"newPassword"`
			ConfirmPassword string `json:"confirm_password" form:"confirmPassword"`
		}
		if err := c.ShouldBind(&req); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
			return
		}

		u := authorizedUser(c)
		res, err := authService.ChangePassword(c.Request.Context(), u.ID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
		if err != nil {
			respondFailure(c, err)
			return
		}

		sess := currentSession(c)
		storeSessionUser(sess, res.User)
		sess.Options = sessionOptions(cfg)
		if err := sess.Save(c.Request, c.Writer); err != nil {
			respondError(c, http.StatusServiceUnavailable, "SESSION_UNAVAILABLE", "failed to persist session")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Пароль изменен", "next": res.Next})
	}
}

func setLockedHandler(admin *AdminService, locked bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseAccountID(c)
		if !ok {
			return
		}
		if err := admin.SetLocked(c.Request.Context(), id, locked); err != nil {
			respondAdminFailure(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func setPolicyHandler(admin *AdminService, enforced bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseAccountID(c)
		if !ok {
			return
		}
		if err := admin.SetPolicyEnforced(c.Request.Context(), id, enforced); err != nil {
			respondAdminFailure(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// respondAdminFailure reports a missing target account as 404 rather than a login failure.
func respondAdminFailure(c *gin.Context, err error) {
	if errors.Is(err, ErrUserNotFound) {
		respondError(c, http.StatusNotFound, "NOT_FOUND", FailureMessage(err))
		return
	}
	respondFailure(c, err)
}

func parseAccountID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid id")
		return 0, false
	}
	return id, true
}

func sessionUserJSON(u SessionUser) gin.H {
	return gin.H{
		"id":                   u.ID,
		"username":             u.Username,
		"role":                 u.Role,
		"policy_enforced":      u.PolicyEnforced,
		"must_change_password": u.MustChangePassword,
	}
}

// accountJSON is the admin projection of an account; the hash never leaves the server.
func accountJSON(a Account) gin.H {
	return gin.H{
		"id":              a.ID,
		"username":        a.Username,
		"role":            a.Role,
		"locked":          a.Locked,
		"policy_enforced": a.PolicyEnforced,
		"failed_attempts": a.FailedAttempts,
		"password_set":    a.HasCredential(),
		"created_at":      a.CreatedAt,
		"updated_at":      a.UpdatedAt,
	}
}
