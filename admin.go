// admin.go - privacy-conscious visitor tracking and the admin area
package main

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/Zachkp/resume-site/internal/store"
	"github.com/gin-gonic/gin"
)

const adminCookie = "admin_token"

// Hash IP address for privacy compliance (consistent per IP for one salt)
func (a *app) hashIP(ip string) string {
	return store.HashIP(ip, a.hashingSalt)
}

// adminCredentials falls back to development defaults only in debug mode.
// In release mode an unset username or password disables admin login.
func (a *app) adminCredentials() (user, pass string, ok bool) {
	user, pass = a.cfg.Admin.Username, a.cfg.Admin.Password
	if gin.Mode() == gin.DebugMode {
		if user == "" {
			user = "admin"
			a.logger.Warn("using default admin username; set ADMIN_USERNAME")
		}
		if pass == "" {
			pass = "admin123"
			a.logger.Warn("using default admin password; set ADMIN_PASSWORD")
		}
	}
	return user, pass, user != "" && pass != ""
}

func (a *app) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorTrackingMiddleware records page views with a hashed IP. Static files,
// fragments and the admin area are skipped, and Do Not Track is respected.
func (a *app) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet ||
			isHTMX(c) ||
			strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/admin/") ||
			strings.HasPrefix(path, "/chat/") ||
			strings.HasPrefix(path, "/favicon") ||
			strings.HasPrefix(path, "/privacy") ||
			c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		v := store.VisitorMetric{
			HashedIP:  a.hashIP(c.ClientIP()),
			UserAgent: c.GetHeader("User-Agent"),
			Path:      path,
			Timestamp: a.now(),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.site.RecordVisit(ctx, v); err != nil {
				a.logger.Error("error recording visitor", "error", err)
			}
		}()
		c.Next()
	}
}

func (a *app) adminStats(ctx context.Context) (*store.AdminStats, error) {
	var counter store.ChatCounter
	if a.history != nil {
		counter = a.history
	}
	return a.site.Stats(ctx, a.now(), counter)
}

func (a *app) setupAdminRoutes(r *gin.Engine) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":     "Privacy Policy",
			"retention": "12 months",
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{"title": "Admin Login"})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")

		user, pass, ok := a.adminCredentials()
		if ok &&
			subtle.ConstantTimeCompare([]byte(username), []byte(user)) == 1 &&
			subtle.ConstantTimeCompare([]byte(password), []byte(pass)) == 1 {
			c.SetCookie(adminCookie, a.adminToken, 3600*24, "/admin", "", c.Request.TLS != nil, true)
			a.logger.Info("admin login", "visitor", a.hashIP(c.ClientIP()))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		a.logger.Warn("failed admin login attempt", "visitor", a.hashIP(c.ClientIP()))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", c.Request.TLS != nil, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin")
	admin.Use(a.adminAuthMiddleware())

	admin.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			a.logger.Error("error loading admin stats", "error", err)
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load statistics"})
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"title":          "Dashboard",
			"stats":          stats,
			"liveSessions":   a.chats.Sessions(),
			"chatConfigured": a.hooks.ChatConfigured(),
			"historyBackend": a.cfg.History.Backend,
		})
	})

	admin.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	admin.GET("/visitors", func(c *gin.Context) {
		visitors, err := a.site.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load visitors"})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{"title": "Visitors", "visitors": visitors})
	})

	admin.GET("/contacts", func(c *gin.Context) {
		contacts, err := a.site.RecentContacts(c.Request.Context(), 200)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load contact submissions"})
			return
		}
		c.HTML(http.StatusOK, "admin-contacts.html", gin.H{"title": "Contact Submissions", "contacts": contacts})
	})

	admin.GET("/sessions", func(c *gin.Context) {
		if a.history == nil {
			c.HTML(http.StatusOK, "admin-sessions.html", gin.H{"title": "Chat Sessions", "disabled": true})
			return
		}
		sessions, err := a.history.ListSessions(c.Request.Context(), 100)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load chat sessions"})
			return
		}
		c.HTML(http.StatusOK, "admin-sessions.html", gin.H{"title": "Chat Sessions", "sessions": sessions})
	})

	admin.GET("/sessions/:id", func(c *gin.Context) {
		if a.history == nil {
			c.HTML(http.StatusNotFound, "admin-error.html", gin.H{"error": "Chat history is not stored"})
			return
		}
		msgs, err := a.history.LoadMessages(c.Request.Context(), c.Param("id"), a.cfg.History.Limit)
		if err != nil {
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{"error": "Failed to load conversation"})
			return
		}
		c.HTML(http.StatusOK, "admin-conversation.html", gin.H{
			"title":     "Conversation",
			"sessionID": c.Param("id"),
			"messages":  msgs,
		})
	})

	// Privacy compliance endpoint: drop visitor data past the retention period
	admin.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		n, err := a.site.CleanupVisitors(c.Request.Context(), a.now())
		if err != nil {
			a.logger.Error("privacy cleanup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Privacy cleanup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup complete", "removed": n})
	})

	admin.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.adminStats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		a.logger.Info("admin stats exported", "visitor", a.hashIP(c.ClientIP()))
		c.JSON(http.StatusOK, stats)
	})
}
