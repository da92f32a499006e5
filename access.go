package main

import (
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const accessCookie = "site_access"

// setupAccessRoutes serves the password gate in front of the chatbot page, or
// the whole site when access.lock_site is set.
func (a *app) setupAccessRoutes(r *gin.Engine) {
	r.GET("/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "login.html", gin.H{
			"title": "Access Restricted",
			"next":  safeNext(c.Query("next")),
		})
	})

	r.POST("/login", func(c *gin.Context) {
		next := safeNext(c.PostForm("next"))
		if !a.checkAccessPassword(c.PostForm("password")) {
			a.logger.Warn("failed access login", "visitor", a.hashIP(c.ClientIP()))
			c.HTML(http.StatusUnauthorized, "login.html", gin.H{
				"title": "Access Restricted",
				"next":  next,
				"error": "Incorrect password. Please try again.",
			})
			return
		}
		c.SetCookie(accessCookie, a.accessToken, 3600*24, "/", "", c.Request.TLS != nil, true)
		c.Redirect(http.StatusFound, next)
	})

	// logout also ends the visitor's chat; stored history stays for the admin view
	r.GET("/logout", func(c *gin.Context) {
		if id, err := c.Cookie(sessionCookie); err == nil {
			a.chats.Forget(id)
		}
		c.SetCookie(accessCookie, "", -1, "/", "", c.Request.TLS != nil, true)
		c.SetCookie(sessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
		c.Redirect(http.StatusFound, "/")
	})
}

// checkAccessPassword prefers the bcrypt hash when one is configured.
func (a *app) checkAccessPassword(password string) bool {
	if password == "" {
		return false
	}
	if hash := a.cfg.Access.PasswordHash; hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.Access.Password)) == 1
}

func (a *app) hasAccess(c *gin.Context) bool {
	if !a.cfg.Access.Enabled() {
		return true
	}
	token, err := c.Cookie(accessCookie)
	return err == nil && subtle.ConstantTimeCompare([]byte(token), []byte(a.accessToken)) == 1
}

func (a *app) requireAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.hasAccess(c) {
			c.Next()
			return
		}
		if isHTMX(c) || c.Request.Method != http.MethodGet {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access password required"})
			return
		}
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// safeNext only allows redirects back into this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/chatbot"
	}
	return next
}
