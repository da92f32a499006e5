package main

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/Zachkp/resume-site/internal/reply"
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	sessionCookie = "chat_session"
	sessionKey    = "session_id"
)

func (a *app) routes() *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(loadTemplates())

	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"chat_configured": a.hooks.ChatConfigured(),
			"sessions":        a.chats.Sessions(),
		})
	})

	a.setupAccessRoutes(r)
	a.setupAdminRoutes(r)

	site := r.Group("/")
	site.Use(a.visitorTrackingMiddleware(), a.sessionMiddleware())
	if a.cfg.Access.LockSite {
		site.Use(a.requireAccess())
	}

	site.GET("/", a.page("index.html", "Home"))
	site.GET("/about", a.page("about.html", "About"))
	site.GET("/experience", a.page("experience.html", "Experience"))
	site.GET("/projects", a.page("projects.html", "Projects"))
	site.GET("/skills", a.skillsPage)
	site.GET("/other", a.page("other.html", "Other"))
	site.GET("/contact", a.page("contact.html", "Contact"))
	site.GET("/chatbot", a.requireAccess(), a.page("chatbot.html", "Chatbot"))

	site.POST("/contact", a.submitContact)
	site.GET("/resume/download", a.downloadResume)

	site.POST("/chat/toggle", a.toggleChat)
	site.GET("/chat/messages", a.chatMessages)
	site.POST("/chat/messages", a.sendChatMessage)
	site.POST("/api/chat", a.apiChat)

	r.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "error.html", gin.H{
			"title": "Not Found",
			"error": "That page does not exist.",
		})
	})
	return r
}

// sessionMiddleware gives every visitor a stable chat session id cookie.
func (a *app) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if _, perr := uuid.Parse(id); err != nil || perr != nil {
			id = uuid.NewString()
			c.SetCookie(sessionCookie, id, 30*24*3600, "/", "", c.Request.TLS != nil, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string { return c.GetString(sessionKey) }

func isHTMX(c *gin.Context) bool { return c.GetHeader("HX-Request") == "true" }

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs()).ParseFS(templateFS, "templates/*.html"))
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"markdown": renderMarkdown,
		"filesize": fileSize,
		"fileicon": fileIcon,
		"clock":    func(t time.Time) string { return t.Local().Format("15:04") },
		"datetime": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
		"ago":      humanize.Time,
		"comma":    humanize.Comma,
		"join":     strings.Join,
	}
}

// renderMarkdown turns a bot reply into HTML. Raw HTML in the reply is dropped
// and only safe link protocols survive.
func renderMarkdown(s string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Autolink)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.SkipHTML | mdhtml.Safelink | mdhtml.HrefTargetBlank | mdhtml.NofollowLinks | mdhtml.NoreferrerLinks,
	})
	return template.HTML(markdown.ToHTML([]byte(s), p, r))
}

// fileSize formats attachment sizes in binary units; unknown sizes render empty.
func fileSize(n int64) string {
	if n <= 0 {
		return ""
	}
	return humanize.IBytes(uint64(n))
}

// fileIcon picks the icon class for an attachment from its MIME type.
func fileIcon(f reply.FileAttachment) string {
	mt := strings.ToLower(f.MimeType)
	switch {
	case strings.HasPrefix(mt, "image/"):
		return "image"
	case strings.HasPrefix(mt, "video/"):
		return "video"
	case strings.HasPrefix(mt, "audio/"):
		return "audio"
	case mt == "application/pdf", strings.HasPrefix(mt, "text/"),
		strings.Contains(mt, "document"), strings.Contains(mt, "msword"):
		return "document"
	case strings.Contains(mt, "zip"), strings.Contains(mt, "compressed"), strings.Contains(mt, "tar"):
		return "archive"
	default:
		return "file"
	}
}
