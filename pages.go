package main

import (
	"net/http"
	"strings"

	"github.com/Zachkp/resume-site/internal/resume"
	"github.com/gin-gonic/gin"
)

type navLink struct {
	Href  string
	Label string
}

var navLinks = []navLink{
	{"/", "Home"},
	{"/about", "About"},
	{"/experience", "Experience"},
	{"/skills", "Skills"},
	{"/projects", "Projects"},
	{"/other", "Other"},
	{"/contact", "Contact"},
	{"/chatbot", "Chatbot"},
}

// pageData is the data every full page template receives.
func (a *app) pageData(c *gin.Context, title string) gin.H {
	data := gin.H{
		"title":      title,
		"path":       c.Request.URL.Path,
		"nav":        navLinks,
		"resume":     a.resume,
		"initials":   a.resume.Initials(),
		"languages":  a.resume.SpokenLanguages(),
		"downloadOK": a.hooks.ResumeConfigured(),
		"year":       a.now().Year(),
	}
	// the floating widget and the chatbot page share one conversation per session
	if id := sessionID(c); id != "" {
		data["chat"] = a.chats.Widget(c.Request.Context(), id).Snapshot()
	}
	return data
}

func (a *app) page(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.HTML(http.StatusOK, name, a.pageData(c, title))
	}
}

func (a *app) skillsPage(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	data := a.pageData(c, "Skills")
	skills := a.resume.FilterSkills(q)
	data["query"] = q
	data["skills"] = skills
	data["shown"] = resume.CountSkills(skills)
	data["total"] = a.resume.SkillCount()
	c.HTML(http.StatusOK, "skills.html", data)
}
