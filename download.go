package main

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/Zachkp/resume-site/internal/webhook"
	"github.com/gin-gonic/gin"
)

// downloadResume proxies the resume file from the webhook so its credentials
// never reach the browser.
func (a *app) downloadResume(c *gin.Context) {
	if !a.hooks.ResumeConfigured() {
		c.HTML(http.StatusServiceUnavailable, "download-error.html", gin.H{
			"title": "Configuration Error",
			"error": "The webhook URL is not configured.",
		})
		return
	}

	d, err := a.hooks.DownloadResume(c.Request.Context())
	if err != nil {
		a.logger.Warn("resume download failed", "error", err)
		c.HTML(http.StatusBadGateway, "download-error.html", gin.H{
			"title": "Download Failed",
			"error": downloadErrorText(err),
		})
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.FileName}))
	c.Header("Content-Length", strconv.Itoa(len(d.Data)))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, d.ContentType, d.Data)
}

func downloadErrorText(err error) string {
	var (
		herr *webhook.HTTPError
		ferr *webhook.ResponseFormatError
	)
	switch {
	case errors.As(err, &herr):
		if herr.Detail != "" {
			return herr.Detail
		}
		return "Failed to fetch the resume."
	case errors.As(err, &ferr):
		return "The resume file could not be read. Please try again later."
	default:
		return "An unknown error occurred. Please try again."
	}
}
