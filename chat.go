package main

import (
	"errors"
	"net/http"

	"github.com/Zachkp/resume-site/internal/chat"
	"github.com/gin-gonic/gin"
)

const busyNotice = "Please wait for the current reply before sending another message."

// chatFragment re-renders the conversation for HTMX. view=page targets the
// chatbot page panel, anything else the floating widget.
func (a *app) chatFragment(c *gin.Context, w *chat.Widget, notice string) {
	name := "chat-widget.html"
	if c.Query("view") == "page" || c.PostForm("view") == "page" {
		name = "chat-panel.html"
	}
	c.HTML(http.StatusOK, name, gin.H{
		"chat":   w.Snapshot(),
		"notice": notice,
	})
}

func (a *app) toggleChat(c *gin.Context) {
	w := a.chats.Widget(c.Request.Context(), sessionID(c))
	w.Toggle()
	a.chatFragment(c, w, "")
}

func (a *app) chatMessages(c *gin.Context) {
	w := a.chats.Widget(c.Request.Context(), sessionID(c))
	a.chatFragment(c, w, "")
}

// sendChatMessage blocks until the webhook answers or the chat timeout elapses,
// then returns the updated conversation.
func (a *app) sendChatMessage(c *gin.Context) {
	w := a.chats.Widget(c.Request.Context(), sessionID(c))
	w.SetOpen(true)

	_, err := w.Submit(c.Request.Context(), c.PostForm("message"))
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		a.chatFragment(c, w, "")
	case errors.Is(err, chat.ErrBusy):
		a.chatFragment(c, w, busyNotice)
	case err != nil:
		a.logger.Error("chat submit failed", "error", err)
		a.chatFragment(c, w, "Something went wrong. Please try again.")
	default:
		a.chatFragment(c, w, "")
	}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

// apiChat is the JSON variant: it returns the user's message and the terminal reply.
func (a *app) apiChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	w := a.chats.Widget(c.Request.Context(), sessionID(c))
	ex, err := w.Submit(c.Request.Context(), req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, chat.ErrBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": busyNotice})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{
			"session_id": w.SessionID(),
			"user":       ex.User,
			"reply":      ex.Reply,
			"outcome":    ex.Outcome.String(),
		})
	}
}
