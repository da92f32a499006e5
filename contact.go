package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Zachkp/resume-site/internal/notify"
	"github.com/Zachkp/resume-site/internal/reply"
	"github.com/Zachkp/resume-site/internal/store"
	"github.com/Zachkp/resume-site/internal/webhook"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const (
	contactSuccessText   = "Thank you for your message! I'll get back to you soon."
	contactFailureText   = "Sorry, there was an error sending your message. Please try again later."
	contactNotConfigured = "The contact form is not configured yet. Please reach out by email instead."
)

type contactForm struct {
	FullName string `form:"fullName" binding:"required,max=200"`
	Email    string `form:"email" binding:"required,email,max=320"`
	Message  string `form:"message" binding:"required,max=5000"`
}

var contactFieldNames = map[string]string{
	"FullName": "Name",
	"Email":    "Email",
	"Message":  "Message",
}

// validationMessage turns binding errors into one line a visitor can act on.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Please fill in all fields."
	}
	var parts []string
	for _, fe := range verrs {
		name := contactFieldNames[fe.Field()]
		switch fe.Tag() {
		case "required":
			parts = append(parts, name+" is required.")
		case "email":
			parts = append(parts, "Please enter a valid email address.")
		case "max":
			parts = append(parts, name+" is too long.")
		default:
			parts = append(parts, name+" is invalid.")
		}
	}
	return strings.Join(parts, " ")
}

// submitContact delivers the form to the contact webhook and every configured
// notifier. It succeeds when at least one of them accepted the message.
func (a *app) submitContact(c *gin.Context) {
	var form contactForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": validationMessage(err)})
		return
	}
	form.FullName = strings.TrimSpace(form.FullName)
	form.Email = strings.TrimSpace(form.Email)
	form.Message = strings.TrimSpace(form.Message)

	if !a.hooks.ContactConfigured() && len(a.notifiers) == 0 {
		a.logger.Warn("contact submission with no delivery path configured")
		c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": contactNotConfigured})
		return
	}

	// finish delivery even if the visitor navigates away
	ctx := context.WithoutCancel(c.Request.Context())
	var delivered []string
	var detail string

	if a.hooks.ContactConfigured() {
		resp, err := a.hooks.Contact(ctx, webhook.ContactRequest{
			Name:    form.FullName,
			Email:   form.Email,
			Message: form.Message,
		})
		if err != nil {
			detail = contactErrorDetail(err)
		} else {
			r := reply.Normalize(resp.Body)
			a.logger.Debug("contact webhook replied", "outcome", r.Outcome.String())
			delivered = append(delivered, "webhook")
		}
	}

	sent, err := notify.Broadcast(ctx, a.notifiers, notify.Contact{
		Name:    form.FullName,
		Email:   form.Email,
		Message: form.Message,
	}, a.logger)
	delivered = append(delivered, sent...)
	if err != nil {
		a.logger.Warn("some contact notifiers failed", "error", err)
	}

	if _, serr := a.site.SaveContact(ctx, store.ContactSubmission{
		Name:      form.FullName,
		Email:     form.Email,
		Message:   form.Message,
		Delivered: delivered,
	}); serr != nil {
		a.logger.Error("failed to store contact submission", "error", serr)
	}

	if len(delivered) == 0 {
		msg := contactFailureText
		if detail != "" {
			msg += " (" + detail + ")"
		}
		c.HTML(http.StatusOK, "contact-error.html", gin.H{"error": msg})
		return
	}
	a.logger.Info("contact submission delivered", "via", strings.Join(delivered, ","))
	c.HTML(http.StatusOK, "contact-success.html", gin.H{"success": contactSuccessText})
}

func contactErrorDetail(err error) string {
	var herr *webhook.HTTPError
	if errors.As(err, &herr) {
		if herr.Detail != "" {
			return herr.Detail
		}
		return herr.StatusText
	}
	return ""
}
