package server

import (
	"errors"
	"net/http"

	"github.com/OxMxDev/portfolio/internal/apperror"
	"github.com/OxMxDev/portfolio/internal/contact"
	"github.com/OxMxDev/portfolio/internal/server/response"
	"github.com/gin-gonic/gin"
)

// apiContact is the JSON form of the contact submission.
func (s *Server) apiContact(c *gin.Context) {
	sess := currentSession(c)

	var form contact.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}
	sess.Contact.SetForm(form)

	status, err := sess.Contact.Submit(c.Request.Context())
	var invalid contact.Errors
	switch {
	case err == nil:
		response.Success(c, http.StatusOK, successCopy, gin.H{"status": status})
	case errors.As(err, &invalid):
		c.Error(apperror.Invalid("Please correct the highlighted fields", invalid.Messages()))
	case errors.Is(err, contact.ErrInProgress):
		c.Error(apperror.Conflict("A message is already being sent"))
	case errors.Is(err, contact.ErrClosed):
		c.Error(apperror.Unavailable("Session expired, please retry", err))
	default:
		c.Error(apperror.New(http.StatusBadGateway, failureCopy, err))
	}
}
