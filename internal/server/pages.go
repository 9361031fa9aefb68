package server

import (
	"errors"
	"net/http"

	"github.com/OxMxDev/portfolio/internal/apperror"
	"github.com/OxMxDev/portfolio/internal/contact"
	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/OxMxDev/portfolio/internal/server/response"
	"github.com/OxMxDev/portfolio/internal/session"
	"github.com/gin-gonic/gin"
)

const (
	successCopy = "Thanks for reaching out! I'll get back to you soon."
	failureCopy = "Something went wrong. Please try again or email me directly."
)

// contactView is what contact.html renders.
type contactView struct {
	Form   contact.Form
	Errors contact.Errors
	Status contact.Status
	Notice string
}

func newContactView(st contact.State) contactView {
	v := contactView{Form: st.Form, Errors: st.Errors, Status: st.Status}
	switch st.Status {
	case contact.StatusSuccess:
		v.Notice = successCopy
	case contact.StatusError:
		v.Notice = failureCopy
	}
	return v
}

// contactState is the visitor's contact state, idle when they have no
// session yet.
func contactState(sess *session.Session) contact.State {
	if sess == nil {
		return contact.State{Status: contact.StatusIdle}
	}
	return sess.Contact.Snapshot()
}

// index renders the whole page. Each tab tracks its own section over the
// socket, so the page always starts on the first one.
func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"content": s.content,
		"contact": newContactView(contactState(currentSession(c))),
		"tracker": section.State{Active: section.DefaultIDs[0]},
	})
}

// contactForm returns just the form HTML.
func (s *Server) contactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", newContactView(contactState(currentSession(c))))
}

// submitContact handles the HTMX form post. Every outcome re-renders the
// form fragment: inline errors, the sending state, or the success and
// failure notices.
func (s *Server) submitContact(c *gin.Context) {
	sess := currentSession(c)

	var form contact.Form
	if err := c.ShouldBind(&form); err != nil {
		c.Error(apperror.BadRequest("Invalid form submission"))
		return
	}
	sess.Contact.SetForm(form)

	_, err := sess.Contact.Submit(c.Request.Context())
	var invalid contact.Errors
	switch {
	case err == nil, errors.As(err, &invalid), errors.Is(err, contact.ErrInProgress):
	case errors.Is(err, contact.ErrClosed):
		c.Error(apperror.Unavailable("Session expired, please reload the page", err))
		return
	default:
		s.log.Warn("contact relay failed", "error", err, "request_id", response.RequestID(c))
	}
	c.HTML(http.StatusOK, "contact.html", newContactView(sess.Contact.Snapshot()))
}

// updateField stores one edited input and answers with that field's now
// cleared error slot.
func (s *Server) updateField(c *gin.Context) {
	sess := currentSession(c)
	field, ok := contact.ParseField(c.PostForm("field"))
	if !ok {
		c.Error(apperror.BadRequest("Unknown field"))
		return
	}
	sess.Contact.UpdateField(field, c.PostForm(string(field)))
	st := sess.Contact.Snapshot()
	c.HTML(http.StatusOK, "field-error.html", gin.H{
		"Field":   string(field),
		"Message": st.Errors.Message(field),
	})
}

type statusView struct {
	Status contact.Status    `json:"status"`
	Form   contact.Form      `json:"form"`
	Errors map[string]string `json:"errors,omitempty"`
	Notice string            `json:"notice,omitempty"`
}

// contactStatus lets the page see the automatic return to idle.
func (s *Server) contactStatus(c *gin.Context) {
	v := newContactView(contactState(currentSession(c)))
	response.Success(c, http.StatusOK, "ok", statusView{
		Status: v.Status,
		Form:   v.Form,
		Errors: v.Errors.Messages(),
		Notice: v.Notice,
	})
}
