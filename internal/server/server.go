// Package server is the HTTP surface of the portfolio: the page and its
// HTMX fragments, a small JSON API and the section websocket.
package server

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OxMxDev/portfolio/internal/apperror"
	"github.com/OxMxDev/portfolio/internal/config"
	"github.com/OxMxDev/portfolio/internal/contact"
	"github.com/OxMxDev/portfolio/internal/content"
	"github.com/OxMxDev/portfolio/internal/ratelimit"
	"github.com/OxMxDev/portfolio/internal/server/middleware"
	"github.com/OxMxDev/portfolio/internal/server/response"
	"github.com/OxMxDev/portfolio/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const sessionKey = "session"

type Deps struct {
	Config   *config.Config
	Content  *content.Portfolio
	Sessions *session.Store
	// Limiter budgets contact submissions, SessionLimiter new sessions.
	// Both are per client IP and default to in-memory counters.
	Limiter        *ratelimit.Limiter
	SessionLimiter *ratelimit.Limiter
	Logger         *slog.Logger
}

type Server struct {
	cfg       *config.Config
	content   *content.Portfolio
	sessions  *session.Store
	creations *ratelimit.Limiter
	log       *slog.Logger
	upgrader  websocket.Upgrader
}

// NewRouter wires every route and middleware onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	limiter := d.Limiter
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.Config{
			Limit:  d.Config.RateLimit.Limit,
			Window: d.Config.RateLimit.Window,
		})
	}
	creations := d.SessionLimiter
	if creations == nil {
		creations = ratelimit.New(ratelimit.Config{
			Limit:  d.Config.Session.CreateLimit,
			Window: d.Config.Session.CreateWindow,
		})
	}
	salt := d.Config.VisitorSalt
	if salt == "" {
		salt = uuid.NewString()
	}

	s := &Server{
		cfg:       d.Config,
		content:   d.Content,
		sessions:  d.Sessions,
		creations: creations,
		log:       log,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	r := gin.New()
	// Forwarded headers are only believed from configured proxies, so a
	// client cannot pick its own rate limit key.
	if err := r.SetTrustedProxies(d.Config.TrustedProxies); err != nil {
		log.Error("invalid trusted proxies, ignoring forwarded headers", "error", err)
		_ = r.SetTrustedProxies(nil)
	}
	r.TrustedPlatform = d.Config.TrustedPlatform

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(log))
	r.Use(middleware.AccessLog(log, salt))
	r.Use(middleware.CORS(d.Config.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(d.Config.Session.Secure))
	r.Use(middleware.ErrorHandler(log))

	r.SetFuncMap(template.FuncMap{
		"fieldError": func(e contact.Errors, f string) string { return e.Message(contact.Field(f)) },
		"join":       strings.Join,
		"dict":       dict,
	})
	r.LoadHTMLGlob(filepath.Join(d.Config.TemplatesDir, "*.html"))

	if d.Config.StaticDir != "" {
		r.Static("/static", d.Config.StaticDir)
	}
	if d.Config.ImagesDir != "" {
		r.Static("/images", d.Config.ImagesDir)
	}

	limit := middleware.RateLimit(limiter, log)

	// Page and HTMX fragments. Reads never create a session; only the
	// calls that store state do.
	r.GET("/", s.lookupSession, s.index)
	r.GET("/contact-form", s.lookupSession, s.contactForm)
	r.GET("/contact/status", s.lookupSession, s.contactStatus)
	r.POST("/contact", limit, s.requireSession, s.submitContact)
	r.POST("/contact/field", s.requireSession, s.updateField)
	r.GET("/ws/sections", s.requireSession, s.sectionsSocket)

	v1 := r.Group("/api/v1")
	v1.GET("/health", s.health)
	v1.GET("/content", s.portfolio)
	v1.GET("/projects/:id", s.project)
	v1.POST("/sections/preview", s.previewSections)
	v1.POST("/contact", limit, s.requireSession, s.apiContact)

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, "Not found", nil)
	})

	return r
}

// lookupSession attaches the visitor's session when the cookie names a live
// one.
func (s *Server) lookupSession(c *gin.Context) {
	id, _ := c.Cookie(s.cfg.Session.Cookie)
	if sess, ok := s.sessions.Get(id); ok {
		c.Set(sessionKey, sess)
	}
	c.Next()
}

// requireSession attaches the visitor's session, creating one and issuing
// its cookie when needed. Creation is budgeted per client IP so a flood of
// cookieless requests cannot evict real visitors.
func (s *Server) requireSession(c *gin.Context) {
	id, _ := c.Cookie(s.cfg.Session.Cookie)
	if sess, ok := s.sessions.Get(id); ok {
		c.Set(sessionKey, sess)
		c.Next()
		return
	}

	d, err := s.creations.Allow(c.Request.Context(), c.ClientIP())
	if err != nil {
		s.log.Error("session limiter unavailable", "error", err, "request_id", response.RequestID(c))
		response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
		c.Abort()
		return
	}
	if !d.Allowed {
		retry := int(time.Until(d.ResetAt).Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		response.Error(c, http.StatusTooManyRequests, "Too many new sessions. Please try again later.", nil)
		c.Abort()
		return
	}

	sess, created := s.sessions.Acquire(id)
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(s.cfg.Session.Cookie, sess.ID, 0, "/", "", s.cfg.Session.Secure, true)
	}
	c.Set(sessionKey, sess)
	c.Next()
}

// dict builds a template argument map from alternating keys and values.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}

// currentSession returns the attached session, or nil after lookupSession
// found none.
func currentSession(c *gin.Context) *session.Session {
	v, _ := c.Get(sessionKey)
	sess, _ := v.(*session.Session)
	return sess
}

// checkOrigin accepts same-host upgrades and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func (s *Server) health(c *gin.Context) {
	response.Success(c, http.StatusOK, "System operational", gin.H{
		"sessions": s.sessions.Len(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) portfolio(c *gin.Context) {
	response.Success(c, http.StatusOK, "ok", s.content)
}

func (s *Server) project(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.Error(apperror.BadRequest("Invalid project id"))
		return
	}
	pr, ok := s.content.Project(id)
	if !ok {
		c.Error(apperror.NotFound("Project not found"))
		return
	}
	response.Success(c, http.StatusOK, "ok", pr)
}
