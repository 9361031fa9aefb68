package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/OxMxDev/portfolio/internal/apperror"
	"github.com/OxMxDev/portfolio/internal/section"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
)

// clientMessage is what the page sends over the sections socket.
type clientMessage struct {
	Type    string          `json:"type"` // "register", "visibility", "scroll" or "menu"
	IDs     []section.ID    `json:"ids,omitempty"`
	Entries []section.Entry `json:"entries,omitempty"`
	ID      section.ID      `json:"id,omitempty"`
	Open    *bool           `json:"open,omitempty"`
}

// serverMessage is what the server pushes back.
type serverMessage struct {
	Type     string        `json:"type"` // "config", "active", "scroll", "menu" or "error"
	ID       section.ID    `json:"id,omitempty"`
	Band     *section.Band `json:"band,omitempty"`
	MenuOpen *bool         `json:"menu_open,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// socket serialises writes to one connection.
type socket struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *socket) send(m serverMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(m)
}

func (s *socket) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// sectionsSocket bridges the browser's IntersectionObserver to a tracker
// owned by this connection. Each register message starts a fresh
// observation; the previous one is disposed, as is the view on disconnect.
func (s *Server) sectionsSocket(c *gin.Context) {
	view, err := currentSession(c).OpenView()
	if err != nil {
		c.Error(apperror.Unavailable("Session expired, please reload the page", err))
		return
	}
	defer view.Close()

	// Upgrade writes its own response, so a cookie issued by requireSession
	// has to be handed over.
	var header http.Header
	if cookies := c.Writer.Header()["Set-Cookie"]; len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, header)
	if err != nil {
		s.log.Warn("sections: websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	ws := &socket{conn: conn}
	view.Feed.OnScroll(func(id section.ID) error {
		return ws.send(serverMessage{Type: "scroll", ID: id})
	})

	band := s.cfg.Band
	if err := ws.send(serverMessage{Type: "config", Band: &band}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ws.ping(); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	var sub *section.Subscription
	defer func() {
		if sub != nil {
			sub.Dispose()
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("sections: websocket read", "error", err)
			}
			return
		}

		switch msg.Type {
		case "register":
			ids := validIDs(msg.IDs)
			if sub != nil {
				sub.Dispose()
				sub = nil
			}
			view.Feed.Reset()
			view.Feed.Register(ids...)
			next, err := view.Tracker.Observe(ids)
			if err != nil {
				_ = ws.send(serverMessage{Type: "error", Error: err.Error()})
				continue
			}
			sub = next
			go forwardActive(ws, sub)
			_ = ws.send(serverMessage{Type: "active", ID: view.Tracker.Active()})
		case "visibility":
			view.Feed.Report(msg.Entries)
		case "scroll":
			// Unknown or missing sections are ignored.
			view.Tracker.ScrollToSection(msg.ID)
		case "menu":
			if msg.Open == nil {
				view.Tracker.ToggleMenu()
			} else {
				view.Tracker.SetMenuOpen(*msg.Open)
			}
			open := view.Tracker.State().MenuOpen
			_ = ws.send(serverMessage{Type: "menu", MenuOpen: &open})
		default:
			_ = ws.send(serverMessage{Type: "error", Error: "unknown message type: " + msg.Type})
		}
	}
}

// forwardActive pushes active-section changes until the subscription is
// disposed.
func forwardActive(ws *socket, sub *section.Subscription) {
	for id := range sub.C() {
		if err := ws.send(serverMessage{Type: "active", ID: id}); err != nil {
			return
		}
	}
}

func validIDs(ids []section.ID) []section.ID {
	out := make([]section.ID, 0, len(ids))
	seen := make(map[section.ID]bool, len(ids))
	for _, id := range ids {
		if id.Valid() && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
