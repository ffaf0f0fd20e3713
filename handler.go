package dashboard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jsremote/dashboard/route"
	"github.com/jsremote/dashboard/view"
)

// wsUpgrader is a Gorilla WebSocket instance, used to respond HTTP requests with WebSocket.
var wsUpgrader = websocket.Upgrader{}

// Handler serves the shell over HTTP.
//
// A plain GET renders the shell once. A WebSocket upgrade on the same URL starts a live session:
// the shell is rendered on connect, on every client message and whenever a component touches
// its scope; each render is sent as one text message with the HTML of the shell.
type Handler struct {
	// Shell to render.
	Shell *Shell

	// BasePath is the route pattern the shell is mounted at. Requests outside of it get a 404.
	// If not set, the shell is mounted at "/".
	BasePath string

	// Props returns the extra properties passed to the Header for a request. A "match" key
	// is reserved and dropped.
	Props func(*http.Request) map[string]any

	// OnError is a callback that is called when an error occurs while serving a page.
	OnError func(*http.Request, error)

	// ErrorPage, if set, renders the 500 response of a failed page render. It receives the
	// errors as "errors", see ErrorPage.
	ErrorPage view.Component

	// Logger configures logging for internal events.
	Logger *slog.Logger

	// Metrics, if set, records every render.
	Metrics *Metrics

	// init is used to initialize the handler only once.
	init sync.Once

	// logger is a private logger instance that is used to log internal events.
	logger *slog.Logger

	base    route.Pattern
	baseErr error
}

// SessionMessage is sent by WebSocket clients to navigate or update the Header properties.
type SessionMessage struct {
	// Location is the new URL path. Empty keeps the current one.
	Location string `json:"location"`

	// Props are merged into the extra properties of the session.
	Props map[string]any `json:"props"`
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.init.Do(func() {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		if h.Logger != nil {
			h.logger = h.Logger
		}
		h.base, h.baseErr = route.Compile(h.BasePath)
		if h.baseErr == nil {
			h.baseErr = CheckBasePath(h.base)
		}
		if h.baseErr != nil {
			h.logger.Error("Compile base path", "error", h.baseErr)
		}
	})

	if err := h.handleRequest(w, r); err != nil {
		h.writeError(w, r, err)
		h.fail(r, err)
	}
}

func (h *Handler) fail(r *http.Request, err error) {
	h.logger.Error("Serve HTTP request", "url", r.URL.Redacted(), "error", err)

	if h.OnError != nil {
		h.OnError(r, err)
	}
}

// writeError responds with a 500, rendered by ErrorPage when possible.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if h.ErrorPage != nil {
		page, perr := renderErrorPage(h.ErrorPage, newScope(nil, r, r.URL.EscapedPath()), err)
		if perr == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_ = view.Render(w, page)
			return
		}
		h.logger.Error("Render error page", "url", r.URL.Redacted(), "error", perr)
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) handleRequest(w http.ResponseWriter, r *http.Request) error {
	if h.baseErr != nil {
		return h.baseErr
	}
	if h.Shell == nil {
		return errors.New("no shell configured")
	}

	location := r.URL.EscapedPath()
	match, ok := h.navigate(location)
	if !ok {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return nil
	}

	props := Props{Match: match, Extra: h.extraProps(r)}

	if websocket.IsWebSocketUpgrade(r) {
		return h.serveSession(w, r, props, location)
	}
	return h.servePage(w, r, props, location)
}

// navigate matches location against the base path.
func (h *Handler) navigate(location string) (*NavigationMatch, bool) {
	m, ok := h.base.Match(location, false, false)
	if !ok {
		return nil, false
	}
	return &NavigationMatch{
		Path:    h.base.String(),
		URL:     m.URL,
		IsExact: m.IsExact,
		Params:  m.Params,
	}, true
}

func (h *Handler) extraProps(r *http.Request) map[string]any {
	extra := map[string]any{}
	if h.Props != nil {
		for k, v := range h.Props(r) {
			extra[k] = v
		}
	}
	delete(extra, matchProp)
	return extra
}

func (h *Handler) servePage(w http.ResponseWriter, r *http.Request, props Props, location string) error {
	start := time.Now()

	res, err := h.Shell.render(newScope(nil, r, location), props, location)
	if err != nil {
		h.Metrics.observe("", http.StatusInternalServerError, time.Since(start))
		return fmt.Errorf("render shell: %w", err)
	}

	status := http.StatusOK
	if !res.Matched {
		status = http.StatusNotFound
	}
	h.Metrics.observe(res.View, status, time.Since(start))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := view.Render(w, res.HTML); err != nil {
		// the status line is already sent
		h.logger.Error("Write HTML", "url", r.URL.Redacted(), "error", err)
	}
	return nil
}

func (h *Handler) serveSession(w http.ResponseWriter, r *http.Request, props Props, location string) error {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		h.logger.Warn("Upgrade websocket", "url", r.URL.Redacted(), "error", err)
		return nil
	}
	defer ws.Close()

	// the connection is hijacked, errors can only be reported through the close frame
	if err := h.runSession(ws, r, props, location); err != nil {
		h.fail(r, err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "render failed")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	}
	return nil
}

func (h *Handler) runSession(ws *websocket.Conn, r *http.Request, props Props, location string) error {
	logger := h.logger.With("session", uuid.NewString())
	logger.Debug("Session started", "location", location)

	s := newScope(nil, r, location)

	msgs := make(chan SessionMessage)
	done := make(chan error, 1) // completion of the read loop
	quit := make(chan struct{})
	defer close(quit)

	go func() {
		for {
			var msg SessionMessage
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					err = nil
				} else {
					err = fmt.Errorf("read websocket message: %w", err)
				}
				done <- err
				return
			}
			select {
			case msgs <- msg:
			case <-quit:
				return
			}
		}
	}()

	render := func() error {
		start := time.Now()

		res, err := h.Shell.render(s, props, s.Location())
		if err != nil {
			h.Metrics.observe("", http.StatusInternalServerError, time.Since(start))
			return fmt.Errorf("render shell: %w", err)
		}

		status := http.StatusOK
		if !res.Matched {
			status = http.StatusNotFound
		}
		h.Metrics.observe(res.View, status, time.Since(start))

		wr, err := ws.NextWriter(websocket.TextMessage)
		if err != nil {
			return fmt.Errorf("get websocket writer: %w", err)
		}
		if err := view.Render(wr, res.HTML); err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
		if err := wr.Close(); err != nil {
			return fmt.Errorf("close websocket writer: %w", err)
		}
		return nil
	}

	if err := render(); err != nil {
		return err
	}

	for {
		select {
		case msg := <-msgs:
			if msg.Location != "" {
				match, ok := h.navigate(msg.Location)
				if !ok {
					logger.Warn("Location outside of base path", "location", msg.Location)
					continue
				}
				props.Match = match
				s.setLocation(msg.Location)
			}
			if len(msg.Props) > 0 {
				extra := make(map[string]any, len(props.Extra)+len(msg.Props))
				for k, v := range props.Extra {
					extra[k] = v
				}
				for k, v := range msg.Props {
					extra[k] = v
				}
				delete(extra, matchProp)
				props.Extra = extra
			}
			if err := render(); err != nil {
				return err
			}
		case <-s.Touched():
			if err := render(); err != nil {
				return err
			}
		case err := <-done:
			logger.Debug("Session closed", "error", err)
			return err
		}
	}
}
