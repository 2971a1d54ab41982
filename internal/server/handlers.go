// Package server exposes HTTP handlers, including the chat WebSocket upgrade,
// health checks, and the built-in test page.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/gochat-relay/internal/config"
	"github.com/Tyrowin/gochat-relay/internal/logger"
	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const healthText = "GoChat relay is running!"

// Handlers serves the relay's HTTP routes.
type Handlers struct {
	hub      *Hub
	relay    *relay.Relay
	cfg      config.Config
	log      logger.Logger
	upgrader websocket.Upgrader
}

// NewHandlers builds the handlers and the WebSocket upgrader for cfg.
func NewHandlers(hub *Hub, r *relay.Relay, cfg config.Config, log logger.Logger) *Handlers {
	origins := newOriginPolicy(cfg.AllowedOrigins, log)
	return &Handlers{
		hub:   hub,
		relay: r,
		cfg:   cfg,
		log:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}
}

// ChatSocket upgrades the request to a WebSocket and hands the connection to
// the hub, which opens the relay session for the userName query parameter.
func (h *Handlers) ChatSocket(c *gin.Context) {
	if c.Request.Method != http.MethodGet {
		c.String(http.StatusMethodNotAllowed, "Method not allowed. WebSocket endpoint only accepts GET requests.")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "addr", c.Request.RemoteAddr, "error", err.Error())
		return
	}

	client := NewClient(conn, h.hub, c.Request.RemoteAddr, c.Request.URL.Query(), h.cfg, h.log)
	if !h.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
	}
}

// Health responds with a plain text liveness line.
func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, healthText)
}

type healthStatus struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Online      int    `json:"online"`
	Stored      int    `json:"stored"`
}

// Status reports connection and presence counts as JSON.
func (h *Handlers) Status(c *gin.Context) {
	c.JSON(http.StatusOK, healthStatus{
		Status:      "ok",
		Connections: h.hub.ClientCount(),
		Online:      h.relay.Presence().OnlineCount(),
		Stored:      h.relay.Store().Len(),
	})
}

// TestPage serves a small HTML page for trying the chat endpoint by hand.
func (h *Handlers) TestPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(testPageHTML))
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head><title>GoChat relay</title></head>
<body>
<input id="name" placeholder="userName">
<button onclick="connect()">Connect</button>
<input id="text" placeholder="message" onkeydown="if (event.key === 'Enter') send()">
<button onclick="send()">Send</button>
<pre id="log"></pre>
<script>
let ws = null;
const out = document.getElementById('log');
function show(line) { out.textContent += line + '\n'; }
function connect() {
  if (ws) { ws.close(); ws = null; return; }
  const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
  const name = encodeURIComponent(document.getElementById('name').value);
  ws = new WebSocket(proto + '//' + location.host + '/api/ws/chat?userName=' + name);
  ws.onopen = () => show('connected');
  ws.onclose = () => { show('disconnected'); ws = null; };
  ws.onmessage = (e) => { const m = JSON.parse(e.data); show(m.userName + ': ' + m.text); };
}
function send() {
  const input = document.getElementById('text');
  if (ws && input.value) { ws.send(input.value); input.value = ''; }
}
</script>
</body>
</html>`
