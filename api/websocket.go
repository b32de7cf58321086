package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsWriteWait    = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingInterval = wsPongWait * 9 / 10 // must be shorter than wsPongWait
	wsMaxInbound   = 512                 // bytes per client message
	wsSendBuffer   = 256
)

// originAllowed applies the CORS origin list to WebSocket upgrades.
// Requests without an Origin header come from non-browser clients.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
		return true
	}
	return slices.Contains(allowed, origin)
}

// handleWebSocket upgrades the connection and subscribes it to analysis
// events. Clients receive analysis_complete and analysis_failed messages and
// may send {"type":"ping"}, answered with {"type":"pong"}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(s.cfg.API.CORSOrigins, r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("websocket upgrade failed")
		return
	}

	client := &WSClient{hub: s.wsHub, send: make(chan WSMessage, wsSendBuffer)}
	s.wsHub.Register(client)

	log := s.log.With().Str("remote", r.RemoteAddr).Logger()
	log.Debug().Msg("websocket client connected")

	go client.writeLoop(conn, log)
	go client.readLoop(conn, log)
}

// readLoop handles inbound messages until the peer goes away, then
// unregisters the client.
func (c *WSClient) readLoop(conn *websocket.Conn, log zerolog.Logger) {
	defer func() {
		c.hub.Unregister(c)
		conn.Close()
		log.Debug().Msg("websocket client disconnected")
	}()

	conn.SetReadLimit(wsMaxInbound)
	extend := func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
	_ = extend("")
	conn.SetPongHandler(extend)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		var msg WSMessage
		if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
			c.hub.Send(c, WSMessage{Type: "pong"})
		}
	}
}

// writeLoop delivers queued messages and keeps the connection alive with
// pings. It exits when the hub closes the send channel.
func (c *WSClient) writeLoop(conn *websocket.Conn, log zerolog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Str("type", msg.Type).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
