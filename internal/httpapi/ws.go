package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"paralleldex/internal/network"
	"paralleldex/internal/overworld"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// overworldCommand is what the client sends while walking.
type overworldCommand struct {
	Action    string              `json:"action"`
	Direction overworld.Direction `json:"direction,omitempty"`
	Width     float64             `json:"width,omitempty"`
	Height    float64             `json:"height,omitempty"`
}

const (
	actionPress    = "press"
	actionRelease  = "release"
	actionViewport = "viewport"
	actionInteract = "interact"
	actionState    = "state"
)

// overworldSocket upgrades to a websocket. Browsers cannot set headers on the
// handshake, so the token may also come as ?token=.
func (h *Handler) overworldSocket(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	claims, err := h.issuer.Validate(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	if _, err := h.svc.Player(claims.PlayerID); err != nil {
		h.fail(w, r, "overworldSocket", err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &wsClient{
		h:        h,
		conn:     conn,
		playerID: claims.PlayerID,
		updates:  h.hub.Register(claims.PlayerID),
		log:      h.log.WithField("player_id", claims.PlayerID),
	}
	c.log.Info("overworld connected")
	go c.writePump()
	c.push(h.overworldMessage(claims.PlayerID))
	c.readPump()
}

type wsClient struct {
	h        *Handler
	conn     *websocket.Conn
	playerID string
	updates  <-chan network.Message
	log      *logrus.Entry
}

func (c *wsClient) push(msg network.Message) {
	c.h.hub.SendTo(c.playerID, msg)
}

func (c *wsClient) readPump() {
	defer func() {
		c.h.hub.Unregister(c.playerID, c.updates)
		c.h.svc.ReleaseAll(c.playerID)
		if err := c.conn.Close(); err != nil {
			c.log.WithError(err).Debug("close websocket failed")
		}
		c.log.Info("overworld disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.WithError(err).Warn("failed to set read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd overworldCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		c.handle(cmd)
	}
}

func (c *wsClient) handle(cmd overworldCommand) {
	var err error
	switch cmd.Action {
	case actionPress:
		_, err = c.h.svc.PressDirection(c.playerID, cmd.Direction)
	case actionRelease:
		_, err = c.h.svc.ReleaseDirection(c.playerID)
		if err == nil {
			c.push(c.h.overworldMessage(c.playerID))
		}
	case actionViewport:
		_, err = c.h.svc.SetViewport(c.playerID, overworld.Viewport{Width: cmd.Width, Height: cmd.Height})
		if err == nil {
			c.push(c.h.overworldMessage(c.playerID))
		}
	case actionInteract:
		// the resulting snapshot reaches the client through the hub
		_, err = c.h.svc.InteractNearby(c.playerID)
	case actionState:
		c.push(c.h.overworldMessage(c.playerID))
	default:
		c.push(network.Message{Type: network.MsgError, Payload: "unknown action: " + cmd.Action})
		return
	}
	if err != nil {
		c.push(network.Message{Type: network.MsgError, Payload: err.Error()})
	}
}

// writePump sends hub messages and pings. It owns every write on conn.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.updates:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.log.WithError(err).Debug("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.WithError(err).Debug("ping failed")
				return
			}
		}
	}
}

func (h *Handler) overworldMessage(playerID string) network.Message {
	view, err := h.svc.OverworldState(playerID)
	if err != nil {
		return network.Message{Type: network.MsgError, Payload: err.Error()}
	}
	return network.Message{Type: network.MsgPosition, Payload: view}
}
