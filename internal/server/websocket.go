package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/kitchenops/internal/relay"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	wsBufferSize   = 1024
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  wsBufferSize,
	WriteBufferSize: wsBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// socket is one WebSocket viewer of a recipe's session. Every relay
// message for the recipe is written to it, and messages it sends are
// published back onto the relay.
type socket struct {
	srv      *Server
	conn     *websocket.Conn
	recipeID string
	sender   string
	send     chan []byte
	once     sync.Once
	closed   chan struct{}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	recipeID := c.Param("id")
	if _, err := s.svc.Recipes.Get(ctx, recipeID); err != nil {
		s.fail(c, err)
		return
	}

	sock := &socket{
		srv:      s,
		recipeID: recipeID,
		sender:   profile(c).ID,
		send:     make(chan []byte, sendBufferSize),
		closed:   make(chan struct{}),
	}

	// Subscribe before the handshake so nothing published after the
	// client connects is missed.
	unsubscribe, err := s.svc.Engine.Relay().Subscribe(context.Background(), recipeID, sock.queue)
	if err != nil {
		s.fail(c, err)
		return
	}

	// Late joiners start from the live session's current state. It is
	// read after subscribing: the engine stores a state before publishing
	// it, so the snapshot is never older than a queued message.
	if sess, err := s.svc.Engine.State(ctx, recipeID); err == nil {
		sock.queue(relay.NewMessage(recipeID, "server", sess.State))
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		unsubscribe()
		s.log.Error("websocket upgrade failed: %v", err)
		return
	}
	sock.conn = conn

	s.register(sock)
	s.log.Debug("websocket: %s following %s", sock.sender, recipeID)

	go func() {
		defer s.unregister(sock)
		defer unsubscribe()
		sock.run()
	}()
}

func (s *Server) register(sock *socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[sock] = struct{}{}
}

func (s *Server) unregister(sock *socket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, sock)
}

// CloseWebSockets closes all active WebSocket connections.
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	socks := make([]*socket, 0, len(s.sockets))
	for sock := range s.sockets {
		socks = append(socks, sock)
	}
	s.mu.Unlock()

	for _, sock := range socks {
		sock.close()
	}
}

// queue hands msg to the writer. A viewer that cannot keep up misses it.
func (k *socket) queue(msg relay.Message) {
	data, err := relay.Encode(msg)
	if err != nil {
		k.srv.log.Error("websocket: encoding message: %v", err)
		return
	}
	select {
	case k.send <- data:
	case <-k.closed:
	default:
		k.srv.log.Debug("websocket: viewer of %s is slow, dropping message", k.recipeID)
	}
}

func (k *socket) close() {
	k.once.Do(func() {
		close(k.closed)
		_ = k.conn.Close()
	})
}

func (k *socket) run() {
	defer k.close()

	k.conn.SetReadLimit(maxMessageSize)
	_ = k.conn.SetReadDeadline(time.Now().Add(pongWait))
	k.conn.SetPongHandler(func(string) error {
		_ = k.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, sendBufferSize)
	go k.readMessages(incoming)

	for {
		select {
		case <-k.closed:
			return

		case raw, ok := <-incoming:
			if !ok {
				return
			}
			k.publish(raw)

		case data := <-k.send:
			_ = k.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := k.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				k.srv.log.Debug("websocket write failed: %v", err)
				return
			}

		case <-ticker.C:
			_ = k.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := k.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (k *socket) readMessages(incoming chan []byte) {
	defer close(incoming)
	for {
		_, message, err := k.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case incoming <- message:
		case <-k.closed:
			return
		}
	}
}

// publish relays a viewer's own broadcast. The last publisher wins, so it
// is passed on as is, pinned to this socket's recipe and sender.
func (k *socket) publish(raw []byte) {
	msg, err := relay.Decode(raw)
	if err != nil {
		k.srv.log.Warn("websocket: ignoring malformed message from %s: %v", k.sender, err)
		return
	}
	msg.RecipeID = k.recipeID
	msg.Sender = k.sender
	if msg.SentAt.IsZero() {
		msg.SentAt = k.srv.now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := k.srv.svc.Engine.Relay().Publish(ctx, msg); err != nil {
		k.srv.log.Warn("websocket: relaying message from %s: %v", k.sender, err)
	}
}
