package transport

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/vetcare/intake/pkg/core"
	"github.com/vetcare/intake/pkg/protocol"
)

// WebSocket is the server side of one live connection. It implements
// core.Transport; frames are encoded with the codec negotiated through the
// websocket subprotocol.
type WebSocket struct {
	conn      *websocket.Conn
	codec     protocol.Codec
	config    *Config
	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
	connected atomic.Bool
}

// Accept validates the Origin header and upgrades the request.
func Accept(w http.ResponseWriter, r *http.Request, policy OriginPolicy, config *Config) (*WebSocket, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if !policy.Allowed(r.Header.Get("Origin"), r.Host) {
		http.Error(w, "Forbidden: Origin not allowed", http.StatusForbidden)
		return nil, ErrOriginNotAllowed
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: protocol.Subprotocols(),
		// origin already checked by policy
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, fmt.Errorf("accept websocket: %w", err)
	}

	codec, err := protocol.ForSubprotocol(conn.Subprotocol())
	if err != nil {
		conn.Close(websocket.StatusPolicyViolation, "unsupported subprotocol")
		return nil, err
	}

	if config.MaxMessageSize > 0 {
		conn.SetReadLimit(config.MaxMessageSize)
	}

	t := &WebSocket{
		conn:    conn,
		codec:   codec,
		config:  config,
		sendCh:  make(chan []byte, config.SendBufferSize),
		closeCh: make(chan struct{}),
	}
	t.connected.Store(true)

	go t.writeLoop()
	if config.PingInterval > 0 {
		go t.pingLoop()
	}

	return t, nil
}

// Codec returns the negotiated codec.
func (t *WebSocket) Codec() protocol.Codec {
	return t.codec
}

// IsConnected returns the connection status.
func (t *WebSocket) IsConnected() bool {
	return t.connected.Load()
}

// Read blocks for the next client frame. Frames that fail to decode are
// reported with protocol.ErrInvalidMessage and the connection stays open;
// any other error means the connection is gone.
func (t *WebSocket) Read(ctx context.Context) (*protocol.Message, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		t.Close()
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
			websocket.CloseStatus(err) == websocket.StatusGoingAway {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}

	msg, err := t.codec.Decode(data)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Send encodes msg and queues it for the writer.
func (t *WebSocket) Send(msg core.Message) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}

	frame := &protocol.Message{
		Ref:       msg.Ref,
		Topic:     msg.Topic,
		Event:     msg.Event,
		Payload:   msg.Payload,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := t.codec.Encode(frame)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Event, err)
	}

	select {
	case t.sendCh <- data:
		return nil
	case <-t.closeCh:
		return ErrConnectionClosed
	case <-time.After(t.config.WriteTimeout):
		return ErrSendTimeout
	}
}

// Close closes the connection. It is safe to call more than once.
func (t *WebSocket) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.connected.Store(false)
		close(t.closeCh)
		err = t.conn.Close(websocket.StatusNormalClosure, "closing")
	})
	return err
}

func (t *WebSocket) writeLoop() {
	typ := websocket.MessageText
	if t.codec.Binary() {
		typ = websocket.MessageBinary
	}

	for {
		select {
		case data := <-t.sendCh:
			ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
			err := t.conn.Write(ctx, typ, data)
			cancel()
			if err != nil {
				t.Close()
				return
			}
		case <-t.closeCh:
			return
		}
	}
}

func (t *WebSocket) pingLoop() {
	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), t.config.WriteTimeout)
			err := t.conn.Ping(ctx)
			cancel()
			if err != nil {
				t.Close()
				return
			}
		case <-t.closeCh:
			return
		}
	}
}
