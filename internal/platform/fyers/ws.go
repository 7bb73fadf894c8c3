package fyers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"spikewatch/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// MessageHandler is called with every raw data frame read from the stream.
type MessageHandler func(raw []byte)

// WSClient is a WebSocket client for the Fyers market-data stream. It
// manages a single connection: dialing, the batch symbol subscription,
// keep-alive pings, and the read loop. It does not reconnect; a
// disconnect is surfaced once on Err and the caller decides what to do.
type WSClient struct {
	wsURL       string
	accessToken string // "clientID:token" per the Fyers data socket contract

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	onMessage MessageHandler

	done  chan struct{}
	errCh chan error
}

// NewWSClient creates a client for the given stream URL and access token.
func NewWSClient(wsURL, accessToken string) *WSClient {
	return &WSClient{
		wsURL:       wsURL,
		accessToken: accessToken,
		done:        make(chan struct{}),
		errCh:       make(chan error, 1),
	}
}

// OnMessage registers the handler invoked for every frame. Must be called
// before Connect.
func (w *WSClient) OnMessage(h MessageHandler) {
	w.onMessage = h
}

// Err returns a channel that receives the terminal read error when the
// connection drops. At most one error is ever delivered.
func (w *WSClient) Err() <-chan error {
	return w.errCh
}

// Connect establishes the WebSocket connection and starts the read and
// ping loops.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("fyers/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}
	header := http.Header{}
	header.Set("Authorization", w.accessToken)

	conn, _, err := dialer.DialContext(ctx, w.wsURL, header)
	if err != nil {
		return fmt.Errorf("fyers/ws: connect: %w", err)
	}
	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)

	return nil
}

// Subscribe subscribes to symbol updates for the full symbol list as one
// batch command.
func (w *WSClient) Subscribe(ctx context.Context, symbols []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("fyers/ws: not connected")
	}

	cmd := WSCommand{
		Type:     "subscribe",
		DataType: "SymbolUpdate",
		Symbols:  symbols,
	}
	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("fyers/ws: subscribe %d symbols: %w", len(symbols), err)
	}
	return nil
}

// Close shuts down the connection and stops the read loop. Safe to call
// more than once.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// sendCommand sends a JSON command to the stream. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd WSCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames until the connection drops or the client is
// closed, forwarding each frame to the registered handler.
func (w *WSClient) readLoop(conn *websocket.Conn) {
	defer conn.Close()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				// Shut down deliberately, not an error.
			case w.errCh <- fmt.Errorf("fyers/ws: read: %w", err):
			default:
			}
			return
		}

		if w.onMessage != nil {
			w.onMessage(message)
		}
	}
}

// pingLoop sends periodic pings to keep the connection alive.
func (w *WSClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
