package realtime

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is one live push connection. Messages is closed when the connection
// dies for any reason; Close is idempotent.
type Conn interface {
	Messages() <-chan []byte
	Close() error
}

// Dialer performs a single connection attempt. Implementations must honor
// ctx cancellation during the handshake.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// withToken appends the bearer token as a query parameter. Stream transports
// cannot set an Authorization header, so both push endpoints accept this.
func withToken(rawURL, token string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// ---- Primary: websocket ----

// WSDialer connects the primary channel over websocket.
type WSDialer struct {
	// URL is the ws:// or wss:// notification endpoint.
	URL   string
	Token string
}

func (d *WSDialer) Dial(ctx context.Context) (Conn, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, withToken(d.URL, d.Token), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}

	c := &wsConn{
		conn:     conn,
		messages: make(chan []byte, 16),
	}
	go c.readPump()
	return c, nil
}

type wsConn struct {
	conn      *websocket.Conn
	messages  chan []byte
	closeOnce sync.Once
}

func (c *wsConn) readPump() {
	defer close(c.messages)
	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.messages <- payload
	}
}

func (c *wsConn) Messages() <-chan []byte { return c.messages }

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// ---- Fallback: server-sent events ----

// SSEDialer connects the fallback channel over a long-lived
// text/event-stream response.
type SSEDialer struct {
	URL   string
	Token string
	// Client must have no timeout set; the response body stays open for the
	// life of the connection. Nil uses a private client.
	Client *http.Client
}

func (d *SSEDialer) Dial(ctx context.Context) (Conn, error) {
	client := d.Client
	if client == nil {
		client = &http.Client{}
	}

	// The stream outlives the dial context: the manager cancels the
	// handshake via ctx but closes an established stream via Close.
	streamCtx, cancel := context.WithCancel(context.Background())

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, withToken(d.URL, d.Token), nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	type dialResult struct {
		resp *http.Response
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		resp, err := client.Do(req)
		resultCh <- dialResult{resp: resp, err: err}
	}()

	var resp *http.Response
	select {
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	case result := <-resultCh:
		if result.err != nil {
			cancel()
			return nil, fmt.Errorf("connecting to stream: %w", result.err)
		}
		resp = result.resp
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream rejected: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	c := &sseConn{
		body:     resp.Body,
		cancel:   cancel,
		messages: make(chan []byte, 16),
	}
	go c.readPump()
	return c, nil
}

type sseConn struct {
	body      io.ReadCloser
	cancel    context.CancelFunc
	messages  chan []byte
	closeOnce sync.Once
}

// readPump parses the event-stream framing: data: lines accumulate until a
// blank line terminates the event. Comment lines keep the connection alive
// and are ignored.
func (c *sseConn) readPump() {
	defer close(c.messages)
	defer c.body.Close()

	scanner := bufio.NewScanner(c.body)
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() > 0 {
				c.messages <- []byte(data.String())
				data.Reset()
			}
		case strings.HasPrefix(line, "data: "):
			data.WriteString(line[6:])
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		}
	}
}

func (c *sseConn) Messages() <-chan []byte { return c.messages }

func (c *sseConn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.body.Close()
	})
	return nil
}
