package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"github.com/neuhausf/fauxmo/internal/version"
	"go.uber.org/zap"
)

// message is a command sent to the WebSocket API.
type message struct {
	ID          int            `json:"id,omitempty"`
	Type        string         `json:"type"`
	AccessToken string         `json:"access_token,omitempty"`
	Domain      string         `json:"domain,omitempty"`
	Service     string         `json:"service,omitempty"`
	ServiceData map[string]any `json:"service_data,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// response covers auth replies, results and events.
type response struct {
	ID      int             `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *apiError       `json:"error"`
	Message string          `json:"message"`
}

// entityState is one element of a get_states result.
type entityState struct {
	EntityID string `json:"entity_id"`
	State    string `json:"state"`
}

// client holds one authenticated WebSocket connection. Commands are
// serialized; a broken connection is redialed on the next command, no
// sooner than the backoff allows.
type client struct {
	device  string
	token   string
	timeout time.Duration

	// endpoint returns the WebSocket URL to dial.
	endpoint func(ctx context.Context) (string, error)

	mu      sync.Mutex
	conn    *websocket.Conn
	nextID  int
	backoff *backoff.ExponentialBackOff
	retryAt time.Time
}

func newClient(device, token string, timeout time.Duration, endpoint func(context.Context) (string, error)) *client {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = time.Minute
	b.MaxElapsedTime = 0

	return &client{
		device:   device,
		token:    token,
		timeout:  timeout,
		endpoint: endpoint,
		backoff:  b,
	}
}

// call sends msg and waits for its result.
func (c *client) call(ctx context.Context, op string, msg message) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx, op); err != nil {
		return nil, err
	}
	c.setDeadlineLocked(ctx)

	c.nextID++
	msg.ID = c.nextID
	if err := c.conn.WriteJSON(msg); err != nil {
		c.closeLocked()
		return nil, plugin.NewNetworkError(c.device, op, err)
	}

	for {
		var resp response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.closeLocked()
			return nil, plugin.NewNetworkError(c.device, op, err)
		}
		if resp.Type != "result" || resp.ID != msg.ID {
			continue
		}
		if !resp.Success {
			reason := "request failed"
			if resp.Error != nil {
				reason = fmt.Sprintf("%s: %s", resp.Error.Code, resp.Error.Message)
			}
			return nil, plugin.NewRemoteError(c.device, op, reason)
		}
		return resp.Result, nil
	}
}

func (c *client) setDeadlineLocked(ctx context.Context) {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	_ = c.conn.SetReadDeadline(deadline)
	_ = c.conn.SetWriteDeadline(deadline)
}

func (c *client) connectLocked(ctx context.Context, op string) error {
	if c.conn != nil {
		return nil
	}
	if wait := time.Until(c.retryAt); wait > 0 {
		return plugin.NewRemoteError(c.device, op, fmt.Sprintf("Home Assistant unavailable, reconnecting in %v", wait.Round(time.Millisecond)))
	}

	err := c.dialLocked(ctx, op)
	if err != nil {
		c.retryAt = time.Now().Add(c.backoff.NextBackOff())
		return err
	}
	c.backoff.Reset()
	c.retryAt = time.Time{}
	return nil
}

func (c *client) dialLocked(ctx context.Context, op string) error {
	url, err := c.endpoint(ctx)
	if err != nil {
		return plugin.NewNetworkError(c.device, op, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: c.timeout}
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, resp, err := dialer.DialContext(dialCtx, url, header)
	if err != nil {
		if resp != nil {
			return plugin.NewHTTPError(c.device, op, resp.StatusCode)
		}
		return plugin.NewNetworkError(c.device, op, err)
	}

	deadline := time.Now().Add(c.timeout)
	_ = conn.SetReadDeadline(deadline)
	_ = conn.SetWriteDeadline(deadline)

	if err := authenticate(conn, c.token); err != nil {
		_ = conn.Close()
		var pErr *plugin.Error
		if errors.As(err, &pErr) {
			pErr.Device, pErr.Op = c.device, op
			return pErr
		}
		return plugin.NewNetworkError(c.device, op, err)
	}

	logging.Debug("Connected to Home Assistant", zap.String("device", c.device), zap.String("url", url))
	c.conn = conn
	c.nextID = 0
	return nil
}

// authenticate runs the auth_required / auth / auth_ok exchange.
func authenticate(conn *websocket.Conn, token string) error {
	var hello response
	if err := conn.ReadJSON(&hello); err != nil {
		return err
	}
	if hello.Type != "auth_required" {
		return fmt.Errorf("unexpected first message %q", hello.Type)
	}

	if err := conn.WriteJSON(message{Type: "auth", AccessToken: token}); err != nil {
		return err
	}

	var reply response
	if err := conn.ReadJSON(&reply); err != nil {
		return err
	}
	switch reply.Type {
	case "auth_ok":
		return nil
	case "auth_invalid":
		return &plugin.Error{
			Type:    plugin.ErrTypeAuth,
			Message: "access token rejected: " + reply.Message,
		}
	default:
		return fmt.Errorf("unexpected auth reply %q", reply.Type)
	}
}

func (c *client) closeLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *client) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}
