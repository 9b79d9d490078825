// Package eventsub owns the long-lived websocket session to the Twitch EventSub
// feed: connect, welcome, keepalive, ping/pong, server-requested reconnects, and
// timed recovery after unexpected closes. Decoded chat notifications addressed
// to the bot are handed off to the command pipeline; the read loop never blocks
// on downstream work.
package eventsub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onnwee/brigadier/command"
	"github.com/onnwee/brigadier/telemetry"
)

// DefaultURL is the fixed EventSub websocket endpoint.
const DefaultURL = "wss://eventsub.wss.twitch.tv/ws"

const chatMessageType = "channel.chat.message"

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "disconnected"
	}
}

// Frame is one EventSub protocol message.
type Frame struct {
	Metadata struct {
		MessageType      string `json:"message_type"`
		SubscriptionType string `json:"subscription_type"`
	} `json:"metadata"`
	Payload json.RawMessage `json:"payload"`
}

type sessionPayload struct {
	Session struct {
		ID           string `json:"id"`
		ReconnectURL string `json:"reconnect_url"`
	} `json:"session"`
}

type notificationPayload struct {
	Event struct {
		ChatterUserLogin string `json:"chatter_user_login"`
		Message          struct {
			Text string `json:"text"`
		} `json:"message"`
	} `json:"event"`
}

// SubscribeFunc registers the chat subscription for a newly established session.
// Every new session needs its own registration.
type SubscribeFunc func(ctx context.Context, sessionID string) error

// CommandFunc handles one trigger-prefixed chat command.
type CommandFunc func(ctx context.Context, sender, question string)

// Client maintains the EventSub session and dispatches chat commands.
type Client struct {
	URL            string // fixed endpoint; DefaultURL when empty
	TriggerPrefix  string
	ReconnectDelay time.Duration
	Subscribe      SubscribeFunc
	OnCommand      CommandFunc
	Dialer         *websocket.Dialer

	mu        sync.RWMutex
	state     State
	sessionID string
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionID returns the current session id, empty until the first welcome.
// It only changes when a new session's welcome arrives.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) setSession(id string) {
	c.mu.Lock()
	c.state = StateOpen
	c.sessionID = id
	c.mu.Unlock()
}

func (c *Client) reconnectDelay() time.Duration {
	if c.ReconnectDelay > 0 {
		return c.ReconnectDelay
	}
	return 5 * time.Second
}

// Run drives the session until ctx is cancelled. A server-requested reconnect
// redials the provided URL immediately; an unexpected close or dial failure
// waits the fixed delay and redials the original endpoint, indefinitely.
func (c *Client) Run(ctx context.Context) error {
	fixed := c.URL
	if fixed == "" {
		fixed = DefaultURL
	}
	target := fixed
	for {
		next, err := c.runOnce(ctx, target)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if next != "" {
			slog.Info("session reconnect requested", slog.String("url", next))
			target = next
			continue
		}
		c.setState(StateDisconnected)
		telemetry.SetConnected(false)
		slog.Warn("websocket connection closed; reconnecting",
			slog.Any("err", err), slog.Duration("delay", c.reconnectDelay()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay()):
		}
		if telemetry.Reconnects != nil {
			telemetry.Reconnects.Inc()
		}
		target = fixed
	}
}

// runOnce opens one connection and reads frames until it drops. It returns a
// non-empty URL when the server asked for a reconnect; the old connection is
// closed before the new dial happens.
func (c *Client) runOnce(ctx context.Context, url string) (string, error) {
	c.setState(StateConnecting)
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("websocket close", slog.Any("err", err))
		}
	}()
	slog.Info("websocket connection established", slog.String("url", url))

	// Unblock the read loop when the context is cancelled.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if next := c.handleFrame(ctx, conn, data); next != "" {
			return next, nil
		}
	}
}

// handleFrame decodes and applies one protocol frame. Frames are handled in
// arrival order; only the command pipeline runs off the loop. The returned URL
// is non-empty for a server-requested reconnect.
func (c *Client) handleFrame(ctx context.Context, conn *websocket.Conn, data []byte) string {
	if telemetry.FramesReceived != nil {
		telemetry.FramesReceived.Inc()
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		if telemetry.FramesMalformed != nil {
			telemetry.FramesMalformed.Inc()
		}
		slog.Warn("malformed frame ignored", slog.Any("err", err))
		return ""
	}

	switch frame.Metadata.MessageType {
	case "session_welcome":
		var p sessionPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.Session.ID == "" {
			slog.Warn("welcome frame missing session id", slog.Any("err", err))
			return ""
		}
		c.setSession(p.Session.ID)
		telemetry.SetConnected(true)
		slog.Info("session established", slog.String("session_id", p.Session.ID))
		if c.Subscribe != nil {
			go func(id string) {
				if err := c.Subscribe(ctx, id); err != nil {
					slog.Error("eventsub subscription failed; no chat events until next session", slog.Any("err", err))
				} else {
					slog.Info("chat subscription registered", slog.String("session_id", id))
				}
			}(p.Session.ID)
		}

	case "session_reconnect":
		var p sessionPayload
		if err := json.Unmarshal(frame.Payload, &p); err != nil || p.Session.ReconnectURL == "" {
			slog.Warn("reconnect frame missing url", slog.Any("err", err))
			return ""
		}
		return p.Session.ReconnectURL

	case "session_keepalive", "keepalive":
		slog.Debug("keepalive received")

	case "ping":
		// The pong goes out on this connection before the next frame is read.
		if err := conn.WriteJSON(map[string]string{"type": "pong"}); err != nil {
			slog.Warn("pong write failed", slog.Any("err", err))
		} else if telemetry.PongsSent != nil {
			telemetry.PongsSent.Inc()
		}

	case "notification":
		c.handleNotification(ctx, frame)

	default:
		// Unknown message types are skipped.
	}
	return ""
}

func (c *Client) handleNotification(ctx context.Context, frame Frame) {
	if frame.Metadata.SubscriptionType != chatMessageType {
		return
	}
	var p notificationPayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		if telemetry.FramesMalformed != nil {
			telemetry.FramesMalformed.Inc()
		}
		slog.Warn("malformed chat notification ignored", slog.Any("err", err))
		return
	}
	question, ok := command.Extract(p.Event.Message.Text, c.TriggerPrefix)
	if !ok {
		return
	}
	sender := p.Event.ChatterUserLogin
	slog.Info("command received", slog.String("sender", sender))
	if c.OnCommand == nil {
		return
	}
	// The pipeline suspends on network calls; run it off the read loop so
	// ping and keepalive handling stay live. A reply computed after the
	// session has moved on is still published.
	go c.OnCommand(ctx, sender, question)
}
