package twitchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// TokenSource yields the most recently validated or refreshed user access token.
// Every Helix call fetches a fresh snapshot; tokens are never cached per client.
type TokenSource interface {
	AccessToken() string
}

// HelixClient provides the Helix methods the bot needs, authenticated with the
// bot's user token.
type HelixClient struct {
	Tokens        TokenSource
	ClientID      string
	BroadcasterID string
	BotUserID     string
	HTTPClient    *http.Client
}

func (hc *HelixClient) http() *http.Client {
	if hc.HTTPClient != nil {
		return hc.HTTPClient
	}
	return http.DefaultClient
}

func (hc *HelixClient) authorize(req *http.Request) {
	req.Header.Set("Client-Id", hc.ClientID)
	req.Header.Set("Authorization", "Bearer "+hc.Tokens.AccessToken())
}

// CreateChatSubscription registers interest in channel.chat.message events over
// the given EventSub websocket session. A new session requires a new call.
func (hc *HelixClient) CreateChatSubscription(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID empty")
	}
	body := map[string]any{
		"type":    "channel.chat.message",
		"version": "1",
		"condition": map[string]string{
			"broadcaster_user_id": hc.BroadcasterID,
			"user_id":             hc.BotUserID,
		},
		"transport": map[string]string{
			"method":     "websocket",
			"session_id": sessionID,
		},
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.twitch.tv/helix/eventsub/subscriptions", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	hc.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("eventsub subscription failed: %s: %s", resp.Status, string(b))
	}
	return nil
}

// GetSchedule fetches the broadcaster's upcoming stream segments and returns them
// as raw JSON. An absent schedule yields an empty array, not an error; only
// transport and decode failures are reported.
func (hc *HelixClient) GetSchedule(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.twitch.tv/helix/schedule", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("broadcaster_id", hc.BroadcasterID)
	req.URL.RawQuery = q.Encode()
	hc.authorize(req)
	resp, err := hc.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	// Twitch answers 404 when the broadcaster has no schedule at all.
	if resp.StatusCode == http.StatusNotFound {
		return json.RawMessage("[]"), nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("schedule fetch failed: %s: %s", resp.Status, string(b))
	}
	var body struct {
		Data struct {
			Segments json.RawMessage `json:"segments"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Data.Segments) == 0 || string(body.Data.Segments) == "null" {
		return json.RawMessage("[]"), nil
	}
	return body.Data.Segments, nil
}

// SendChatMessage posts text to the broadcaster's chat as the bot identity.
func (hc *HelixClient) SendChatMessage(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("message empty")
	}
	body := map[string]string{
		"broadcaster_id": hc.BroadcasterID,
		"sender_id":      hc.BotUserID,
		"message":        text,
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.twitch.tv/helix/chat/messages", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	hc.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chat send failed: %s: %s", resp.Status, string(b))
	}
	return nil
}
