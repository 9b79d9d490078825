package chat

import (
	"context"
	"log/slog"

	"github.com/onnwee/brigadier/telemetry"
)

// Sender delivers one chat message to the configured channel.
type Sender interface {
	SendChatMessage(ctx context.Context, text string) error
}

// Publisher posts finished replies back into the broadcaster's chat. Delivery is
// terminal per message: a failed send is logged and dropped, never retried.
type Publisher struct {
	API Sender
}

// Send posts text to the channel. An empty reply is skipped.
func (p *Publisher) Send(ctx context.Context, text string) error {
	if text == "" {
		slog.Debug("skipping empty chat reply")
		return nil
	}
	if err := p.API.SendChatMessage(ctx, text); err != nil {
		if telemetry.ChatSendsFailed != nil {
			telemetry.ChatSendsFailed.Inc()
		}
		slog.Error("chat send failed", slog.Any("err", err))
		return err
	}
	if telemetry.ChatSendsSucceeded != nil {
		telemetry.ChatSendsSucceeded.Inc()
	}
	slog.Info("chat message sent", slog.Int("length", len(text)))
	return nil
}
