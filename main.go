// Command brigadier is the entrypoint for the Twitch chat assistant.
// It:
//   - Loads configuration and initializes structured logging.
//   - Validates the Twitch user token and keeps it fresh in the background.
//   - Connects to EventSub over websocket and subscribes to channel chat.
//   - Answers trigger-prefixed chat questions with generated replies.
//   - Exposes a minimal HTTP server with /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/onnwee/brigadier/ai"
	"github.com/onnwee/brigadier/chat"
	"github.com/onnwee/brigadier/command"
	"github.com/onnwee/brigadier/config"
	"github.com/onnwee/brigadier/eventsub"
	"github.com/onnwee/brigadier/oauth"
	"github.com/onnwee/brigadier/respond"
	"github.com/onnwee/brigadier/server"
	"github.com/onnwee/brigadier/telemetry"
	"github.com/onnwee/brigadier/tokenstore"
	"github.com/onnwee/brigadier/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	// Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateBotReady(); err != nil {
		slog.Error("missing required configuration", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("brigadier", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Credential manager: validate on boot, refresh on rejection, persist new pairs.
	store := &tokenstore.Store{Path: cfg.EnvFile}
	auth := &twitchapi.AuthClient{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret}
	refreshFn := func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
		res, err := auth.Refresh(ctx, refreshToken)
		if err != nil {
			return "", "", time.Time{}, err
		}
		telemetry.TokenRefreshes.Inc()
		return res.AccessToken, res.RefreshToken, twitchapi.ComputeExpiry(res.ExpiresIn), nil
	}
	creds := oauth.NewManager(cfg.TwitchAccessToken, cfg.TwitchRefreshToken, auth.Validate, refreshFn, store.Save)

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 15*time.Second)
	if err := creds.Validate(bootCtx); err != nil {
		cancelBoot()
		slog.Error("twitch credentials unusable", slog.Any("err", err))
		os.Exit(1)
	}
	cancelBoot()
	slog.Info("twitch credentials validated")

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds.StartAutoRefresh(ctx, 5*time.Minute, 15*time.Minute, func(err error) {
		slog.Error("credentials dead, shutting down", slog.Any("err", err))
		stop()
	})

	helix := &twitchapi.HelixClient{
		Tokens:        creds,
		ClientID:      cfg.TwitchClientID,
		BroadcasterID: cfg.BroadcasterID,
		BotUserID:     cfg.BotUserID,
	}
	responder := &respond.Responder{
		AI:       ai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		Schedule: helix,
		Socials:  cfg.Socials,
		Profile:  cfg.PromptProfile,
		Negative: cfg.PromptNegative,
		Timezone: cfg.ScheduleTZ,
	}
	publisher := &chat.Publisher{API: helix}

	session := &eventsub.Client{
		URL:            eventsub.DefaultURL,
		TriggerPrefix:  cfg.TriggerPrefix,
		ReconnectDelay: cfg.ReconnectDelay,
		Subscribe:      helix.CreateChatSubscription,
		OnCommand:      commandPipeline(responder, publisher),
	}

	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	go func() {
		slog.Info("http server listening", slog.String("addr", addr))
		if err := server.Start(ctx, session, addr); err != nil {
			slog.Error("http server exited", slog.Any("err", err))
		}
	}()

	slog.Info("connecting to eventsub", slog.String("url", eventsub.DefaultURL), slog.String("trigger", cfg.TriggerPrefix))
	if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("session loop exited", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

// commandPipeline returns the handler for one trigger-prefixed chat command:
// classify, generate, publish. Each invocation gets its own correlation id.
func commandPipeline(responder *respond.Responder, publisher *chat.Publisher) eventsub.CommandFunc {
	return func(ctx context.Context, sender, question string) {
		ctx = telemetry.WithCorrelation(ctx, uuid.New().String())
		ctx, span := telemetry.StartSpan(ctx, "command", "handle-command")
		defer span.End()

		telemetry.CommandsHandled.Inc()
		intent := command.Classify(question)
		log := telemetry.LoggerWithCorr(ctx)
		log.Info("handling command", slog.String("sender", sender), slog.String("intent", intent.String()))

		telemetry.TimeFunc(telemetry.CommandDuration, func() {
			reply := responder.Respond(ctx, intent, question)
			if err := publisher.Send(ctx, reply); err != nil {
				telemetry.RecordError(span, err)
				log.Error("publishing reply failed", slog.Any("err", err))
				return
			}
			telemetry.SetSpanSuccess(span)
		})
	}
}
