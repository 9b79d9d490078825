// Package respond turns a classified chat command into the reply text. Each
// strategy gathers its context, asks the completion service, and degrades to a
// fixed apology on any failure; callers never see an error.
package respond

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onnwee/brigadier/command"
	"github.com/onnwee/brigadier/config"
	"github.com/onnwee/brigadier/telemetry"
)

// Apology is the only text a viewer sees when anything in the pipeline fails.
const Apology = "Désolé, je n'ai pas été formé pour répondre à cette question"

// Answers go straight to Twitch chat, which renders plain text only.
const plainTextInstruction = "Réponds en texte brut, sans aucune mise en forme."

// CompletionClient generates one text completion from a prompt.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ScheduleFetcher returns the upcoming stream segments as raw JSON.
// Absence of a schedule yields an empty array, never an error.
type ScheduleFetcher interface {
	GetSchedule(ctx context.Context) (json.RawMessage, error)
}

// Responder holds the per-intent strategies and their shared configuration.
type Responder struct {
	AI       CompletionClient
	Schedule ScheduleFetcher
	Socials  config.SocialLinks
	Profile  string
	Negative string
	Timezone string
}

// Respond runs the strategy for intent and always returns displayable text.
func (r *Responder) Respond(ctx context.Context, intent command.Intent, question string) string {
	var reply string
	var err error
	switch intent {
	case command.IntentSchedule:
		reply, err = r.schedule(ctx, question)
	case command.IntentSocialMedia:
		reply, err = r.socials(ctx, question)
	case command.IntentSubscription:
		reply, err = r.subscription(ctx, question)
	default:
		reply, err = r.general(ctx, question)
	}
	if err != nil {
		slog.Error("response strategy failed", slog.String("intent", intent.String()), slog.Any("err", err))
		telemetry.IncCompletionFailures()
		return Apology
	}
	if reply == "" {
		return Apology
	}
	return reply
}

func (r *Responder) schedule(ctx context.Context, question string) (string, error) {
	segments, err := r.Schedule.GetSchedule(ctx)
	if err != nil {
		// Degrade to an empty schedule rather than dropping the question.
		slog.Warn("schedule fetch failed; answering with empty schedule", slog.Any("err", err))
		segments = json.RawMessage("[]")
	}
	prompt := joinPrompt(
		r.Profile,
		fmt.Sprintf("Voici les horaires de streaming, tu dois convertir les heures en %s:", r.Timezone),
		string(segments),
		"Réponds à cette question à propos du planning en te basant sur ces informations:",
		question,
		plainTextInstruction,
	)
	return r.AI.Complete(ctx, prompt)
}

func (r *Responder) socials(ctx context.Context, question string) (string, error) {
	prompt := joinPrompt(
		r.Profile,
		"Voici les liens vers les réseaux sociaux de la chaine:",
		"Instagram: "+r.Socials.Instagram,
		"YouTube: "+r.Socials.YouTube,
		"VOD: "+r.Socials.VOD,
		"Tiktok: "+r.Socials.TikTok,
		"Discord: "+r.Socials.Discord,
		"X et twitter: "+r.Socials.X,
		"La question que l'on te pose est la suivante:",
		question,
		plainTextInstruction,
	)
	return r.AI.Complete(ctx, prompt)
}

func (r *Responder) subscription(ctx context.Context, question string) (string, error) {
	prompt := joinPrompt(
		r.Profile,
		"Voici la question à propos de l'abonnement :",
		question,
		"Essaie de convaincre en quelques mots pourquoi s'abonner à la chaîne. Mentionne les avantages suivants sans en rajouter ni faire de supposition :",
		"- De nouveaux emojis exclusifs.",
		"- Moins de publicités pendant les streams.",
		"- Un soutien direct à la chaîne et au créateur de contenu.",
		"Sois persuasif et donne une réponse convaincante !",
		plainTextInstruction,
	)
	return r.AI.Complete(ctx, prompt)
}

func (r *Responder) general(ctx context.Context, question string) (string, error) {
	prompt := joinPrompt(
		r.Profile,
		r.Negative,
		"Voici la question du viewer:",
		question,
		plainTextInstruction,
	)
	return r.AI.Complete(ctx, prompt)
}

// joinPrompt assembles prompt blocks, skipping empty optional ones.
func joinPrompt(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
