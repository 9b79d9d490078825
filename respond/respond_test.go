package respond

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/onnwee/brigadier/command"
	"github.com/onnwee/brigadier/config"
	"github.com/onnwee/brigadier/telemetry"
)

type fakeAI struct {
	lastPrompt string
	reply      string
	err        error
}

func (f *fakeAI) Complete(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

type fakeSchedule struct {
	segments json.RawMessage
	err      error
}

func (f *fakeSchedule) GetSchedule(ctx context.Context) (json.RawMessage, error) {
	return f.segments, f.err
}

func newResponder(ai *fakeAI, sched *fakeSchedule) *Responder {
	return &Responder{
		AI:       ai,
		Schedule: sched,
		Socials: config.SocialLinks{
			Instagram: "https://instagram.com/chan",
			YouTube:   "https://youtube.com/@chan",
			VOD:       "https://youtube.com/@chanvod",
			Discord:   "https://discord.gg/chan",
			X:         "https://x.com/chan",
			TikTok:    "https://tiktok.com/@chan",
		},
		Profile:  "Tu es le brigadier de la chaîne.",
		Negative: "Ne parle jamais de politique.",
		Timezone: "GMT+1",
	}
}

func TestMain(m *testing.M) {
	telemetry.Init()
	m.Run()
}

func TestScheduleStrategyEmbedsScheduleAndQuestion(t *testing.T) {
	ai := &fakeAI{reply: "Le prochain stream est lundi à 20h."}
	sched := &fakeSchedule{segments: json.RawMessage(`[{"id":"seg1","start_time":"2026-09-01T19:00:00Z"}]`)}
	r := newResponder(ai, sched)

	got := r.Respond(context.Background(), command.IntentSchedule, "quand est le prochain stream")
	if got != "Le prochain stream est lundi à 20h." {
		t.Fatalf("Respond() = %q", got)
	}
	for _, want := range []string{
		`[{"id":"seg1","start_time":"2026-09-01T19:00:00Z"}]`,
		"quand est le prochain stream",
		"GMT+1",
		"Tu es le brigadier de la chaîne.",
	} {
		if !strings.Contains(ai.lastPrompt, want) {
			t.Errorf("schedule prompt missing %q:\n%s", want, ai.lastPrompt)
		}
	}
}

func TestScheduleStrategyDegradesToEmptySchedule(t *testing.T) {
	ai := &fakeAI{reply: "Pas de planning annoncé pour le moment."}
	sched := &fakeSchedule{err: errors.New("helix down")}
	r := newResponder(ai, sched)

	got := r.Respond(context.Background(), command.IntentSchedule, "quand ?")
	if got != "Pas de planning annoncé pour le moment." {
		t.Fatalf("Respond() = %q, want completion reply despite fetch failure", got)
	}
	if !strings.Contains(ai.lastPrompt, "[]") {
		t.Errorf("schedule prompt should embed empty schedule, got:\n%s", ai.lastPrompt)
	}
}

func TestSocialStrategyEmbedsAllLinks(t *testing.T) {
	ai := &fakeAI{reply: "Retrouve-nous sur Instagram !"}
	r := newResponder(ai, &fakeSchedule{})

	r.Respond(context.Background(), command.IntentSocialMedia, "tu as un insta ?")
	for _, want := range []string{
		"https://instagram.com/chan",
		"https://youtube.com/@chan",
		"https://youtube.com/@chanvod",
		"https://discord.gg/chan",
		"https://x.com/chan",
		"https://tiktok.com/@chan",
		"tu as un insta ?",
	} {
		if !strings.Contains(ai.lastPrompt, want) {
			t.Errorf("social prompt missing %q:\n%s", want, ai.lastPrompt)
		}
	}
}

func TestSubscriptionStrategyListsBenefits(t *testing.T) {
	ai := &fakeAI{reply: "Abonne-toi !"}
	r := newResponder(ai, &fakeSchedule{})

	r.Respond(context.Background(), command.IntentSubscription, "pourquoi s'abonner")
	for _, want := range []string{
		"emojis exclusifs",
		"Moins de publicités",
		"soutien direct",
		"pourquoi s'abonner",
	} {
		if !strings.Contains(ai.lastPrompt, want) {
			t.Errorf("subscription prompt missing %q:\n%s", want, ai.lastPrompt)
		}
	}
}

func TestGeneralStrategyUsesPromptBlocks(t *testing.T) {
	ai := &fakeAI{reply: "Voilà une blague."}
	r := newResponder(ai, &fakeSchedule{})

	r.Respond(context.Background(), command.IntentGeneral, "raconte une blague")
	for _, want := range []string{
		"Tu es le brigadier de la chaîne.",
		"Ne parle jamais de politique.",
		"raconte une blague",
	} {
		if !strings.Contains(ai.lastPrompt, want) {
			t.Errorf("general prompt missing %q:\n%s", want, ai.lastPrompt)
		}
	}
}

func TestGeneralStrategySkipsEmptyBlocks(t *testing.T) {
	ai := &fakeAI{reply: "ok"}
	r := newResponder(ai, &fakeSchedule{})
	r.Profile = ""
	r.Negative = ""

	r.Respond(context.Background(), command.IntentGeneral, "salut")
	if strings.HasPrefix(ai.lastPrompt, "\n") {
		t.Errorf("prompt starts with blank line when blocks are empty:\n%q", ai.lastPrompt)
	}
}

func TestCompletionFailureYieldsApology(t *testing.T) {
	intents := []command.Intent{
		command.IntentSchedule,
		command.IntentSocialMedia,
		command.IntentSubscription,
		command.IntentGeneral,
	}
	for _, intent := range intents {
		t.Run(intent.String(), func(t *testing.T) {
			ai := &fakeAI{err: errors.New("completion service down")}
			r := newResponder(ai, &fakeSchedule{segments: json.RawMessage("[]")})

			if got := r.Respond(context.Background(), intent, "une question"); got != Apology {
				t.Errorf("Respond() = %q, want apology", got)
			}
		})
	}
}

func TestEmptyCompletionYieldsApology(t *testing.T) {
	ai := &fakeAI{reply: ""}
	r := newResponder(ai, &fakeSchedule{segments: json.RawMessage("[]")})

	if got := r.Respond(context.Background(), command.IntentGeneral, "question"); got != Apology {
		t.Errorf("Respond() = %q, want apology for empty completion", got)
	}
}
