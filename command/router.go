// Package command classifies chat messages addressed to the bot into intents.
// Classification is pure text matching; no network I/O happens here.
package command

import (
	"regexp"
	"strings"
)

// Intent is the classification bucket for a bot-directed chat command.
type Intent int

const (
	IntentGeneral Intent = iota
	IntentSchedule
	IntentSocialMedia
	IntentSubscription
)

func (i Intent) String() string {
	switch i {
	case IntentSchedule:
		return "schedule"
	case IntentSocialMedia:
		return "social_media"
	case IntentSubscription:
		return "subscription"
	default:
		return "general"
	}
}

// The channel speaks French; keyword sets match the questions viewers actually ask.
var scheduleKeywords = []string{
	"prochain stream", "quand", "heure", "jeu", "planning", "stream", "à quelle heure",
}

var socialKeywords = []string{
	"instagram", "youtube", "réseaux sociaux", "page instagram", "page youtube",
	"insta", "vod", "ytb", "chaine",
}

var subscriptionPattern = regexp.MustCompile(`(?i)(\bpourquoi\b.*\b(s'abonner|s'abonne|subscribe)\b|\b(avantages?|bénéfices?)\b.*\b(s'abonnement|sub)\b|\bc'est\b.*\b(un sub|abonné|abonnement)\b)`)

// Extract strips the trigger prefix from a chat message. The prefix match is
// case-sensitive and literal; ok is false when the message is not addressed to
// the bot. The returned question is trimmed of surrounding whitespace.
func Extract(message, prefix string) (question string, ok bool) {
	if prefix == "" || !strings.HasPrefix(message, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(message, prefix)), true
}

// Classify assigns an intent to a stripped question. Order is significant and
// first match wins: Schedule > SocialMedia > Subscription > General. Keyword and
// regex matching are case-insensitive.
func Classify(question string) Intent {
	lower := strings.ToLower(question)
	for _, kw := range scheduleKeywords {
		if strings.Contains(lower, kw) {
			return IntentSchedule
		}
	}
	for _, kw := range socialKeywords {
		if strings.Contains(lower, kw) {
			return IntentSocialMedia
		}
	}
	if subscriptionPattern.MatchString(question) {
		return IntentSubscription
	}
	return IntentGeneral
}
