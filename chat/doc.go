// Package chat is the bot's write path into Twitch chat.
//
// The Publisher posts reply text through the Helix chat endpoint as the bot
// identity. There is no retry: a reply that fails to deliver is logged and
// dropped, and the pipeline moves on to the next command. Reading chat happens
// elsewhere, over the EventSub websocket session.
package chat
