// Package update defines the transport-neutral view of one polled Telegram
// update and the handler chain that consumes it.
package update

import (
	"context"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Inbound is a single text-bearing message delivered by getUpdates.
type Inbound struct {
	UpdateID  int
	MessageID int
	ChatID    int64
	ChatType  string
	ChatName  string
	SenderID  int64
	Username  string
	FirstName string
	Date      time.Time
	// Text is empty for messages without text (stickers, photos, ...).
	Text string
}

// DisplayName prefers the @username and falls back to the first name.
func (in Inbound) DisplayName() string {
	if in.Username != "" {
		return in.Username
	}
	if in.FirstName != "" {
		return in.FirstName
	}
	return in.ChatName
}

// HandlerFunc processes one inbound message.
type HandlerFunc func(ctx context.Context, in Inbound) error

// Middleware wraps a HandlerFunc with cross-cutting behaviour.
type Middleware func(next HandlerFunc) HandlerFunc

// Chain applies middlewares so that the first one is the outermost.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

// FromTele converts a decoded Telegram update. It reports false for updates
// that carry no message or no chat, which the bot does not handle.
func FromTele(u tele.Update) (Inbound, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		return Inbound{}, false
	}
	in := Inbound{
		UpdateID:  u.ID,
		MessageID: msg.ID,
		ChatID:    msg.Chat.ID,
		ChatType:  string(msg.Chat.Type),
		ChatName:  msg.Chat.FirstName,
		Text:      strings.TrimSpace(msg.Text),
	}
	if msg.Unixtime > 0 {
		in.Date = time.Unix(msg.Unixtime, 0).UTC()
	}
	if msg.Sender != nil {
		in.SenderID = msg.Sender.ID
		in.Username = msg.Sender.Username
		in.FirstName = msg.Sender.FirstName
	}
	return in, true
}
