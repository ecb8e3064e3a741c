// Package bot routes inbound chat messages: identity resolution first, then
// the goal dialog for linked chats.
package bot

import (
	"context"
	"fmt"

	"github.com/m3rciful/goalbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/goalbot/core/telegram/helpers"
	"github.com/m3rciful/goalbot/core/telegram/update"
	"github.com/m3rciful/goalbot/internal/conversation"
	"github.com/m3rciful/goalbot/internal/domain"
)

// Resolver resolves a chat to its identity and reports whether it is linked.
type Resolver interface {
	Resolve(ctx context.Context, in update.Inbound) (domain.ChatIdentity, bool, error)
}

// Dialog handles the message of a linked chat.
type Dialog interface {
	Handle(ctx context.Context, chatID, accountID int64, text string) error
}

// Bot is the update handler of goalbot.
type Bot struct {
	identities Resolver
	dialog     Dialog
}

// New wires the handler.
func New(identities Resolver, dialog Dialog) *Bot {
	return &Bot{identities: identities, dialog: dialog}
}

// Handle processes one inbound message.
func (b *Bot) Handle(ctx context.Context, in update.Inbound) error {
	ident, linked, err := b.identities.Resolve(ctx, in)
	if err != nil {
		return err
	}
	if !linked {
		tghelpers.SetOutcome(ctx, "unlinked")
		return nil
	}
	if ident.AccountID == nil {
		return fmt.Errorf("bot: chat %d reported linked without account", in.ChatID)
	}
	return b.dialog.Handle(ctx, in.ChatID, *ident.AccountID, in.Text)
}

// Commands lists the menu entries published with setMyCommands.
func Commands() map[string]commands.Command {
	return map[string]commands.Command{
		conversation.CmdGoals:  {Description: "List your goals"},
		conversation.CmdCreate: {Description: "Create a goal"},
		conversation.CmdCancel: {Description: "Cancel the current action"},
	}
}
