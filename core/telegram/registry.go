package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/core/telegram/commands"
)

// Registry holds the bot commands advertised through setMyCommands.
type Registry struct {
	commands map[string]commands.Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]commands.Command)}
}

// RegisterCommand adds a "/name" command. Duplicates and malformed names are rejected.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	text, ok := strings.CutPrefix(strings.TrimSpace(name), "/")
	switch {
	case !ok || text == "" || strings.ContainsAny(text, " /"):
		return fmt.Errorf("telegram: invalid command name %q", name)
	case strings.TrimSpace(cmd.Description) == "":
		return fmt.Errorf("telegram: command %q has no description", name)
	}
	if _, exists := r.commands[text]; exists {
		return fmt.Errorf("telegram: command %q registered twice", name)
	}
	r.commands[text] = cmd
	return nil
}

// Len reports the number of registered commands.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.commands)
}

// ListCommands returns the menu entries sorted by name, optionally without hidden commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for text, meta := range r.commands {
		if visibleOnly && meta.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: text, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// CommandSetter publishes the command menu.
type CommandSetter interface {
	SetCommands(cmds []tele.Command) error
}

// InitBotCommands publishes the visible commands. A failure only costs the
// menu, so it is logged and otherwise ignored.
func InitBotCommands(client CommandSetter, reg *Registry) {
	list := reg.ListCommands(true)
	if err := client.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.commands.set_failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.commands.set",
		slog.Int("count", len(list)),
	)
}
