package commands

// Command describes a slash command shown in the Telegram command menu.
type Command struct {
	Description string
	// Hidden commands are accepted but not advertised.
	Hidden bool
}
