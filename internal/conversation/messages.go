package conversation

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/goalbot/internal/domain"
)

// Commands recognised while idle.
const (
	CmdGoals  = "/goals"
	CmdCreate = "/create"
	CmdCancel = "/cancel"
)

// Replies sent by the state machine.
const (
	MsgCancelled       = "Cancelled"
	MsgNoGoals         = "No goals found"
	MsgNoCategories    = "No categories found"
	MsgChooseCategory  = "Enter a category name to create a goal in, or /cancel to abort"
	MsgUnknownCommand  = "Unknown command"
	MsgInvalidCategory = "Invalid category name, try again"
	MsgEnterGoalName   = "Enter a goal name, or /cancel to abort"
	MsgGoalTooLong     = "Goal name is too long, use at most 200 characters"
	MsgGoalCreated     = "Goal created"
	MsgFailure         = "Something went wrong, please try again"
)

// maxMessageRunes is the Telegram limit for one text message.
const maxMessageRunes = 4096

// formatItems renders "#<id> <title>" lines, split into as many messages as
// the Telegram length limit requires.
func formatItems(items []domain.Item) []string {
	var (
		out  []string
		b    strings.Builder
		size int
	)
	for _, it := range items {
		line := "#" + strconv.FormatInt(it.ID, 10) + " " + it.Title
		n := utf8.RuneCountInString(line)
		if size > 0 && size+1+n > maxMessageRunes {
			out = append(out, b.String())
			b.Reset()
			size = 0
		}
		if size > 0 {
			b.WriteByte('\n')
			size++
		}
		b.WriteString(line)
		size += n
	}
	if size > 0 {
		out = append(out, b.String())
	}
	return out
}

// matchCategory returns the first category whose title equals name ignoring case.
func matchCategory(categories []domain.Item, name string) (domain.Item, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Item{}, false
	}
	for _, c := range categories {
		if strings.EqualFold(strings.TrimSpace(c.Title), name) {
			return c, true
		}
	}
	return domain.Item{}, false
}
