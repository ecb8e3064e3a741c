package update

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

const wireUpdate = `{
	"update_id": 812,
	"message": {
		"message_id": 33,
		"from": {"id": 501, "is_bot": false, "username": "alice", "first_name": "Alice"},
		"chat": {"id": 501, "first_name": "Alice", "type": "private"},
		"date": 1700000000,
		"text": "  /goals  "
	}
}`

func TestFromTeleDecodesWireFormat(t *testing.T) {
	var u tele.Update
	require.NoError(t, json.Unmarshal([]byte(wireUpdate), &u))

	in, ok := FromTele(u)
	require.True(t, ok)
	require.Equal(t, Inbound{
		UpdateID:  812,
		MessageID: 33,
		ChatID:    501,
		ChatType:  "private",
		ChatName:  "Alice",
		SenderID:  501,
		Username:  "alice",
		FirstName: "Alice",
		Date:      time.Unix(1700000000, 0).UTC(),
		Text:      "/goals",
	}, in)
	require.Equal(t, "alice", in.DisplayName())
}

func TestFromTeleSkipsNonMessageUpdates(t *testing.T) {
	_, ok := FromTele(tele.Update{ID: 1})
	require.False(t, ok)

	_, ok = FromTele(tele.Update{ID: 2, Message: &tele.Message{ID: 3}})
	require.False(t, ok)
}

func TestDisplayNameFallbacks(t *testing.T) {
	require.Equal(t, "Bob", Inbound{FirstName: "Bob"}.DisplayName())
	require.Equal(t, "Chat", Inbound{ChatName: "Chat"}.DisplayName())
}

func TestChainOrder(t *testing.T) {
	var calls []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, in Inbound) error {
				calls = append(calls, name)
				return next(ctx, in)
			}
		}
	}
	h := Chain(func(context.Context, Inbound) error {
		calls = append(calls, "handler")
		return nil
	}, mw("outer"), nil, mw("inner"))

	require.NoError(t, h(context.Background(), Inbound{}))
	require.Equal(t, []string{"outer", "inner", "handler"}, calls)
}
