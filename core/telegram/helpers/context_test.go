package helpers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

func TestBuildContextAttachesUpdateMeta(t *testing.T) {
	in := update.Inbound{UpdateID: 10, ChatID: 20, SenderID: 30}
	ctx := BuildContext(context.Background(), in)

	require.Equal(t, "10:20:30", logger.RIDFrom(ctx))
	require.Equal(t, 10, logger.UpdateIDFrom(ctx))
	require.Equal(t, int64(20), logger.ChatIDFrom(ctx))
	require.Equal(t, int64(30), logger.UserIDFrom(ctx))
}

func TestBuildContextKeepsRIDForSameUpdate(t *testing.T) {
	in := update.Inbound{UpdateID: 10, ChatID: 20, SenderID: 30}
	first := BuildContext(context.Background(), in)
	second := BuildContext(first, in)
	require.Equal(t, logger.RIDFrom(first), logger.RIDFrom(second))

	next := BuildContext(first, update.Inbound{UpdateID: 11, ChatID: 20, SenderID: 30})
	require.Equal(t, "11:20:30", logger.RIDFrom(next))
}

func TestWithHandler(t *testing.T) {
	ctx := WithHandler(context.Background(), "conversation")
	require.Equal(t, "conversation", logger.HandlerFrom(ctx))
}
