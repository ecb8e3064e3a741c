package telegram

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/core/telegram/update"
)

type scriptedSource struct {
	mu      sync.Mutex
	batches [][]tele.Update
	errs    []error
	cursors []int
	// done is cancelled once the script is exhausted.
	done context.CancelFunc
}

func (s *scriptedSource) FetchUpdates(ctx context.Context, cursor int) ([]tele.Update, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors = append(s.cursors, cursor)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, cursor, err
		}
	}
	if len(s.batches) == 0 {
		s.done()
		<-ctx.Done()
		return nil, cursor, ctx.Err()
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, cursor, nil
}

func textUpdate(id int, chatID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			ID:     id,
			Chat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
			Sender: &tele.User{ID: chatID},
			Text:   text,
		},
	}
}

func TestPollerProcessesInOrderAndAdvancesCursorFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{
		batches: [][]tele.Update{
			{textUpdate(5, 1, "a"), textUpdate(6, 2, "b")},
			{{ID: 7}, textUpdate(8, 1, "c")},
		},
		done: cancel,
	}

	var p *Poller
	var seen []string
	var cursorsAtHandle []int
	p = NewPoller(src, func(ctx context.Context, in update.Inbound) error {
		seen = append(seen, in.Text)
		cursorsAtHandle = append(cursorsAtHandle, p.Cursor())
		require.NotEmpty(t, logger.RIDFrom(ctx))
		require.NotEmpty(t, logger.TraceIDFrom(ctx))
		return nil
	}, PollerOptions{})

	require.NoError(t, p.Run(ctx))
	require.Equal(t, []string{"a", "b", "c"}, seen)
	require.Equal(t, []int{6, 7, 9}, cursorsAtHandle)
	require.Equal(t, 9, p.Cursor())
	require.Equal(t, []int{0, 7, 9}, src.cursors)
}

func TestPollerIsolatesHandlerFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{
		batches: [][]tele.Update{{
			textUpdate(1, 1, "error"),
			textUpdate(2, 1, "panic"),
			textUpdate(3, 1, "ok"),
		}},
		done: cancel,
	}

	var handled []string
	p := NewPoller(src, func(_ context.Context, in update.Inbound) error {
		handled = append(handled, in.Text)
		switch in.Text {
		case "error":
			return errors.New("store unavailable")
		case "panic":
			panic("boom")
		}
		return nil
	}, PollerOptions{})

	require.NoError(t, p.Run(ctx))
	require.Equal(t, []string{"error", "panic", "ok"}, handled)
	require.Equal(t, 4, p.Cursor())
}

func TestPollerBacksOffOnFetchError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{
		errs:    []error{errors.New("connection reset"), nil},
		batches: [][]tele.Update{{textUpdate(1, 1, "hi")}},
		done:    cancel,
	}

	var handled int
	p := NewPoller(src, func(context.Context, update.Inbound) error {
		handled++
		return nil
	}, PollerOptions{ErrorBackoff: time.Millisecond, MaxErrorBackoff: 2 * time.Millisecond})

	require.NoError(t, p.Run(ctx))
	require.Equal(t, 1, handled)
	require.Equal(t, []int{0, 0, 2}, src.cursors)
}

func TestPollerBacksOffOnUndecodableReplies(t *testing.T) {
	api := &fakeAPI{reply: func(string) (int, string) {
		return http.StatusBadGateway, "<html><body>502 Bad Gateway</body></html>"
	}}
	c := newTestClient(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var handled int
	p := NewPoller(c, func(context.Context, update.Inbound) error {
		handled++
		return nil
	}, PollerOptions{ErrorBackoff: 50 * time.Millisecond, MaxErrorBackoff: 100 * time.Millisecond})

	require.NoError(t, p.Run(ctx))
	require.Zero(t, handled)
	require.Equal(t, 0, p.Cursor())

	calls := api.Calls()
	require.NotEmpty(t, calls)
	require.LessOrEqual(t, len(calls), 6)
	for _, call := range calls {
		require.Equal(t, "getUpdates", call.Method)
	}
}

func TestPollerStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedSource{done: func() {}}

	p := NewPoller(src, func(context.Context, update.Inbound) error { return nil }, PollerOptions{})

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
