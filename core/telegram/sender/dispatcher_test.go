package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestDispatcherRunsJobsOnceInOrder(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 8})

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		require.NoError(t, d.Enqueue(context.Background(), "send.text", "sendMessage", func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, i)
			if i == 2 {
				return errors.New("flaky")
			}
			return nil
		}))
	}
	d.Close()

	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
	require.Equal(t, uint64(1), d.ErrorCount())
	require.Equal(t, uint64(4), d.SentCount())
}

func TestDispatcherQueueFullAndClosed(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, d.Enqueue(context.Background(), "a", "", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", func(context.Context) error { return nil }))
	require.ErrorIs(t, d.Enqueue(context.Background(), "c", "", func(context.Context) error { return nil }), ErrQueueFull)

	close(release)
	d.Close()
	require.ErrorIs(t, d.Enqueue(context.Background(), "d", "", func(context.Context) error { return nil }), ErrQueueClosed)
}

func TestDispatcherEnqueueWaitsForRoom(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, EnqueueWait: 2 * time.Second})
	release := make(chan struct{})
	started := make(chan struct{})

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	require.NoError(t, d.Enqueue(context.Background(), "a", "", func(ctx context.Context) error {
		close(started)
		<-release
		return record("a")(ctx)
	}))
	<-started
	require.NoError(t, d.Enqueue(context.Background(), "b", "", record("b")))

	time.AfterFunc(30*time.Millisecond, func() { close(release) })
	require.NoError(t, d.Enqueue(context.Background(), "c", "", record("c")))
	d.Close()

	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestDispatcherDetachesCancellationAndBoundsDuration(t *testing.T) {
	d := NewDispatcher(Options{MaxDuration: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())

	var gotErr error
	require.NoError(t, d.Enqueue(ctx, "slow", "", func(jobCtx context.Context) error {
		<-jobCtx.Done()
		gotErr = jobCtx.Err()
		return gotErr
	}))
	cancel()
	d.Close()

	require.ErrorIs(t, gotErr, context.DeadlineExceeded)
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := NewDispatcher(Options{})
	require.NoError(t, d.Enqueue(context.Background(), "p", "", func(context.Context) error { panic("boom") }))
	d.Close()
	require.Equal(t, uint64(1), d.ErrorCount())
}

type statusErr int

func (e statusErr) Error() string   { return "api status" }
func (e statusErr) HTTPStatus() int { return int(e) }

func TestClassifyError(t *testing.T) {
	require.Equal(t, "", ClassifyError(nil))
	require.Equal(t, "timeout", ClassifyError(context.DeadlineExceeded))
	require.Equal(t, "dial", ClassifyError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	require.Equal(t, "http_4xx", ClassifyError(&tele.Error{Code: 400, Description: "Bad Request: chat not found"}))
	require.Equal(t, "http_4xx", ClassifyError(errors.New("telegram: Forbidden: bot was blocked by the user (403)")))
	require.Equal(t, "http_5xx", ClassifyError(errors.New("telegram: internal (502)")))
	require.Equal(t, "flood", ClassifyError(fmt.Errorf("send: %w", statusErr(429))))
	require.Equal(t, "unknown", ClassifyError(errors.New("boom")))
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAbb-cc_DD/sendMessage": dial tcp: refused`)
	require.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": dial tcp: refused`, SanitizeErrorMessage(err))
}
