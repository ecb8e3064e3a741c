package linking

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/goalbot/core/telegram/update"
	"github.com/m3rciful/goalbot/internal/domain"
	"github.com/m3rciful/goalbot/internal/storage"
)

type fakeIdentities struct {
	mu     sync.Mutex
	byChat map[int64]*domain.ChatIdentity
	nextID int64
	err    error
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{byChat: map[int64]*domain.ChatIdentity{}}
}

func (f *fakeIdentities) GetOrCreate(_ context.Context, chatID int64, _ string) (domain.ChatIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.ChatIdentity{}, f.err
	}
	ident, ok := f.byChat[chatID]
	if !ok {
		f.nextID++
		ident = &domain.ChatIdentity{ID: f.nextID, ChatID: chatID}
		f.byChat[chatID] = ident
	}
	return *ident, nil
}

func (f *fakeIdentities) SetVerificationCode(_ context.Context, identityID int64, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ident := range f.byChat {
		if ident.ID == identityID && ident.AccountID == nil {
			c := code
			ident.VerificationCode = &c
			return nil
		}
	}
	return storage.ErrNotFound
}

func (f *fakeIdentities) LinkByCode(_ context.Context, code string, accountID int64) (domain.ChatIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ident := range f.byChat {
		if ident.VerificationCode != nil && *ident.VerificationCode == code && ident.AccountID == nil {
			id := accountID
			ident.AccountID = &id
			ident.VerificationCode = nil
			return *ident, nil
		}
	}
	return domain.ChatIdentity{}, storage.ErrNotFound
}

type message struct {
	ChatID int64
	Text   string
}

type recorder struct {
	mu  sync.Mutex
	out []message
}

func (r *recorder) Send(_ context.Context, chatID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, message{ChatID: chatID, Text: text})
}

func (r *recorder) take() []message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.out
	r.out = nil
	return out
}

var codeRe = regexp.MustCompile(`^[0-9a-f]{32}$`)

func codeFrom(t *testing.T, msgs []message) string {
	t.Helper()
	require.Len(t, msgs, 2)
	code := msgs[1].Text[len(CodeText("")):]
	require.Regexp(t, codeRe, code)
	return code
}

func TestResolveUnlinkedRotatesCodeEveryMessage(t *testing.T) {
	store := newFakeIdentities()
	rec := &recorder{}
	l := New(store, rec)
	ctx := context.Background()
	in := update.Inbound{ChatID: 42, Username: "ann", FirstName: "Ann", Text: "hello"}

	_, linked, err := l.Resolve(ctx, in)
	require.NoError(t, err)
	require.False(t, linked)
	msgs := rec.take()
	c1 := codeFrom(t, msgs)
	require.Equal(t, message{ChatID: 42, Text: "Hello ann"}, msgs[0])

	_, linked, err = l.Resolve(ctx, in)
	require.NoError(t, err)
	require.False(t, linked)
	c2 := codeFrom(t, rec.take())
	require.NotEqual(t, c1, c2)

	_, err = l.CompleteLink(ctx, c1, 7)
	require.ErrorIs(t, err, ErrInvalidCode)
	require.Empty(t, rec.take())

	ident, err := l.CompleteLink(ctx, c2, 7)
	require.NoError(t, err)
	require.Equal(t, int64(42), ident.ChatID)
	require.Equal(t, []message{{ChatID: 42, Text: MsgLinked}}, rec.take())

	_, err = l.CompleteLink(ctx, c2, 8)
	require.ErrorIs(t, err, ErrInvalidCode)
}

func TestResolveLinkedChatIsSilent(t *testing.T) {
	store := newFakeIdentities()
	rec := &recorder{}
	l := New(store, rec)
	ctx := context.Background()

	_, _, err := l.Resolve(ctx, update.Inbound{ChatID: 5, FirstName: "Bo"})
	require.NoError(t, err)
	msgs := rec.take()
	code := codeFrom(t, msgs)
	require.Equal(t, "Hello Bo", msgs[0].Text)

	_, err = l.CompleteLink(ctx, code, 3)
	require.NoError(t, err)
	rec.take()

	ident, linked, err := l.Resolve(ctx, update.Inbound{ChatID: 5, Text: "/goals"})
	require.NoError(t, err)
	require.True(t, linked)
	require.Equal(t, int64(3), *ident.AccountID)
	require.Empty(t, rec.take())
}

func TestCompleteLinkRequiresCode(t *testing.T) {
	l := New(newFakeIdentities(), &recorder{})
	_, err := l.CompleteLink(context.Background(), "  ", 1)
	require.ErrorIs(t, err, ErrCodeRequired)
}

func TestResolvePropagatesStoreFailure(t *testing.T) {
	store := newFakeIdentities()
	store.err = errors.New("db down")
	rec := &recorder{}

	_, linked, err := New(store, rec).Resolve(context.Background(), update.Inbound{ChatID: 1})
	require.Error(t, err)
	require.False(t, linked)
	require.Empty(t, rec.take())
}

func TestResolveCodeGenerationFailure(t *testing.T) {
	rec := &recorder{}
	l := New(newFakeIdentities(), rec)
	l.generate = func() (string, error) { return "", errors.New("entropy exhausted") }

	_, linked, err := l.Resolve(context.Background(), update.Inbound{ChatID: 1})
	require.Error(t, err)
	require.False(t, linked)
	require.Empty(t, rec.take())
}

func TestNewCodeFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		require.Regexp(t, codeRe, code)
		require.False(t, seen[code])
		seen[code] = true
	}
}

func TestWelcomeText(t *testing.T) {
	require.Equal(t, "Hello", WelcomeText(""))
	require.Equal(t, "Hello Ann", WelcomeText("Ann"))
}
