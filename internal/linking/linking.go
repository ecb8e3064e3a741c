// Package linking runs the account-linking handshake: unlinked chats get a
// fresh verification code on every message until the code is redeemed.
package linking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/core/telegram/update"
	"github.com/m3rciful/goalbot/internal/domain"
	"github.com/m3rciful/goalbot/internal/storage"
)

const codeBytes = 16

// MsgLinked confirms a redeemed code to the chat.
const MsgLinked = "Account linked successfully"

var (
	// ErrInvalidCode means no unlinked chat holds the supplied code.
	ErrInvalidCode = errors.New("linking: invalid verification code")
	// ErrCodeRequired rejects an empty code before touching the store.
	ErrCodeRequired = errors.New("linking: verification code is required")
)

// IdentityStore is the persistence the linker needs.
type IdentityStore interface {
	GetOrCreate(ctx context.Context, chatID int64, username string) (domain.ChatIdentity, error)
	SetVerificationCode(ctx context.Context, identityID int64, code string) error
	LinkByCode(ctx context.Context, code string, accountID int64) (domain.ChatIdentity, error)
}

// Notifier delivers best-effort chat messages.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string)
}

// Linker resolves chat identities and redeems verification codes.
type Linker struct {
	store    IdentityStore
	notify   Notifier
	generate func() (string, error)
}

// New returns a Linker generating 32-hex-char codes from crypto/rand.
func New(store IdentityStore, notify Notifier) *Linker {
	return &Linker{store: store, notify: notify, generate: NewCode}
}

// NewCode returns 16 random bytes hex-encoded.
func NewCode() (string, error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("linking: read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// WelcomeText greets the chat by its display name.
func WelcomeText(name string) string {
	if name == "" {
		return "Hello"
	}
	return "Hello " + name
}

// CodeText asks the chat to redeem code in the application.
func CodeText(code string) string {
	return "Please confirm your account in the app. CODE: " + code
}

// Resolve returns the identity behind in.ChatID, creating it on first
// contact. While the chat is unlinked it rotates the verification code, sends
// the welcome and code messages, and reports linked=false.
func (l *Linker) Resolve(ctx context.Context, in update.Inbound) (domain.ChatIdentity, bool, error) {
	ident, err := l.store.GetOrCreate(ctx, in.ChatID, in.Username)
	if err != nil {
		return domain.ChatIdentity{}, false, fmt.Errorf("linking: resolve chat %d: %w", in.ChatID, err)
	}
	if ident.Linked() {
		return ident, true, nil
	}

	code, err := l.generate()
	if err != nil {
		return ident, false, err
	}
	if err := l.store.SetVerificationCode(ctx, ident.ID, code); err != nil {
		return ident, false, fmt.Errorf("linking: store code for chat %d: %w", in.ChatID, err)
	}
	ident.VerificationCode = &code

	l.notify.Send(ctx, in.ChatID, WelcomeText(in.DisplayName()))
	l.notify.Send(ctx, in.ChatID, CodeText(code))

	logger.Info(ctx, "service.link", "link.code_issued",
		slog.String("outcome", "unlinked"),
		slog.Int64("chat_id", in.ChatID),
	)
	return ident, false, nil
}

// CompleteLink binds the chat holding code to accountID, clears the code and
// confirms to the chat. A code can be redeemed once.
func (l *Linker) CompleteLink(ctx context.Context, code string, accountID int64) (domain.ChatIdentity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.ChatIdentity{}, ErrCodeRequired
	}
	ident, err := l.store.LinkByCode(ctx, code, accountID)
	if errors.Is(err, storage.ErrNotFound) {
		logger.Warn(ctx, "service.link", "link.complete",
			slog.String("status", "fail"),
			slog.Int64("account_id", accountID),
			slog.String("err_code", "invalid_code"),
		)
		return domain.ChatIdentity{}, ErrInvalidCode
	}
	if err != nil {
		return domain.ChatIdentity{}, fmt.Errorf("linking: complete: %w", err)
	}

	l.notify.Send(ctx, ident.ChatID, MsgLinked)
	logger.Info(ctx, "service.link", "link.complete",
		slog.String("status", "ok"),
		slog.Int64("account_id", accountID),
		slog.Int64("chat_id", ident.ChatID),
	)
	return ident, nil
}
