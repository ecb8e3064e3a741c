package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/goalbot/core/logger"
	"github.com/m3rciful/goalbot/core/telegram/sender"
)

// ErrMalformedResponse marks a Bot API reply that could not be decoded, such
// as an HTML error page from a proxy.
var ErrMalformedResponse = errors.New("telegram: malformed response")

// APIError is a Bot API reply with ok=false.
type APIError struct {
	Method      string
	Status      int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s: %s (%d)", e.Method, e.Description, e.Status)
}

// HTTPStatus reports the status the Bot API answered with.
func (e *APIError) HTTPStatus() int {
	return e.Status
}

// Code implements the handler summary error-code contract.
func (e *APIError) Code() string {
	return fmt.Sprintf("tg_api_%d", e.Status)
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	Token  string
	APIURL string
	// LongPollTimeout is sent as the getUpdates timeout parameter.
	LongPollTimeout time.Duration
	HTTPClient      *http.Client
}

// Client is the Bot API transport: long-poll getUpdates and outbound calls.
type Client struct {
	token   string
	apiURL  string
	timeout time.Duration
	http    *http.Client
	bot     *tele.Bot
}

// NewClient builds a Client. The telebot Bot is created offline so no getMe
// request is issued during construction.
func NewClient(opts ClientOptions) (*Client, error) {
	token := strings.TrimSpace(opts.Token)
	if token == "" {
		return nil, errors.New("telegram: empty token")
	}
	apiURL := strings.TrimRight(strings.TrimSpace(opts.APIURL), "/")
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}
	timeout := opts.LongPollTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = BuildHTTPClient(HTTPClientOptions{LongPollTimeout: timeout})
	}

	bot, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Client:  httpClient,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	return &Client{
		token:   token,
		apiURL:  apiURL,
		timeout: timeout,
		http:    httpClient,
		bot:     bot,
	}, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// FetchUpdates long-polls getUpdates with offset=cursor. It returns the batch
// and the cursor that acknowledges all of it. A reply that cannot be decoded
// is logged and yields no updates plus an ErrMalformedResponse error, so the
// caller waits before the next poll.
func (c *Client) FetchUpdates(ctx context.Context, cursor int) ([]tele.Update, int, error) {
	payload := map[string]any{
		"offset":  cursor,
		"timeout": int(c.timeout / time.Second),
	}

	var updates []tele.Update
	err := c.call(ctx, "getUpdates", payload, &updates)
	if errors.Is(err, ErrMalformedResponse) {
		logger.Warn(ctx, "tg", "updates.decode_failed",
			slog.Int("cursor", cursor),
			slog.String("err", sender.SanitizeErrorMessage(err)),
		)
		return nil, cursor, err
	}
	if err != nil {
		return nil, cursor, err
	}

	next := cursor
	for _, u := range updates {
		if u.ID+1 > next {
			next = u.ID + 1
		}
	}
	return updates, next, nil
}

// SendMessage sends plain text to chatID. The request is bound to ctx, so a
// deadline cuts off an in-flight send. The transport never retries it.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	payload := map[string]any{"chat_id": chatID, "text": text}
	if err := c.call(ctx, "sendMessage", payload, nil); err != nil {
		return fmt.Errorf("telegram: sendMessage: %w", err)
	}
	return nil
}

// SetCommands publishes the bot command menu.
func (c *Client) SetCommands(cmds []tele.Command) error {
	if len(cmds) == 0 {
		return nil
	}
	return c.bot.SetCommands(cmds)
}

// DeleteWebhook removes a configured webhook so that getUpdates is accepted.
func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	var ok bool
	return c.call(ctx, "deleteWebhook", map[string]any{"drop_pending_updates": dropPending}, &ok)
}

func (c *Client) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: %s: encode: %w", method, err)
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.apiURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var reply apiResponse
	if err := json.Unmarshal(data, &reply); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}
	if !reply.OK {
		status := reply.ErrorCode
		if status == 0 {
			status = resp.StatusCode
		}
		return &APIError{Method: method, Status: status, Description: reply.Description}
	}
	if result == nil || len(reply.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Result, result); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, method, err)
	}
	return nil
}
