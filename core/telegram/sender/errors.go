package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"

	tele "gopkg.in/telebot.v4"
)

var (
	tokenRe      = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
	teleStatusRe = regexp.MustCompile(`\((\d{3})\)\s*$`)
)

// statusCarrier is implemented by API errors that know their HTTP status.
type statusCarrier interface {
	HTTPStatus() int
}

// errorKinds is checked in order; the first match names the failure.
var errorKinds = []struct {
	kind  string
	match func(error) bool
}{
	{"timeout", isTimeout},
	{"dns", func(err error) bool {
		var e *net.DNSError
		return errors.As(err, &e)
	}},
	{"dial", func(err error) bool {
		var e *net.OpError
		return errors.As(err, &e) && e.Op == "dial"
	}},
	{"tls", func(err error) bool {
		var e tls.AlertError
		return errors.As(err, &e)
	}},
	{"flood", func(err error) bool { return httpStatusFromError(err) == http.StatusTooManyRequests }},
	{"http_5xx", func(err error) bool { return httpStatusFromError(err) >= 500 }},
	{"http_4xx", func(err error) bool { return httpStatusFromError(err) >= 400 }},
}

// ClassifyError maps a send failure to a short kind for the err_code field.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if k.match(err) {
			return k.kind
		}
	}
	return "unknown"
}

// SanitizeErrorMessage redacts bot tokens that net/http embeds in request URLs.
func SanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func httpStatusFromError(err error) int {
	var carrier statusCarrier
	if errors.As(err, &carrier) {
		return carrier.HTTPStatus()
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	// telebot renders unregistered API errors as "telegram: <description> (<code>)".
	if m := teleStatusRe.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}
