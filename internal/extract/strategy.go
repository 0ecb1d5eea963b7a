package extract

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/moltrus/Crypton/internal/news"
)

// errTooShort marks content below the minimum visible-character guard.
var errTooShort = errors.New("extracted content too short")

// guardContent enforces the minimum-content rule shared by every strategy:
// pages that technically parse but yield near-empty text are a structural
// failure, not a success.
func guardContent(method, text string, minChars int) error {
	if len(strings.TrimSpace(text)) < minChars {
		return news.NewStructuralError(method, fmt.Errorf("%w (%d chars)", errTooShort, len(strings.TrimSpace(text))))
	}
	return nil
}

// classifyStatus maps an HTTP response status to a strategy error.
// Rate limiting and server errors are transient; any other non-2xx status
// means the page itself will not yield content without operator attention.
func classifyStatus(method string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return news.NewTransientError(method, fmt.Errorf("http status %d", status))
	default:
		return news.NewStructuralError(method, fmt.Errorf("http status %d", status))
	}
}

// classifyNetErr wraps a transport-level failure. Timeouts and temporary
// network conditions are transient; so is everything else at this layer,
// since the absence of a response proves nothing about the page.
func classifyNetErr(method string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return news.NewTransientError(method, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return news.NewTransientError(method, fmt.Errorf("network timeout: %w", err))
	}
	return news.NewTransientError(method, err)
}
