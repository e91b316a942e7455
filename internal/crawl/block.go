package crawl

import (
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/resilience"
)

// blockMarkers appear in interstitial pages served by bot-protection
// layers instead of the real document.
var blockMarkers = []string{
	"cf-browser-verification",
	"checking your browser",
	"attention required! | cloudflare",
	"are you a robot",
	"captcha-delivery.com",
	"px-captcha",
	"access denied",
	"request unsuccessful. incapsula",
}

// detectBlock classifies bot-protection responses as retryable so a later
// attempt, possibly after the breaker cools down, can succeed.
func detectBlock(statusCode int, body []byte) error {
	if statusCode == http.StatusForbidden || statusCode == http.StatusTooManyRequests {
		return &resilience.RetryableError{
			Err:        eris.Errorf("crawl: blocked with status %d", statusCode),
			StatusCode: statusCode,
		}
	}

	if statusCode == http.StatusOK || statusCode == http.StatusServiceUnavailable {
		lower := strings.ToLower(string(body))
		for _, marker := range blockMarkers {
			if strings.Contains(lower, marker) {
				return &resilience.RetryableError{
					Err:        eris.Errorf("crawl: bot challenge detected (%q)", marker),
					StatusCode: statusCode,
				}
			}
		}
	}
	return nil
}
