package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

// ParseOpenAIRateLimitHeaders reads the rate-limit hints an
// OpenAI-compatible endpoint attaches to a throttled response: Retry-After
// in whole seconds, reset times as Unix timestamps, and remaining
// request/token counts. Absent or malformed headers leave their field zero.
func ParseOpenAIRateLimitHeaders(h http.Header) RateLimitInfo {
	var info RateLimitInfo

	if secs := headerInt(h, "Retry-After"); secs > 0 {
		info.RetryAfter = time.Duration(secs) * time.Second
	}

	// The request-window reset takes precedence over the token-window one
	// when both are present.
	for _, key := range []string{"x-ratelimit-reset-requests", "x-ratelimit-reset-tokens"} {
		if v := h.Get(key); v != "" {
			info.ResetTime, _ = strconv.ParseInt(v, 10, 64)
			break
		}
	}

	info.RequestsRemaining = headerInt(h, "x-ratelimit-remaining-requests")
	info.TokensRemaining = headerInt(h, "x-ratelimit-remaining-tokens")
	return info
}

// headerInt parses a numeric header value, returning 0 when the header is
// absent or not an integer.
func headerInt(h http.Header, key string) int {
	v := h.Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
