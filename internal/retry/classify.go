package retry

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
)

var (
	waitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)retry-after:?\s*(\d+)`),
		regexp.MustCompile(`(?i)wait\s+(\d+)\s*(?:seconds?|secs?|s)\b`),
		regexp.MustCompile(`(?i)try again in\s+(\d+)`),
	}
	statusPattern = regexp.MustCompile(`(?i)\b(?:status|code|http)\s*:?\s*([45]\d\d)\b`)

	rateLimitHints = []string{"rate limit", "ratelimit", "too many requests"}
	networkHints   = []string{"timeout", "timed out", "failed to fetch", "network", "connection refused", "connection reset", "no such host", "eof"}
)

// Classify maps err to a failure kind. Typed errors from common win; plain
// errors are recognised by their message.
func Classify(err error) common.Kind {
	if err == nil {
		return common.KindUnknown
	}

	var exhausted *common.ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Kind
	}
	var rl *common.RateLimitError
	if errors.As(err, &rl) {
		return common.KindRateLimit
	}
	var ve *common.ValidationError
	if errors.As(err, &ve) {
		return common.KindValidation
	}
	var ce *common.ClientError
	if errors.As(err, &ce) {
		if ce.StatusCode == 429 {
			return common.KindRateLimit
		}
		return common.KindClient
	}
	var se *common.ServerError
	if errors.As(err, &se) {
		return common.KindServer
	}
	var ne *common.NetworkError
	if errors.As(err, &ne) {
		return common.KindNetwork
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return common.KindNetwork
	}

	return classifyMessage(err.Error())
}

func classifyMessage(msg string) common.Kind {
	lower := strings.ToLower(msg)
	for _, h := range rateLimitHints {
		if strings.Contains(lower, h) {
			return common.KindRateLimit
		}
	}
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		switch {
		case code == 429:
			return common.KindRateLimit
		case code >= 500:
			return common.KindServer
		default:
			return common.KindClient
		}
	}
	for _, h := range networkHints {
		if strings.Contains(lower, h) {
			return common.KindNetwork
		}
	}
	return common.KindUnknown
}

// IsRetryable reports whether the built-in classification retries err.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case common.KindClient, common.KindValidation:
		return false
	default:
		return true
	}
}

// RateLimitWait is how long to wait before retrying a rate-limited call:
// the explicit WaitSeconds of a RateLimitError, else a wait parsed from the
// message, else DefaultRateLimitWait. The result never exceeds
// MaxRateLimitWait.
func RateLimitWait(err error) time.Duration {
	wait := DefaultRateLimitWait

	var rl *common.RateLimitError
	if errors.As(err, &rl) && rl.WaitSeconds > 0 {
		wait = capSeconds(rl.WaitSeconds)
	} else if err != nil {
		if d, ok := ParseWait(err.Error()); ok {
			wait = d
		}
	}
	return wait
}

// capSeconds converts n seconds to a duration no longer than
// MaxRateLimitWait. Large n is clamped before the conversion overflows.
func capSeconds(n int) time.Duration {
	if n > int(MaxRateLimitWait/time.Second) {
		return MaxRateLimitWait
	}
	return time.Duration(n) * time.Second
}

// ParseWait extracts a wait from messages such as "Retry-After: 30",
// "please wait 5 seconds" or "try again in 12". The result is capped at
// MaxRateLimitWait, including numbers too large for an int.
func ParseWait(msg string) (time.Duration, bool) {
	for _, p := range waitPatterns {
		m := p.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if errors.Is(err, strconv.ErrRange) {
			return MaxRateLimitWait, true
		}
		if err != nil {
			continue
		}
		return capSeconds(n), true
	}
	return 0, false
}
