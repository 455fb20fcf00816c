package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/anbuneel/zenote-sub001/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want common.Kind
	}{
		{"rate limit typed", &common.RateLimitError{WaitSeconds: 3}, common.KindRateLimit},
		{"client 429", &common.ClientError{StatusCode: 429}, common.KindRateLimit},
		{"client 400", &common.ClientError{StatusCode: 400}, common.KindClient},
		{"server", &common.ServerError{StatusCode: 500}, common.KindServer},
		{"network", &common.NetworkError{Err: errors.New("x")}, common.KindNetwork},
		{"validation", &common.ValidationError{Field: "f"}, common.KindValidation},
		{"wrapped client", fmt.Errorf("insert: %w", &common.ClientError{StatusCode: 403}), common.KindClient},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), common.KindNetwork},
		{"failed to fetch", errors.New("TypeError: Failed to fetch"), common.KindNetwork},
		{"timeout text", errors.New("request timeout"), common.KindNetwork},
		{"too many requests", errors.New("Too Many Requests"), common.KindRateLimit},
		{"status 404 text", errors.New("http 404 not found"), common.KindClient},
		{"status 502 text", errors.New("status: 502 bad gateway"), common.KindServer},
		{"status 429 text", errors.New("code 429"), common.KindRateLimit},
		{"unknown", errors.New("weird"), common.KindUnknown},
		{"exhausted keeps kind", &common.ExhaustedError{Kind: common.KindServer, Err: errors.New("x")}, common.KindServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&common.ServerError{}))
	assert.True(t, IsRetryable(&common.NetworkError{}))
	assert.True(t, IsRetryable(&common.RateLimitError{}))
	assert.True(t, IsRetryable(errors.New("unknown")))
	assert.False(t, IsRetryable(&common.ClientError{StatusCode: 422}))
	assert.False(t, IsRetryable(&common.ValidationError{}))
}

func TestParseWait(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
		ok   bool
	}{
		{"Retry-After: 30", 30 * time.Second, true},
		{"retry-after 5", 5 * time.Second, true},
		{"please wait 12 seconds", 12 * time.Second, true},
		{"Try again in 45 seconds.", 45 * time.Second, true},
		{"Retry-After: 10000000000", 300 * time.Second, true},
		{"Retry-After: 99999999999999999999", 300 * time.Second, true},
		{"slow down", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseWait(tt.msg)
		assert.Equal(t, tt.ok, ok, tt.msg)
		assert.Equal(t, tt.want, got, tt.msg)
	}
}

func TestRateLimitWait(t *testing.T) {
	assert.Equal(t, 10*time.Second, RateLimitWait(&common.RateLimitError{}))
	assert.Equal(t, 300*time.Second, RateLimitWait(&common.RateLimitError{WaitSeconds: 301}))
	assert.Equal(t, 300*time.Second, RateLimitWait(errors.New("Retry-After: 300")))
	assert.Equal(t, 20*time.Second, RateLimitWait(errors.New("rate limit, wait 20 seconds")))
}

func TestRateLimitWait_HugeValuesCap(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"parsed beyond duration range", errors.New("rate limit: Retry-After: 10000000000")},
		{"parsed beyond int range", errors.New("rate limit: Retry-After: 99999999999999999999")},
		{"explicit beyond duration range", &common.RateLimitError{WaitSeconds: math.MaxInt}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, MaxRateLimitWait, RateLimitWait(tt.err))
		})
	}
}
