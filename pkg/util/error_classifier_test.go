package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"mailassist/pkg/circuitbreaker"
)

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error
	if err := json.Unmarshal([]byte("{"), &struct{}{}); err != nil {
		syntaxErr = err
	}

	tests := []struct {
		name      string
		err       error
		retryable bool
		errType   string
	}{
		{"nil", nil, false, ""},
		{"json syntax", fmt.Errorf("decode payload: %w", syntaxErr), false, "json_decode_error"},
		{"circuit open", fmt.Errorf("generate: %w", circuitbreaker.ErrCircuitBreakerOpen), true, "circuit_open"},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"url error", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")}, true, "network_error"},
		{"status", errors.New("agent service returned error: status 503"), true, "agent_service_error"},
		{"empty", errors.New("agent returned empty response"), false, "empty_response"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, errType := IsRetryableError(tt.err)
			if retryable != tt.retryable || errType != tt.errType {
				t.Errorf("got (%v, %q), want (%v, %q)", retryable, errType, tt.retryable, tt.errType)
			}
		})
	}
}

func TestClassifyAgentError(t *testing.T) {
	if got := ClassifyAgentError(nil); got != "success" {
		t.Errorf("nil error: got %q", got)
	}
	if got := ClassifyAgentError(circuitbreaker.ErrCircuitBreakerOpen); got != "circuit_open" {
		t.Errorf("open breaker: got %q", got)
	}
}

func TestShouldRetry(t *testing.T) {
	if ShouldRetry(1, 3, false) {
		t.Error("non-retryable errors must not retry")
	}
	if !ShouldRetry(3, 3, true) {
		t.Error("retry at the limit should be allowed")
	}
	if ShouldRetry(4, 3, true) {
		t.Error("retry past the limit should be refused")
	}
}
