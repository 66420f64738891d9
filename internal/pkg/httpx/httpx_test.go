package httpx

import (
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableHTTPStatus(t *testing.T) {
	cases := map[int]bool{
		200: false,
		404: false,
		408: true,
		429: true,
		500: true,
		599: true,
		600: false,
	}
	for code, want := range cases {
		if got := IsRetryableHTTPStatus(code); got != want {
			t.Errorf("IsRetryableHTTPStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestRetryAfterDurationUsesHeader(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"5"}}}
	got := RetryAfterDuration(resp, 30*time.Second, time.Minute)
	if got != 5*time.Second {
		t.Fatalf("expected header value to win, got %v", got)
	}
}

func TestRetryAfterDurationFallsBackWithoutHeader(t *testing.T) {
	got := RetryAfterDuration(nil, 30*time.Second, time.Minute)
	if got != 30*time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
}

func TestRetryAfterDurationClampsToMax(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"3600"}}}
	got := RetryAfterDuration(resp, 30*time.Second, time.Minute)
	if got != time.Minute {
		t.Fatalf("expected clamp to max, got %v", got)
	}
}

func TestJitterSleepStaysWithinBand(t *testing.T) {
	base := 10 * time.Second
	for i := 0; i < 50; i++ {
		got := JitterSleep(base)
		if got < 8*time.Second || got > 12*time.Second {
			t.Fatalf("jitter out of expected +-20%% band: %v", got)
		}
	}
}

func TestJitterSleepZeroBase(t *testing.T) {
	if got := JitterSleep(0); got != 0 {
		t.Fatalf("expected zero base to stay zero, got %v", got)
	}
}
