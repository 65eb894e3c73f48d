package httpx

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", &StatusError{Provider: "x", StatusCode: 429}, true},
		{"503", &StatusError{Provider: "x", StatusCode: 503}, true},
		{"400", &StatusError{Provider: "x", StatusCode: 400}, false},
		{"deadline", context.DeadlineExceeded, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryableError(tc.err); got != tc.want {
				t.Fatalf("IsRetryableError(%v)=%v want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, func(ctx context.Context) (*http.Response, error) {
		calls++
		return nil, &StatusError{Provider: "x", StatusCode: 401}
	}, nil)
	if err == nil || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestRetryEventuallySucceeds(t *testing.T) {
	calls := 0
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"0"}}}
	err := Retry(context.Background(), 2, func(ctx context.Context) (*http.Response, error) {
		calls++
		if calls < 2 {
			return resp, &StatusError{Provider: "x", StatusCode: 502}
		}
		return nil, nil
	}, func(int, time.Duration, error) {})
	if err != nil || calls != 2 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}
