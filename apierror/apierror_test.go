package apierror

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsAuthError(t *testing.T) {
	authErr := NewAuth(401, "token expired")
	if !IsAuthError(authErr) {
		t.Error("Expected auth error to be recognized")
	}

	plainErr := New(503, "service unavailable")
	if IsAuthError(plainErr) {
		t.Error("Expected non-auth APIError to not be an auth error")
	}

	if IsAuthError(errors.New("network down")) {
		t.Error("Expected plain error to not be an auth error")
	}

	// Wrapped auth errors must still be recognized
	wrapped := fmt.Errorf("request failed: %w", authErr)
	if !IsAuthError(wrapped) {
		t.Error("Expected wrapped auth error to be recognized")
	}
}

func TestMapToStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
		wantOK   bool
	}{
		{
			name:     "auth error maps to 401",
			err:      NewAuth(401, "invalid access token"),
			wantCode: 401,
			wantMsg:  "invalid access token",
			wantOK:   true,
		},
		{
			name:     "upstream 5xx maps to 502",
			err:      New(503, "provider down"),
			wantCode: 502,
			wantMsg:  "provider down",
			wantOK:   true,
		},
		{
			name:     "upstream 4xx maps to 424",
			err:      New(404, "file not found"),
			wantCode: 424,
			wantMsg:  "file not found",
			wantOK:   true,
		},
		{
			name:   "plain error produces no mapping",
			err:    errors.New("something else"),
			wantOK: false,
		},
		{
			name:   "non-error status produces no mapping",
			err:    New(302, "redirect"),
			wantOK: false,
		},
		{
			name:     "wrapped API error is unwrapped",
			err:      fmt.Errorf("fetch: %w", New(500, "boom")),
			wantCode: 502,
			wantMsg:  "boom",
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg, ok := MapToStatus(tt.err)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok {
				return
			}
			if code != tt.wantCode {
				t.Errorf("Expected code %d, got %d", tt.wantCode, code)
			}
			if msg != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := NewAuth(401, "expired")
	if err.Error() != "gateway auth failure (HTTP 401): expired" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}

	err = New(500, "boom")
	if err.Error() != "gateway error (HTTP 500): boom" {
		t.Errorf("Unexpected error string: %s", err.Error())
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &APIError{StatusCode: 500, Message: "boom", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}
}
