package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/remotefiles/gateway-client-go/apierror"
)

func TestNew(t *testing.T) {
	// Test with nil config
	client := New(nil)
	if client == nil {
		t.Fatal("Expected client to be created with nil config")
		return
	}
	if client.config.Timeout != DefaultTimeout {
		t.Errorf("Expected default timeout %v, got %v", DefaultTimeout, client.config.Timeout)
	}
	if client.config.AuthStatus != http.StatusUnauthorized {
		t.Errorf("Expected default auth status 401, got %d", client.config.AuthStatus)
	}

	// Test with custom config
	config := &Config{
		Timeout:    10 * time.Second,
		AuthStatus: http.StatusForbidden,
	}
	client = New(config)
	if client.config.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", client.config.Timeout)
	}
	if client.config.AuthStatus != http.StatusForbidden {
		t.Errorf("Expected auth status 403, got %d", client.config.AuthStatus)
	}
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET method, got %s", r.Method)
		}
		if r.Header.Get("Test-Header") != "test-value" {
			t.Errorf("Expected test header, got %s", r.Header.Get("Test-Header"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"success"}`))
	}))
	defer server.Close()

	client := New(nil)
	headers := map[string]string{
		"Test-Header": "test-value",
	}

	resp, err := client.Get(context.Background(), server.URL, headers)
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}
	defer func() { _ = resp.SafeClose() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := resp.JSON(&result); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if result["message"] != "success" {
		t.Errorf("Expected message 'success', got %v", result["message"])
	}
}

func TestPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST method, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %s", r.Header.Get("Content-Type"))
		}

		body := make([]byte, 1024)
		n, _ := r.Body.Read(body)
		if !strings.Contains(string(body[:n]), "test") {
			t.Errorf("Expected body to contain 'test', got %s", string(body[:n]))
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":123}`))
	}))
	defer server.Close()

	client := New(nil)
	requestBody := map[string]interface{}{
		"name": "test",
	}

	resp, err := client.Post(context.Background(), server.URL, requestBody, nil)
	if err != nil {
		t.Fatalf("POST request failed: %v", err)
	}
	defer func() { _ = resp.SafeClose() }()

	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", resp.StatusCode)
	}
}

func TestDefaultHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Client-Name") != "gateway-client" {
			t.Errorf("Expected default header, got %s", r.Header.Get("Client-Name"))
		}
		// Request headers override defaults
		if r.Header.Get("Shared") != "request" {
			t.Errorf("Expected request header to win, got %s", r.Header.Get("Shared"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(&Config{
		DefaultHeaders: map[string]string{
			"Client-Name": "gateway-client",
			"Shared":      "default",
		},
	})

	resp, err := client.Get(context.Background(), server.URL, map[string]string{"Shared": "request"})
	if err != nil {
		t.Fatalf("GET request failed: %v", err)
	}
	defer func() { _ = resp.SafeClose() }()
}

func TestAuthFailureClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("token expired"))
	}))
	defer server.Close()

	client := New(nil)
	resp, err := client.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
	defer func() { _ = resp.SafeClose() }()

	if !apierror.IsAuthError(err) {
		t.Errorf("Expected auth error classification, got %v", err)
	}
}

func TestGenericErrorClassification(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(nil)
	resp, err := client.Get(context.Background(), server.URL, nil)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	defer func() { _ = resp.SafeClose() }()

	if apierror.IsAuthError(err) {
		t.Error("404 must not be classified as an auth error")
	}

	code, _, ok := apierror.MapToStatus(err)
	if !ok || code != http.StatusFailedDependency {
		t.Errorf("Expected mapping to 424, got %d (ok=%v)", code, ok)
	}
}

func TestCustomAuthStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := New(&Config{AuthStatus: http.StatusForbidden})
	_, err := client.Get(context.Background(), server.URL, nil)
	if !apierror.IsAuthError(err) {
		t.Errorf("Expected 403 to be classified as auth error, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, server.URL, nil)
	if err == nil {
		t.Error("Expected context cancellation error")
	}
}

func TestSafeClose(t *testing.T) {
	resp := &Response{}

	// Test with nil response
	if err := resp.SafeClose(); err != nil {
		t.Errorf("SafeClose should not error with nil response: %v", err)
	}

	// Test with nil body
	resp.Response = &http.Response{}
	if err := resp.SafeClose(); err != nil {
		t.Errorf("SafeClose should not error with nil body: %v", err)
	}
}
