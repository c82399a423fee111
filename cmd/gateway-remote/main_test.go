package main

import (
	"testing"

	"github.com/remotefiles/gateway-client-go/internal/config"
)

func TestBuildClients(t *testing.T) {
	refresh := false
	cfg := &config.Config{
		GatewayURL: "https://gateway.example.com",
		TokenDir:   t.TempDir(),
		Providers: []config.Provider{
			{ID: "drive", Name: "My Drive"},
			{ID: "dropbox", SupportsRefresh: &refresh},
		},
	}

	clients, err := buildClients(cfg)
	if err != nil {
		t.Fatalf("buildClients failed: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("Expected 2 clients, got %d", len(clients))
	}

	if clients[0].ID() != "drive" {
		t.Errorf("Expected drive, got %s", clients[0].ID())
	}
	if clients[0].Name() != "My Drive" {
		t.Errorf("Expected configured name, got %s", clients[0].Name())
	}
	if clients[1].Name() != "Dropbox" {
		t.Errorf("Expected derived display name, got %s", clients[1].Name())
	}
}

func TestBuildClientsRejectsBadGatewayURL(t *testing.T) {
	cfg := &config.Config{
		GatewayURL: "::not-a-url",
		TokenDir:   t.TempDir(),
		Providers:  []config.Provider{{ID: "drive"}},
	}

	if _, err := buildClients(cfg); err == nil {
		t.Error("Expected error for invalid gateway URL")
	}
}
