package gemini

import (
	"context"
	"errors"
	"testing"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), Options{APIKey: "  "}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("NewClient() error = %v, want ErrMissingAPIKey", err)
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(context.Background(), Options{APIKey: "test-key", BaseURL: "https://gemini.test"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if client.Models == nil {
		t.Fatalf("expected models service")
	}
}
