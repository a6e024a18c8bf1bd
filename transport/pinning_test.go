package transport

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParsePins(t *testing.T) {
	good := "sha256/" + base64.StdEncoding.EncodeToString(make([]byte, sha256.Size))
	if _, err := ParsePins([]string{good}); err != nil {
		t.Fatalf("valid pin rejected: %v", err)
	}
	bad := []string{
		"AAAA",
		"sha256/!!!",
		"sha256/" + base64.StdEncoding.EncodeToString([]byte("short")),
	}
	for _, p := range bad {
		if _, err := ParsePins([]string{p}); err == nil {
			t.Fatalf("%q: expected error", p)
		}
	}
}

func pinnedClient(t *testing.T, srv *httptest.Server, pins []string) *Client {
	t.Helper()
	base := srv.Client().Transport.(*http.Transport)
	tr, err := PinnedTransport(base, pins)
	if err != nil {
		t.Fatalf("pinned transport: %v", err)
	}
	c, err := New(Config{
		BaseURL:           srv.URL,
		RequestsPerSecond: 100,
		HTTPClient:        &http.Client{Transport: tr},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestPinnedTransportAcceptsMatchingPin(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	c := pinnedClient(t, srv, []string{SPKIPin(srv.Certificate())})
	if err := c.Logout(context.Background(), "tok"); err != nil {
		t.Fatalf("expected pinned request to succeed, got %v", err)
	}
}

func TestPinnedTransportRejectsUnknownKey(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))
	defer srv.Close()

	other := "sha256/" + base64.StdEncoding.EncodeToString(make([]byte, sha256.Size))
	c := pinnedClient(t, srv, []string{other})
	err := c.Logout(context.Background(), "tok")
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork on pin mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), ErrPinMismatch.Error()) {
		t.Fatalf("expected pin mismatch in error, got %v", err)
	}
}

func TestSPKIPinFormat(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()
	pin := SPKIPin(srv.Certificate())
	if !strings.HasPrefix(pin, "sha256/") {
		t.Fatalf("unexpected pin %q", pin)
	}
	if _, err := ParsePins([]string{pin}); err != nil {
		t.Fatalf("generated pin must parse: %v", err)
	}
}
