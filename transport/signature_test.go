package transport

import (
	"strings"
	"testing"
	"time"
)

func TestSignerBindsEveryField(t *testing.T) {
	s := NewSigner([]byte("k"), "fp")
	ts := time.UnixMilli(1_700_000_000_000)
	v := s.Sign("POST", "/auth/login", []byte(`{"a":1}`), ts)

	if !strings.HasPrefix(v, "1700000000000:") {
		t.Fatalf("expected timestamp prefix, got %q", v)
	}
	if !s.Verify("POST", "/auth/login", []byte(`{"a":1}`), v) {
		t.Fatal("expected signature to verify")
	}
	if s.Verify("GET", "/auth/login", []byte(`{"a":1}`), v) {
		t.Fatal("method must be bound")
	}
	if s.Verify("POST", "/auth/logout", []byte(`{"a":1}`), v) {
		t.Fatal("path must be bound")
	}
	if s.Verify("POST", "/auth/login", []byte(`{"a":2}`), v) {
		t.Fatal("body must be bound")
	}
	if NewSigner([]byte("k"), "other").Verify("POST", "/auth/login", []byte(`{"a":1}`), v) {
		t.Fatal("fingerprint must be bound")
	}
	if s.Verify("POST", "/auth/login", []byte(`{"a":1}`), "garbage") {
		t.Fatal("malformed value must not verify")
	}
}

func TestRequestIDsSortable(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	if len(a) != 26 || a >= b {
		t.Fatalf("expected monotonic ULIDs, got %q then %q", a, b)
	}
}

func TestDeviceFingerprintStable(t *testing.T) {
	d := DeviceInfo{DeviceID: "x", Platform: "ios", Version: "1.0.0"}
	if d.Fingerprint() != d.Fingerprint() || len(d.Fingerprint()) != 64 {
		t.Fatalf("unexpected fingerprint %q", d.Fingerprint())
	}
	n := NewDeviceInfo("android", "2.0.0")
	if n.DeviceID == "" || n.Fingerprint() == d.Fingerprint() {
		t.Fatal("expected random device id")
	}
}
