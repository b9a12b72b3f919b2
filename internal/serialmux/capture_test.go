package serialmux

import (
	"bytes"
	"context"
	"testing"
)

// TestCaptureRaw_CopiesBytesUntilEOF verifies CaptureRaw mirrors the port's
// byte stream verbatim, including bytes that would never form a complete
// line (unlike Monitor, which requires newline framing).
func TestCaptureRaw_CopiesBytesUntilEOF(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xff, '\n', 0xaa, 0xbb}
	port := NewTestSerialPort(string(payload))
	mux := NewSerialMux(port)

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- mux.CaptureRaw(context.Background(), &out) }()

	// TestSerialPort blocks once readData is exhausted until the port is
	// closed, at which point Read returns io.EOF.
	port.Close()

	if err := <-done; err != nil {
		t.Fatalf("CaptureRaw returned error: %v", err)
	}
	if !bytes.Equal(out.Bytes(), payload) {
		t.Errorf("CaptureRaw wrote %v, want %v", out.Bytes(), payload)
	}
}

// TestCaptureRaw_ContextCancellation verifies CaptureRaw exits promptly
// when its context is cancelled, even if the port never returns EOF.
func TestCaptureRaw_ContextCancellation(t *testing.T) {
	port := NewBlockingReadPort()
	mux := NewSerialMux(port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mux.CaptureRaw(ctx, &bytes.Buffer{}) }()

	cancel()

	if err := <-done; err == nil {
		t.Error("CaptureRaw: want error from cancelled context, got nil")
	}
}
