package main

import (
	"os"
	"testing"
)

// TestFlagDefaults verifies the package-level flag variables exist with
// the documented defaults.
func TestFlagDefaults(t *testing.T) {
	if *outDir != "captures" {
		t.Errorf("outDir default = %q, want %q", *outDir, "captures")
	}
	if *rotateBytes != 16*1024*1024 {
		t.Errorf("rotateBytes default = %d, want 16MiB", *rotateBytes)
	}
	if *baudRate != 115200 {
		t.Errorf("baudRate default = %d, want 115200", *baudRate)
	}
	if *deviceID != "0000000000000000" {
		t.Errorf("deviceID default = %q, want 16 zero digits", *deviceID)
	}
}

func TestOpenMuxUsesFixtureWhenSet(t *testing.T) {
	orig := *fixturePath
	defer func() { *fixturePath = orig }()

	dir := t.TempDir()
	path := dir + "/fixture.bin"
	if err := os.WriteFile(path, []byte{0x01, 0x02, 0x03}, 0o644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}
	*fixturePath = path

	mux, err := openMux(115200)
	if err != nil {
		t.Fatalf("openMux() error = %v", err)
	}
	defer mux.Close()
}
