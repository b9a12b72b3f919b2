package registry

import (
	"strings"
	"testing"

	"github.com/infuse-iot/tdf2csv/internal/tdf"
)

func TestNameKnownAndUnknown(t *testing.T) {
	if got := Name(1); got != "BATTERY_STATE" {
		t.Errorf("Name(1) = %q, want BATTERY_STATE", got)
	}
	if got := Name(9999); got != "9999" {
		t.Errorf("Name(9999) = %q, want decimal fallback", got)
	}
}

func TestFieldsKnownAndUnknown(t *testing.T) {
	if got := Fields(1); len(got) != 2 || got[0] != "millivolts" || got[1] != "percent" {
		t.Errorf("Fields(1) = %v, want [millivolts percent]", got)
	}
	if got := Fields(9999); len(got) != 1 || got[0] != "data" {
		t.Errorf("Fields(9999) = %v, want [data]", got)
	}
}

func TestReadRowBatteryState(t *testing.T) {
	// millivolts u16LE = 3700, percent u8 = 82
	buf := []byte{0x74, 0x0E, 82}
	cur := tdf.NewCursor(buf)
	row, err := ReadRow(1, 3, cur)
	if err != nil {
		t.Fatalf("ReadRow error = %v", err)
	}
	want := "3700,82"
	if row != want {
		t.Errorf("ReadRow(1) = %q, want %q", row, want)
	}
	if cur.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", cur.Remaining())
	}
}

func TestReadRowUnderflowSkipsRemainder(t *testing.T) {
	// Declared size is larger than BATTERY_STATE's 3 fixed bytes; the extra
	// byte must be skipped, not appended as a column.
	buf := []byte{0x74, 0x0E, 82, 0xAA}
	cur := tdf.NewCursor(buf)
	row, err := ReadRow(1, 4, cur)
	if err != nil {
		t.Fatalf("ReadRow error = %v", err)
	}
	if strings.Count(row, ",") != 1 {
		t.Errorf("ReadRow(1) with underflow = %q, want exactly 2 columns", row)
	}
	if cur.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0 (underflow byte should be skipped)", cur.Remaining())
	}
}

func TestReadRowUnknownIDFallsBackToHex(t *testing.T) {
	buf := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	cur := tdf.NewCursor(buf)
	row, err := ReadRow(0xFFF, 4, cur)
	if err != nil {
		t.Fatalf("ReadRow error = %v", err)
	}
	if row != "deadbeef" {
		t.Errorf("ReadRow(unknown) = %q, want deadbeef", row)
	}
}

func TestReadRowScaledField(t *testing.T) {
	// AMBIENT_TEMPERATURE: i32LE milli-degrees, scaled by 1000.
	buf := []byte{0x88, 0x13, 0x00, 0x00} // 5000 milli-degrees = 5.0
	cur := tdf.NewCursor(buf)
	row, err := ReadRow(4, 4, cur)
	if err != nil {
		t.Fatalf("ReadRow error = %v", err)
	}
	if row != "5" {
		t.Errorf("ReadRow(4) = %q, want 5", row)
	}
}

func TestReadRowWifiConnectBigEndianMACs(t *testing.T) {
	buf := make([]byte, 0, 13)
	buf = append(buf, 0x00, 0x11, 0x22, 0x33, 0x44, 0x55) // bssid BE
	buf = append(buf, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB) // ap_mac BE
	buf = append(buf, 0xF6)                               // rssi i8 = -10
	cur := tdf.NewCursor(buf)
	row, err := ReadRow(20, uint8(len(buf)), cur)
	if err != nil {
		t.Fatalf("ReadRow error = %v", err)
	}
	want := "0x001122334455,0x66778899aabb,-10"
	if row != want {
		t.Errorf("ReadRow(20) = %q, want %q", row, want)
	}
}

func TestReadRowWifiSSIDTrimsAtNUL(t *testing.T) {
	buf := make([]byte, 32)
	copy(buf, "home-network")
	cur := tdf.NewCursor(buf)
	row, err := ReadRow(21, 32, cur)
	if err != nil {
		t.Fatalf("ReadRow error = %v", err)
	}
	if row != `"home-network"` {
		t.Errorf("ReadRow(21) = %q, want quoted home-network", row)
	}
}

func TestReadRowRawEventVariableLength(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03}
	cur := tdf.NewCursor(buf)
	row, err := ReadRow(22, 3, cur)
	if err != nil {
		t.Fatalf("ReadRow error = %v", err)
	}
	if row != "010203" {
		t.Errorf("ReadRow(22) = %q, want 010203", row)
	}
}
