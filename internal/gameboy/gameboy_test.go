package gameboy

import (
	"os"
	"testing"
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// buildROM returns a minimal bootable 32 KiB, no-RAM cartridge image (valid
// logo and header checksum, so LoadROMFile accepts it) with program bytes
// installed at 0x0150 (right after the header) and a jump to it at the
// 0x0100 entry point, so programs longer than the 4-byte entry point don't
// overwrite the Nintendo logo at 0x0104.
func buildROM(program ...byte) []byte {
	rom := make([]byte, 32*1024)
	copy(rom[0x0104:], nintendoLogo[:])
	rom[0x0148] = 0 // 32 KiB
	rom[0x0149] = 0 // no external RAM

	copy(rom[0x0100:], []byte{0xC3, 0x50, 0x01}) // JP 0x0150

	var hsum byte = 25
	for addr := 0x0134; addr < 0x014D; addr++ {
		hsum += rom[addr]
	}
	rom[0x014D] = -hsum

	copy(rom[0x0150:], program)
	return rom
}

func writeROM(t *testing.T, program ...byte) string {
	t.Helper()
	path := t.TempDir() + "/test.gb"
	if err := os.WriteFile(path, buildROM(program...), 0o644); err != nil {
		t.Fatalf("write test rom: %v", err)
	}
	return path
}

func TestGameBoy_RejectsUnbootableROM(t *testing.T) {
	rom := buildROM(0x00)
	rom[0x0104] ^= 0xFF // corrupt the logo

	path := t.TempDir() + "/bad.gb"
	if err := os.WriteFile(path, rom, 0o644); err != nil {
		t.Fatalf("write test rom: %v", err)
	}

	gb := New()
	ok, err := gb.LoadROMFile(path)
	if err != nil {
		t.Fatalf("unexpected error for unbootable ROM: %v", err)
	}
	if ok {
		t.Fatalf("LoadROMFile accepted a ROM with a bad logo")
	}
	if gb.MMU.Cart != nil {
		t.Fatalf("unbootable ROM must not be attached to the MMU")
	}
}

func TestGameBoy_RunsProgramAndCapturesSerialOutput(t *testing.T) {
	path := writeROM(t,
		0x3E, 0x41, // LD A,'A'
		0xE0, 0x01, // LDH (0xFF01),A  (SB)
		0x18, 0xFE, // JR -2 (spin forever)
	)

	gb := New()
	if ok, err := gb.LoadROMFile(path); !ok {
		t.Fatalf("load rom: %v", err)
	}
	gb.SetPause(false)
	gb.RunFor(1000)

	buf := gb.Serial.Buffer()
	if len(buf) == 0 || buf[0] != 'A' {
		t.Fatalf("serial buffer got %v, want first byte 'A'", buf)
	}
}

func TestGameBoy_ResetInstallsPostBootState(t *testing.T) {
	gb := New()
	if gb.CPU.PC != 0x0100 || gb.CPU.SP != 0xFFFE {
		t.Fatalf("PC/SP got %#04x/%#04x want 0x0100/0xFFFE", gb.CPU.PC, gb.CPU.SP)
	}
	if gb.CPU.A != 0x11 || gb.CPU.F != 0x80 {
		t.Fatalf("AF got %02X%02X want 1180", gb.CPU.A, gb.CPU.F)
	}
	if !gb.Paused() {
		t.Fatalf("Reset should leave the machine paused, debugger-attached style")
	}
}

func TestGameBoy_StateSnapshotRoundTrip(t *testing.T) {
	path := writeROM(t,
		0x3E, 0x55, // LD A,0x55
		0x06, 0x66, // LD B,0x66
		0x18, 0xFE, // JR -2
	)

	gb := New()
	if ok, err := gb.LoadROMFile(path); !ok {
		t.Fatalf("load rom: %v", err)
	}
	gb.SetPause(false)
	gb.RunFor(20)

	snap, err := gb.CreateStateSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	wantA, wantB, wantPC := gb.CPU.A, gb.CPU.B, gb.CPU.PC

	gb.RunFor(1_000_000) // run far past the snapshot point
	if err := gb.RestoreStateSnapshot(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if gb.CPU.A != wantA || gb.CPU.B != wantB || gb.CPU.PC != wantPC {
		t.Fatalf("restored state A=%#02x B=%#02x PC=%#04x, want A=%#02x B=%#02x PC=%#04x",
			gb.CPU.A, gb.CPU.B, gb.CPU.PC, wantA, wantB, wantPC)
	}
}

func TestGameBoy_BreakpointPausesRunFor(t *testing.T) {
	path := writeROM(t,
		0x00,       // NOP @0x0150
		0x00,       // NOP @0x0151
		0x18, 0xFE, // JR -2 @0x0152
	)
	gb := New()
	if ok, err := gb.LoadROMFile(path); !ok {
		t.Fatalf("load rom: %v", err)
	}
	gb.CPU.SetBreakpoint(0x0152, true)
	gb.SetPause(false)

	gb.RunFor(1000)
	if !gb.Paused() {
		t.Fatalf("expected machine to pause at breakpoint")
	}
	if gb.CPU.PC != 0x0152 {
		t.Fatalf("PC got %#04x want 0x0152", gb.CPU.PC)
	}
}
