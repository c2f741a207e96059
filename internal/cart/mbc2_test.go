package cart

import "testing"

func TestMBC2_ROMBanking(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom, false)

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank1 read got %02X want 01", got)
	}
	m.Write(0x0100, 0x05) // bit8 set selects ROM bank
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}
	m.Write(0x0100, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC2_BuiltinRAM_NibbleWidth(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC2(rom, false)

	m.Write(0x0000, 0x0A) // bit8 clear: RAM enable
	m.Write(0xA000, 0xFF)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("4-bit cell with upper nibble forced to F got %02X want FF", got)
	}
	m.Write(0xA000, 0x07)
	if got := m.Read(0xA000); got != 0xF7 {
		t.Fatalf("upper nibble not forced to F: got %02X want F7", got)
	}
}

func TestMBC2_RAMEchoesAcross512(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC2(rom, false)
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x03)
	if got := m.Read(0xA200); got != 0xF3 {
		t.Fatalf("expected echo of 512-nibble RAM at +0x200, got %02X", got)
	}
}

func TestMBC2_RAMDisabledReadsFF(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC2(rom, false)
	m.Write(0xA000, 0x03) // ignored, RAM not enabled
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM read got %02X want FF", got)
	}
}

func TestMBC2_BatteryRoundTrip(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC2(rom, true)
	if !m.HasBattery() {
		t.Fatalf("expected HasBattery true")
	}
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x09)

	saved := m.SaveRAM()
	m2 := NewMBC2(rom, true)
	m2.LoadRAM(saved)
	m2.Write(0x0000, 0x0A)
	if got := m2.Read(0xA000); got != 0xF9 {
		t.Fatalf("restored RAM got %02X want F9", got)
	}
}
