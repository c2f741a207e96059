package cart

import "testing"

func TestMBC5_ROMBanking_HighBank(t *testing.T) {
	rom := make([]byte, 8*1024*1024)
	rom[300*0x4000] = 0xCD
	m := NewMBC5(rom, 0, false)

	m.Write(0x2000, 300&0xFF)
	m.Write(0x3000, byte(300>>8))
	if got := m.Read(0x4000); got != 0xCD {
		t.Fatalf("bank300 read got %02X want CD", got)
	}
}

func TestMBC5_ROMBanking_ZeroIsLegal(t *testing.T) {
	rom := make([]byte, 128*1024)
	rom[0] = 0xAA
	m := NewMBC5(rom, 0, false)

	m.Write(0x2000, 0x00)
	m.Write(0x3000, 0x00)
	if got := m.Read(0x4000); got != 0xAA {
		t.Fatalf("bank0 should be selectable on MBC5, got %02X", got)
	}
}

func TestMBC5_RAMBanking(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC5(rom, 128*1024, true)

	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x0F)
	m.Write(0xA000, 0x99)
	if got := m.Read(0xA000); got != 0x99 {
		t.Fatalf("RAM bank15 RW failed: got %02X", got)
	}
}

func TestMBC5_BatteryRoundTrip(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC5(rom, 8*1024, true)
	if !m.HasBattery() {
		t.Fatalf("expected HasBattery true")
	}
	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x21)

	saved := m.SaveRAM()
	m2 := NewMBC5(rom, 8*1024, true)
	m2.LoadRAM(saved)
	m2.Write(0x0000, 0x0A)
	if got := m2.Read(0xA000); got != 0x21 {
		t.Fatalf("restored RAM got %02X want 21", got)
	}
}
