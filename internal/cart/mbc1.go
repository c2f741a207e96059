package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC1 implements cartridge types 0x01-0x03: ROM banking up to 2 MiB via a
// 5-bit primary bank register plus a 2-bit secondary register, and up to
// 32 KiB of external RAM gated by an enable latch.
type MBC1 struct {
	rom []byte
	ram []byte

	bank1      byte // lower 5 bits of the ROM bank number; 0 is remapped to 1
	bank2      byte // upper 2 bits: either ROM-bank high bits or RAM bank, per mode
	ramEnabled bool
	mode       byte // 0: ROM banking (default), 1: RAM banking / large-ROM bank-0 aliasing

	battery bool
}

func NewMBC1(rom []byte, ramSize int, battery bool) *MBC1 {
	m := &MBC1{rom: rom, bank1: 1, battery: battery}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		bank := 0
		if m.mode == 1 {
			bank = int(m.bank2&0x03) << 5
		}
		off := bank*0x4000 + int(addr)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr < 0x8000:
		off := int(m.effectiveROMBank())*0x4000 + int(addr-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		off := m.ramOffset(addr)
		if off >= 0 && off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		m.bank1 = value & 0x1F
		if m.bank1 == 0 {
			m.bank1 = 1
		}
	case addr < 0x6000:
		m.bank2 = value & 0x03
	case addr < 0x8000:
		m.mode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		off := m.ramOffset(addr)
		if off >= 0 && off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

// effectiveROMBank computes the bank visible at 0x4000-0x7FFF. bank1 is
// never 0 (forced to 1 on write), so the combination with bank2 naturally
// produces the documented 0x21/0x41/0x61 aliasing whenever bank1's low 5
// bits were written as 0: never a literal bank 0 at this window.
func (m *MBC1) effectiveROMBank() byte {
	return m.bank1 | (m.bank2 << 5)
}

func (m *MBC1) ramOffset(addr uint16) int {
	bank := 0
	if m.mode == 1 {
		bank = int(m.bank2 & 0x03)
	}
	return bank*0x2000 + int(addr-0xA000)
}

func (m *MBC1) HasBattery() bool { return m.battery }

func (m *MBC1) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

type mbc1State struct {
	RAM            []byte
	Bank1, Bank2   byte
	RAMEnabled     bool
	Mode           byte
}

func (m *MBC1) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc1State{
		RAM: m.ram, Bank1: m.bank1, Bank2: m.bank2,
		RAMEnabled: m.ramEnabled, Mode: m.mode,
	})
	return buf.Bytes()
}

func (m *MBC1) LoadState(data []byte) {
	var s mbc1State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	copy(m.ram, s.RAM)
	m.bank1, m.bank2, m.ramEnabled, m.mode = s.Bank1, s.Bank2, s.RAMEnabled, s.Mode
}
