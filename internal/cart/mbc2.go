package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC2 implements cartridge types 0x05-0x06: up to 256 KiB ROM via a 4-bit
// bank register, and 512x4-bit built-in RAM (no external RAM chip). A
// single register window at 0x0000-0x3FFF is disambiguated by address bit
// 8: addresses with bit 8 clear are RAM-enable, addresses with bit 8 set select
// the ROM bank, per the MBC2 wiring documented for cartridge types
// 0x05/0x06 (grounded on the gomeboy cartridge-type table in the pack's
// other_examples).
type MBC2 struct {
	rom []byte
	ram [512]byte // 4-bit cells stored one per byte, upper nibble unused

	romBank    byte // 4 bits, 0 remapped to 1
	ramEnabled bool
	battery    bool
}

func NewMBC2(rom []byte, battery bool) *MBC2 {
	return &MBC2{rom: rom, romBank: 1, battery: battery}
}

func (m *MBC2) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		off := int(m.romBank)*0x4000 + int(addr-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return 0xF0 | (m.ram[int(addr-0xA000)%512] & 0x0F)
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value byte) {
	switch {
	case addr < 0x4000:
		if addr&0x0100 == 0 {
			// bit8 clear: RAM enable register
			m.ramEnabled = (value & 0x0F) == 0x0A
		} else {
			// bit8 set: ROM bank register (4 bits, 0 -> 1)
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		m.ram[int(addr-0xA000)%512] = value & 0x0F
	}
}

func (m *MBC2) HasBattery() bool { return m.battery }

func (m *MBC2) SaveRAM() []byte {
	out := make([]byte, 512)
	copy(out, m.ram[:])
	return out
}

func (m *MBC2) LoadRAM(data []byte) {
	n := copy(m.ram[:], data)
	_ = n
}

type mbc2State struct {
	RAM        [512]byte
	ROMBank    byte
	RAMEnabled bool
}

func (m *MBC2) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc2State{RAM: m.ram, ROMBank: m.romBank, RAMEnabled: m.ramEnabled})
	return buf.Bytes()
}

func (m *MBC2) LoadState(data []byte) {
	var s mbc2State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.ram, m.romBank, m.ramEnabled = s.RAM, s.ROMBank, s.RAMEnabled
}
