package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC3 implements cartridge types 0x0F-0x13: up to 2 MiB ROM via a 7-bit
// bank register, up to 32 KiB external RAM, and an optional real-time-clock
// (RTC) register file selected through the same 0x4000-0x5FFF window used
// for RAM banking. RTC registers free-run off emulator cycles fed through
// Tick; there is no live wall-clock source in the core's public contract.
//
// Register map (0x4000-0x5FFF value):
//
//	0x00-0x03  RAM bank 0-3
//	0x08       RTC seconds
//	0x09       RTC minutes
//	0x0A       RTC hours
//	0x0B       RTC day counter low 8 bits
//	0x0C       RTC day counter high bit + halt flag (bit6) + day carry (bit7)
//
// A 0x00->0x01 write to 0x6000-0x7FFF latches the live RTC registers into a
// second, CPU-visible copy (Pan Docs "latch clock data").
type MBC3 struct {
	rom []byte
	ram []byte

	ramEnabled bool
	romBank    byte // 7 bits, 0 remapped to 1
	regSel     byte // 0x00-0x03 RAM bank, or 0x08-0x0C RTC register

	hasRTC  bool
	battery bool

	rtc       [5]byte // S, M, H, DL, DH (live)
	rtcLatch  [5]byte // snapshot visible to reads until the next latch
	latchPrev byte
	cycleAcc  int
}

func NewMBC3(rom []byte, ramSize int, hasRTC, battery bool) *MBC3 {
	m := &MBC3{rom: rom, romBank: 1, hasRTC: hasRTC, battery: battery}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *MBC3) Read(addr uint16) byte {
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
		if m.hasRTC && m.regSel >= 0x08 && m.regSel <= 0x0C {
			return m.rtcLatch[m.regSel-0x08]
		}
		if m.regSel <= 0x03 && len(m.ram) > 0 {
			off := int(m.regSel)*0x2000 + int(addr-0xA000)
			if off >= 0 && off < len(m.ram) {
				return m.ram[off]
			}
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC3) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		m.regSel = value
	case addr < 0x8000:
		if m.hasRTC && m.latchPrev == 0x00 && value == 0x01 {
			m.rtcLatch = m.rtc
		}
		m.latchPrev = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.hasRTC && m.regSel >= 0x08 && m.regSel <= 0x0C {
			m.rtc[m.regSel-0x08] = value
			return
		}
		if m.regSel <= 0x03 && len(m.ram) > 0 {
			off := int(m.regSel)*0x2000 + int(addr-0xA000)
			if off >= 0 && off < len(m.ram) {
				m.ram[off] = value
			}
		}
	}
}

// Tick advances the RTC by the given number of emulator cycles (the core
// runs at 4.194304 MHz), rolling seconds/minutes/hours/days and setting the
// day-carry bit (DH bit 7) on overflow past day 511. No-op when the cart has
// no RTC, or the halt bit (DH bit 6) is set.
func (m *MBC3) Tick(cycles int) {
	if !m.hasRTC || cycles <= 0 || m.rtc[4]&0x40 != 0 {
		return
	}
	const cyclesPerSecond = 4194304
	m.cycleAcc += cycles
	for m.cycleAcc >= cyclesPerSecond {
		m.cycleAcc -= cyclesPerSecond
		m.rtc[0]++
		if m.rtc[0] < 60 {
			continue
		}
		m.rtc[0] = 0
		m.rtc[1]++
		if m.rtc[1] < 60 {
			continue
		}
		m.rtc[1] = 0
		m.rtc[2]++
		if m.rtc[2] < 24 {
			continue
		}
		m.rtc[2] = 0
		day := int(m.rtc[3]) | int(m.rtc[4]&0x01)<<8
		day++
		if day > 511 {
			day = 0
			m.rtc[4] |= 0x80
		}
		m.rtc[3] = byte(day)
		m.rtc[4] = (m.rtc[4] &^ 0x01) | byte((day>>8)&0x01)
	}
}

func (m *MBC3) HasBattery() bool { return m.battery }

func (m *MBC3) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}

type mbc3State struct {
	RAM           []byte
	RAMEnabled    bool
	ROMBank       byte
	RegSel        byte
	RTC, RTCLatch [5]byte
	LatchPrev     byte
	CycleAcc      int
}

func (m *MBC3) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc3State{
		RAM: m.ram, RAMEnabled: m.ramEnabled, ROMBank: m.romBank, RegSel: m.regSel,
		RTC: m.rtc, RTCLatch: m.rtcLatch, LatchPrev: m.latchPrev, CycleAcc: m.cycleAcc,
	})
	return buf.Bytes()
}

func (m *MBC3) LoadState(data []byte) {
	var s mbc3State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	copy(m.ram, s.RAM)
	m.ramEnabled, m.romBank, m.regSel = s.RAMEnabled, s.ROMBank, s.RegSel
	m.rtc, m.rtcLatch, m.latchPrev, m.cycleAcc = s.RTC, s.RTCLatch, s.LatchPrev, s.CycleAcc
}
