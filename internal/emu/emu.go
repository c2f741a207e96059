// Package emu wires the CPU, Bus, and cartridge loader into the frame
// driver a host actually calls: load a ROM, advance whole frames, read back
// pixels and inject input, persist battery RAM.
package emu

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/dmgcore/gbcore/internal/bus"
	"github.com/dmgcore/gbcore/internal/cart"
	"github.com/dmgcore/gbcore/internal/cpu"
)

// cyclesPerFrame is 456 dots/line * 154 lines.
const cyclesPerFrame = 70224

// Buttons is the 8-key input surface; true means pressed.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	return m
}

// dmgShades is the fixed four-shade palette the framebuffer's palette
// indices map through when expanded to RGBA, lightest (0) to darkest (3).
var dmgShades = [4][3]byte{
	{0xE0, 0xF8, 0xD0},
	{0x88, 0xC0, 0x70},
	{0x34, 0x68, 0x56},
	{0x08, 0x18, 0x20},
}

// Machine is the host-facing emulator: cartridge + CPU + Bus, advanced one
// frame at a time.
type Machine struct {
	cfg Config

	bus *bus.Bus
	cpu *cpu.CPU

	romPath  string
	romTitle string
	bootROM  []byte

	fb []byte // RGBA, 160*144*4
}

// New constructs a Machine with a blank ROM-only cartridge loaded; callers
// normally follow up with LoadCartridge or LoadROMFromFile.
func New(cfg Config) *Machine {
	m := &Machine{cfg: cfg, fb: make([]byte, 160*144*4)}
	m.bus = bus.New(make([]byte, 0x8000))
	m.cpu = cpu.New(m.bus)
	m.cpu.ResetNoBoot()
	m.applyConfig()
	return m
}

func (m *Machine) applyConfig() {
	m.bus.PPU().SetLayerDisable(m.cfg.DisableBackground, m.cfg.DisableWindow, m.cfg.DisableSprites)
	if m.cfg.SerialWriter != nil {
		m.bus.SetSerialWriter(m.cfg.SerialWriter)
	}
}

// SetBootROM stashes a DMG boot ROM image to be applied by the next
// LoadCartridge/LoadROMFromFile call.
func (m *Machine) SetBootROM(data []byte) { m.bootROM = data }

// applyPostBootDefaults writes the documented DMG post-boot IO register
// values directly, for the no-boot-ROM path.
func (m *Machine) applyPostBootDefaults() {
	b := m.bus
	b.Write(0xFF00, 0xCF)
	b.Write(0xFF05, 0x00) // TIMA
	b.Write(0xFF06, 0x00) // TMA
	b.Write(0xFF07, 0x00) // TAC
	b.Write(0xFF40, 0x91) // LCDC on, BG+sprites on
	b.Write(0xFF42, 0x00) // SCY
	b.Write(0xFF43, 0x00) // SCX
	b.Write(0xFF45, 0x00) // LYC
	b.Write(0xFF47, 0xFC) // BGP
	b.Write(0xFF48, 0xFF) // OBP0
	b.Write(0xFF49, 0xFF) // OBP1
	b.Write(0xFF4A, 0x00) // WY
	b.Write(0xFF4B, 0x00) // WX
	b.Write(0xFFFF, 0x00) // IE
}

// LoadCartridge parses rom's header, builds the matching MBC, and resets
// the CPU either into a provided boot ROM or directly to the documented
// DMG post-boot state. A bad header checksum is logged and tolerated unless
// Config.StrictHeader is set, in which case it is returned as an error. An
// unrecognized MBC type falls back to ROM-only banking with a log line
// rather than failing the load.
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	h, err := cart.ParseHeader(rom)
	if err != nil {
		return err
	}
	if !h.ChecksumOK {
		cerr := &cart.BadHeaderChecksumError{Got: cart.ComputeHeaderChecksum(rom), Want: h.HeaderChecksum}
		if m.cfg.StrictHeader {
			return cerr
		}
		log.Printf("emu: %v", cerr)
	}

	b, cerr := bus.NewStrict(rom)
	if cerr != nil {
		var unsupported *cart.UnsupportedMBCError
		if !errors.As(cerr, &unsupported) {
			return cerr
		}
		log.Printf("emu: %v; falling back to ROM-only banking", cerr)
	}

	m.bus = b
	m.cpu = cpu.New(m.bus)
	m.romTitle = h.Title

	if boot != nil {
		m.bootROM = boot
	}
	if len(m.bootROM) >= 0x100 {
		m.bus.SetBootROM(m.bootROM)
		m.cpu.SetPC(0x0000)
	} else {
		m.cpu.ResetNoBoot()
		m.cpu.SetPC(0x0100)
		m.applyPostBootDefaults()
	}
	m.applyConfig()
	return nil
}

// LoadROMFromFile reads path and loads it as a cartridge, recording the
// path so ROMPath can report it back to the host.
func (m *Machine) LoadROMFromFile(path string) error {
	rom, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := m.LoadCartridge(rom, m.bootROM); err != nil {
		return err
	}
	if abs, err := filepath.Abs(path); err == nil {
		m.romPath = abs
	} else {
		m.romPath = path
	}
	return nil
}

// ROMPath returns the path LoadROMFromFile was called with, or "".
func (m *Machine) ROMPath() string { return m.romPath }

// ROMTitle returns the cartridge header title of the last loaded ROM.
func (m *Machine) ROMTitle() string { return m.romTitle }

// SetSerialWriter sets a sink for bytes written to the serial port.
func (m *Machine) SetSerialWriter(w io.Writer) {
	m.cfg.SerialWriter = w
	m.bus.SetSerialWriter(w)
}

// SetButtons sets which of the 8 input keys are currently held.
func (m *Machine) SetButtons(b Buttons) { m.bus.SetJoypadState(b.mask()) }

// SetUseFetcherBG is kept for API parity with the teacher's Config surface;
// the fetcher-based scanline renderer is the only BG rendering path, so this
// is a no-op retained for callers built against the older toggle.
func (m *Machine) SetUseFetcherBG(v bool) { m.cfg.UseFetcherBG = v }

// Reset reloads the currently loaded ROM from disk, power-cycling the
// machine. It is a no-op if no ROM was loaded via LoadROMFromFile.
func (m *Machine) Reset() error {
	if m.romPath == "" {
		return nil
	}
	return m.LoadROMFromFile(m.romPath)
}

// stepCycles advances the CPU/Bus until at least n cycles have elapsed,
// returning the actual number consumed (always >= n, since instructions are
// not interruptible mid-execution).
func (m *Machine) stepCycles(n int) int {
	total := 0
	for total < n {
		total += m.cpu.Step()
	}
	return total
}

// StepFrame advances one full frame (70224 cycles) and refreshes the RGBA
// framebuffer returned by Framebuffer.
func (m *Machine) StepFrame() {
	m.stepCycles(cyclesPerFrame)
	m.renderRGBA()
}

// StepFrameNoRender advances one frame's worth of cycles without paying for
// the palette-index-to-RGBA conversion; useful for headless test-ROM runs
// that only care about serial output.
func (m *Machine) StepFrameNoRender() {
	m.stepCycles(cyclesPerFrame)
}

func (m *Machine) renderRGBA() {
	src := m.bus.PPU().Framebuffer()
	for y := 0; y < 144; y++ {
		for x := 0; x < 160; x++ {
			shade := dmgShades[src[y][x]&0x03]
			i := (y*160 + x) * 4
			m.fb[i+0] = shade[0]
			m.fb[i+1] = shade[1]
			m.fb[i+2] = shade[2]
			m.fb[i+3] = 0xFF
		}
	}
}

// Framebuffer returns the most recently rendered frame as RGBA8888,
// 160x144, row-major. The caller must not retain the reference past the
// next StepFrame call.
func (m *Machine) Framebuffer() []byte { return m.fb }

// Fault reports the illegal opcode that halted the CPU, if any.
func (m *Machine) Fault() *cpu.IllegalOpcodeError { return m.cpu.Fault() }

// CPU exposes the underlying SM83 interpreter for callers that need
// per-instruction control (tracing harnesses, conformance runners) beyond
// the whole-frame StepFrame contract.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Bus exposes the underlying address bus for the same diagnostic callers
// CPU serves: reading IF/IE directly, inspecting device state mid-run.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// SaveBattery returns the cartridge's battery-backed RAM image, if any.
func (m *Machine) SaveBattery() ([]byte, bool) {
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok || !bb.HasBattery() {
		return nil, false
	}
	return bb.SaveRAM(), true
}

// LoadBattery restores a previously saved battery RAM image.
func (m *Machine) LoadBattery(data []byte) bool {
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok || !bb.HasBattery() {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// SaveState serializes the full internal machine state (Bus, PPU,
// cartridge banking registers, and RAM) for debugging or quick-save use; it
// is not compatible with any other emulator's save-state format.
func (m *Machine) SaveState() []byte { return m.bus.SaveState() }

// LoadState restores state captured by SaveState.
func (m *Machine) LoadState(data []byte) { m.bus.LoadState(data) }
