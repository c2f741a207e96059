// Package cart implements the DMG cartridge header and the memory-bank
// controllers (MBCs) that virtualize ROM/RAM banking in the 0x0000-0x7FFF
// and 0xA000-0xBFFF bus windows.
package cart

// Cartridge is the minimal interface the Bus needs for ROM/RAM banking.
// Implementations are ROM-only or one of the MBC variants; addresses are
// CPU addresses (0x0000-0x7FFF for ROM, 0xA000-0xBFFF for external RAM).
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)

	// SaveState/LoadState serialize internal banking registers and
	// external RAM, for the bus-level snapshot format.
	SaveState() []byte
	LoadState(data []byte)
}

// BatteryBacked is implemented by cartridges with battery-backed external
// RAM. SaveRAM/LoadRAM exchange the raw RAM image only (no banking state),
// matching spec's persisted-state contract: hosts persist the cartridge RAM
// buffer verbatim, independent of the bus's internal snapshot format.
type BatteryBacked interface {
	HasBattery() bool
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New picks an implementation based on the ROM header's cartridge-type byte
// (0x0147). Unrecognized types fall back to ROM-only so malformed headers
// still run as far as they can; NewStrict returns UnsupportedMBCError
// instead of substituting silently.
func New(rom []byte) Cartridge {
	c, _ := NewStrict(rom)
	return c
}

// NewStrict behaves like New but returns *UnsupportedMBCError for cartridge
// types this core does not implement a banking scheme for.
func NewStrict(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom), err
	}
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom), nil
	case 0x08, 0x09:
		return NewROMRAM(rom, h.RAMSizeBytes), nil
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes, h.CartType != 0x01), nil
	case 0x05, 0x06:
		return NewMBC2(rom, h.CartType == 0x06), nil
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		hasRTC := h.CartType == 0x0F || h.CartType == 0x10
		hasBattery := h.CartType == 0x0F || h.CartType == 0x10 || h.CartType == 0x13
		return NewMBC3(rom, h.RAMSizeBytes, hasRTC, hasBattery), nil
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		hasBattery := h.CartType == 0x1B || h.CartType == 0x1E
		return NewMBC5(rom, h.RAMSizeBytes, hasBattery), nil
	default:
		return NewROMOnly(rom), &UnsupportedMBCError{Type: h.CartType}
	}
}

// NewCartridge is the scaffold-era name kept for existing callers.
func NewCartridge(rom []byte) Cartridge { return New(rom) }
