package cart

import "fmt"

// InvalidRomSizeError reports a ROM buffer too small to contain a header,
// or shorter than the size the header itself declares.
type InvalidRomSizeError struct {
	Got  int
	Want int
}

func (e *InvalidRomSizeError) Error() string {
	return fmt.Sprintf("cart: invalid ROM size: got %d bytes, want at least %d", e.Got, e.Want)
}

// BadHeaderChecksumError reports a header whose checksum byte at 0x014D
// does not match the Pan Docs checksum of 0x0134-0x014C. Non-fatal by
// default; Config.StrictHeader in the emu package upgrades it to fatal.
type BadHeaderChecksumError struct {
	Got  byte
	Want byte
}

func (e *BadHeaderChecksumError) Error() string {
	return fmt.Sprintf("cart: bad header checksum: computed %#02x, header says %#02x", e.Got, e.Want)
}

// UnsupportedMBCError reports a cartridge-type byte this core does not
// implement a banking scheme for.
type UnsupportedMBCError struct {
	Type byte
}

func (e *UnsupportedMBCError) Error() string {
	return fmt.Sprintf("cart: unsupported cartridge type %#02x", e.Type)
}
