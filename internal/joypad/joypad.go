// Package joypad implements the DMG JOYP register: two 4-bit active-low
// input rows (D-Pad and buttons) selected via bits 4/5, with an
// edge-triggered interrupt request on any 1->0 transition of the selected
// lower nibble.
package joypad

// Button bitmasks for SetState. Bits set mean "currently pressed".
const (
	Right = 1 << iota
	Left
	Up
	Down
	A
	B
	SelectButton
	Start
)

// Joypad tracks the JOYP selection bits and the host-reported button state.
type Joypad struct {
	Sel    byte // last-written selection bits (5-4)
	State  byte // bitmask of pressed buttons
	lower4 byte // last computed active-low nibble, for edge detection

	req func() // called to request IF bit 4 (Joypad) on a falling edge
}

func New(req func()) *Joypad { return &Joypad{req: req, lower4: 0x0F} }

// WriteSelect updates the P15/P14 selection bits and re-evaluates the
// interrupt edge, since changing selection can itself reveal a pressed
// button as a falling edge.
func (j *Joypad) WriteSelect(v byte) {
	j.Sel = v & 0x30
	j.refresh()
}

// SetState sets which buttons are currently pressed (bits from the const
// block above; set means pressed) and re-evaluates the interrupt edge.
func (j *Joypad) SetState(mask byte) {
	j.State = mask
	j.refresh()
}

// Read returns the JOYP byte: bits 7-6 read as 1, bits 5-4 reflect the
// last-written selection, bits 3-0 are the active-low nibble for whichever
// row(s) are selected.
func (j *Joypad) Read() byte {
	return 0xC0 | (j.Sel & 0x30) | j.lower4
}

func (j *Joypad) refresh() {
	newLower := j.computeLower()
	falling := j.lower4 &^ newLower
	if falling != 0 && j.req != nil {
		j.req()
	}
	j.lower4 = newLower
}

func (j *Joypad) computeLower() byte {
	out := byte(0x0F)
	if j.Sel&0x10 == 0 { // P14 low selects D-Pad
		if j.State&Right != 0 {
			out &^= 0x01
		}
		if j.State&Left != 0 {
			out &^= 0x02
		}
		if j.State&Up != 0 {
			out &^= 0x04
		}
		if j.State&Down != 0 {
			out &^= 0x08
		}
	}
	if j.Sel&0x20 == 0 { // P15 low selects buttons
		if j.State&A != 0 {
			out &^= 0x01
		}
		if j.State&B != 0 {
			out &^= 0x02
		}
		if j.State&SelectButton != 0 {
			out &^= 0x04
		}
		if j.State&Start != 0 {
			out &^= 0x08
		}
	}
	return out
}

// Snapshot is the serializable state used by the bus's save-state format.
type Snapshot struct {
	Sel, State, Lower4 byte
}

func (j *Joypad) Snapshot() Snapshot { return Snapshot{j.Sel, j.State, j.lower4} }

func (j *Joypad) Restore(s Snapshot) { j.Sel, j.State, j.lower4 = s.Sel, s.State, s.Lower4 }
