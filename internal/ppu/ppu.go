package ppu

import (
	"bytes"
	"encoding/gob"
)

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

// LineCapture snapshots per-scanline derived state for inspection and
// tests; WinLine is the internal window-line counter value used when the
// window layer was rendered for that scanline (0 if the window was not
// visible on that line).
type LineCapture struct {
	WinLine byte
}

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, and scanline rendering into
// a 160x144 palette-indexed framebuffer (one byte per pixel, values 0-3).
// It exposes CPU-facing Read/Write for VRAM/OAM and PPU IO regs.
type PPU struct {
	// memory
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	// regs
	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within current line [0..455]

	fb             [144][160]byte // palette-indexed framebuffer, final shade per pixel
	winLineCounter int
	lineCaptures   [144]LineCapture

	disableBG, disableWindow, disableSprites bool

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// SetLayerDisable lets a host force individual layers off, for debugging and
// test-ROM isolation; it does not affect LCDC's own enable bits.
func (p *PPU) SetLayerDisable(bg, window, sprites bool) {
	p.disableBG, p.disableWindow, p.disableSprites = bg, window, sprites
}

// Read gives the internal scanline renderer unrestricted VRAM access,
// bypassing the mode-3/mode-2 CPU access blocking that CPURead enforces.
// It satisfies the VRAMReader interface used by the fetcher and scanline helpers.
func (p *PPU) Read(addr uint16) byte {
	if addr < 0x8000 || addr > 0x9FFF {
		return 0xFF
	}
	return p.vram[addr-0x8000]
}

// Framebuffer returns the most recently rendered frame: 144 rows of 160
// palette-indexed pixels (0-3), already composited through BGP/OBP0/OBP1.
func (p *PPU) Framebuffer() *[144][160]byte { return &p.fb }

// LineRegs returns the captured per-scanline state for the given LY.
func (p *PPU) LineRegs(ly int) LineCapture {
	if ly < 0 || ly >= 144 {
		return LineCapture{}
	}
	return p.lineCaptures[ly]
}

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		// VRAM is inaccessible to CPU during mode 3 (return 0xFF)
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		// OAM is inaccessible during modes 2 and 3
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		// On DMG, bit7 reads as 1; bit6..3 are enables; bit2 coincidence; bit1..0 mode
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			// Turning LCD off resets LY/mode
			p.ly = 0
			p.dot = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			// Turning LCD on: start at LY=0, mode 2 (OAM)
			p.ly = 0
			p.dot = 0
			p.winLineCounter = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.dot = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU state by the given number of dots (CPU cycles).
func (p *PPU) Tick(cycles int) {
	if cycles <= 0 {
		return
	}
	for i := 0; i < cycles; i++ {
		if (p.lcdc & 0x80) == 0 { // LCD off
			continue
		}
		p.dot++
		// Mode scheduling
		var mode byte
		if p.ly >= 144 {
			mode = 1
		} else {
			switch {
			case p.dot < 80:
				mode = 2
			case p.dot < 80+172:
				mode = 3
			default:
				mode = 0
			}
		}
		p.setMode(mode)

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				// Enter VBlank
				if p.req != nil {
					p.req(0)
				} // VBlank IF
				if (p.stat & (1 << 4)) != 0 {
					if p.req != nil {
						p.req(1)
					}
				} // STAT VBlank
			} else if p.ly > 153 {
				p.ly = 0
				p.winLineCounter = 0
			}
			p.updateLYC()
			// Set mode for new line start (dot=0)
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 3: // Drawing: render the scanline's pixels now, as if fetched
		// in one shot rather than pixel-by-pixel through the FIFO.
		if p.ly < 144 {
			p.renderScanline(p.ly)
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// renderScanline computes the final 160-pixel row for ly: background, then
// window (overwriting background where visible), then sprites composited
// on top per DMG priority rules, each layer mapped through its own
// palette register to produce the stored shade (0-3).
func (p *PPU) renderScanline(ly byte) {
	var bgci [160]byte
	if p.lcdc&0x01 != 0 && !p.disableBG {
		mapBase := uint16(0x9800)
		if p.lcdc&0x08 != 0 {
			mapBase = 0x9C00
		}
		bgci = RenderBGScanlineUsingFetcher(p, mapBase, p.lcdc&0x10 != 0, p.scx, p.scy, ly)
	}

	var lc LineCapture
	winVisible := p.lcdc&0x20 != 0 && ly >= p.wy && p.wx <= 166 && !p.disableWindow
	if winVisible {
		winLine := byte(p.winLineCounter)
		lc.WinLine = winLine
		wmapBase := uint16(0x9800)
		if p.lcdc&0x40 != 0 {
			wmapBase = 0x9C00
		}
		wxStart := int(p.wx) - 7
		wci := RenderWindowScanlineUsingFetcher(p, wmapBase, p.lcdc&0x10 != 0, wxStart, winLine)
		for x := wxStart; x < 160; x++ {
			if x < 0 {
				continue
			}
			bgci[x] = wci[x]
		}
		p.winLineCounter++
	}
	p.lineCaptures[ly] = lc

	var spriteCi [160]byte
	var useObp1, spriteWritten [160]bool
	if p.lcdc&0x02 != 0 && !p.disableSprites {
		sprites := p.scanSpritesForLine(ly)
		spriteCi, useObp1, spriteWritten = composeSpriteLineFull(p, sprites, ly, bgci, p.lcdc&0x04 != 0)
	}

	for x := 0; x < 160; x++ {
		if spriteWritten[x] {
			obp := p.obp0
			if useObp1[x] {
				obp = p.obp1
			}
			p.fb[ly][x] = applyPalette(obp, spriteCi[x])
			continue
		}
		p.fb[ly][x] = applyPalette(p.bgp, bgci[x])
	}
}

// scanSpritesForLine scans OAM in index order and returns up to 10 sprites
// whose vertical span contains ly, translated to screen-space coordinates.
func (p *PPU) scanSpritesForLine(ly byte) []Sprite {
	height := 8
	if p.lcdc&0x04 != 0 {
		height = 16
	}
	var found []Sprite
	for i := 0; i < 40 && len(found) < 10; i++ {
		base := i * 4
		oamY := p.oam[base]
		oamX := p.oam[base+1]
		tile := p.oam[base+2]
		attr := p.oam[base+3]
		screenY := int(oamY) - 16
		if int(ly) < screenY || int(ly) >= screenY+height {
			continue
		}
		found = append(found, Sprite{
			X: int(oamX) - 8, Y: screenY, Tile: tile, Attr: attr, OAMIndex: i,
		})
	}
	return found
}

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }

type ppuState struct {
	VRAM                                 [0x2000]byte
	OAM                                  [0xA0]byte
	LCDC, STAT, SCY, SCX, LY, LYC        byte
	BGP, OBP0, OBP1, WY, WX              byte
	Dot, WinLineCounter                  int
	FB                                   [144][160]byte
}

func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(ppuState{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat, SCY: p.scy, SCX: p.scx, LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1, WY: p.wy, WX: p.wx,
		Dot: p.dot, WinLineCounter: p.winLineCounter, FB: p.fb,
	})
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.vram, p.oam = s.VRAM, s.OAM
	p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc = s.LCDC, s.STAT, s.SCY, s.SCX, s.LY, s.LYC
	p.bgp, p.obp0, p.obp1, p.wy, p.wx = s.BGP, s.OBP0, s.OBP1, s.WY, s.WX
	p.dot, p.winLineCounter, p.fb = s.Dot, s.WinLineCounter, s.FB
}
