// Package ppu models only the bookkeeping surface of the pixel processing
// unit: LY/STAT/SCX/SCY/LYC and friends as timestamp-derived registers.
// Pixel generation is an external collaborator's concern and is not
// implemented here.
package ppu

import (
	"bytes"
	"encoding/gob"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
)

const (
	scanlineDots   = 456
	totalScanlines = 154

	// FrameWidth and FrameHeight are the visible LCD dimensions.
	FrameWidth  = 160
	FrameHeight = 144
)

// PPU tracks LCDC/STAT/SCY/SCX/LY/LYC/BGP/OBP0/OBP1/WY/WX against the
// shared clock. LY advances lazily: catchUp folds clock.Now()-lastTimestamp
// into whole scanlines plus a leftover dot position, exactly mirroring how
// the Timer folds elapsed cycles into TIMA.
type PPU struct {
	clk *clock.Clock

	lastTimestamp uint64
	scanlineX     uint16

	lcdc, stat        byte
	scy, scx, ly, lyc byte
	bgp, obp0, obp1   byte
	wy, wx            byte

	// frame is the 2-bit-per-pixel output buffer a renderer would fill,
	// one byte per pixel, row-major. Nothing writes it in this core —
	// pixel generation is the external collaborator's job — but the
	// buffer is part of the PPU's surface so a host can blit it.
	frame [FrameWidth * FrameHeight]byte
}

// New wires a PPU to the shared clock.
func New(clk *clock.Clock) *PPU {
	p := &PPU{clk: clk}
	p.Reset()
	return p
}

// GetLcdc reads LCDC directly, with no catch-up — LCDC does not depend on
// elapsed time.
func (p *PPU) GetLcdc() byte { return p.lcdc }

// SetLcdc catches up, then stores LCDC.
func (p *PPU) SetLcdc(v byte) {
	p.catchUp()
	p.lcdc = v
}

// GetStat catches up, then returns STAT.
func (p *PPU) GetStat() byte {
	p.catchUp()
	return p.stat
}

// SetStat catches up, then stores STAT.
func (p *PPU) SetStat(v byte) {
	p.catchUp()
	p.stat = v
}

// GetLy catches up, then returns LY.
func (p *PPU) GetLy() byte {
	p.catchUp()
	return p.ly
}

// SetLy catches up, then stores LY directly. Real hardware resets LY to 0
// on any write; the source does not, and this core preserves that.
func (p *PPU) SetLy(v byte) {
	p.catchUp()
	p.ly = v
}

// GetLyc returns LYC.
func (p *PPU) GetLyc() byte { return p.lyc }

// SetLyc catches up, then stores LYC.
func (p *PPU) SetLyc(v byte) {
	p.catchUp()
	p.lyc = v
}

// GetScx returns SCX.
func (p *PPU) GetScx() byte { return p.scx }

// SetScx catches up, then stores SCX.
func (p *PPU) SetScx(v byte) {
	p.catchUp()
	p.scx = v
}

// GetScy returns SCY.
func (p *PPU) GetScy() byte { return p.scy }

// SetScy catches up, then stores SCY.
func (p *PPU) SetScy(v byte) {
	p.catchUp()
	p.scy = v
}

// GetBgp, GetObp0, GetObp1, GetWy, GetWx and their Set counterparts expose
// the remaining palette/window registers. None of these feed LY's
// derivation, so they are plain fields with no catch-up.
func (p *PPU) GetBgp() byte   { return p.bgp }
func (p *PPU) SetBgp(v byte)  { p.bgp = v }
func (p *PPU) GetObp0() byte  { return p.obp0 }
func (p *PPU) SetObp0(v byte) { p.obp0 = v }
func (p *PPU) GetObp1() byte  { return p.obp1 }
func (p *PPU) SetObp1(v byte) { p.obp1 = v }
func (p *PPU) GetWy() byte    { return p.wy }
func (p *PPU) SetWy(v byte)   { p.wy = v }
func (p *PPU) GetWx() byte    { return p.wx }
func (p *PPU) SetWx(v byte)   { p.wx = v }

// Frame returns the pixel output buffer, row-major, one byte per pixel.
func (p *PPU) Frame() []byte { return p.frame[:] }

// catchUp advances LY by delta/456 whole scanlines, wrapping modulo 154, and
// carries the remainder into scanlineX, wrapping modulo 456.
func (p *PPU) catchUp() {
	delta := p.clk.Now() - p.lastTimestamp
	p.lastTimestamp = p.clk.Now()

	total := uint64(p.scanlineX) + delta
	linesElapsed := total / scanlineDots
	p.scanlineX = uint16(total % scanlineDots)

	newLy := uint64(p.ly) + linesElapsed
	p.ly = byte(newLy % totalScanlines)
}

// Reset zeroes the timestamp, scanline position and LY/LYC. LCDC, STAT and
// the scroll/palette registers are left untouched, matching the original's
// reset behavior.
func (p *PPU) Reset() {
	p.lastTimestamp = 0
	p.scanlineX = 0
	p.ly = 0
	p.lyc = 0
	p.frame = [FrameWidth * FrameHeight]byte{}
}

type ppuState struct {
	LastTimestamp     uint64
	ScanlineX         uint16
	Lcdc, Stat        byte
	Scy, Scx, Ly, Lyc byte
	Bgp, Obp0, Obp1   byte
	Wy, Wx            byte
}

// SaveState gob-encodes every register and the scanline-position bookkeeping.
func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(ppuState{
		LastTimestamp: p.lastTimestamp, ScanlineX: p.scanlineX,
		Lcdc: p.lcdc, Stat: p.stat, Scy: p.scy, Scx: p.scx, Ly: p.ly, Lyc: p.lyc,
		Bgp: p.bgp, Obp0: p.obp0, Obp1: p.obp1, Wy: p.wy, Wx: p.wx,
	})
	return buf.Bytes()
}

// LoadState restores a snapshot captured by SaveState.
func (p *PPU) LoadState(data []byte) error {
	var st ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	p.lastTimestamp, p.scanlineX = st.LastTimestamp, st.ScanlineX
	p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc = st.Lcdc, st.Stat, st.Scy, st.Scx, st.Ly, st.Lyc
	p.bgp, p.obp0, p.obp1, p.wy, p.wx = st.Bgp, st.Obp0, st.Obp1, st.Wy, st.Wx
	return nil
}
