// Package mmu decodes the 16-bit CPU address space onto ROM/VRAM/ERAM/WRAM
// banks, OAM, HRAM, the IE register and the memory-mapped I/O registers of
// the Timer, InterruptScheduler, PPU and Serial peers.
package mmu

import (
	"bytes"
	"encoding/gob"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/interrupt"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/serial"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/timer"
)

// MMU owns the RAM regions that aren't delegated to a peer, and holds
// non-owning back-references to the peers that own everything else.
type MMU struct {
	Cart *cart.Cartridge // nil until LoadCartridge is called

	timer *timer.Timer
	sched *interrupt.Scheduler
	ppu   *ppu.PPU
	ser   *serial.Serial

	vram [0x4000]byte // two 8 KiB banks; bank 0 is the only one ever selected
	wram [0x8000]byte // eight 4 KiB banks; bank 0 fixed, bank 1 the only selectable one ever wired
	oam  [0xA0]byte
	hram [0x7F]byte
	ie   byte
}

// New wires an MMU to its peripheral peers. The cartridge is attached
// later via LoadCartridge.
func New(t *timer.Timer, sched *interrupt.Scheduler, p *ppu.PPU, ser *serial.Serial) *MMU {
	m := &MMU{timer: t, sched: sched, ppu: p, ser: ser}
	m.Reset()
	return m
}

// LoadCartridge attaches a parsed cartridge. Until this is called, ROM and
// ERAM reads return 0xFF and writes are no-ops.
func (m *MMU) LoadCartridge(c *cart.Cartridge) { m.Cart = c }

// Read decodes addr per the address map and returns the resulting byte.
func (m *MMU) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if m.Cart == nil {
			return 0xFF
		}
		return m.Cart.LoadROM(addr)
	case addr < 0xA000:
		return m.vram[addr-0x8000]
	case addr < 0xC000:
		if m.Cart == nil {
			return 0xFF
		}
		return m.Cart.LoadERAM(addr - 0xA000)
	case addr < 0xD000:
		return m.wram[addr-0xC000]
	case addr < 0xE000:
		return m.wram[addr-0xC000]
	case addr < 0xFE00:
		return m.wram[addr-0xE000]
	case addr < 0xFEA0:
		return m.oam[addr-0xFE00]
	case addr < 0xFF00:
		// Prohibited region: high nibble of the low byte, replicated.
		return byte((addr>>4)&0xF) * 0x11
	case addr == 0xFFFF:
		return m.ie
	case addr > 0xFF7F:
		return m.hram[addr-0xFF80]
	}

	switch addr & 0xFF {
	case 0x01:
		return m.ser.GetSb()
	case 0x02:
		return m.ser.GetSc()
	case 0x04:
		return m.timer.GetDiv()
	case 0x05:
		return m.timer.GetTima()
	case 0x06:
		return m.timer.GetTma()
	case 0x07:
		return m.timer.GetTac()
	case 0x0F:
		return m.sched.GetIF()
	case 0x40:
		return m.ppu.GetLcdc()
	case 0x41:
		return m.ppu.GetStat()
	case 0x42:
		return m.ppu.GetScy()
	case 0x43:
		return m.ppu.GetScx()
	case 0x44:
		return m.ppu.GetLy()
	case 0x45:
		return m.ppu.GetLyc()
	default:
		return 0xFF
	}
}

// Write decodes addr per the address map and stores value.
func (m *MMU) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		if m.Cart != nil {
			m.Cart.StoreROM(addr, value)
		}
		return
	case addr < 0xA000:
		m.vram[addr-0x8000] = value
		return
	case addr < 0xC000:
		if m.Cart != nil {
			m.Cart.StoreERAM(addr-0xA000, value)
		}
		return
	case addr < 0xD000:
		m.wram[addr-0xC000] = value
		return
	case addr < 0xE000:
		m.wram[addr-0xC000] = value
		return
	case addr < 0xFE00:
		m.wram[addr-0xE000] = value
		return
	case addr < 0xFEA0:
		m.oam[addr-0xFE00] = value
		return
	case addr < 0xFF00:
		return // prohibited region: writes ignored
	case addr == 0xFFFF:
		m.ie = value
		return
	case addr > 0xFF7F:
		m.hram[addr-0xFF80] = value
		return
	}

	switch addr & 0xFF {
	case 0x01:
		m.ser.SetSb(value)
	case 0x02:
		m.ser.SetSc(value)
	case 0x04:
		m.timer.SetDiv(value)
	case 0x05:
		m.timer.SetTima(value)
	case 0x06:
		m.timer.SetTma(value)
	case 0x07:
		m.timer.SetTac(value)
	case 0x0F:
		m.sched.SetIF(value)
	case 0x40:
		m.ppu.SetLcdc(value)
	case 0x41:
		m.ppu.SetStat(value)
	case 0x42:
		m.ppu.SetScy(value)
	case 0x43:
		m.ppu.SetScx(value)
	case 0x44:
		m.ppu.SetLy(value)
	case 0x45:
		m.ppu.SetLyc(value)
	}
}

// PeekIE returns the IE register directly. Unlike IF, IE is not a
// catch-up-derived register, so the CPU's interrupt-pending check can read
// it without going through the Read/Write dispatch (and its clock cost).
func (m *MMU) PeekIE() byte { return m.ie }

// Scheduler exposes the interrupt scheduler peer that IF reads and writes
// are dispatched to. The CPU does not use this accessor: it is handed the
// same scheduler directly at construction and reads IF through it without
// a memory-access clock cost.
func (m *MMU) Scheduler() *interrupt.Scheduler { return m.sched }

// Reset zeroes VRAM/WRAM/OAM/HRAM/IE. It does not touch the Cartridge.
func (m *MMU) Reset() {
	m.vram = [0x4000]byte{}
	m.wram = [0x8000]byte{}
	m.oam = [0xA0]byte{}
	m.hram = [0x7F]byte{}
	m.ie = 0
}

// mmuState is the gob-encodable snapshot of the MMU's own RAM regions. The
// Timer/Scheduler/PPU/Serial/Cartridge peers encode their own state and are
// appended after it, mirroring the teacher's busState + delegated
// SaveState() blobs pattern.
type mmuState struct {
	VRAM [0x4000]byte
	WRAM [0x8000]byte
	OAM  [0xA0]byte
	HRAM [0x7F]byte
	IE   byte
}

// SaveState gob-encodes the MMU's own RAM regions followed by each peer's
// own SaveState blob (nil for an absent Cartridge).
func (m *MMU) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(mmuState{VRAM: m.vram, WRAM: m.wram, OAM: m.oam, HRAM: m.hram, IE: m.ie})
	_ = enc.Encode(m.timer.SaveState())
	_ = enc.Encode(m.sched.SaveState())
	_ = enc.Encode(m.ppu.SaveState())
	_ = enc.Encode(m.ser.SaveState())
	if m.Cart != nil {
		_ = enc.Encode(m.Cart.SaveState())
	} else {
		_ = enc.Encode([]byte(nil))
	}
	return buf.Bytes()
}

// LoadState restores a snapshot captured by SaveState, including every peer
// reachable from the MMU. The Cartridge must already be attached (via
// LoadCartridge, from the same ROM image) before calling LoadState.
func (m *MMU) LoadState(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var st mmuState
	if err := dec.Decode(&st); err != nil {
		return err
	}
	m.vram, m.wram, m.oam, m.hram, m.ie = st.VRAM, st.WRAM, st.OAM, st.HRAM, st.IE

	var blob []byte
	if err := dec.Decode(&blob); err != nil {
		return err
	}
	if err := m.timer.LoadState(blob); err != nil {
		return err
	}
	if err := dec.Decode(&blob); err != nil {
		return err
	}
	if err := m.sched.LoadState(blob); err != nil {
		return err
	}
	if err := dec.Decode(&blob); err != nil {
		return err
	}
	if err := m.ppu.LoadState(blob); err != nil {
		return err
	}
	if err := dec.Decode(&blob); err != nil {
		return err
	}
	if err := m.ser.LoadState(blob); err != nil {
		return err
	}
	if err := dec.Decode(&blob); err != nil {
		return err
	}
	if m.Cart != nil && len(blob) > 0 {
		return m.Cart.LoadState(blob)
	}
	return nil
}
