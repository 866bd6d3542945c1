// Package cpu implements the LR35902 instruction interpreter: the base and
// CB-prefixed opcode tables, interrupt dispatch, HALT/STOP, breakpoints and
// the per-instruction T-cycle timing discipline. It is the only hot loop in
// this core — every other peripheral is lazy and only does work when the
// CPU's memory accesses or explicit clock advances cross one of its
// deadlines.
package cpu

import (
	"fmt"
	"io"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/interrupt"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/mmu"
)

// Mode is the CPU's run-mode state machine: Normal, Halted (via HALT) or
// Stopped (via STOP, terminal in this core).
type Mode int

const (
	Normal Mode = iota
	Halted
	Stopped
)

// Flag bit positions within F.
const (
	flagZ byte = 1 << 7
	flagN byte = 1 << 6
	flagH byte = 1 << 5
	flagC byte = 1 << 4
)

// CPU holds the architectural register file plus the run-mode and
// interrupt-enable bookkeeping from spec's CpuState, and the peer
// back-references (MMU, clock, interrupt scheduler) needed to execute
// instructions against the shared bus and clock.
type CPU struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP, PC uint16

	IME     bool
	NextIME bool
	Mode    Mode
	Paused  bool

	breakpoints map[uint16]bool

	clk   *clock.Clock
	bus   *mmu.MMU
	sched *interrupt.Scheduler

	trace io.Writer
}

// New wires a CPU to its peers. Call Reset to install the post-boot state
// before running it.
func New(clk *clock.Clock, bus *mmu.MMU, sched *interrupt.Scheduler) *CPU {
	return &CPU{clk: clk, bus: bus, sched: sched, breakpoints: make(map[uint16]bool)}
}

// Reset installs the documented post-boot DMG register snapshot: PC=0x0100,
// SP=0xFFFE, AF=0x1180, BC=0x0000, DE=0xFF56, HL=0x000D, IME/NextIME clear,
// mode Normal. Breakpoints and Paused are left untouched — GameBoy.Reset
// sets Paused itself after wiring every component.
func (c *CPU) Reset() {
	c.setAF(0x1180)
	c.setBC(0x0000)
	c.setDE(0xFF56)
	c.setHL(0x000D)
	c.SP = 0xFFFE
	c.PC = 0x0100
	c.IME = false
	c.NextIME = false
	c.Mode = Normal
}

// SetBreakpoint arms or disarms a PC breakpoint.
func (c *CPU) SetBreakpoint(addr uint16, on bool) {
	if on {
		c.breakpoints[addr] = true
	} else {
		delete(c.breakpoints, addr)
	}
}

// Breakpoints returns the currently armed breakpoint addresses, in no
// particular order.
func (c *CPU) Breakpoints() []uint16 {
	out := make([]uint16, 0, len(c.breakpoints))
	for a := range c.breakpoints {
		out = append(out, a)
	}
	return out
}

// Trace directs a one-line-per-instruction PC/opcode/register dump to w.
// Passing nil disables tracing.
func (c *CPU) Trace(w io.Writer) { c.trace = w }

func (c *CPU) setZNHC(z, n, h, cy bool) {
	var f byte
	if z {
		f |= flagZ
	}
	if n {
		f |= flagN
	}
	if h {
		f |= flagH
	}
	if cy {
		f |= flagC
	}
	c.F = f
}

func (c *CPU) setFlag(mask byte, on bool) {
	if on {
		c.F |= mask
	} else {
		c.F &^= mask
	}
}

func (c *CPU) cond(idx int) bool {
	switch idx {
	case 0:
		return c.F&flagZ == 0
	case 1:
		return c.F&flagZ != 0
	case 2:
		return c.F&flagC == 0
	default:
		return c.F&flagC != 0
	}
}

// getR8/setR8 index the eight LD/ALU register-operand slots in the
// hardware's own encoding order: B,C,D,E,H,L,(HL),A. Index 6, (HL), is the
// only case that costs a bus access.
func (c *CPU) getR8(idx int) byte {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.getHL())
	default:
		return c.A
	}
}

func (c *CPU) setR8(idx int, v byte) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.getHL(), v)
	default:
		c.A = v
	}
}

// getR16/setR16 index the four 16-bit "dd"-group operands: BC,DE,HL,SP.
func (c *CPU) getR16(idx int) uint16 {
	switch idx {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	default:
		return c.SP
	}
}

func (c *CPU) setR16(idx int, v uint16) {
	switch idx {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.SP = v
	}
}

// getR16Stack/setR16Stack index the four PUSH/POP "qq"-group operands:
// BC,DE,HL,AF.
func (c *CPU) getR16Stack(idx int) uint16 {
	switch idx {
	case 0:
		return c.getBC()
	case 1:
		return c.getDE()
	case 2:
		return c.getHL()
	default:
		return c.getAF()
	}
}

func (c *CPU) setR16Stack(idx int, v uint16) {
	switch idx {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.setAF(v)
	}
}

func (c *CPU) getAF() uint16  { return uint16(c.A)<<8 | uint16(c.F&0xF0) }
func (c *CPU) setAF(v uint16) { c.A = byte(v >> 8); c.F = byte(v) & 0xF0 }
func (c *CPU) getBC() uint16  { return uint16(c.B)<<8 | uint16(c.C) }
func (c *CPU) setBC(v uint16) { c.B = byte(v >> 8); c.C = byte(v) }
func (c *CPU) getDE() uint16  { return uint16(c.D)<<8 | uint16(c.E) }
func (c *CPU) setDE(v uint16) { c.D = byte(v >> 8); c.E = byte(v) }
func (c *CPU) getHL() uint16  { return uint16(c.H)<<8 | uint16(c.L) }
func (c *CPU) setHL(v uint16) { c.H = byte(v >> 8); c.L = byte(v) }

// read8/write8 are the only paths to the bus from instruction execution;
// every call costs exactly one M-cycle (4 T-cycles). The clock advances
// before the access so any peripheral catch-up the access triggers sees
// the time at which the transaction completes.
func (c *CPU) read8(addr uint16) byte {
	c.clk.Add(4)
	return c.bus.Read(addr)
}

func (c *CPU) write8(addr uint16, v byte) {
	c.clk.Add(4)
	c.bus.Write(addr, v)
}

func (c *CPU) fetch8() byte {
	v := c.read8(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := uint16(c.fetch8())
	hi := uint16(c.fetch8())
	return lo | hi<<8
}

// write16 writes the low byte then the high byte, each its own costed
// bus access — matching write_word_at_addr in spec §4.4.
func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v))
	c.write8(addr+1, byte(v>>8))
}

// push16 models a real PUSH's four M-cycles: an internal SP-decrement
// delay, then the high byte, then the low byte (the classic GB write
// order — SP ends up pointing at the low byte).
func (c *CPU) push16(v uint16) {
	c.clk.Add(4)
	c.SP--
	c.write8(c.SP, byte(v>>8))
	c.SP--
	c.write8(c.SP, byte(v))
}

func (c *CPU) pop16() uint16 {
	lo := uint16(c.read8(c.SP))
	c.SP++
	hi := uint16(c.read8(c.SP))
	c.SP++
	return lo | hi<<8
}

// interruptMaskTable[x] clears the lowest set bit of x, for all 32 values
// of a 5-bit IF&IE combination. Used to clear only the dispatched source's
// IF bit while leaving any other pending sources untouched.
var interruptMaskTable [32]byte

// interruptJumpTable[x] is the dispatch vector for the lowest set bit of x.
var interruptJumpTable [32]uint16

func init() {
	vectors := [5]uint16{0x0040, 0x0048, 0x0050, 0x0058, 0x0060}
	for x := 0; x < 32; x++ {
		if x == 0 {
			continue
		}
		bit := 0
		for b := 0; b < 5; b++ {
			if x&(1<<b) != 0 {
				bit = b
				break
			}
		}
		interruptMaskTable[x] = byte(x &^ (1 << bit))
		interruptJumpTable[x] = vectors[bit]
	}
}

// StepTCycles runs instructions until the clock has advanced by at least n
// T-cycles, servicing HALT/STOP/interrupt dispatch at the head of every
// iteration per spec §4.4. A call may overrun n by up to one instruction's
// worth of cycles (or by the 20-cycle interrupt dispatch, after which the
// target is checked again before the handler's first opcode is fetched);
// partial-instruction suspension is not supported. No-op if Paused.
func (c *CPU) StepTCycles(n uint64) {
	if c.Paused {
		return
	}
	target := c.clk.Now() + n
	moved := false

	for c.clk.Now() < target {
		if moved && c.breakpoints[c.PC] {
			c.Paused = true
			return
		}

		if c.Mode == Halted {
			if c.pendingInterrupt() != 0 {
				c.Mode = Normal
			} else {
				c.clk.Add(4)
				moved = true
				continue
			}
		}

		if c.Mode == Stopped {
			return
		}

		if c.IME {
			if pending := c.pendingInterrupt(); pending != 0 {
				c.dispatchInterrupt(pending)
				moved = true
				continue
			}
		}

		c.IME = c.NextIME

		if c.trace != nil {
			fmt.Fprintf(c.trace, "PC=%04X OP=%02X A=%02X F=%02X B=%02X C=%02X D=%02X E=%02X H=%02X L=%02X SP=%04X IME=%t\n",
				c.PC, c.bus.Read(c.PC), c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L, c.SP, c.IME)
		}

		c.execOne()
		moved = true
		if c.Paused {
			return
		}
	}
}

// pendingInterrupt returns IF&IE&0x1F without costing any clock cycles —
// it is a peek used for the HALT-wake and IME-dispatch checks, not a bus
// access (spec §4.4: "the CPU asks the MMU for IF and IE... which
// transparently invoke catch_up", with no memory-access cost attached).
func (c *CPU) pendingInterrupt() byte {
	ifv := c.sched.GetIF()
	iev := c.bus.PeekIE()
	return ifv & iev & 0x1F
}

// dispatchInterrupt clears IME/NextIME, acknowledges the lowest-indexed
// pending source in IF, and jumps to its vector. Total cost is the 20
// T-cycles spec §8 invariant 2 calls out: a +4 idle, the push (itself 4
// idle + two 4-cycle writes = 12), and a final +4 idle.
func (c *CPU) dispatchInterrupt(pending byte) {
	c.IME = false
	c.NextIME = false

	ifv := c.sched.GetIF()
	c.sched.SetIF(ifv & interruptMaskTable[pending])

	c.clk.Add(4)
	c.push16(c.PC)
	c.PC = interruptJumpTable[pending]
	c.clk.Add(4)
}

// State is a plain serializable copy of the architectural register file,
// used for GameBoy.CreateStateSnapshot/RestoreStateSnapshot.
type State struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte
	SP, PC  uint16
	IME     bool
	NextIME bool
	Mode    Mode
	Paused  bool
}

// Snapshot copies the current architectural state.
func (c *CPU) Snapshot() State {
	return State{
		A: c.A, F: c.F, B: c.B, C: c.C, D: c.D, E: c.E, H: c.H, L: c.L,
		SP: c.SP, PC: c.PC, IME: c.IME, NextIME: c.NextIME, Mode: c.Mode, Paused: c.Paused,
	}
}

// Restore installs a previously captured State, byte-for-byte.
func (c *CPU) Restore(s State) {
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = s.A, s.F, s.B, s.C, s.D, s.E, s.H, s.L
	c.SP, c.PC = s.SP, s.PC
	c.IME, c.NextIME, c.Mode, c.Paused = s.IME, s.NextIME, s.Mode, s.Paused
}
