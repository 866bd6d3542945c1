// Package gameboy is the composition root: it wires a Clock, Timer,
// InterruptScheduler, PPU, Serial and MMU together and drives a CPU across
// them, exposing the handful of operations a host (CLI, test harness, or
// someday a UI) needs: load a ROM, run for N T-cycles, pause, and snapshot
// or restore the whole machine's state.
package gameboy

import (
	"bytes"
	"encoding/gob"
	"os"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cart"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/interrupt"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/mmu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/serial"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/timer"
)

// GameBoy owns every component of a single emulated machine. All inter-
// component references are non-owning back-pointers set up once here.
type GameBoy struct {
	Clock     *clock.Clock
	CPU       *cpu.CPU
	MMU       *mmu.MMU
	Timer     *timer.Timer
	Scheduler *interrupt.Scheduler
	PPU       *ppu.PPU
	Serial    *serial.Serial
}

// New constructs a fully wired, freshly reset GameBoy with no cartridge
// loaded.
func New() *GameBoy {
	clk := clock.New()
	sched := interrupt.New(clk)
	tmr := timer.New(clk, sched)
	sched.AttachTimer(tmr)
	p := ppu.New(clk)
	ser := serial.New()
	bus := mmu.New(tmr, sched, p, ser)
	c := cpu.New(clk, bus, sched)

	gb := &GameBoy{Clock: clk, CPU: c, MMU: bus, Timer: tmr, Scheduler: sched, PPU: p, Serial: ser}
	gb.Reset()
	return gb
}

// Reset resets every component, installing the post-boot CPU register
// snapshot via CPU.Reset. The cartridge, if any, is left attached.
func (gb *GameBoy) Reset() {
	gb.Clock.Reset()
	gb.MMU.Reset()
	gb.Timer.Reset()
	gb.Scheduler.Reset()
	gb.PPU.Reset()
	gb.Serial.Reset()
	gb.CPU.Reset()

	gb.CPU.Paused = true
}

// LoadROMFile reads path, parses its cartridge header and attaches it to
// the MMU. It reports (false, err) instead of panicking on any failure —
// a malformed or missing ROM should never bring down a host process. A ROM
// whose logo or header checksum fails verification is rejected with
// (false, nil): the cartridge parsed fine, a real unit just wouldn't boot
// it.
func (gb *GameBoy) LoadROMFile(path string) (bool, error) {
	rom, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	c, err := cart.New(rom)
	if err != nil {
		return false, err
	}
	if !c.IsRomBootable() {
		return false, nil
	}
	gb.MMU.LoadCartridge(c)
	return true, nil
}

// RunFor advances the CPU by at least n T-cycles (see CPU.StepTCycles for
// the overrun contract). No-op while paused.
func (gb *GameBoy) RunFor(n uint64) {
	gb.CPU.StepTCycles(n)
}

// SetPause toggles whether RunFor and breakpoint hits advance the machine.
func (gb *GameBoy) SetPause(b bool) {
	gb.CPU.Paused = b
}

// Paused reports whether the machine is currently paused (explicitly, or
// because a breakpoint was just hit).
func (gb *GameBoy) Paused() bool { return gb.CPU.Paused }

// snapshot is the gob-encodable top-level envelope: CPU register state,
// the clock's own position and speed flag, and the MMU's delegated blob
// (which in turn carries every peripheral's own state).
type snapshot struct {
	CPU         cpu.State
	ClockNow    uint64
	DoubleSpeed bool
	MMU         []byte
}

// CreateStateSnapshot captures the entire machine — CPU registers, clock
// position, and every MMU-reachable peripheral and cartridge RAM — as an
// opaque byte slice suitable for later RestoreStateSnapshot. Grounded on
// the teacher's bus-level SaveState/LoadState composite-blob pattern,
// generalized to the top-level composition root.
func (gb *GameBoy) CreateStateSnapshot() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		CPU:         gb.CPU.Snapshot(),
		ClockNow:    gb.Clock.Now(),
		DoubleSpeed: gb.Clock.IsDoubleSpeed(),
		MMU:         gb.MMU.SaveState(),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RestoreStateSnapshot installs a snapshot captured by CreateStateSnapshot.
// The same cartridge (if any) must already be loaded; ROM bytes are not
// part of the snapshot, only external RAM contents are.
func (gb *GameBoy) RestoreStateSnapshot(data []byte) error {
	var st snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	if err := gb.MMU.LoadState(st.MMU); err != nil {
		return err
	}
	gb.Clock.SetNow(st.ClockNow)
	gb.Clock.SetDoubleSpeed(st.DoubleSpeed)
	gb.CPU.Restore(st.CPU)
	return nil
}
