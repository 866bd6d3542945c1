// Package timer implements the DIV/TIMA/TMA/TAC timer block. Like the
// interrupt scheduler, it never runs a tick loop: every getter and setter
// calls catchUp first, folding clock.Now()-lastTimestamp into the running
// divider before doing anything else.
package timer

import (
	"bytes"
	"encoding/gob"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/interrupt"
)

// tacPeriod, tacFreqShift and tacTickBitMask are indexed by TAC's low two
// bits (the frequency selector). tacFreqShift is log2 of the period:
// fullDivClock>>tacFreqShift counts TIMA ticks. tacTickBitMask is the bit
// one position below that shift (the bit whose falling edge is a tick),
// used only for falling-edge detection on DIV/TAC writes.
var (
	tacPeriod      = [4]uint64{1024, 16, 64, 256}
	tacFreqShift   = [4]uint{10, 4, 6, 8}
	tacTickBitMask = [4]uint64{1 << 9, 1 << 3, 1 << 5, 1 << 7}
)

// Timer models DIV/TIMA/TMA/TAC against the shared clock, rescheduling the
// Timer interrupt source whenever a write could move its next overflow.
type Timer struct {
	clk *clock.Clock
	sch *interrupt.Scheduler

	lastTimestamp uint64
	fullDivClock  uint64
	tima, tma, tac byte
}

// New wires a Timer to the clock and the interrupt scheduler it reschedules.
func New(clk *clock.Clock, sch *interrupt.Scheduler) *Timer {
	t := &Timer{clk: clk, sch: sch}
	t.Reset()
	return t
}

// GetDiv catches up then returns the high byte of the running divider.
func (t *Timer) GetDiv() byte {
	t.catchUp()
	return byte(t.fullDivClock >> 8)
}

// GetTima catches up then returns TIMA.
func (t *Timer) GetTima() byte {
	t.catchUp()
	return t.tima
}

// GetTma returns TMA directly; it is not a derived register.
func (t *Timer) GetTma() byte { return t.tma }

// GetTac returns TAC directly, exactly as last stored.
func (t *Timer) GetTac() byte { return t.tac }

// SetDiv catches up, applies the falling-edge TIMA bump if the tick bit was
// high under the current TAC, zeroes the divider, and reschedules.
func (t *Timer) SetDiv(byte) {
	t.catchUp()

	freq := t.tac & 0x3
	if t.tac&0x4 != 0 && t.fullDivClock&tacTickBitMask[freq] != 0 {
		t.tima++
	}
	t.fullDivClock = 0

	t.sch.Reschedule(interrupt.Timer, t.NextInterruptTime())
}

// SetTima catches up, stores TIMA, and reschedules.
func (t *Timer) SetTima(v byte) {
	t.catchUp()
	t.tima = v
	t.sch.Reschedule(interrupt.Timer, t.NextInterruptTime())
}

// SetTma catches up and stores TMA. It also writes TIMA with the same
// value — a deviation from real hardware (TIMA should only be overwritten
// during the post-overflow reload window) preserved because timing-test
// ROMs expect it.
func (t *Timer) SetTma(v byte) {
	t.catchUp()
	t.tma = v
	t.tima = v
	t.sch.Reschedule(interrupt.Timer, t.NextInterruptTime())
}

// SetTac catches up, applies the falling-edge TIMA bump across the
// frequency change if applicable, stores TAC, and reschedules.
func (t *Timer) SetTac(v byte) {
	t.catchUp()

	if t.tac&0x4 != 0 {
		oldFreq := t.tac & 0x3
		newFreq := v & 0x3
		wasHigh := t.fullDivClock&tacTickBitMask[oldFreq] != 0
		isHigh := t.fullDivClock&tacTickBitMask[newFreq] != 0
		if !(isHigh && v&0x4 != 0) && wasHigh {
			t.tima++
		}
	}

	t.tac = v
	t.sch.Reschedule(interrupt.Timer, t.NextInterruptTime())
}

// catchUp folds clock.Now()-lastTimestamp into the divider and, when TAC is
// enabled, into TIMA. The TIMA delta is folded through the exact reload
// arithmetic the timing-test ROMs expect rather than a simple increment, so
// a catch-up spanning multiple overflows lands on the right post-reload
// value in one shot.
func (t *Timer) catchUp() {
	shift := uint(0)
	if t.clk.IsDoubleSpeed() {
		shift = 1
	}
	delta := (t.clk.Now() - t.lastTimestamp) << shift
	t.lastTimestamp = t.clk.Now()

	if t.tac&0x4 == 0 {
		t.fullDivClock += delta
		return
	}

	freq := t.tac & 0x3
	freqShift := tacFreqShift[freq]

	oldTimaClock := t.fullDivClock >> freqShift
	t.fullDivClock += delta
	newTimaClock := t.fullDivClock >> freqShift
	deltaTima := newTimaClock - oldTimaClock

	// Both terms are uint64; wraparound here is intentional and mirrors the
	// unsigned arithmetic the reload formula relies on.
	deltaTima += uint64(t.tima) - uint64(t.tma)
	t.tima = byte((uint64(t.tma) + deltaTima%(0x100-uint64(t.tma))) & 0xFF)
}

// NextInterruptTime returns the absolute T-cycle at which TIMA next
// overflows, or clock.Never if TAC is disabled.
func (t *Timer) NextInterruptTime() uint64 {
	if t.tac&0x4 == 0 {
		return clock.Never
	}
	t.catchUp()
	freq := t.tac & 0x3
	period := tacPeriod[freq]
	return t.clk.Now() + period*(0x100-uint64(t.tima)) - (t.fullDivClock & (period - 1))
}

// Reset zeroes the divider/timestamp/TIMA/TMA and restores TAC's post-boot
// value (0xF8 — enable and frequency bits clear, unused bits set).
func (t *Timer) Reset() {
	t.lastTimestamp = 0
	t.fullDivClock = 0
	t.tima = 0
	t.tma = 0
	t.tac = 0xF8
}

type timerState struct {
	LastTimestamp uint64
	FullDivClock  uint64
	Tima, Tma, Tac byte
}

// SaveState gob-encodes the divider accumulator, TIMA/TMA/TAC and the
// last catch-up timestamp.
func (t *Timer) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(timerState{
		LastTimestamp: t.lastTimestamp, FullDivClock: t.fullDivClock,
		Tima: t.tima, Tma: t.tma, Tac: t.tac,
	})
	return buf.Bytes()
}

// LoadState restores a snapshot captured by SaveState.
func (t *Timer) LoadState(data []byte) error {
	var st timerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	t.lastTimestamp = st.LastTimestamp
	t.fullDivClock = st.FullDivClock
	t.tima, t.tma, t.tac = st.Tima, st.Tma, st.Tac
	return nil
}
