// Package interrupt implements the lazy interrupt scheduler: it aggregates
// the four internal interrupt sources into the IF register and only does
// work when the clock has actually crossed a source's next-fire deadline.
package interrupt

import (
	"bytes"
	"encoding/gob"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
)

// Source identifies one of the four interrupt sources modeled by this core.
// The values double as the bit index into IF/IE.
type Source int

const (
	VBlank Source = iota
	LCD
	Timer
	Serial

	numSources
)

var masks = [numSources]byte{1 << VBlank, 1 << LCD, 1 << Timer, 1 << Serial}

// TimerPeer is the slice of the Timer's API the scheduler needs to
// re-arm the Timer source once it has fired. It is satisfied by
// *timer.Timer without either package importing the other.
type TimerPeer interface {
	NextInterruptTime() uint64
}

// Scheduler tracks a next-fire deadline per source, aggregates them into IF,
// and lazily sets IF bits once the clock passes a deadline. Only the Timer
// source re-arms itself after firing; VBlank, LCD and Serial fire once and
// then go quiet until something external reschedules them again.
type Scheduler struct {
	clk   *clock.Clock
	timer TimerPeer

	ifReg byte

	deadlines [numSources]uint64
	closest   uint64
	closestOf Source
}

// New wires a Scheduler to the shared clock. AttachTimer must be called
// before the first CatchUp once the Timer peer exists (the two components
// are constructed together at the GameBoy composition root).
func New(clk *clock.Clock) *Scheduler {
	s := &Scheduler{clk: clk}
	s.Reset()
	return s
}

// AttachTimer wires the Timer peer used to re-arm the Timer source.
func (s *Scheduler) AttachTimer(t TimerPeer) { s.timer = t }

// Reschedule stores the next-fire deadline for source and recomputes the
// closest pending deadline across all sources.
func (s *Scheduler) Reschedule(source Source, cycle uint64) {
	s.deadlines[source] = cycle
	s.recalculateClosest()
}

// CatchUp sets IF bits for every source whose deadline has passed. Only the
// Timer source is re-armed (via NextInterruptTime); the others go quiet
// until something external reschedules them.
func (s *Scheduler) CatchUp() {
	for s.closest < s.clk.Now() {
		s.ifReg |= masks[s.closestOf]
		if s.closestOf == Timer && s.timer != nil {
			s.deadlines[Timer] = s.timer.NextInterruptTime()
		} else {
			s.deadlines[s.closestOf] = clock.Never
		}
		s.recalculateClosest()
	}
}

func (s *Scheduler) recalculateClosest() {
	closest := clock.Never
	var of Source
	for src, t := range s.deadlines {
		if t < closest {
			closest = t
			of = Source(src)
		}
	}
	s.closest = closest
	s.closestOf = of
}

// GetIF runs CatchUp and returns IF with the unused top three bits read as 1.
func (s *Scheduler) GetIF() byte {
	s.CatchUp()
	return s.ifReg | 0xE0
}

// SetIF runs CatchUp then stores v, with the top three bits forced high.
func (s *Scheduler) SetIF(v byte) {
	s.CatchUp()
	s.ifReg = v | 0xE0
}

// Reset clears IF and all deadlines back to Never.
func (s *Scheduler) Reset() {
	s.ifReg = 0xE0
	for i := range s.deadlines {
		s.deadlines[i] = clock.Never
	}
	s.closest = clock.Never
	s.closestOf = VBlank
}

// schedulerState is the gob-encodable snapshot of a Scheduler, excluding
// the clock and Timer peer references (rewired by the caller on restore).
type schedulerState struct {
	IFReg     byte
	Deadlines [numSources]uint64
	Closest   uint64
	ClosestOf Source
}

// SaveState gob-encodes the scheduler's IF register and per-source
// deadlines.
func (s *Scheduler) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(schedulerState{
		IFReg: s.ifReg, Deadlines: s.deadlines, Closest: s.closest, ClosestOf: s.closestOf,
	})
	return buf.Bytes()
}

// LoadState restores a snapshot captured by SaveState. The Timer peer must
// be reattached (AttachTimer) separately if it was lost.
func (s *Scheduler) LoadState(data []byte) error {
	var st schedulerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	s.ifReg = st.IFReg
	s.deadlines = st.Deadlines
	s.closest = st.Closest
	s.closestOf = st.ClosestOf
	return nil
}
