package interrupt

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
)

// stubTimer re-arms the Timer source a fixed distance into the future each
// time the scheduler asks, counting how often it was asked.
type stubTimer struct {
	clk    *clock.Clock
	period uint64
	asked  int
}

func (s *stubTimer) NextInterruptTime() uint64 {
	s.asked++
	return s.clk.Now() + s.period
}

func TestScheduler_ResetState(t *testing.T) {
	clk := clock.New()
	s := New(clk)

	if got := s.GetIF(); got != 0xE0 {
		t.Fatalf("IF after reset got %#02x want 0xE0", got)
	}
	if s.closest != clock.Never {
		t.Fatalf("closest after reset got %d want clock.Never", s.closest)
	}
}

func TestScheduler_RescheduleTracksClosest(t *testing.T) {
	clk := clock.New()
	s := New(clk)

	s.Reschedule(VBlank, 500)
	s.Reschedule(Serial, 300)
	s.Reschedule(LCD, 400)

	if s.closest != 300 || s.closestOf != Serial {
		t.Fatalf("closest got (%d, %v) want (300, Serial)", s.closest, s.closestOf)
	}

	s.Reschedule(Serial, 900)
	if s.closest != 400 || s.closestOf != LCD {
		t.Fatalf("closest after re-reschedule got (%d, %v) want (400, LCD)", s.closest, s.closestOf)
	}
}

func TestScheduler_CatchUpRaisesIFBitsInOrder(t *testing.T) {
	clk := clock.New()
	s := New(clk)

	s.Reschedule(VBlank, 100)
	s.Reschedule(LCD, 200)

	clk.Add(150)
	if got := s.GetIF(); got != 0xE1 {
		t.Fatalf("IF got %#02x want 0xE1 (only VBlank fired)", got)
	}

	clk.Add(100)
	if got := s.GetIF(); got != 0xE3 {
		t.Fatalf("IF got %#02x want 0xE3 (VBlank and LCD fired)", got)
	}

	// Non-timer sources fire once and go quiet.
	if s.deadlines[VBlank] != clock.Never || s.deadlines[LCD] != clock.Never {
		t.Fatalf("fired one-shot deadlines should be Never, got %d/%d",
			s.deadlines[VBlank], s.deadlines[LCD])
	}
}

func TestScheduler_TimerSourceRearmsOnFire(t *testing.T) {
	clk := clock.New()
	s := New(clk)
	st := &stubTimer{clk: clk, period: 1000}
	s.AttachTimer(st)

	s.Reschedule(Timer, 100)
	clk.Add(2500)
	s.CatchUp()

	if got := s.GetIF(); got&0x04 == 0 {
		t.Fatalf("IF got %#02x, want Timer bit set", got)
	}
	if st.asked == 0 {
		t.Fatalf("scheduler never asked the Timer peer for its next fire time")
	}
	if s.deadlines[Timer] <= clk.Now() {
		t.Fatalf("re-armed Timer deadline %d is not in the future of %d", s.deadlines[Timer], clk.Now())
	}
}

func TestScheduler_SetIFForcesTopBitsHigh(t *testing.T) {
	clk := clock.New()
	s := New(clk)

	s.SetIF(0x05)
	if got := s.GetIF(); got != 0xE5 {
		t.Fatalf("IF got %#02x want 0xE5", got)
	}

	s.SetIF(0x00)
	if got := s.GetIF(); got != 0xE0 {
		t.Fatalf("IF got %#02x want 0xE0 after clearing", got)
	}
}

func TestScheduler_SetIFCatchesUpFirst(t *testing.T) {
	clk := clock.New()
	s := New(clk)

	s.Reschedule(VBlank, 100)
	clk.Add(200)

	// The write lands on top of an IF that already has VBlank raised, so
	// clearing everything clears the freshly caught-up bit too.
	s.SetIF(0x00)
	if got := s.GetIF(); got != 0xE0 {
		t.Fatalf("IF got %#02x want 0xE0", got)
	}
}
