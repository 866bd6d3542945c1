package timer

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
	"github.com/FabianRolfMatthiasNoll/gbcore/internal/interrupt"
)

func newTestTimer() (*Timer, *clock.Clock, *interrupt.Scheduler) {
	clk := clock.New()
	sched := interrupt.New(clk)
	tm := New(clk, sched)
	sched.AttachTimer(tm)
	return tm, clk, sched
}

func TestTimer_OverflowReloadsAndRaisesIF(t *testing.T) {
	tm, clk, sched := newTestTimer()

	tm.SetTma(0x00)
	tm.SetTima(0xFE)
	tm.SetTac(0x04) // enabled, freq 00 -> period 1024

	clk.Add(2049) // just past two ticks of period 1024: enough to overflow once

	if got := tm.GetTima(); got != 0x00 {
		t.Fatalf("TIMA got %#02x want 0x00 after reload", got)
	}
	if got := sched.GetIF(); got&0x04 == 0 {
		t.Fatalf("IF got %#02x, want Timer bit (0x04) set", got)
	}
}

func TestTimer_DivWriteFallingEdgeBumpsTima(t *testing.T) {
	tm, clk, _ := newTestTimer()

	tm.SetTma(0x00)
	tm.SetTima(0x00)
	tm.SetTac(0x05) // enabled, freq 01 -> period 16, tick bit index 3

	clk.Add(8) // fullDivClock bit 3 (mask 0x08) is high at 8

	tm.SetDiv(0x00)

	if got := tm.GetTima(); got != 0x01 {
		t.Fatalf("TIMA got %#02x want 0x01 (falling-edge bump on DIV write)", got)
	}
	if got := tm.GetDiv(); got != 0x00 {
		t.Fatalf("DIV got %#02x want 0x00 after being zeroed", got)
	}
}

func TestTimer_TacFrequencyChangeFallingEdgeBumpsTima(t *testing.T) {
	tm, clk, _ := newTestTimer()

	tm.SetTac(0x05) // enabled, freq 01 -> tick bit 3
	clk.Add(8)      // tick bit 3 high

	// Switching to freq 00 (tick bit 9, low at 8) while still enabled drops
	// the selected bit from high to low: TIMA sees a falling edge.
	tm.SetTac(0x04)
	if got := tm.GetTima(); got != 0x01 {
		t.Fatalf("TIMA got %#02x want 0x01 after falling edge across freq change", got)
	}
}

func TestTimer_TmaWriteAlsoWritesTima(t *testing.T) {
	tm, _, _ := newTestTimer()

	tm.SetTma(0x42)
	if got := tm.GetTma(); got != 0x42 {
		t.Fatalf("TMA got %#02x want 0x42", got)
	}
	if got := tm.GetTima(); got != 0x42 {
		t.Fatalf("TIMA got %#02x want 0x42 (TMA writes through to TIMA)", got)
	}
}

func TestTimer_NextInterruptTimeFormula(t *testing.T) {
	tm, clk, _ := newTestTimer()

	tm.SetTac(0x04) // enabled, freq 00 -> period 1024
	tm.SetTima(0xFE)
	clk.Add(100)

	// period*(0x100-TIMA) - (divider mod period) from the current clock:
	// 100 + 1024*2 - 100 = 2048.
	if got := tm.NextInterruptTime(); got != 2048 {
		t.Fatalf("NextInterruptTime got %d want 2048", got)
	}
}

func TestTimer_DisabledTacNeverOverflows(t *testing.T) {
	tm, clk, _ := newTestTimer()
	tm.SetTima(0xFF)
	clk.Add(1_000_000)
	if got := tm.GetTima(); got != 0xFF {
		t.Fatalf("TIMA got %#02x want unchanged 0xFF while TAC disabled", got)
	}
	if got := tm.NextInterruptTime(); got != clock.Never {
		t.Fatalf("NextInterruptTime got %d want clock.Never", got)
	}
}
