package serial

import (
	"bytes"
	"testing"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
)

func TestSerial_SBWritesAppendToBuffer(t *testing.T) {
	s := New()
	for _, b := range []byte("Passed\n") {
		s.SetSb(b)
	}
	if !bytes.Equal(s.Buffer(), []byte("Passed\n")) {
		t.Fatalf("buffer got %q want %q", s.Buffer(), "Passed\n")
	}
	if got := s.GetSb(); got != '\n' {
		t.Fatalf("SB got %#02x want the last written byte", got)
	}
}

func TestSerial_BufferCapDropsOverflow(t *testing.T) {
	s := New()
	for i := 0; i < maxBufferSize+100; i++ {
		s.SetSb(byte(i))
	}
	if got := len(s.Buffer()); got != maxBufferSize {
		t.Fatalf("buffer length got %d want cap %d", got, maxBufferSize)
	}
	// Older bytes are retained; writes past the cap are the ones dropped.
	if s.Buffer()[0] != 0x00 {
		t.Fatalf("oldest byte got %#02x want 0x00", s.Buffer()[0])
	}
}

func TestSerial_SCStoredWithoutSideEffect(t *testing.T) {
	s := New()
	s.SetSc(0x81)
	if got := s.GetSc(); got != 0x81 {
		t.Fatalf("SC got %#02x want 0x81", got)
	}
	if len(s.Buffer()) != 0 {
		t.Fatalf("SC write must not touch the capture buffer")
	}
}

func TestSerial_NeverSchedulesAnInterrupt(t *testing.T) {
	s := New()
	if got := s.NextInterruptTime(); got != clock.Never {
		t.Fatalf("NextInterruptTime got %d want clock.Never", got)
	}
}

func TestSerial_ResetClearsBuffer(t *testing.T) {
	s := New()
	s.SetSb('x')
	s.Reset()
	if len(s.Buffer()) != 0 || s.GetSb() != 0 || s.GetSc() != 0 {
		t.Fatalf("Reset left state behind: buf=%d sb=%#02x sc=%#02x",
			len(s.Buffer()), s.GetSb(), s.GetSc())
	}
}
