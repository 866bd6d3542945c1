// Package serial implements the bounded capture buffer that timing-test
// ROMs write their pass/fail output through. Real link-cable timing and
// peer communication are out of scope; SC writes are stored but have no
// observable effect.
package serial

import (
	"bytes"
	"encoding/gob"

	"github.com/FabianRolfMatthiasNoll/gbcore/internal/clock"
)

// maxBufferSize bounds the capture buffer; bytes written past the cap are
// dropped while everything captured so far is retained.
const maxBufferSize = 4092

// Serial models SB/SC and the bounded byte buffer that SB writes feed.
// It never schedules its own interrupt: NextInterruptTime always reports
// clock.Never, matching the source.
type Serial struct {
	sb, sc byte
	buf    []byte
}

// New constructs an empty Serial connection.
func New() *Serial {
	s := &Serial{}
	s.Reset()
	return s
}

// GetSb returns SB.
func (s *Serial) GetSb() byte { return s.sb }

// SetSb stores SB and appends the byte to the capture buffer if there is
// room left.
func (s *Serial) SetSb(v byte) {
	s.sb = v
	if len(s.buf) < maxBufferSize {
		s.buf = append(s.buf, v)
	}
}

// GetSc returns SC.
func (s *Serial) GetSc() byte { return s.sc }

// SetSc stores SC directly; there is no transfer side-effect in this core.
func (s *Serial) SetSc(v byte) { s.sc = v }

// Buffer returns the bytes captured so far.
func (s *Serial) Buffer() []byte { return s.buf }

// NextInterruptTime always reports that Serial has nothing scheduled.
func (s *Serial) NextInterruptTime() uint64 { return clock.Never }

// Reset clears SB, SC and the capture buffer.
func (s *Serial) Reset() {
	s.sb = 0
	s.sc = 0
	s.buf = s.buf[:0]
}

type serialState struct {
	Sb, Sc byte
	Buf    []byte
}

// SaveState gob-encodes SB, SC and the captured buffer contents.
func (s *Serial) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(serialState{Sb: s.sb, Sc: s.sc, Buf: append([]byte(nil), s.buf...)})
	return buf.Bytes()
}

// LoadState restores a snapshot captured by SaveState.
func (s *Serial) LoadState(data []byte) error {
	var st serialState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return err
	}
	s.sb, s.sc, s.buf = st.Sb, st.Sc, st.Buf
	return nil
}
