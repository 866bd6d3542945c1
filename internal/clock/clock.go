// Package clock models the master T-cycle counter shared by every
// peripheral in a GameBoy instance.
package clock

// Never marks "no scheduled event" for deadline-based peripherals.
const Never uint64 = ^uint64(0)

// Clock is a monotonic counter of T-cycles (the 4.194304 MHz master clock).
// It never decreases and is owned by the GameBoy composition root, with the
// CPU and every peripheral holding a non-owning back-reference to it.
type Clock struct {
	now         uint64
	doubleSpeed bool
}

// New returns a Clock reset to time zero.
func New() *Clock {
	c := &Clock{}
	c.Reset()
	return c
}

// Now returns the current T-cycle count.
func (c *Clock) Now() uint64 { return c.now }

// Add advances the clock by delta T-cycles.
func (c *Clock) Add(delta uint64) { c.now += delta }

// SetNow forces the clock to an absolute T-cycle value. Used only to
// restore a previously captured snapshot; normal operation never calls it.
func (c *Clock) SetNow(now uint64) { c.now = now }

// IsDoubleSpeed reports the CGB double-speed hook. The core does not alter
// CPU stepping based on this flag; it exists so peripherals can fold it into
// their own catch-up math if a caller sets it.
func (c *Clock) IsDoubleSpeed() bool { return c.doubleSpeed }

// SetDoubleSpeed sets the double-speed hook.
func (c *Clock) SetDoubleSpeed(b bool) { c.doubleSpeed = b }

// Reset zeroes the clock and clears double-speed.
func (c *Clock) Reset() {
	c.now = 0
	c.doubleSpeed = false
}
