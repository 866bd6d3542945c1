// Package cart parses a cartridge header and serves non-banked ROM and
// external-RAM loads/stores. Bank-switching (MBC1/2/3/5) is out of scope:
// every cartridge is treated as a 32 KiB+ ROM with a single fixed bank
// window and a flat external-RAM buffer.
package cart

import (
	"bytes"
	"encoding/gob"
)

// Cartridge owns ROM bytes, external RAM bytes, and the parsed header. The
// "current bank" views are fixed slices into the owned buffers — there is
// no bank-switch register here, so they never move after construction.
type Cartridge struct {
	Header *Header

	rom      []byte
	romBank  []byte // 0x4000-0x7FFF window
	eram     []byte
	eramBank []byte // 0xB000-0xBFFF window (indexed by a-0x1000, a already offset by -0xA000)
}

// New parses rom's header and constructs a Cartridge. It allocates a
// dummy 8 KiB external-RAM buffer filled with 0xFF when the header
// declares no RAM, and a zeroed buffer of the declared size otherwise.
// Loading saved RAM contents, if any, is left to the caller (an external
// collaborator's concern — see Cartridge.LoadERAM/StoreERAM for the
// runtime access surface).
func New(rom []byte) (*Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	c := &Cartridge{Header: h, rom: rom}
	c.romBank = c.rom[0x4000:]

	if h.RAMSizeBytes == 0 {
		c.eram = make([]byte, 0x2000)
		for i := range c.eram {
			c.eram[i] = 0xFF
		}
	} else {
		c.eram = make([]byte, h.RAMSizeBytes)
	}
	c.eramBank = c.eram[0x1000:]

	return c, nil
}

// LoadROM returns rom[a] for a<0x4000, else the fixed upper-bank window.
func (c *Cartridge) LoadROM(a uint16) byte {
	if a < 0x4000 {
		return c.rom[a]
	}
	return c.romBank[a-0x4000]
}

// StoreROM is a no-op: mapper control writes are out of scope for a
// non-banked cartridge.
func (c *Cartridge) StoreROM(uint16, byte) {}

// LoadERAM returns eram[a] for a<0x1000, else the fixed upper-bank window.
// a is already offset by -0xA000 by the caller.
func (c *Cartridge) LoadERAM(a uint16) byte {
	if a < 0x1000 {
		return c.eram[a]
	}
	return c.eramBank[a-0x1000]
}

// StoreERAM mirrors LoadERAM's address decomposition for writes.
func (c *Cartridge) StoreERAM(a uint16, v byte) {
	if a < 0x1000 {
		c.eram[a] = v
		return
	}
	c.eramBank[a-0x1000] = v
}

// Name returns the parsed cartridge title.
func (c *Cartridge) Name() string { return c.Header.Title }

// IsRomBootable reports whether the logo and header checksum both verify.
func (c *Cartridge) IsRomBootable() bool { return c.Header.IsRomBootable() }

// SaveState gob-encodes external RAM contents. ROM is immutable and is not
// captured; the snapshot is only meaningful when restored into a Cartridge
// constructed from the same ROM image.
func (c *Cartridge) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(c.eram)
	return buf.Bytes()
}

// LoadState restores external RAM contents captured by SaveState.
func (c *Cartridge) LoadState(data []byte) error {
	var eram []byte
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&eram); err != nil {
		return err
	}
	if len(eram) != len(c.eram) {
		return nil
	}
	copy(c.eram, eram)
	return nil
}
