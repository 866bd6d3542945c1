package cart

import (
	"encoding/binary"
	"strings"
)

const (
	headerEnd = 0x014F
)

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// romSizes[flag] is the expected ROM image size for header ROM-size flag.
// Index range is [0,8]; anything outside it is an invalid flag.
var romSizes = [9]int{
	16384 * 2, 16384 * 4, 16384 * 8, 16384 * 16, 16384 * 32,
	16384 * 64, 16384 * 128, 16384 * 256, 16384 * 512,
}

// eramSizes[flag] is the expected external RAM size for header RAM-size
// flag. Indices 4 and 5 are deliberately swapped relative to the natural
// doubling progression — this mirrors the real Nintendo encoding and must
// be preserved exactly.
var eramSizes = [6]int{0, 0, 8192 * 1, 8192 * 4, 8192 * 16, 8192 * 8}

// Header holds the parsed cartridge header fields plus the derived
// validity flags used to decide whether a ROM is bootable.
type Header struct {
	Title          string
	CGBFlag        byte
	NewLicensee    string
	SGBFlag        byte
	CartType       byte
	ROMSizeFlag    byte
	RAMSizeFlag    byte
	Destination    byte
	OldLicensee    byte
	ROMVersion     byte
	HeaderChecksum byte
	GlobalChecksum uint16

	ROMSizeBytes int
	RAMSizeBytes int

	LogoOK           bool
	HeaderChecksumOK bool
	FullChecksumOK   bool
}

// IsRomBootable matches the source's definition: the logo must verify and
// the header checksum must verify. A bad full ROM checksum alone does not
// block booting.
func (h *Header) IsRomBootable() bool { return h.LogoOK && h.HeaderChecksumOK }

// ParseHeader extracts and validates a cartridge header from a raw ROM
// image. It returns an *InvalidCartridgeError when the ROM or RAM size
// flag is out of range or the image length doesn't match the size the
// flag declares.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd+1 {
		return nil, &InvalidCartridgeError{Kind: RomSize}
	}

	romSizeFlag := rom[0x0148]
	if int(romSizeFlag) >= len(romSizes) {
		return nil, &InvalidCartridgeError{Kind: RomSize}
	}
	expectedROMSize := romSizes[romSizeFlag]
	if len(rom) != expectedROMSize {
		return nil, &InvalidCartridgeError{Kind: RomSize}
	}

	ramSizeFlag := rom[0x0149]
	if int(ramSizeFlag) >= len(eramSizes) {
		return nil, &InvalidCartridgeError{Kind: RamSize}
	}

	titleEnd := 0x0144
	if rom[0x0143] > 0x7F {
		titleEnd = 0x0143
	}
	title := strings.TrimRight(string(rom[0x0134:titleEnd]), "\x00")

	h := &Header{
		Title:          title,
		CGBFlag:        rom[0x0143],
		NewLicensee:    string(rom[0x0144:0x0146]),
		SGBFlag:        rom[0x0146],
		CartType:       rom[0x0147],
		ROMSizeFlag:    romSizeFlag,
		RAMSizeFlag:    ramSizeFlag,
		Destination:    rom[0x014A],
		OldLicensee:    rom[0x014B],
		ROMVersion:     rom[0x014C],
		HeaderChecksum: rom[0x014D],
		GlobalChecksum: binary.BigEndian.Uint16(rom[0x014E:0x0150]),

		ROMSizeBytes: expectedROMSize,
		RAMSizeBytes: eramSizes[ramSizeFlag],
	}

	h.LogoOK = logoOK(rom)
	h.HeaderChecksumOK = headerChecksumOK(rom)
	h.FullChecksumOK = fullChecksumOK(rom)

	return h, nil
}

func logoOK(rom []byte) bool {
	for i, b := range nintendoLogo {
		if rom[0x0104+i] != b {
			return false
		}
	}
	return true
}

// headerChecksumOK implements checksum = -(25 + sum(bytes[0x0134..0x014D))) mod 256.
func headerChecksumOK(rom []byte) bool {
	var sum byte = 25
	for addr := 0x0134; addr < 0x014D; addr++ {
		sum += rom[addr]
	}
	return -sum == rom[0x014D]
}

func fullChecksumOK(rom []byte) bool {
	var sum uint16
	for _, b := range rom {
		sum += uint16(b)
	}
	sum -= uint16(rom[0x014E])
	sum -= uint16(rom[0x014F])
	expected := uint16(rom[0x014E])<<8 | uint16(rom[0x014F])
	return sum == expected
}
