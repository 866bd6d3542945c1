package cpu

// execCB fetches and runs one CB-prefixed instruction. The 256 CB opcodes
// decompose cleanly into an 8-bit operand group (B,C,D,E,H,L,(HL),A, the
// same index order as getR8/setR8) crossed with 32 operations: 8 rotate/
// shift/swap ops, then BIT/RES/SET each crossed with the 8 bit positions.
// (HL) timing falls out of the read8/write8 cost automatically; BIT (HL)
// only reads, so it's 12 T-cycles where the others are 16.
func (c *CPU) execCB() {
	op := c.fetch8()
	reg := int(op & 7)
	group := int(op >> 3)

	switch {
	case group < 8:
		v := c.getR8(reg)
		var res byte
		switch group {
		case 0:
			res = c.rlcOp(v)
		case 1:
			res = c.rrcOp(v)
		case 2:
			res = c.rlOp(v)
		case 3:
			res = c.rrOp(v)
		case 4:
			res = c.slaOp(v)
		case 5:
			res = c.sraOp(v)
		case 6:
			res = c.swapOp(v)
		default:
			res = c.srlOp(v)
		}
		c.setR8(reg, res)

	case group < 16: // BIT b,r8
		bit := group - 8
		c.bitOp(bit, c.getR8(reg))

	case group < 24: // RES b,r8
		bit := group - 16
		v := c.getR8(reg)
		c.setR8(reg, v&^(1<<uint(bit)))

	default: // SET b,r8
		bit := group - 24
		v := c.getR8(reg)
		c.setR8(reg, v|(1<<uint(bit)))
	}
}

func (c *CPU) rlcOp(v byte) byte {
	carry := v&0x80 != 0
	res := v << 1
	if carry {
		res |= 1
	}
	c.setFlag(flagC, carry)
	c.setFlag(flagN, false)
	c.setFlag(flagH, false)
	c.setFlag(flagZ, res == 0)
	return res
}

func (c *CPU) rrcOp(v byte) byte {
	carry := v&0x01 != 0
	res := v >> 1
	if carry {
		res |= 0x80
	}
	c.setFlag(flagC, carry)
	c.setFlag(flagN, false)
	c.setFlag(flagH, false)
	c.setFlag(flagZ, res == 0)
	return res
}

func (c *CPU) rlOp(v byte) byte {
	oldCarry := c.F&flagC != 0
	carry := v&0x80 != 0
	res := v << 1
	if oldCarry {
		res |= 1
	}
	c.setFlag(flagC, carry)
	c.setFlag(flagN, false)
	c.setFlag(flagH, false)
	c.setFlag(flagZ, res == 0)
	return res
}

func (c *CPU) rrOp(v byte) byte {
	oldCarry := c.F&flagC != 0
	carry := v&0x01 != 0
	res := v >> 1
	if oldCarry {
		res |= 0x80
	}
	c.setFlag(flagC, carry)
	c.setFlag(flagN, false)
	c.setFlag(flagH, false)
	c.setFlag(flagZ, res == 0)
	return res
}

func (c *CPU) slaOp(v byte) byte {
	carry := v&0x80 != 0
	res := v << 1
	c.setFlag(flagC, carry)
	c.setFlag(flagN, false)
	c.setFlag(flagH, false)
	c.setFlag(flagZ, res == 0)
	return res
}

func (c *CPU) sraOp(v byte) byte {
	carry := v&0x01 != 0
	res := (v >> 1) | (v & 0x80)
	c.setFlag(flagC, carry)
	c.setFlag(flagN, false)
	c.setFlag(flagH, false)
	c.setFlag(flagZ, res == 0)
	return res
}

func (c *CPU) swapOp(v byte) byte {
	res := v<<4 | v>>4
	c.setFlag(flagC, false)
	c.setFlag(flagN, false)
	c.setFlag(flagH, false)
	c.setFlag(flagZ, res == 0)
	return res
}

func (c *CPU) srlOp(v byte) byte {
	carry := v&0x01 != 0
	res := v >> 1
	c.setFlag(flagC, carry)
	c.setFlag(flagN, false)
	c.setFlag(flagH, false)
	c.setFlag(flagZ, res == 0)
	return res
}

func (c *CPU) bitOp(bit int, v byte) {
	c.setFlag(flagZ, v&(1<<uint(bit)) == 0)
	c.setFlag(flagN, false)
	c.setFlag(flagH, true)
}
