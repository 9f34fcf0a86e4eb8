package vm

import "math"

// Execute performs the instruction at ip, whose encoded length is length
// (as computed by InstructionLength). It is the only place that interprets
// opcode semantics; Cycle is responsible for fetch, length computation, and
// the post-execution IP auto-advance.
//
// Every operand byte Execute touches was already range-checked by Cycle
// against [ip, ip+length), so operand reads here never re-check bounds.
// Bounds faults come only from *indirect* memory and stack accesses
// (through readMemWidth, writeMemWidth, readBlock, writeBlock,
// push/popBytes, and the checks in execCopy, execCall and execRet);
// the other halts are division by zero, an unknown opcode, and Syscall.
func (m *Machine) Execute(ip uint32, length uint32) {
	mem := m.memory[:]
	op := Opcode(mem[ip])

	switch op {
	case OpRpush:
		r := mem[ip+1]
		m.pushValue(regWidth(r), m.readReg(r))

	case OpRpop:
		r := mem[ip+1]
		v, ok := m.popValue(regWidth(r))
		if !ok {
			return
		}
		m.writeReg(r, v)

	case OpMov:
		rt, rs := mem[ip+1], mem[ip+2]
		m.writeReg(rt, m.readReg(rs))

	case OpLoadi:
		r := mem[ip+1]
		width := regWidth(r)
		imm := readImmediate(mem, ip+2, width)
		m.writeReg(r, imm)

	case OpRst:
		r := mem[ip+1]
		m.writeReg(r, 0)

	case OpAdd, OpSub, OpMul, OpDiv, OpIdiv, OpRem, OpIrem:
		m.execIntArith(op, mem[ip+1], mem[ip+2])

	case OpFadd, OpFsub, OpFmul, OpFdiv, OpFrem, OpFexp:
		m.execFloatArith(op, mem[ip+1], mem[ip+2])

	case OpFlt, OpFgt:
		rt, rs := mem[ip+1], mem[ip+2]
		a := math.Float64frombits(m.readReg(rt))
		b := math.Float64frombits(m.readReg(rs))
		if op == OpFlt {
			m.setZero(a < b)
		} else {
			m.setZero(a > b)
		}

	case OpCmp, OpLt, OpGt, OpUlt, OpUgt:
		m.execCompare(op, mem[ip+1], mem[ip+2])

	case OpShr, OpShl, OpAnd, OpXor, OpOr:
		m.execBitwise(op, mem[ip+1], mem[ip+2])

	case OpNot:
		r := mem[ip+1]
		width := regWidth(r)
		result := ^m.readReg(r)
		m.writeReg(r, result)
		m.setZero(maskWidth(result, width) == 0)

	case OpInttofp:
		r := mem[ip+1]
		v := float64(m.readReg(r))
		m.writeReg(r, math.Float64bits(v))

	case OpSinttofp:
		r := mem[ip+1]
		v := float64(signExtend(m.readReg(r), regWidth(r)))
		m.writeReg(r, math.Float64bits(v))

	case OpFptoint:
		r := mem[ip+1]
		v := int64(math.Float64frombits(m.readReg(r)))
		m.writeReg(r, uint64(v))

	case OpLoad:
		r := mem[ip+1]
		off := int32(readLE32(mem, ip+2))
		addr := m.frameAddr(off)
		v, ok := m.readMemWidth(addr, regWidth(r))
		if !ok {
			return
		}
		m.writeReg(r, v)

	case OpLoadr:
		r, roff := mem[ip+1], mem[ip+2]
		addr := m.frameAddr(int32(m.readReg(roff)))
		v, ok := m.readMemWidth(addr, regWidth(r))
		if !ok {
			return
		}
		m.writeReg(r, v)

	case OpLoads:
		size := readLE32(mem, ip+1)
		off := int32(readLE32(mem, ip+5))
		addr := m.frameAddr(off)
		data, ok := m.readBlock(addr, size)
		if !ok {
			return
		}
		m.pushBytes(data)

	case OpLoadsr:
		size := readLE32(mem, ip+1)
		roff := mem[ip+5]
		addr := m.frameAddr(int32(m.readReg(roff)))
		data, ok := m.readBlock(addr, size)
		if !ok {
			return
		}
		m.pushBytes(data)

	case OpStore:
		off := int32(readLE32(mem, ip+1))
		r := mem[ip+5]
		addr := m.frameAddr(off)
		m.writeMemWidth(addr, regWidth(r), m.readReg(r))

	case OpPush:
		size := readLE32(mem, ip+1)
		data := make([]byte, size)
		copy(data, mem[ip+5:ip+5+size])
		m.pushBytes(data)

	case OpRead:
		rt, rs := mem[ip+1], mem[ip+2]
		addr := uint32(m.readReg(rs))
		v, ok := m.readMemWidth(addr, regWidth(rt))
		if !ok {
			return
		}
		m.writeReg(rt, v)

	case OpReadc:
		rt := mem[ip+1]
		addr := readLE32(mem, ip+2)
		v, ok := m.readMemWidth(addr, regWidth(rt))
		if !ok {
			return
		}
		m.writeReg(rt, v)

	case OpReads:
		size := readLE32(mem, ip+1)
		rs := mem[ip+5]
		addr := uint32(m.readReg(rs))
		data, ok := m.readBlock(addr, size)
		if !ok {
			return
		}
		m.pushBytes(data)

	case OpReadcs:
		size := readLE32(mem, ip+1)
		addr := readLE32(mem, ip+5)
		data, ok := m.readBlock(addr, size)
		if !ok {
			return
		}
		m.pushBytes(data)

	case OpWrite:
		rt, rs := mem[ip+1], mem[ip+2]
		addr := uint32(m.readReg(rt))
		m.writeMemWidth(addr, regWidth(rs), m.readReg(rs))

	case OpWritec:
		addr := readLE32(mem, ip+1)
		rs := mem[ip+5]
		m.writeMemWidth(addr, regWidth(rs), m.readReg(rs))

	case OpWrites:
		rt := mem[ip+1]
		size := readLE32(mem, ip+2)
		addr := uint32(m.readReg(rt))
		data, ok := m.popBytes(size)
		if !ok {
			return
		}
		m.writeBlock(addr, data)

	case OpWritecs:
		addr := readLE32(mem, ip+1)
		size := readLE32(mem, ip+5)
		data, ok := m.popBytes(size)
		if !ok {
			return
		}
		m.writeBlock(addr, data)

	case OpCopy:
		rt := mem[ip+1]
		size := readLE32(mem, ip+2)
		rs := mem[ip+6]
		dst := uint32(m.readReg(rt))
		src := uint32(m.readReg(rs))
		m.execCopy(dst, src, size)

	case OpCopyc:
		dst := readLE32(mem, ip+1)
		size := readLE32(mem, ip+5)
		src := readLE32(mem, ip+9)
		m.execCopy(dst, src, size)

	case OpJz:
		addr := readLE32(mem, ip+1)
		if m.zeroSet() {
			m.setIP(addr)
		}

	case OpJzr:
		r := mem[ip+1]
		if m.zeroSet() {
			m.setIP(uint32(m.readReg(r)))
		}

	case OpJmp:
		addr := readLE32(mem, ip+1)
		m.setIP(addr)

	case OpJmpr:
		r := mem[ip+1]
		m.setIP(uint32(m.readReg(r)))

	case OpCall:
		addr := readLE32(mem, ip+1)
		m.execCall(addr, ip+length)

	case OpCallr:
		r := mem[ip+1]
		m.execCall(uint32(m.readReg(r)), ip+length)

	case OpRet:
		m.execRet()

	case OpNop:
		// no-op

	case OpSyscall:
		m.Syscall()

	default:
		m.fault(ErrInvalidInstruction)
	}
}

func maskWidth(v uint64, width uint32) uint64 {
	switch width {
	case 1:
		return v & 0xFF
	case 2:
		return v & 0xFFFF
	case 4:
		return v & 0xFFFFFFFF
	default:
		return v
	}
}

// execIntArith implements add/sub/mul/div/idiv/rem/irem: Rt <- Rt op Rs,
// with div/rem unsigned and idiv/irem reinterpreting both operands as
// signed 64-bit values.
func (m *Machine) execIntArith(op Opcode, rtByte, rsByte uint8) {
	width := regWidth(rtByte)
	a := m.readReg(rtByte)
	b := m.readReg(rsByte)

	var result uint64
	switch op {
	case OpAdd:
		result = a + b
	case OpSub:
		result = a - b
	case OpMul:
		result = a * b
	case OpDiv:
		if b == 0 {
			m.fault(ErrDivisionByZero)
			return
		}
		result = a / b
	case OpIdiv:
		sb := signExtend(b, width)
		if sb == 0 {
			m.fault(ErrDivisionByZero)
			return
		}
		result = uint64(signExtend(a, width) / sb)
	case OpRem:
		if b == 0 {
			m.fault(ErrDivisionByZero)
			return
		}
		result = a % b
	case OpIrem:
		sb := signExtend(b, width)
		if sb == 0 {
			m.fault(ErrDivisionByZero)
			return
		}
		result = uint64(signExtend(a, width) % sb)
	}

	m.writeReg(rtByte, result)
	m.setZero(maskWidth(result, width) == 0)
}

// execFloatArith implements fadd/fsub/fmul/fdiv/frem/fexp over binary64
// values carried as bit patterns in the register slots.
func (m *Machine) execFloatArith(op Opcode, rtByte, rsByte uint8) {
	a := math.Float64frombits(m.readReg(rtByte))
	b := math.Float64frombits(m.readReg(rsByte))

	var result float64
	switch op {
	case OpFadd:
		result = a + b
	case OpFsub:
		result = a - b
	case OpFmul:
		result = a * b
	case OpFdiv:
		result = a / b
	case OpFrem:
		result = math.Mod(a, b)
	case OpFexp:
		result = math.Pow(a, b)
	}

	m.writeReg(rtByte, math.Float64bits(result))
	m.setZero(result == 0)
}

// execCompare implements cmp/lt/gt/ult/ugt: set the Zero flag iff the
// predicate holds, leaving both registers unchanged.
func (m *Machine) execCompare(op Opcode, rtByte, rsByte uint8) {
	width := regWidth(rtByte)
	a := m.readReg(rtByte)
	b := m.readReg(rsByte)

	var holds bool
	switch op {
	case OpCmp:
		holds = a == b
	case OpLt:
		holds = signExtend(a, width) < signExtend(b, width)
	case OpGt:
		holds = signExtend(a, width) > signExtend(b, width)
	case OpUlt:
		holds = a < b
	case OpUgt:
		holds = a > b
	}
	m.setZero(holds)
}

// execBitwise implements shr/shl/and/xor/or. shr/shl are intentionally
// swapped relative to their names: shr shifts left and shl shifts right.
func (m *Machine) execBitwise(op Opcode, rtByte, rsByte uint8) {
	width := regWidth(rtByte)
	a := m.readReg(rtByte)
	b := m.readReg(rsByte)

	var result uint64
	switch op {
	case OpShr:
		result = a << (b % 64)
	case OpShl:
		result = a >> (b % 64)
	case OpAnd:
		result = a & b
	case OpXor:
		result = a ^ b
	case OpOr:
		result = a | b
	}

	m.writeReg(rtByte, result)
	m.setZero(maskWidth(result, width) == 0)
}

// execCopy implements copy/copyc: an all-or-nothing memory-to-memory block
// move, validating both endpoints before writing either.
func (m *Machine) execCopy(dst, src, size uint32) {
	if !legalRange(dst, size) || !legalRange(src, size) {
		m.fault(ErrIllegalMemoryAccess)
		return
	}
	buf := make([]byte, size)
	copy(buf, m.memory[src:src+size])
	copy(m.memory[dst:dst+size], buf)
}

// execCall implements call/callr: push a two-word frame (saved FP, return
// address) at sfb = SP-8, then FP <- sfb and IP <- target.
func (m *Machine) execCall(target, returnAddr uint32) {
	sfb := m.sp() - 8
	if m.sp() < 8 || !legalRange(sfb, 8) {
		m.fault(ErrIllegalMemoryAccess)
		return
	}
	writeLE32(m.memory[:], sfb, m.fp())
	writeLE32(m.memory[:], sfb+4, returnAddr)
	m.setSP(sfb)
	m.setFP(sfb)
	m.setIP(target)
}

// execRet implements ret: read the saved FP, return address, and
// argument-cleanup count from the current frame, then unwind to the
// caller. The ac word at FP+8 is never written by call/callr; it is a
// caller-supplied convention this implementation only consumes.
func (m *Machine) execRet() {
	fp := m.fp()
	if !legalRange(fp, 12) {
		m.fault(ErrIllegalMemoryAccess)
		return
	}
	savedFP := readLE32(m.memory[:], fp)
	returnAddr := readLE32(m.memory[:], fp+4)
	ac := readLE32(m.memory[:], fp+8)

	newSP := fp + 12 + ac
	if !legalAddress(newSP) && newSP != MemorySize {
		m.fault(ErrIllegalMemoryAccess)
		return
	}

	m.setFP(savedFP)
	m.setSP(newSP)
	m.setIP(returnAddr)
}
