package vm

// readMemWidth reads width bytes at addr and zero-extends them to 64 bits.
// On an out-of-range access it latches ErrIllegalMemoryAccess and returns
// ok=false; the caller must stop processing the instruction immediately.
func (m *Machine) readMemWidth(addr uint32, width uint32) (value uint64, ok bool) {
	if !legalRange(addr, width) {
		m.fault(ErrIllegalMemoryAccess)
		return 0, false
	}
	return readImmediate(m.memory[:], addr, width), true
}

// writeMemWidth writes the low width bytes of value at addr, little-endian.
func (m *Machine) writeMemWidth(addr uint32, width uint32, value uint64) bool {
	if !legalRange(addr, width) {
		m.fault(ErrIllegalMemoryAccess)
		return false
	}
	writeImmediate(m.memory[:], addr, width, value)
	return true
}

// readBlock copies size bytes starting at addr into a fresh slice.
func (m *Machine) readBlock(addr, size uint32) (data []byte, ok bool) {
	if !legalRange(addr, size) {
		m.fault(ErrIllegalMemoryAccess)
		return nil, false
	}
	data = make([]byte, size)
	copy(data, m.memory[addr:addr+size])
	return data, true
}

// writeBlock copies data into memory starting at addr, all-or-nothing: the
// range is validated before anything is written.
func (m *Machine) writeBlock(addr uint32, data []byte) bool {
	if !legalRange(addr, uint32(len(data))) {
		m.fault(ErrIllegalMemoryAccess)
		return false
	}
	copy(m.memory[addr:addr+uint32(len(data))], data)
	return true
}

// pushBytes writes data at SP-len(data) and moves SP down by len(data), the
// way every push-family opcode (rpush, push, loads, loadsr, reads, readcs)
// grows the stack.
func (m *Machine) pushBytes(data []byte) bool {
	size := uint32(len(data))
	sp := m.sp()
	if sp < size {
		m.fault(ErrIllegalMemoryAccess)
		return false
	}
	newSP := sp - size
	if !m.writeBlock(newSP, data) {
		return false
	}
	m.setSP(newSP)
	return true
}

func (m *Machine) pushValue(width uint32, value uint64) bool {
	buf := make([]byte, width)
	writeImmediate(buf, 0, width, value)
	return m.pushBytes(buf)
}

// popBytes reads size bytes from the current SP and advances SP past them,
// the way rpop and the writes-family opcodes shrink the stack.
func (m *Machine) popBytes(size uint32) (data []byte, ok bool) {
	sp := m.sp()
	if !legalRange(sp, size) {
		m.fault(ErrIllegalMemoryAccess)
		return nil, false
	}
	data = make([]byte, size)
	copy(data, m.memory[sp:sp+size])
	m.setSP(sp + size)
	return data, true
}

func (m *Machine) popValue(width uint32) (uint64, bool) {
	data, ok := m.popBytes(width)
	if !ok {
		return 0, false
	}
	return readImmediate(data, 0, width), true
}

// frameAddr computes FP + a signed 32-bit offset, wrapping the way a real
// two's-complement add of a negative offset to an unsigned base would.
func (m *Machine) frameAddr(offset int32) uint32 {
	return m.fp() + uint32(offset)
}
