package vm

import "testing"

func TestRegisterWidthFidelity(t *testing.T) {
	m := NewMachine()
	qword := uint8(modeQword | 5)
	byteView := uint8(modeByte | 5)

	m.writeReg(qword, 0x1122334455667788)
	m.writeReg(byteView, 0xEF)

	got := m.readReg(qword)
	want := uint64(0x11223344556677EF)
	assert(t, got == want, "byte-width write corrupted upper bytes: got 0x%x want 0x%x", got, want)

	assert(t, m.readReg(byteView) == 0xEF, "byte-width read mismatch")
}

func TestRegisterWidthZeroExtends(t *testing.T) {
	m := NewMachine()
	m.writeReg(modeQword|3, 0xFFFFFFFFFFFFFFFF)
	m.writeReg(modeDword|3, 0x01020304)
	assert(t, m.readReg(modeDword|3) == 0x01020304, "dword read should zero-extend to 64 bits, got 0x%x", m.readReg(modeDword|3))
}

func TestFlashBoundsNoLoadTable(t *testing.T) {
	exe := &Executable{EntryAddr: 0, Data: []byte{1, 2, 3, 4}}
	m := NewMachine()
	err := m.Flash(exe)
	assert(t, err == nil, "unexpected flash error: %v", err)
	assert(t, m.memory[0] == 1 && m.memory[3] == 4, "data segment not placed at address 0")
	assert(t, m.memory[4] == 0, "memory past data segment should remain zero")
	assert(t, m.sp() == StackStart, "SP not initialised to StackStart")
	assert(t, m.fp() == MemorySize, "FP not initialised to MemorySize")
	assert(t, m.running, "machine should be running after flash")
}

func TestFlashBoundsWithLoadTable(t *testing.T) {
	exe := &Executable{
		EntryAddr: 0x10,
		LoadTable: []LoadEntry{
			{Offset: 0, Size: 2, Load: 0x100},
			{Offset: 2, Size: 2, Load: 0x100}, // overlaps and should win
		},
		Data: []byte{0xAA, 0xBB, 0xCC, 0xDD},
	}
	m := NewMachine()
	err := m.Flash(exe)
	assert(t, err == nil, "unexpected flash error: %v", err)
	assert(t, m.memory[0x100] == 0xCC && m.memory[0x101] == 0xDD, "later load entry should overwrite earlier overlap")
	assert(t, m.ip() == 0x10, "IP not set to entry address")
}

func TestFlashExecutableTooBig(t *testing.T) {
	exe := &Executable{Data: make([]byte, MemorySize+1)}
	m := NewMachine()
	err := m.Flash(exe)
	assert(t, err == ErrExecutableTooBig, "expected ErrExecutableTooBig, got %v", err)
	assert(t, !m.running, "machine should not be running after a failed flash")
}

func TestFlashInvalidExecutable(t *testing.T) {
	exe := &Executable{
		LoadTable: []LoadEntry{{Offset: 0, Size: 4, Load: MemorySize - 1}},
		Data:      []byte{1, 2, 3, 4},
	}
	m := NewMachine()
	err := m.Flash(exe)
	assert(t, err == ErrInvalidExecutable, "expected ErrInvalidExecutable, got %v", err)
}
