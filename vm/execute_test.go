package vm

import (
	"bytes"
	"testing"
)

func machineWithCode(t *testing.T, code []byte) *Machine {
	m := NewMachine()
	err := m.Flash(&Executable{EntryAddr: 0, Data: code})
	assert(t, err == nil, "unexpected flash error: %v", err)
	return m
}

func appendU32(buf []byte, v uint32) []byte {
	b := make([]byte, 4)
	writeLE32(b, 0, v)
	return append(buf, b...)
}

func appendU64(buf []byte, v uint64) []byte {
	b := make([]byte, 8)
	writeLE64(b, 0, v)
	return append(buf, b...)
}

// TestExitZero builds: push 1,0x00; push 2,0x0000; syscall -> guest exit 0.
func TestExitZero(t *testing.T) {
	var code []byte
	code = append(code, byte(OpPush))
	code = appendU32(code, 1)
	code = append(code, 0x00)
	code = append(code, byte(OpPush))
	code = appendU32(code, 2)
	code = append(code, 0x00, 0x00)
	code = append(code, byte(OpSyscall))

	m := machineWithCode(t, code)
	status, guestExit := m.Run()
	assert(t, status == ErrRegularExit, "expected regular exit, got %v", status)
	assert(t, guestExit == 0, "expected guest exit 0, got %d", guestExit)
}

// TestAddAndExit builds: loadi r0,3; loadi r1,4; add r0,r1; mov r0:byte,r0:qword;
// rpush r0:byte; push 2,0x0000; syscall -> guest exit 7.
func TestAddAndExit(t *testing.T) {
	var code []byte
	code = append(code, byte(OpLoadi), modeQword|0)
	code = appendU64(code, 3)
	code = append(code, byte(OpLoadi), modeQword|1)
	code = appendU64(code, 4)
	code = append(code, byte(OpAdd), modeQword|0, modeQword|1)
	code = append(code, byte(OpMov), modeByte|0, modeQword|0)
	code = append(code, byte(OpRpush), modeByte|0)
	code = append(code, byte(OpPush))
	code = appendU32(code, 2)
	code = append(code, 0x00, 0x00)
	code = append(code, byte(OpSyscall))

	m := machineWithCode(t, code)
	status, guestExit := m.Run()
	assert(t, status == ErrRegularExit, "expected regular exit, got %v", status)
	assert(t, guestExit == 7, "expected guest exit 7, got %d", guestExit)
}

// TestWriteHello builds a stack-relayed write of "hi" to stdout via WRITE,
// then halts through EXIT with code 0.
func TestWriteHello(t *testing.T) {
	const targetAddr = 0x500

	var code []byte
	code = append(code, byte(OpPush))
	code = appendU32(code, 2)
	code = append(code, 'h', 'i')
	code = append(code, byte(OpWritecs))
	code = appendU32(code, targetAddr)
	code = appendU32(code, 2)
	code = append(code, byte(OpPush))
	code = appendU32(code, 4)
	code = appendU32(code, targetAddr)
	code = append(code, byte(OpPush))
	code = appendU32(code, 4)
	code = appendU32(code, 2)
	code = append(code, byte(OpPush))
	code = appendU32(code, 2)
	code = append(code, 0x02, 0x00)
	code = append(code, byte(OpSyscall))
	code = append(code, byte(OpPush))
	code = appendU32(code, 1)
	code = append(code, 0x00)
	code = append(code, byte(OpPush))
	code = appendU32(code, 2)
	code = append(code, 0x00, 0x00)
	code = append(code, byte(OpSyscall))

	m := machineWithCode(t, code)
	var out bytes.Buffer
	m.SetIO(&out, nil)
	status, _ := m.Run()
	assert(t, status == ErrRegularExit, "expected regular exit, got %v", status)
	assert(t, out.String() == "hi", "expected stdout %q, got %q", "hi", out.String())
}

func TestInvalidOpcode(t *testing.T) {
	m := machineWithCode(t, []byte{0xFF})
	status, _ := m.Run()
	assert(t, status == ErrInvalidInstruction, "expected ErrInvalidInstruction, got %v", status)
}

func TestOutOfBoundsRead(t *testing.T) {
	code := []byte{byte(OpReadc), modeDword | 0}
	code = appendU32(code, 0x00FFFFFF)
	m := machineWithCode(t, code)
	status, _ := m.Run()
	assert(t, status == ErrIllegalMemoryAccess, "expected ErrIllegalMemoryAccess, got %v", status)
}

func TestUnconditionalJump(t *testing.T) {
	code := make([]byte, 0x10+3)
	code[0] = byte(OpJmp)
	writeLE32(code, 1, 0x10)
	code[0x10] = byte(OpLoadi)
	code[0x11] = modeByte | 0
	code[0x12] = 42

	m := machineWithCode(t, code)
	m.Run()
	assert(t, uint8(m.readReg(modeByte|0)) == 42, "expected r0 byte == 42 after jump, got %d", uint8(m.readReg(modeByte|0)))
}

func TestIPAutoAdvance(t *testing.T) {
	code := []byte{byte(OpNop), byte(OpNop)}
	m := machineWithCode(t, code)
	m.Cycle()
	assert(t, m.ip() == 1, "expected IP to auto-advance past nop, got %d", m.ip())
}

func TestControlFlowSuppressesAutoAdvance(t *testing.T) {
	code := []byte{byte(OpJmp), 0, 0, 0, 0, byte(OpNop)}
	writeLE32(code, 1, 5)
	m := machineWithCode(t, code)
	m.Cycle()
	assert(t, m.ip() == 5, "expected IP to land on jump target, got %d", m.ip())
}

func TestStackDiscipline(t *testing.T) {
	m := NewMachine()
	err := m.Flash(&Executable{EntryAddr: 0, Data: nil})
	assert(t, err == nil, "unexpected flash error: %v", err)

	before := m.sp()
	ok := m.pushBytes([]byte{1, 2, 3, 4})
	assert(t, ok, "push should succeed")
	_, ok = m.popBytes(4)
	assert(t, ok, "pop should succeed")
	assert(t, m.sp() == before, "SP should be unchanged after balanced push/pop, got %d want %d", m.sp(), before)
}

func TestBoundsSafetyAllOrNothing(t *testing.T) {
	m := NewMachine()
	err := m.Flash(&Executable{EntryAddr: 0, Data: nil})
	assert(t, err == nil, "unexpected flash error: %v", err)

	before := make([]byte, 16)
	copy(before, m.memory[MemorySize-16:])

	ok := m.writeBlock(MemorySize-8, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	assert(t, !ok, "out-of-range write should fail")
	assert(t, bytes.Equal(before, m.memory[MemorySize-16:]), "out-of-range write must not partially apply")
}

func TestDivisionByZero(t *testing.T) {
	code := []byte{byte(OpLoadi), modeQword | 1}
	code = appendU64(code, 0)
	code = append(code, byte(OpDiv), modeQword|0, modeQword|1)
	m := machineWithCode(t, code)
	status, _ := m.Run()
	assert(t, status == ErrDivisionByZero, "expected ErrDivisionByZero, got %v", status)
}

func TestShrShlSwap(t *testing.T) {
	code := []byte{byte(OpLoadi), modeQword | 0}
	code = appendU64(code, 1)
	code = append(code, byte(OpLoadi), modeQword|1)
	code = appendU64(code, 1)
	code = append(code, byte(OpShr), modeQword|0, modeQword|1)
	m := machineWithCode(t, code)
	m.Cycle()
	m.Cycle()
	m.Cycle()
	assert(t, m.readReg(modeQword|0) == 2, "shr should shift left per the preserved swap, got %d", m.readReg(modeQword|0))
}
