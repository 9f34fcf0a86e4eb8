package vm

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Size and register-layout constants. These mirror the machine's own
// compile-time constants exactly.
const (
	// MemorySize is the size in bytes of the machine's linear address space.
	MemorySize = 8_000_000

	// NumRegisters is the number of 64-bit register slots.
	NumRegisters = 64

	// StackStart is where SP is initialised by flash; the stack grows down
	// from here.
	StackStart uint32 = 0x00400000
)

// Special-purpose register indices (6-bit codes; access width is implied).
const (
	regIP    = 60 // dword
	regSP    = 61 // dword
	regFP    = 62 // dword
	regFLAGS = 63 // byte
)

// Register-byte width encoding: high two bits select access width.
const (
	modeMask = 0xC0
	codeMask = 0x3F

	modeQword = 0x00 // 8 bytes
	modeDword = 0x40 // 4 bytes
	modeWord  = 0x80 // 2 bytes
	modeByte  = 0xC0 // 1 byte
)

// ipReg/spReg/fpReg/flagsReg are the register-byte encodings (width + index)
// used internally to address the special-purpose registers through the same
// read/write paths as guest code.
const (
	ipReg    = modeDword | regIP
	spReg    = modeDword | regSP
	fpReg    = modeDword | regFP
	flagsReg = modeByte | regFLAGS

	flagZero = 1 // bit 0 of FLAGS
)

// Machine holds the interpreter's entire mutable state: the linear memory,
// the register bank, and the running/exit status. A Machine is created
// once and reset by Flash, never reallocated between guest programs.
type Machine struct {
	memory  [MemorySize]byte
	regs    [NumRegisters]uint64
	running bool
	exit    *VMError

	stdout io.Writer
	stdin  io.Reader

	log zerolog.Logger
}

// NewMachine allocates a zeroed Machine. Call Flash before Run; Flash sets
// up SP/FP/IP and projects an Executable's data segment into memory.
func NewMachine() *Machine {
	return &Machine{
		stdout: os.Stdout,
		stdin:  os.Stdin,
		log:    zerolog.Nop(),
	}
}

// SetLogger attaches a structured logger used for per-cycle and per-syscall
// tracing (see Cycle and Syscall). A Machine built by NewMachine traces
// nothing until this is called.
func (m *Machine) SetLogger(l zerolog.Logger) { m.log = l }

// SetIO redirects the machine's console-facing syscalls (WRITE, PUTS) and
// any future stdin-consuming syscall. Defaults to os.Stdout/os.Stdin.
func (m *Machine) SetIO(out io.Writer, in io.Reader) {
	m.stdout = out
	m.stdin = in
}

// Running reports whether the machine would still execute another cycle.
func (m *Machine) Running() bool { return m.running }

// ExitStatus returns the host-visible halt reason. It is ErrRegularExit
// (Code() == 0) after a clean guest EXIT, nil while still running, and one
// of the other VMError values after an abnormal halt.
func (m *Machine) ExitStatus() *VMError { return m.exit }

// GuestExitCode reads the guest exit code back from register 0 at byte
// width, the same value Run returns alongside the halt status.
func (m *Machine) GuestExitCode() uint8 { return uint8(m.readReg(reg0Exit)) }

// MemorySnapshot returns a read-only view of the machine's memory, for
// disassembly and debug tooling. Callers must not retain or mutate it
// across a Cycle.
func (m *Machine) MemorySnapshot() []byte { return m.memory[:] }

// regWidth returns the access width in bytes encoded by a register byte's
// mode bits: 00->8, 01->4, 10->2, 11->1.
func regWidth(regByte uint8) uint32 {
	switch regByte & modeMask {
	case modeQword:
		return 8
	case modeDword:
		return 4
	case modeWord:
		return 2
	default: // modeByte
		return 1
	}
}

// readReg zero-extends the low regWidth(regByte) bytes of the addressed
// slot to 64 bits.
func (m *Machine) readReg(regByte uint8) uint64 {
	idx := regByte & codeMask
	switch regWidth(regByte) {
	case 1:
		return uint64(uint8(m.regs[idx]))
	case 2:
		return uint64(uint16(m.regs[idx]))
	case 4:
		return uint64(uint32(m.regs[idx]))
	default:
		return m.regs[idx]
	}
}

// writeReg writes the low regWidth(regByte) bytes of value into the
// addressed slot, leaving the slot's higher bytes untouched.
func (m *Machine) writeReg(regByte uint8, value uint64) {
	idx := regByte & codeMask
	switch regWidth(regByte) {
	case 1:
		m.regs[idx] = (m.regs[idx] &^ 0xFF) | uint64(uint8(value))
	case 2:
		m.regs[idx] = (m.regs[idx] &^ 0xFFFF) | uint64(uint16(value))
	case 4:
		m.regs[idx] = (m.regs[idx] &^ 0xFFFFFFFF) | uint64(uint32(value))
	default:
		m.regs[idx] = value
	}
}

func (m *Machine) ip() uint32        { return uint32(m.readReg(ipReg)) }
func (m *Machine) setIP(v uint32)    { m.writeReg(ipReg, uint64(v)) }
func (m *Machine) sp() uint32        { return uint32(m.readReg(spReg)) }
func (m *Machine) setSP(v uint32)    { m.writeReg(spReg, uint64(v)) }
func (m *Machine) fp() uint32        { return uint32(m.readReg(fpReg)) }
func (m *Machine) setFP(v uint32)    { m.writeReg(fpReg, uint64(v)) }
func (m *Machine) flags() uint8      { return uint8(m.readReg(flagsReg)) }
func (m *Machine) zeroSet() bool     { return m.flags()&flagZero != 0 }

func (m *Machine) setZero(isZero bool) {
	f := m.flags()
	if isZero {
		f |= flagZero
	} else {
		f &^= flagZero
	}
	m.writeReg(flagsReg, uint64(f))
}

// legalAddress reports whether addr lies within the machine's memory window
// (legalRange checks a whole range).
func legalAddress(addr uint32) bool { return addr < MemorySize }

// legalRange reports whether [addr, addr+size) lies entirely within memory,
// guarding against the uint32 overflow that addr+size could otherwise hide.
func legalRange(addr, size uint32) bool {
	if size == 0 {
		return legalAddress(addr) || addr == MemorySize
	}
	end := uint64(addr) + uint64(size)
	return end <= MemorySize
}

// fault latches err into the machine's exit status and stops execution. It
// is the single path by which Cycle/Execute/Syscall record an abnormal
// halt; every call site must return immediately afterwards.
func (m *Machine) fault(err *VMError) {
	m.exit = err
	m.running = false
}
