package vm

import (
	"fmt"
	"math"
	"time"
)

// reg0Exit is the register that EXIT's guest exit code is written into
// (reg 0, byte width), matching Run's reading of the guest exit code.
const reg0Exit = modeByte | 0

// Syscall implements the `syscall` opcode: pop a 16-bit id from the stack
// and dispatch to one of the four guest-visible system calls.
func (m *Machine) Syscall() {
	id, ok := m.popValue(2)
	if !ok {
		return
	}

	switch uint16(id) {
	case SysExit:
		code, ok := m.popValue(1)
		if !ok {
			return
		}
		m.writeReg(reg0Exit, code)
		m.running = false
		m.exit = ErrRegularExit
		m.log.Info().Uint8("exit_code", uint8(code)).Msg("guest exit")

	case SysSleep:
		secondsBits, ok := m.popValue(8)
		if !ok {
			return
		}
		seconds := math.Float64frombits(secondsBits)
		time.Sleep(time.Duration(seconds * float64(time.Second)))

	case SysWrite:
		size, ok := m.popValue(4)
		if !ok {
			return
		}
		addr, ok := m.popValue(4)
		if !ok {
			return
		}
		data, ok := m.readBlock(uint32(addr), uint32(size))
		if !ok {
			return
		}
		m.stdout.Write(data)

	case SysPuts:
		regByte, ok := m.popValue(1)
		if !ok {
			return
		}
		rb := uint8(regByte)
		v := signExtend(m.readReg(rb), regWidth(rb))
		fmt.Fprint(m.stdout, v)

	default:
		m.fault(ErrInvalidSyscall)
	}

	m.log.Debug().Uint16("syscall", uint16(id)).Msg("syscall")
}
