package vm

// Cycle performs one fetch/decode/execute step:
//  1. read IP; halt with ErrIllegalMemoryAccess if it's out of bounds.
//  2. compute the instruction's length; halt if ip+len would run off memory.
//  3. execute it.
//  4. if execution didn't itself change IP, advance IP by the instruction
//     length; control-flow opcodes write IP themselves and so suppress
//     this auto-advance.
//
// Cycle never returns an error value directly — halts are latched into
// Machine.exit via fault, exactly as Run expects.
func (m *Machine) Cycle() {
	ip := m.ip()
	if !legalAddress(ip) {
		m.fault(ErrIllegalMemoryAccess)
		return
	}

	length := InstructionLength(m.memory[:], ip)
	if uint64(ip)+uint64(length) >= MemorySize {
		m.fault(ErrIllegalMemoryAccess)
		return
	}

	m.log.Debug().
		Uint32("ip", ip).
		Str("op", Opcode(m.memory[ip]).String()).
		Msg("cycle")

	m.Execute(ip, length)

	if m.running && m.ip() == ip {
		m.setIP(ip + length)
	}
}

// Run drives Cycle until the machine stops running, then returns the
// host-visible halt status and the guest exit code read back from register
// 0 at byte width.
func (m *Machine) Run() (*VMError, uint8) {
	for m.running {
		m.Cycle()
	}
	return m.exit, uint8(m.readReg(reg0Exit))
}
