package vm

// Flash resets the machine and projects exe into memory, ready to run from
// exe.EntryAddr. It is the only way a Machine transitions from idle to
// running; calling it again on a live Machine restarts it from scratch.
//
// With an empty load table, the whole data segment is copied to address 0
// (ErrExecutableTooBig if it doesn't fit). With a non-empty load table,
// each entry copies exe.Data[Offset:Offset+Size] to memory[Load:Load+Size];
// later entries win on overlap, and any entry whose source or destination
// range falls outside bounds halts the machine with ErrInvalidExecutable
// before any of the table is applied.
func (m *Machine) Flash(exe *Executable) error {
	m.regs = [NumRegisters]uint64{}
	m.memory = [MemorySize]byte{}
	m.exit = nil

	if len(exe.LoadTable) == 0 {
		if uint64(len(exe.Data)) > MemorySize {
			err := ErrExecutableTooBig
			m.fault(err)
			return err
		}
		copy(m.memory[:], exe.Data)
	} else {
		for _, e := range exe.LoadTable {
			srcEnd := uint64(e.Offset) + uint64(e.Size)
			if srcEnd > uint64(len(exe.Data)) || !legalRange(e.Load, e.Size) {
				err := ErrInvalidExecutable
				m.fault(err)
				return err
			}
		}
		for _, e := range exe.LoadTable {
			copy(m.memory[e.Load:e.Load+e.Size], exe.Data[e.Offset:e.Offset+e.Size])
		}
	}

	m.setSP(StackStart)
	m.setFP(MemorySize)
	m.setIP(exe.EntryAddr)
	m.running = true

	m.log.Info().
		Uint32("entry", exe.EntryAddr).
		Int("load_entries", len(exe.LoadTable)).
		Int("data_len", len(exe.Data)).
		Msg("flash")

	return nil
}
