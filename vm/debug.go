package vm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RunDebug drives the machine one cycle at a time under operator control,
// reading commands from in and writing state dumps to out:
//
//	n, next          execute one cycle
//	r, run           free-run until a breakpoint or halt
//	b, break <addr>  toggle a breakpoint at a guest instruction address
//
// Breakpoints key on IP values rather than source lines, since NICE has no
// separate source form to break on.
func (m *Machine) RunDebug(in io.Reader, out io.Writer) {
	fmt.Fprintf(out, "Commands:\n\tn or next: execute next cycle\n\tr or run: free-run\n\tb or break <addr>: toggle breakpoint at address\n\n")

	m.printState(out)

	reader := bufio.NewReader(in)
	waitForInput := true
	breakpoints := make(map[uint32]struct{})
	lastBreak := uint32(0xFFFFFFFF)

	for m.running {
		line := ""
		if waitForInput {
			fmt.Fprint(out, "\n->")
			line, _ = reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
		} else {
			ip := m.ip()
			if _, hit := breakpoints[ip]; hit && ip != lastBreak {
				fmt.Fprintln(out, "breakpoint")
				m.printState(out)
				waitForInput = true
				lastBreak = ip
				continue
			}
		}

		switch {
		case !waitForInput, line == "n", line == "next":
			lastBreak = 0xFFFFFFFF
			m.Cycle()
			if waitForInput {
				m.printState(out)
			}
			if !m.running {
				if m.exit != ErrRegularExit {
					fmt.Fprintln(out, m.exit)
				}
				return
			}

		case line == "r", line == "run":
			waitForInput = false

		case strings.HasPrefix(line, "b"):
			arg := strings.TrimSpace(strings.TrimPrefix(line, "break"))
			arg = strings.TrimSpace(strings.TrimPrefix(arg, "b"))
			addr, err := strconv.ParseUint(arg, 0, 32)
			if err != nil {
				fmt.Fprintln(out, "unknown address:", err)
				continue
			}
			a := uint32(addr)
			if _, ok := breakpoints[a]; ok {
				delete(breakpoints, a)
			} else {
				breakpoints[a] = struct{}{}
			}
		}
	}
}

func (m *Machine) printState(out io.Writer) {
	fmt.Fprintf(out, "ip=0x%08x sp=0x%08x fp=0x%08x zero=%v\n", m.ip(), m.sp(), m.fp(), m.zeroSet())
	fmt.Fprintln(out, Disassemble(m.memory[:], m.ip()))
}
