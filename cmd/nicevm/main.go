// Command nicevm loads a NICE executable and runs it.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"nicevm/vm"
)

var (
	debugMode = flag.Bool("debug", false, "enter single-step debug mode")
	trace     = flag.Bool("trace", false, "raise tracing to debug level")
	disasm    = flag.Bool("disasm", false, "print a disassembly of the entry region instead of running")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: nicevm [-debug] [-trace] [-disasm] <executable>")
		os.Exit(2)
	}

	buf, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	exe, err := vm.Parse(buf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if *trace {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	m := vm.NewMachine()
	m.SetLogger(logger)

	if err := m.Flash(exe); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *disasm {
		mem := m.MemorySnapshot()
		ip := exe.EntryAddr
		for i := 0; i < 64; i++ {
			length := vm.InstructionLength(mem, ip)
			fmt.Printf("%08x  %s\n", ip, vm.Disassemble(mem, ip))
			if length == 0 {
				break
			}
			ip += length
		}
		return
	}

	var status *vm.VMError
	var guestExit uint8
	if *debugMode {
		m.RunDebug(os.Stdin, os.Stdout)
		status, guestExit = m.ExitStatus(), m.GuestExitCode()
	} else {
		status, guestExit = m.Run()
	}

	if status != nil && status != vm.ErrRegularExit {
		fmt.Fprintln(os.Stderr, status)
		os.Exit(int(status.Code()) + 100)
	}
	os.Exit(int(guestExit))
}
