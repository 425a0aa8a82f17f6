// Command rvsim is the interactive front end for the RV32I simulator:
// a thin collaborator that loads a program image, then either runs it
// to completion or steps through it one instruction at a time in a
// line-edited REPL. The decode/execute core lives in pkg/decoder and
// pkg/cpu; this command only wires it to a terminal.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/rv32isim/rv32isim/internal/rvlog"
	"github.com/rv32isim/rv32isim/pkg/cpu"
	"github.com/rv32isim/rv32isim/pkg/decoder"
	"github.com/rv32isim/rv32isim/pkg/loader"
	"github.com/rv32isim/rv32isim/pkg/memory"
)

func main() {
	filename := getopt.StringLong("file", 'f', "", "program image to load")
	memSize := getopt.IntLong("mem-size", 's', memory.DefaultSize, "memory size in bytes")
	loadAddr := getopt.Uint32Long("addr", 'a', 0, "base address to load the program at")
	startPC := getopt.Uint32Long("pc", 'p', 0, "initial program counter")
	maxCycles := getopt.Uint64Long("max-cycles", 'n', 1_000_000, "cycle budget for non-interactive runs")
	interactive := getopt.BoolLong("interactive", 'i', "step one instruction at a time")
	verbose := getopt.BoolLong("verbose", 'v', "trace every fetched instruction")
	logFile := getopt.StringLong("log", 'l', "", "optional log file")
	help := getopt.BoolLong("help", 'h', "show usage")
	getopt.Parse()

	if *help || *filename == "" {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *logFile != "" {
		var err error
		file, err = os.Create(*logFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer file.Close()
	}
	logger := slog.New(rvlog.NewHandler(file, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	data, err := os.ReadFile(*filename)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	mem := memory.New(*memSize)
	if err := loader.Load(mem, data, *loadAddr); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	machine := cpu.New(*startPC)
	machine.Logger = logger

	if *interactive {
		runInteractive(machine, mem)
		return
	}
	runHeadless(machine, mem, *maxCycles, *verbose, logger)
}

func runHeadless(machine *cpu.CPU, mem *memory.Memory, maxCycles uint64, verbose bool, logger *slog.Logger) {
	for i := uint64(0); i < maxCycles; i++ {
		state := machine.DumpState()
		if verbose {
			traceCycle(machine, mem, logger)
		}
		before := state.PC
		if err := machine.Step(mem); err != nil {
			if errors.Is(err, cpu.ErrEnvironmentCall) {
				logger.Info("halted on environment call", "pc", before)
				return
			}
			logger.Error(err.Error())
			os.Exit(1)
		}
		if machine.DumpState().PC == before {
			return
		}
	}
}

// runInteractive drives the step-by-step REPL: (n)ext, (r)egisters,
// reg <name> to read a single register by ABI name or numeric index,
// b/d <addr> to set/clear a breakpoint, (c)ontinue to run to the next
// breakpoint or halt, and (q)uit.
func runInteractive(machine *cpu.CPU, mem *memory.Memory) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	breakpoints := map[uint32]bool{}

	fmt.Println("rvsim interactive — (n)ext, (r)egisters, reg <name>, b/d <addr>, (c)ontinue, (q)uit")
	for {
		cmd, err := line.Prompt("rvsim> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error(err.Error())
			return
		}
		line.AppendHistory(cmd)

		fields := strings.Fields(cmd)
		verb := ""
		if len(fields) > 0 {
			verb = fields[0]
		}

		switch verb {
		case "q", "quit":
			return
		case "r", "registers":
			fmt.Println(machine.String())
		case "reg":
			if len(fields) != 2 {
				fmt.Println("usage: reg <name>")
				continue
			}
			printRegister(machine, fields[1])
		case "b", "break":
			if len(fields) != 2 {
				fmt.Println("usage: b <addr>")
				continue
			}
			addr, err := parseAddr(fields[1])
			if err != nil {
				fmt.Println("error: " + err.Error())
				continue
			}
			breakpoints[addr] = true
			fmt.Printf("breakpoint set at 0x%08x\n", addr)
		case "d", "delete":
			if len(fields) != 2 {
				fmt.Println("usage: d <addr>")
				continue
			}
			addr, err := parseAddr(fields[1])
			if err != nil {
				fmt.Println("error: " + err.Error())
				continue
			}
			delete(breakpoints, addr)
			fmt.Printf("breakpoint cleared at 0x%08x\n", addr)
		case "c", "continue":
			if runToBreakpoint(machine, mem, breakpoints) {
				return
			}
		case "n", "next", "":
			if err := machine.Step(mem); err != nil {
				if errors.Is(err, cpu.ErrEnvironmentCall) {
					fmt.Println("halted on environment call")
					return
				}
				fmt.Println("error: " + err.Error())
			}
		default:
			fmt.Println("commands: n, r, reg <name>, b <addr>, d <addr>, c, q")
		}
	}
}

// printRegister resolves name (an ABI name like "a0"/"sp" or a numeric
// "x<n>"/"pc") via cpu.RegisterIndex and prints its current value.
func printRegister(machine *cpu.CPU, name string) {
	idx, ok := cpu.RegisterIndex(name)
	if !ok {
		fmt.Printf("unknown register %q\n", name)
		return
	}
	v := machine.DumpState().Regs[idx]
	fmt.Printf("%s (x%d) = 0x%08x\n", cpu.ABIName(idx), idx, v)
}

// parseAddr accepts a decimal or 0x-prefixed hexadecimal address.
func parseAddr(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

// runToBreakpoint steps machine until PC lands on a set breakpoint, a
// halt-loop or environment call stops it, or Step fails. It returns
// true when the REPL should exit (environment call or fatal error).
func runToBreakpoint(machine *cpu.CPU, mem *memory.Memory, breakpoints map[uint32]bool) bool {
	for {
		before := machine.DumpState().PC
		if err := machine.Step(mem); err != nil {
			if errors.Is(err, cpu.ErrEnvironmentCall) {
				fmt.Println("halted on environment call")
				return true
			}
			fmt.Println("error: " + err.Error())
			return true
		}
		pc := machine.DumpState().PC
		if pc == before {
			fmt.Printf("halted (branch-to-self) at 0x%08x\n", pc)
			return false
		}
		if breakpoints[pc] {
			fmt.Printf("breakpoint hit at 0x%08x\n", pc)
			return false
		}
	}
}

func traceCycle(machine *cpu.CPU, mem *memory.Memory, logger *slog.Logger) {
	state := machine.DumpState()
	word, err := mem.ReadWord(state.PC)
	if err != nil {
		return
	}
	inst, derr := decoder.Decode(word)
	if derr != nil {
		logger.Warn("trace: undecodable instruction", "pc", state.PC, "word", word)
		return
	}
	logger.Info("trace", "pc", state.PC, "word", word, "asm", decoder.Disassemble(inst))
}
