// Package cpu implements the fetch-decode-execute stepper over the
// architectural register file and memory: the ~50% of the simulator
// that ties the decoder and memory together into a running machine.
package cpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rv32isim/rv32isim/pkg/decoder"
	"github.com/rv32isim/rv32isim/pkg/memory"
)

// ErrEnvironmentCall is the sentinel wrapped by EnvironmentCallError,
// returned by Step when an ECALL or EBREAK instruction executes. It
// halts Run without altering PC or registers; the caller decides what,
// if anything, an environment call means.
var ErrEnvironmentCall = errors.New("cpu: environment call")

// EnvironmentCallError reports which of ECALL/EBREAK triggered
// ErrEnvironmentCall, so a caller that cares can tell them apart.
type EnvironmentCallError struct {
	Mnemonic decoder.Mnemonic
}

func (e *EnvironmentCallError) Error() string {
	return fmt.Sprintf("%s: %s", ErrEnvironmentCall, e.Mnemonic)
}

func (e *EnvironmentCallError) Unwrap() error {
	return ErrEnvironmentCall
}

// AlignmentError indicates PC was not a multiple of 4 after a cycle,
// the result of a misaligned branch or jump target.
type AlignmentError struct {
	PC uint32
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("cpu: misaligned program counter 0x%08x", e.PC)
}

// State is a snapshot of the machine for inspection and testing.
type State struct {
	Cycle uint64
	PC    uint32
	Regs  [NumRegisters]uint32
}

// CPU is the fetch-decode-execute stepper. A CPU and the Memory it
// steps over form a unit that is not safe to share across goroutines
// without external synchronization.
type CPU struct {
	regs   Registers
	cycle  uint64
	Logger *slog.Logger // defaults to slog.Default() when nil
}

// New creates a CPU with all general-purpose registers zeroed and PC
// set to startPC.
func New(startPC uint32) *CPU {
	c := &CPU{}
	c.regs.SetPC(startPC)
	return c
}

func (c *CPU) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// DumpState returns the current cycle count, PC, and all 33 registers.
func (c *CPU) DumpState() State {
	return State{Cycle: c.cycle, PC: c.regs.PC(), Regs: c.regs.Dump()}
}

// String renders a multi-column dump of the machine state, grounded on
// the register-table layout of the system this simulator replaces.
func (c *CPU) String() string {
	s := fmt.Sprintf("cycle %d  pc 0x%08x\n", c.cycle, c.regs.PC())
	for i := 0; i < NumRegisters; i++ {
		s += fmt.Sprintf("%-4s 0x%08x", ABIName(uint32(i)), c.regs.Read(uint32(i)))
		if (i+1)%4 == 0 {
			s += "\n"
		} else {
			s += "  "
		}
	}
	return s
}

// Step executes exactly one instruction: fetch, decode, execute, and
// advance PC. A DecodeError is downgraded to a NOP with a logged
// warning and execution continues. Step returns ErrEnvironmentCall
// (wrapped) when ECALL/EBREAK fires, *AlignmentError when the
// resulting PC is not 4-byte aligned, or a memory error propagated
// from Memory.
func (c *CPU) Step(mem *memory.Memory) error {
	pcBefore := c.regs.PC()

	word, err := mem.ReadWord(pcBefore)
	if err != nil {
		return err
	}

	inst, derr := decoder.Decode(word)
	if derr != nil {
		c.logger().Warn("decode failed, substituting NOP", "pc", pcBefore, "word", word, "err", derr)
		inst = decoder.NOP
	}

	pcSet, err := c.execute(inst, mem)
	if err != nil {
		if errors.Is(err, ErrEnvironmentCall) {
			c.cycle++
		}
		return err
	}

	if !pcSet {
		c.regs.SetPC(pcBefore + 4)
	}

	if c.regs.PC()%4 != 0 {
		return &AlignmentError{PC: c.regs.PC()}
	}

	c.cycle++
	return nil
}

// Run steps up to maxCycles times, stopping early if PC is unchanged
// across a step (the branch-to-self halt convention, e.g. `jal x0, 0`)
// or if a Step fails. The returned error is nil on a max-cycles or
// halt-loop stop; it is non-nil for any Step failure, including
// ErrEnvironmentCall.
func (c *CPU) Run(mem *memory.Memory, maxCycles uint64) error {
	for i := uint64(0); i < maxCycles; i++ {
		before := c.regs.PC()
		if err := c.Step(mem); err != nil {
			return err
		}
		if c.regs.PC() == before {
			return nil
		}
	}
	return nil
}
