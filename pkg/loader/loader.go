// Package loader reads a program image from disk and writes it into a
// memory.Memory at a base address. It is a thin collaborator, not part
// of the simulator core: spec.md places the full program loader (ELF
// segment extraction and the like) out of scope, so this package only
// knows how to read the two flat formats the teacher's own front ends
// produced — raw little-endian instruction words, and one hex literal
// per line, `#`-comments allowed.
package loader

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rv32isim/rv32isim/pkg/memory"
)

// ErrMisalignedImage indicates a raw binary image length is not a
// multiple of 4 bytes, so it cannot be a whole sequence of instructions.
var ErrMisalignedImage = errors.New("loader: image length is not a multiple of 4 bytes")

// LoadWords writes words, interpreted as instructions, into mem starting
// at addr.
func LoadWords(mem *memory.Memory, words []uint32, addr uint32) error {
	return mem.LoadProgram(words, addr)
}

// LoadBinary reads raw little-endian 32-bit words from r and writes them
// into mem starting at addr.
func LoadBinary(mem *memory.Memory, r io.Reader, addr uint32) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if len(data)%4 != 0 {
		return fmt.Errorf("%w: got %d bytes", ErrMisalignedImage, len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		b := data[4*i : 4*i+4]
		words[i] = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return LoadWords(mem, words, addr)
}

// LoadHexText reads one `0x`-prefixed 32-bit word per line (an optional
// `#` comment may follow) and writes the resulting words into mem
// starting at addr. This is the text bytecode format the teacher's
// assembler emitted and its VM consumed.
func LoadHexText(mem *memory.Memory, r io.Reader, addr uint32) error {
	var words []uint32
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseUint(line, 0, 32)
		if err != nil {
			return fmt.Errorf("loader: %w", err)
		}
		words = append(words, uint32(v))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return LoadWords(mem, words, addr)
}

// Load sniffs the image: if it looks like hex text (its first
// non-whitespace byte is '0' followed by 'x', or '#'), it is parsed
// with LoadHexText; otherwise it is treated as a raw binary image.
func Load(mem *memory.Memory, data []byte, addr uint32) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '#' || (len(trimmed) > 1 && trimmed[0] == '0' && (trimmed[1] == 'x' || trimmed[1] == 'X'))) {
		return LoadHexText(mem, bytes.NewReader(data), addr)
	}
	return LoadBinary(mem, bytes.NewReader(data), addr)
}
