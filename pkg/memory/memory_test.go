package memory_test

import (
	"errors"
	"testing"

	"github.com/rv32isim/rv32isim/pkg/memory"
)

func TestWriteThenRead(t *testing.T) {
	m := memory.New(16)
	if err := m.Write([]byte{1, 2, 3, 4}, 4); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := m.Read(4, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []byte{1, 2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWriteOutOfBounds(t *testing.T) {
	m := memory.New(4)
	err := m.Write([]byte{1, 2}, 3)
	if !errors.Is(err, memory.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestReadOutOfBounds(t *testing.T) {
	m := memory.New(4)
	_, err := m.Read(1, 8)
	if !errors.Is(err, memory.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestWriteDoesNotReallocate(t *testing.T) {
	m := memory.New(8)
	if err := m.Write([]byte{0xaa}, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := m.Write([]byte{0xbb}, 4); err != nil {
		t.Fatalf("Write: %v", err)
	}
	b, err := m.Read(0, 8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if b[0] != 0xaa || b[4] != 0xbb {
		t.Fatalf("unexpected contents: %v", b)
	}
}

func TestLoadProgramAndReadWord(t *testing.T) {
	m := memory.New(16)
	words := []uint32{0x12345678, 0xdeadbeef}
	if err := m.LoadProgram(words, 0); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	got, err := m.ReadWord(0)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if got != words[0] {
		t.Fatalf("word 0: got 0x%08x, want 0x%08x", got, words[0])
	}
	got, err = m.ReadWord(4)
	if err != nil {
		t.Fatalf("ReadWord: %v", err)
	}
	if got != words[1] {
		t.Fatalf("word 1: got 0x%08x, want 0x%08x", got, words[1])
	}
}

func TestReadWordOutOfBounds(t *testing.T) {
	m := memory.New(4)
	_, err := m.ReadWord(1)
	if !errors.Is(err, memory.ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestSize(t *testing.T) {
	m := memory.New(memory.DefaultSize)
	if m.Size() != memory.DefaultSize {
		t.Fatalf("got %d, want %d", m.Size(), memory.DefaultSize)
	}
}
