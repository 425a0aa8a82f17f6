package decoder

import "fmt"

// Disassemble renders inst as RISC-V assembly text, grounded on the
// teacher's per-opcode Disassemble switch.
func Disassemble(inst Instruction) string {
	rd, rs1, rs2 := regName(inst.Rd), regName(inst.Rs1), regName(inst.Rs2)
	switch inst.Format {
	case FormatR:
		return fmt.Sprintf("%s %s, %s, %s", inst.Mnemonic, rd, rs1, rs2)
	case FormatI:
		switch inst.Mnemonic {
		case FENCE, FENCEI, ECALL, EBREAK:
			return inst.Mnemonic.String()
		case JALR, LB, LH, LW, LBU, LHU:
			return fmt.Sprintf("%s %s, %d(%s)", inst.Mnemonic, rd, inst.Imm, rs1)
		case CSRRWI, CSRRSI, CSRRCI:
			return fmt.Sprintf("%s %s, %d", inst.Mnemonic, rd, inst.Imm)
		default:
			return fmt.Sprintf("%s %s, %s, %d", inst.Mnemonic, rd, rs1, inst.Imm)
		}
	case FormatS:
		return fmt.Sprintf("%s %s, %d(%s)", inst.Mnemonic, rs2, inst.Imm, rs1)
	case FormatB:
		return fmt.Sprintf("%s %s, %s, %d", inst.Mnemonic, rs1, rs2, inst.Imm)
	case FormatU:
		return fmt.Sprintf("%s %s, %d", inst.Mnemonic, rd, inst.Imm>>12)
	case FormatJ:
		return fmt.Sprintf("%s %s, %d", inst.Mnemonic, rd, inst.Imm)
	default:
		return fmt.Sprintf("<unknown instruction: 0x%08x>", inst.Raw)
	}
}

func regName(i uint32) string {
	return fmt.Sprintf("x%d", i)
}
