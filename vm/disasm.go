package vm

import (
	"fmt"
	"strings"
)

// regOperand renders a register byte as r<index>:<width-name>.
func regOperand(regByte uint8) string {
	widthName := map[uint32]string{8: "qword", 4: "dword", 2: "word", 1: "byte"}[regWidth(regByte)]
	return fmt.Sprintf("r%d:%s", regByte&codeMask, widthName)
}

// Disassemble decodes one instruction at ip and renders it as a single
// human-readable line: "mnemonic operand, operand, ...". It never touches
// Machine state and never faults; out-of-range or unknown bytes render as
// a best-effort "?" line instead. It is a debug aid only — its text format
// carries no compatibility guarantee.
func Disassemble(mem []byte, ip uint32) string {
	if !legalAddress(ip) {
		return "?out-of-range?"
	}
	op := Opcode(mem[ip])
	length := InstructionLength(mem, ip)
	if !legalRange(ip, length) {
		return fmt.Sprintf("%s ?truncated?", op)
	}

	var operands []string
	switch op {
	case OpRpush, OpRpop, OpRst, OpNot, OpInttofp, OpSinttofp, OpFptoint, OpJzr, OpJmpr, OpCallr:
		operands = append(operands, regOperand(mem[ip+1]))
	case OpMov, OpAdd, OpSub, OpMul, OpDiv, OpIdiv, OpRem, OpIrem,
		OpFadd, OpFsub, OpFmul, OpFdiv, OpFrem, OpFexp, OpFlt, OpFgt,
		OpCmp, OpLt, OpGt, OpUlt, OpUgt, OpShr, OpShl, OpAnd, OpXor, OpOr,
		OpLoadr, OpRead, OpWrite:
		operands = append(operands, regOperand(mem[ip+1]), regOperand(mem[ip+2]))
	case OpLoadi:
		r := mem[ip+1]
		width := regWidth(r)
		imm := readImmediate(mem, ip+2, width)
		operands = append(operands, regOperand(r), fmt.Sprintf("0x%x", imm))
	case OpLoad:
		operands = append(operands, regOperand(mem[ip+1]), fmt.Sprintf("fp%+d", int32(readLE32(mem, ip+2))))
	case OpLoads:
		operands = append(operands, fmt.Sprintf("size=%d", readLE32(mem, ip+1)), fmt.Sprintf("fp%+d", int32(readLE32(mem, ip+5))))
	case OpLoadsr:
		operands = append(operands, fmt.Sprintf("size=%d", readLE32(mem, ip+1)), regOperand(mem[ip+5]))
	case OpStore:
		operands = append(operands, fmt.Sprintf("fp%+d", int32(readLE32(mem, ip+1))), regOperand(mem[ip+5]))
	case OpPush:
		operands = append(operands, fmt.Sprintf("size=%d", readLE32(mem, ip+1)))
	case OpJz, OpJmp, OpCall:
		operands = append(operands, fmt.Sprintf("0x%x", readLE32(mem, ip+1)))
	case OpReadc:
		operands = append(operands, regOperand(mem[ip+1]), fmt.Sprintf("0x%x", readLE32(mem, ip+2)))
	case OpReads:
		operands = append(operands, fmt.Sprintf("size=%d", readLE32(mem, ip+1)), regOperand(mem[ip+5]))
	case OpReadcs:
		operands = append(operands, fmt.Sprintf("size=%d", readLE32(mem, ip+1)), fmt.Sprintf("0x%x", readLE32(mem, ip+5)))
	case OpWritecs:
		operands = append(operands, fmt.Sprintf("0x%x", readLE32(mem, ip+1)), fmt.Sprintf("size=%d", readLE32(mem, ip+5)))
	case OpWritec:
		operands = append(operands, fmt.Sprintf("0x%x", readLE32(mem, ip+1)), regOperand(mem[ip+5]))
	case OpWrites:
		operands = append(operands, regOperand(mem[ip+1]), fmt.Sprintf("size=%d", readLE32(mem, ip+2)))
	case OpCopy:
		operands = append(operands, regOperand(mem[ip+1]), fmt.Sprintf("size=%d", readLE32(mem, ip+2)), regOperand(mem[ip+6]))
	case OpCopyc:
		operands = append(operands,
			fmt.Sprintf("0x%x", readLE32(mem, ip+1)),
			fmt.Sprintf("size=%d", readLE32(mem, ip+5)),
			fmt.Sprintf("0x%x", readLE32(mem, ip+9)))
	}

	if len(operands) == 0 {
		return op.String()
	}
	return op.String() + " " + strings.Join(operands, ", ")
}
