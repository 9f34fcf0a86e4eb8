package vm

// Opcode identifies one of the machine's instructions. The numbering below
// follows the machine's own enum ordering exactly (rpush=0 through
// syscall=58); anything >= NumOpcodes is unknown.
type Opcode uint8

const (
	OpRpush Opcode = iota
	OpRpop
	OpMov
	OpLoadi
	OpRst

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpIdiv
	OpRem
	OpIrem

	OpFadd
	OpFsub
	OpFmul
	OpFdiv
	OpFrem
	OpFexp

	OpFlt
	OpFgt

	OpCmp
	OpLt
	OpGt
	OpUlt
	OpUgt

	OpShr
	OpShl
	OpAnd
	OpXor
	OpOr
	OpNot

	OpInttofp
	OpSinttofp
	OpFptoint

	OpLoad
	OpLoadr
	OpLoads
	OpLoadsr
	OpStore
	OpPush

	OpRead
	OpReadc
	OpReads
	OpReadcs
	OpWrite
	OpWritec
	OpWrites
	OpWritecs
	OpCopy
	OpCopyc

	OpJz
	OpJzr
	OpJmp
	OpJmpr
	OpCall
	OpCallr
	OpRet

	OpNop
	OpSyscall

	// NumOpcodes is the sentinel used to recognise unknown opcode bytes.
	NumOpcodes
)

var opcodeNames = [NumOpcodes]string{
	OpRpush: "rpush", OpRpop: "rpop", OpMov: "mov", OpLoadi: "loadi", OpRst: "rst",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpIdiv: "idiv", OpRem: "rem", OpIrem: "irem",
	OpFadd: "fadd", OpFsub: "fsub", OpFmul: "fmul", OpFdiv: "fdiv", OpFrem: "frem", OpFexp: "fexp",
	OpFlt: "flt", OpFgt: "fgt",
	OpCmp: "cmp", OpLt: "lt", OpGt: "gt", OpUlt: "ult", OpUgt: "ugt",
	OpShr: "shr", OpShl: "shl", OpAnd: "and", OpXor: "xor", OpOr: "or", OpNot: "not",
	OpInttofp: "inttofp", OpSinttofp: "sinttofp", OpFptoint: "fptoint",
	OpLoad: "load", OpLoadr: "loadr", OpLoads: "loads", OpLoadsr: "loadsr", OpStore: "store", OpPush: "push",
	OpRead: "read", OpReadc: "readc", OpReads: "reads", OpReadcs: "readcs",
	OpWrite: "write", OpWritec: "writec", OpWrites: "writes", OpWritecs: "writecs",
	OpCopy: "copy", OpCopyc: "copyc",
	OpJz: "jz", OpJzr: "jzr", OpJmp: "jmp", OpJmpr: "jmpr", OpCall: "call", OpCallr: "callr", OpRet: "ret",
	OpNop: "nop", OpSyscall: "syscall",
}

// String renders the opcode mnemonic, or "?unknown?" for an out-of-range byte.
func (o Opcode) String() string {
	if int(o) >= len(opcodeNames) {
		return "?unknown?"
	}
	return opcodeNames[o]
}

// instrLen holds the fixed byte length of every opcode's encoding, including
// the opcode byte itself. OpLoadi and OpPush are variable-length and carry a
// 0 sentinel here; their true length is computed from the instruction bytes
// by InstructionLength.
var instrLen = [NumOpcodes]uint32{
	OpRpush: 2, OpRpop: 2, OpMov: 3, OpLoadi: 0, OpRst: 2,

	OpAdd: 3, OpSub: 3, OpMul: 3, OpDiv: 3, OpIdiv: 3, OpRem: 3, OpIrem: 3,

	OpFadd: 3, OpFsub: 3, OpFmul: 3, OpFdiv: 3, OpFrem: 3, OpFexp: 3,

	OpFlt: 3, OpFgt: 3,

	OpCmp: 3, OpLt: 3, OpGt: 3, OpUlt: 3, OpUgt: 3,

	OpShr: 3, OpShl: 3, OpAnd: 3, OpXor: 3, OpOr: 3, OpNot: 2,

	OpInttofp: 2, OpSinttofp: 2, OpFptoint: 2,

	OpLoad: 6, OpLoadr: 3, OpLoads: 9, OpLoadsr: 6, OpStore: 6, OpPush: 0,

	OpRead: 3, OpReadc: 6, OpReads: 6, OpReadcs: 9,
	OpWrite: 3, OpWritec: 6, OpWrites: 6, OpWritecs: 9,
	OpCopy: 7, OpCopyc: 13,

	OpJz: 5, OpJzr: 2, OpJmp: 5, OpJmpr: 2, OpCall: 5, OpCallr: 2, OpRet: 1,

	OpNop: 1, OpSyscall: 1,
}

// Syscall ids understood by OpSyscall (see Machine.Syscall).
const (
	SysExit  uint16 = 0x00
	SysSleep uint16 = 0x01
	SysWrite uint16 = 0x02
	SysPuts  uint16 = 0x03
)
