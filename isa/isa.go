// Package isa describes the restricted MIPS32 instruction set the
// simulator executes: the opcode table and the pure, per-opcode
// operand/semantics metadata consulted by the pipeline stages.
package isa

// Opcode identifies one of the ten supported MIPS instructions.
type Opcode int

// The restricted instruction set.
const (
	OpUnknown Opcode = iota
	OpAdd
	OpSub
	OpMul
	OpAddi
	OpSlt
	OpLw
	OpSw
	OpBeq
	OpBne
	OpJ
)

var mnemonics = map[string]Opcode{
	"add":  OpAdd,
	"sub":  OpSub,
	"mul":  OpMul,
	"addi": OpAddi,
	"slt":  OpSlt,
	"lw":   OpLw,
	"sw":   OpSw,
	"beq":  OpBeq,
	"bne":  OpBne,
	"j":    OpJ,
}

// String returns the canonical mnemonic for op, or "?" for OpUnknown.
func (op Opcode) String() string {
	for text, o := range mnemonics {
		if o == op {
			return text
		}
	}
	return "?"
}

// Lookup resolves a mnemonic to its opcode. ok is false for anything
// outside the supported instruction set.
func Lookup(mnemonic string) (Opcode, bool) {
	op, ok := mnemonics[mnemonic]
	return op, ok
}

// IsMnemonic reports whether name names a known opcode — used by the
// assembler to reject label names that collide with opcode names.
func IsMnemonic(name string) bool {
	_, ok := mnemonics[name]
	return ok
}

// Instruction is the 4-tuple (opcode, operand1, operand2, operand3)
// produced by the assembler. Unused operand slots are the empty
// string.
type Instruction struct {
	Op   Opcode
	Op1  string
	Op2  string
	Op3  string
}

// Form classifies an opcode by how its operand slots are used.
type Form int

const (
	// FormRType is `op rd, rs, rt` (add, sub, mul, slt).
	FormRType Form = iota
	// FormAddImm is `addi rd, rs, imm`.
	FormAddImm
	// FormBranch is `op rs, rt, label` (beq, bne).
	FormBranch
	// FormJump is `j label`.
	FormJump
	// FormLoad is `lw rt, addr`.
	FormLoad
	// FormStore is `sw rt, addr`.
	FormStore
)

// FormOf returns the operand form for op. Callers must only invoke
// this with a known opcode (op != OpUnknown).
func FormOf(op Opcode) Form {
	switch op {
	case OpAdd, OpSub, OpMul, OpSlt:
		return FormRType
	case OpAddi:
		return FormAddImm
	case OpBeq, OpBne:
		return FormBranch
	case OpJ:
		return FormJump
	case OpLw:
		return FormLoad
	case OpSw:
		return FormStore
	default:
		return FormRType
	}
}

// WritesRegister reports whether op has a destination register that
// gets written back (true for the arithmetic family and lw).
func WritesRegister(op Opcode) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpSlt, OpAddi, OpLw:
		return true
	default:
		return false
	}
}

// ALU computes the result of an R-type or addi instruction from its
// captured operand values, wrapping on overflow (two's-complement,
// never trapping).
func ALU(op Opcode, a, b int32) int32 {
	switch op {
	case OpAdd, OpAddi:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpSlt:
		if a < b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// BranchTaken evaluates a beq/bne comparison.
func BranchTaken(op Opcode, a, b int32) bool {
	switch op {
	case OpBeq:
		return a == b
	case OpBne:
		return a != b
	default:
		return false
	}
}
