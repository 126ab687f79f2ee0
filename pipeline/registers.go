// Package pipeline implements the five in-order pipeline stages (IF,
// ID, EX, MEM, WB), the latches between them, the hazard tracker, and
// the cycle-by-cycle driver loop.
package pipeline

import "github.com/sarchlab/mipspipe/isa"

// State tags what a pipeline latch currently carries.
type State int

const (
	// StateEmpty means the latch carries no work (a bubble).
	StateEmpty State = iota
	// StateOccupied means the latch carries a live instruction.
	StateOccupied
	// StateStalled is emitted by ID into ID/EX when decode detected a
	// hazard; downstream stages treat it like StateEmpty.
	StateStalled
	// StateDrained marks "past end of program", propagating downstream
	// until it reaches WB, at which point the simulation ends.
	StateDrained
)

// IFIDLatch carries an instruction from Fetch to Decode.
type IFIDLatch struct {
	State State
	Op    isa.Opcode
	Op1   string
	Op2   string
	Op3   string

	// PC is this instruction's own address, carried along so a branch
	// can later report its address back to the predictor's Update.
	PC int

	// PredictedTaken/PredictedTarget are only meaningful in predictor
	// mode: the direction/target IF predicted for a branch so EX can
	// verify it later.
	PredictedTaken  bool
	PredictedTarget int
	HasPrediction   bool
}

// Clear resets the latch to an empty bubble.
func (l *IFIDLatch) Clear() { *l = IFIDLatch{} }

// IDEXLatch carries a decoded instruction, with captured register
// values, from Decode to Execute.
type IDEXLatch struct {
	State State
	Op    isa.Opcode
	Op1   string
	Op2   string
	Op3   string

	V1 int32
	V2 int32
	V3 int32

	// Dest is the destination register index, or -1 if the
	// instruction writes nothing.
	Dest int

	PC int

	// ActualTarget is the branch/jump target resolved against the
	// label table in ID. In predictor mode the direction/target are
	// not acted on here; EX compares them against the prediction.
	ActualTarget int

	PredictedTaken  bool
	PredictedTarget int
	HasPrediction   bool
}

// Clear resets the latch to an empty bubble.
func (l *IDEXLatch) Clear() { *l = IDEXLatch{Dest: -1} }

// EXMEMLatch carries a computed result, or a pending memory access,
// from Execute to Memory.
type EXMEMLatch struct {
	State State
	Op    isa.Opcode

	// Dest is the destination register (lw/ALU ops), or -1.
	Dest int
	// SrcReg is sw's value-source register, re-read live in MEM.
	SrcReg int
	// MemOperand is the raw lw/sw address operand text, re-resolved
	// against the live base register in MEM.
	MemOperand string

	Result int32

	// Mispredicted, ActualTaken, ActualTarget, and PC are only set for
	// a FormBranch instruction in predictor mode: whether EX's
	// evaluation disagreed with IF's prediction, what actually
	// happened, and where to redirect fetch if so.
	Mispredicted bool
	ActualTaken  bool
	ActualTarget int
	PC           int
}

// Clear resets the latch to an empty bubble.
func (l *EXMEMLatch) Clear() { *l = EXMEMLatch{Dest: -1, SrcReg: -1} }

// MEMWBLatch carries a writeback value from Memory to Writeback.
type MEMWBLatch struct {
	State State
	Op    isa.Opcode

	Dest       int
	Result     int32
	LoadedData int32
}

// Clear resets the latch to an empty bubble.
func (l *MEMWBLatch) Clear() { *l = MEMWBLatch{Dest: -1} }
