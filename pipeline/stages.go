package pipeline

import (
	"fmt"

	"github.com/sarchlab/mipspipe/arch"
	"github.com/sarchlab/mipspipe/asm"
	"github.com/sarchlab/mipspipe/isa"
	"github.com/sarchlab/mipspipe/predictor"
	"github.com/sarchlab/mipspipe/simerr"
)

// FetchStage reads the next instruction from the program text. In
// predictor mode it also consults the branch predictor and the label
// table to choose which path to fetch down next.
type FetchStage struct {
	program   []isa.Instruction
	labels    map[string]int
	predictor predictor.Predictor
}

// NewFetchStage creates a fetch stage over the given instruction
// vector for the baseline driver.
func NewFetchStage(program []isa.Instruction) *FetchStage {
	return &FetchStage{program: program}
}

// NewPredictingFetchStage creates a fetch stage that predicts branch
// direction using pred, resolving targets against labels.
func NewPredictingFetchStage(program []isa.Instruction, labels map[string]int, pred predictor.Predictor) *FetchStage {
	return &FetchStage{program: program, labels: labels, predictor: pred}
}

// Fetch returns the instruction at pc and whether pc is still within
// the program (false once the program has drained).
func (s *FetchStage) Fetch(pc int) (isa.Instruction, bool) {
	if pc < 0 || pc >= len(s.program) {
		return isa.Instruction{}, false
	}
	return s.program[pc], true
}

// FetchPredicting behaves like Fetch, additionally computing a
// predicted direction/target for a branch instruction and the address
// IF should fetch from next. For anything but a branch, next is
// simply pc+1 (jumps are still resolved in ID, same as the baseline
// driver, since their target is unconditional and cheap to bubble).
func (s *FetchStage) FetchPredicting(pc int) (inst isa.Instruction, ok bool, latch IFIDLatch, next int) {
	inst, ok = s.Fetch(pc)
	if !ok {
		return inst, false, IFIDLatch{State: StateDrained}, pc
	}
	latch = IFIDLatch{
		State: StateOccupied, Op: inst.Op,
		Op1: inst.Op1, Op2: inst.Op2, Op3: inst.Op3, PC: pc,
	}
	next = pc + 1
	if isa.FormOf(inst.Op) != isa.FormBranch {
		return inst, true, latch, next
	}

	taken := s.predictor.Predict(pc)
	target, ok2 := s.labels[inst.Op3]
	latch.HasPrediction = true
	latch.PredictedTaken = taken
	if taken && ok2 && target != asm.PoisonedLabel {
		latch.PredictedTarget = target
		next = target
	}
	return inst, true, latch, next
}

// DecodeStage reads registers, checks hazards, and resolves control
// flow. In the baseline driver branches/jumps are fully resolved here;
// in predictor mode, IF has already predicted a direction for
// branches, so ID resolves the label (for error detection) and
// forwards the operands without touching the program counter, leaving
// EX to verify the prediction.
type DecodeStage struct {
	regs      *arch.RegFile
	labels    map[string]int
	hazard    *HazardTable
	predicted bool
}

// NewDecodeStage creates a decode stage for the baseline driver.
func NewDecodeStage(regs *arch.RegFile, labels map[string]int, hazard *HazardTable) *DecodeStage {
	return &DecodeStage{regs: regs, labels: labels, hazard: hazard}
}

// NewPredictingDecodeStage creates a decode stage for the predictor
// variant: branches do not commit the program counter themselves.
func NewPredictingDecodeStage(regs *arch.RegFile, labels map[string]int, hazard *HazardTable) *DecodeStage {
	return &DecodeStage{regs: regs, labels: labels, hazard: hazard, predicted: true}
}

// decodeOutcome is the result of attempting to decode one instruction.
type decodeOutcome struct {
	latch      IDEXLatch
	stall      bool
	nextPC     int
	pcOverride bool // true when the instruction itself set the next PC (branch/jump)
	holdPC     bool // true when IF already owns PC advancement (predictor-mode branch)
	err        error
}

// resolveLabel validates a label reference, returning its target index
// or a fatal InvalidLabel error.
func resolveLabel(labels map[string]int, name string, tokens []string) (int, error) {
	if !asm.IsValidLabelName(name) {
		return 0, simerr.New(simerr.KindInvalidLabel, tokens, nil)
	}
	idx, ok := labels[name]
	if !ok || idx == asm.PoisonedLabel {
		return 0, simerr.New(simerr.KindInvalidLabel, tokens, nil)
	}
	return idx, nil
}

// tokens returns the instruction's raw operand tokens (opcode plus the
// three operand slots, unused ones left empty) for the error report,
// mirroring the source assembler's 4-element command vector.
func tokens(op isa.Opcode, i isa.Instruction) []string {
	return []string{op.String(), i.Op1, i.Op2, i.Op3}
}

// Decode implements the ID stage. prediction is only consulted in
// predictor mode, where it carries IF's guess for a branch so it can
// be forwarded to EX for verification.
func (d *DecodeStage) Decode(inst isa.Instruction, pc int, prediction IFIDLatch) decodeOutcome {
	toks := tokens(inst.Op, inst)

	switch isa.FormOf(inst.Op) {
	case isa.FormRType:
		rd, ok1 := arch.RegisterByName(inst.Op1)
		rs, ok2 := arch.RegisterByName(inst.Op2)
		rt, ok3 := arch.RegisterByName(inst.Op3)
		if !ok1 || !ok2 || !ok3 || rd == 0 {
			return decodeOutcome{err: simerr.New(simerr.KindInvalidRegister, toks, nil)}
		}
		if d.hazard.Busy(rs) || d.hazard.Busy(rt) {
			return decodeOutcome{stall: true, latch: IDEXLatch{State: StateStalled, Dest: -1}}
		}
		d.hazard.Reserve(rd)
		latch := IDEXLatch{
			State: StateOccupied, Op: inst.Op,
			Op1: inst.Op1, Op2: inst.Op2, Op3: inst.Op3,
			V2: d.regs.Read(rs), V3: d.regs.Read(rt),
			Dest: rd,
		}
		return decodeOutcome{latch: latch, nextPC: pc + 1}

	case isa.FormAddImm:
		rd, ok1 := arch.RegisterByName(inst.Op1)
		rs, ok2 := arch.RegisterByName(inst.Op2)
		if !ok1 || !ok2 {
			return decodeOutcome{err: simerr.New(simerr.KindInvalidRegister, toks, nil)}
		}
		if rd == 0 {
			return decodeOutcome{err: simerr.New(simerr.KindInvalidRegister, toks, nil)}
		}
		imm, err := parseImmediate(inst.Op3)
		if err != nil {
			return decodeOutcome{err: simerr.New(simerr.KindSyntaxError, toks, err)}
		}
		if d.hazard.Busy(rs) {
			return decodeOutcome{stall: true, latch: IDEXLatch{State: StateStalled, Dest: -1}}
		}
		d.hazard.Reserve(rd)
		latch := IDEXLatch{
			State: StateOccupied, Op: inst.Op,
			Op1: inst.Op1, Op2: inst.Op2, Op3: inst.Op3,
			V2: d.regs.Read(rs), V3: imm,
			Dest: rd,
		}
		return decodeOutcome{latch: latch, nextPC: pc + 1}

	case isa.FormBranch:
		target, lblErr := resolveLabel(d.labels, inst.Op3, toks)
		rs, ok1 := arch.RegisterByName(inst.Op1)
		rt, ok2 := arch.RegisterByName(inst.Op2)
		if lblErr != nil {
			return decodeOutcome{err: lblErr}
		}
		if !ok1 || !ok2 {
			return decodeOutcome{err: simerr.New(simerr.KindInvalidRegister, toks, nil)}
		}
		if d.hazard.Busy(rs) || d.hazard.Busy(rt) {
			return decodeOutcome{stall: true, latch: IDEXLatch{State: StateStalled, Dest: -1}}
		}
		v1, v2 := d.regs.Read(rs), d.regs.Read(rt)
		latch := IDEXLatch{
			State: StateOccupied, Op: inst.Op,
			Op1: inst.Op1, Op2: inst.Op2, Op3: inst.Op3,
			V1: v1, V2: v2, Dest: -1, PC: pc, ActualTarget: target,
		}
		if d.predicted {
			// IF already chose the fetch path for this branch; ID
			// leaves the program counter alone and hands the resolved
			// operands to EX for verification.
			latch.HasPrediction = prediction.HasPrediction
			latch.PredictedTaken = prediction.PredictedTaken
			latch.PredictedTarget = prediction.PredictedTarget
			return decodeOutcome{latch: latch, holdPC: true}
		}
		taken := isa.BranchTaken(inst.Op, v1, v2)
		next := pc + 1
		if taken {
			next = target
		}
		return decodeOutcome{latch: latch, nextPC: next, pcOverride: true}

	case isa.FormJump:
		target, lblErr := resolveLabel(d.labels, inst.Op1, toks)
		if lblErr != nil {
			return decodeOutcome{err: lblErr}
		}
		latch := IDEXLatch{State: StateOccupied, Op: inst.Op, Op1: inst.Op1, Dest: -1}
		return decodeOutcome{latch: latch, nextPC: target, pcOverride: true}

	case isa.FormLoad:
		rt, ok := arch.RegisterByName(inst.Op1)
		mem, err := isa.ParseMemOperand(inst.Op2)
		if !ok || err != nil {
			return decodeOutcome{err: simerr.New(simerr.KindSyntaxError, toks, err)}
		}
		if rt == 0 {
			return decodeOutcome{err: simerr.New(simerr.KindInvalidRegister, toks, nil)}
		}
		baseReg := -1
		if mem.HasBase {
			idx, ok := arch.RegisterByName(mem.BaseReg)
			if !ok {
				return decodeOutcome{err: simerr.New(simerr.KindInvalidRegister, toks, nil)}
			}
			baseReg = idx
		}
		if d.hazard.Busy(rt) || (baseReg >= 0 && d.hazard.Busy(baseReg)) {
			return decodeOutcome{stall: true, latch: IDEXLatch{State: StateStalled, Dest: -1}}
		}
		d.hazard.Reserve(rt)
		latch := IDEXLatch{
			State: StateOccupied, Op: inst.Op,
			Op1: inst.Op1, Op2: inst.Op2, Dest: rt,
		}
		return decodeOutcome{latch: latch, nextPC: pc + 1}

	case isa.FormStore:
		rt, ok := arch.RegisterByName(inst.Op1)
		mem, err := isa.ParseMemOperand(inst.Op2)
		if !ok || err != nil {
			return decodeOutcome{err: simerr.New(simerr.KindSyntaxError, toks, err)}
		}
		baseReg := -1
		if mem.HasBase {
			idx, ok := arch.RegisterByName(mem.BaseReg)
			if !ok {
				return decodeOutcome{err: simerr.New(simerr.KindInvalidRegister, toks, nil)}
			}
			baseReg = idx
		}
		if d.hazard.Busy(rt) || (baseReg >= 0 && d.hazard.Busy(baseReg)) {
			return decodeOutcome{stall: true, latch: IDEXLatch{State: StateStalled, Dest: -1}}
		}
		latch := IDEXLatch{
			State: StateOccupied, Op: inst.Op,
			Op1: inst.Op1, Op2: inst.Op2, Dest: -1,
		}
		return decodeOutcome{latch: latch, nextPC: pc + 1}
	}

	return decodeOutcome{err: simerr.New(simerr.KindSyntaxError, toks, nil)}
}

func parseImmediate(text string) (int32, error) {
	var v int32
	var neg bool
	i := 0
	if len(text) == 0 {
		return 0, fmt.Errorf("empty immediate operand")
	}
	if text[0] == '-' {
		neg = true
		i = 1
	}
	if i >= len(text) {
		return 0, fmt.Errorf("malformed immediate operand %q", text)
	}
	for ; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("malformed immediate operand %q", text)
		}
		v = v*10 + int32(c-'0')
	}
	if neg {
		v = -v
	}
	return v, nil
}

// ExecuteStage computes ALU results and branch outcomes.
type ExecuteStage struct{}

// NewExecuteStage creates an execute stage.
func NewExecuteStage() *ExecuteStage { return &ExecuteStage{} }

// executeOutcome is the result of executing one instruction.
type executeOutcome struct {
	latch EXMEMLatch
}

// Execute implements the EX stage: pure ALU and branch computation over
// the captured operand values, no register-file or memory access. For
// lw/sw it only passes the address operand text on; MEM computes the
// effective address.
func (s *ExecuteStage) Execute(l IDEXLatch) executeOutcome {
	out := EXMEMLatch{Dest: -1, SrcReg: -1}

	switch isa.FormOf(l.Op) {
	case isa.FormRType, isa.FormAddImm:
		out.Dest = l.Dest
		out.Result = isa.ALU(l.Op, l.V2, l.V3)
	case isa.FormBranch:
		if l.HasPrediction {
			// Predictor mode: ID deliberately left the direction
			// unresolved. EX now evaluates the real condition and
			// compares it against what IF guessed.
			actualTaken := isa.BranchTaken(l.Op, l.V1, l.V2)
			actualTarget := l.PC + 1
			if actualTaken {
				actualTarget = l.ActualTarget
			}
			predictedTarget := l.PC + 1
			if l.PredictedTaken {
				predictedTarget = l.PredictedTarget
			}
			out.ActualTaken = actualTaken
			out.ActualTarget = actualTarget
			out.PC = l.PC
			out.Mispredicted = actualTaken != l.PredictedTaken || predictedTarget != actualTarget
		}
		// Otherwise already resolved in ID for the baseline driver; EX
		// has nothing further to compute.
	case isa.FormJump:
		// No computation; control flow already resolved in ID.
	case isa.FormLoad:
		out.Dest = l.Dest
		out.MemOperand = l.Op2
	case isa.FormStore:
		out.MemOperand = l.Op2
		srcReg, _ := arch.RegisterByName(l.Op1)
		out.SrcReg = srcReg
	}
	out.Op = l.Op
	return executeOutcome{latch: out}
}

// MemoryStage performs load/store access, re-reading live register
// values so that a later write to the base/source register between ID
// and MEM is observed, matching the "current value" rule in the spec.
type MemoryStage struct {
	regs *arch.RegFile
	mem  *arch.Memory
}

// NewMemoryStage creates a memory stage.
func NewMemoryStage(regs *arch.RegFile, mem *arch.Memory) *MemoryStage {
	return &MemoryStage{regs: regs, mem: mem}
}

// MemoryDelta records one word that changed during a cycle.
type MemoryDelta struct {
	Addr  int32
	Value int32
}

// memoryOutcome is the result of the MEM stage.
type memoryOutcome struct {
	latch MEMWBLatch
	delta *MemoryDelta
	err   error
}

func (s *MemoryStage) effectiveAddress(operand string, tokens []string) (int32, error) {
	mo, err := isa.ParseMemOperand(operand)
	if err != nil {
		return 0, simerr.New(simerr.KindSyntaxError, tokens, err)
	}
	addr := mo.Offset
	if mo.HasBase {
		base, ok := arch.RegisterByName(mo.BaseReg)
		if !ok {
			return 0, simerr.New(simerr.KindInvalidRegister, tokens, nil)
		}
		addr += s.regs.Read(base)
	}
	if err := s.mem.ValidateAddress(addr); err != nil {
		return 0, simerr.New(simerr.KindInvalidAddress, tokens, err)
	}
	return addr, nil
}

// Access implements the MEM stage.
func (s *MemoryStage) Access(l EXMEMLatch) memoryOutcome {
	out := MEMWBLatch{Op: l.Op, Dest: l.Dest}

	switch isa.FormOf(l.Op) {
	case isa.FormRType, isa.FormAddImm:
		out.Result = l.Result
	case isa.FormLoad:
		addr, err := s.effectiveAddress(l.MemOperand, []string{l.Op.String(), l.MemOperand})
		if err != nil {
			return memoryOutcome{err: err}
		}
		out.LoadedData = s.mem.Read(addr)
	case isa.FormStore:
		addr, err := s.effectiveAddress(l.MemOperand, []string{l.Op.String(), l.MemOperand})
		if err != nil {
			return memoryOutcome{err: err}
		}
		value := s.regs.Read(l.SrcReg)
		changed := s.mem.Write(addr, value)
		if changed {
			return memoryOutcome{latch: out, delta: &MemoryDelta{Addr: addr / 4, Value: value}}
		}
	}
	return memoryOutcome{latch: out}
}

// WritebackStage commits ALU/load results to the register file and
// releases the corresponding hazard reservation.
type WritebackStage struct {
	regs   *arch.RegFile
	hazard *HazardTable
}

// NewWritebackStage creates a writeback stage.
func NewWritebackStage(regs *arch.RegFile, hazard *HazardTable) *WritebackStage {
	return &WritebackStage{regs: regs, hazard: hazard}
}

// Writeback implements the WB stage.
func (s *WritebackStage) Writeback(l MEMWBLatch) {
	if !isa.WritesRegister(l.Op) {
		return
	}
	value := l.Result
	if l.Op == isa.OpLw {
		value = l.LoadedData
	}
	s.regs.Write(l.Dest, value)
	s.hazard.Release(l.Dest)
}
