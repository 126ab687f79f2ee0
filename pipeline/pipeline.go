package pipeline

import (
	"github.com/sarchlab/mipspipe/arch"
	"github.com/sarchlab/mipspipe/isa"
	"github.com/sarchlab/mipspipe/predictor"
	"github.com/sarchlab/mipspipe/simerr"
)

// Simulator orchestrates the five pipeline stages cycle by cycle. With
// no predictor configured it resolves branches in ID (the baseline
// driver); with one configured, it predicts in IF and verifies in EX,
// squashing on misprediction.
type Simulator struct {
	fetch     *FetchStage
	decode    *DecodeStage
	execute   *ExecuteStage
	memory    *MemoryStage
	writeback *WritebackStage

	regs   *arch.RegFile
	mem    *arch.Memory
	hazard *HazardTable

	predictor predictor.Predictor

	ifid, nextIfid   IFIDLatch
	idex, nextIdex   IDEXLatch
	exmem, nextExmem EXMEMLatch
	memwb, nextMemwb MEMWBLatch

	pc    int
	cycle int

	doneIF, doneID, doneEX, doneMEM, doneWB bool

	deltas []MemoryDelta
	err    error
}

// New creates a Simulator for the given program and label table using
// the baseline ID-resolved driver.
func New(program []isa.Instruction, labels map[string]int) (*Simulator, error) {
	return newSimulator(program, labels, nil)
}

// NewPredicting creates a Simulator that predicts branches in IF using
// pred and verifies them in EX.
func NewPredicting(program []isa.Instruction, labels map[string]int, pred predictor.Predictor) (*Simulator, error) {
	return newSimulator(program, labels, pred)
}

func newSimulator(program []isa.Instruction, labels map[string]int, pred predictor.Predictor) (*Simulator, error) {
	if len(program)*4 >= arch.MaxMemoryBytes {
		return nil, simerr.New(simerr.KindMemoryLimit, nil, nil)
	}

	regs := &arch.RegFile{}
	mem := arch.NewMemory(len(program))
	hazard := NewHazardTable()

	var fetch *FetchStage
	var decode *DecodeStage
	if pred != nil {
		fetch = NewPredictingFetchStage(program, labels, pred)
		decode = NewPredictingDecodeStage(regs, labels, hazard)
	} else {
		fetch = NewFetchStage(program)
		decode = NewDecodeStage(regs, labels, hazard)
	}

	s := &Simulator{
		fetch:     fetch,
		decode:    decode,
		execute:   NewExecuteStage(),
		memory:    NewMemoryStage(regs, mem),
		writeback: NewWritebackStage(regs, hazard),
		regs:      regs,
		mem:       mem,
		hazard:    hazard,
		predictor: pred,
	}
	s.nextIdex.Dest, s.idex.Dest = -1, -1
	s.nextExmem.Dest, s.exmem.Dest = -1, -1
	s.nextExmem.SrcReg, s.exmem.SrcReg = -1, -1
	s.nextMemwb.Dest, s.memwb.Dest = -1, -1
	return s, nil
}

// Registers returns the architectural register file for inspection.
func (s *Simulator) Registers() *arch.RegFile { return s.regs }

// Cycle returns the current cycle count.
func (s *Simulator) Cycle() int { return s.cycle }

// Done reports whether the simulation has finished (the drained
// sentinel has reached WB).
func (s *Simulator) Done() bool {
	return s.doneIF && s.doneID && s.doneEX && s.doneMEM && s.doneWB
}

// Err returns the fatal error encountered during the most recent Tick,
// if any.
func (s *Simulator) Err() error { return s.err }

// Deltas returns the memory words changed during the most recent
// cycle. The caller should treat the slice as read-only; it is
// replaced (not mutated) on the next Tick.
func (s *Simulator) Deltas() []MemoryDelta { return s.deltas }

// HazardCount exposes the hazard table's total reservation count, used
// by tests to check the in-flight-writer invariant.
func (s *Simulator) HazardCount() int { return s.hazard.TotalReservations() }

// Tick advances the simulation by one cycle, running WB, MEM, EX, ID,
// IF in that order so each stage observes the value its producer left
// last cycle, and a register written back this cycle is visible to an
// instruction decoding in the very same cycle.
func (s *Simulator) Tick() {
	s.cycle++
	s.deltas = nil
	s.err = nil

	s.doWriteback()
	s.doMemory()
	squashed := s.doExecute()
	// squashed means EX just discovered a misprediction and already
	// redirected the program counter: doDecode turns its own result
	// into a bubble and releases any hazard it took out, and this
	// cycle's fetch slot, which also lies on the wrong path, becomes a
	// bubble too, so IF resumes at the corrected pc next cycle.
	s.doDecode(squashed)
	if squashed {
		s.nextIfid = IFIDLatch{State: StateEmpty}
		s.doneIF = false
	} else if s.cycle > 1 {
		// Cycle 1 runs with nothing above IF yet: the reference driver
		// skips IF entirely on the first cycle so the pipeline fills
		// one stage per cycle from a genuinely empty start.
		s.doFetch()
	}

	s.ifid, s.idex, s.exmem, s.memwb = s.nextIfid, s.nextIdex, s.nextExmem, s.nextMemwb
}

func (s *Simulator) doFetch() {
	if s.predictor != nil {
		_, ok, latch, next := s.fetch.FetchPredicting(s.pc)
		if !ok {
			s.nextIfid = IFIDLatch{State: StateDrained}
			s.doneIF = true
			return
		}
		s.nextIfid = latch
		s.pc = next
		return
	}

	inst, ok := s.fetch.Fetch(s.pc)
	if !ok {
		s.nextIfid = IFIDLatch{State: StateDrained}
		s.doneIF = true
		return
	}
	s.nextIfid = IFIDLatch{State: StateOccupied, Op: inst.Op, Op1: inst.Op1, Op2: inst.Op2, Op3: inst.Op3, PC: s.pc}
}

// doDecode runs the ID stage. squashedByEX is true when EX just
// redirected the program counter this same cycle; in that case
// whatever ID computes is discarded here, and ID does not touch the
// (already corrected) program counter.
func (s *Simulator) doDecode(squashedByEX bool) {
	if squashedByEX && s.ifid.State == StateDrained {
		// The drained sentinel was fetched down the wrong path.
		s.nextIdex = IDEXLatch{State: StateEmpty, Dest: -1}
		return
	}
	switch s.ifid.State {
	case StateDrained:
		s.nextIdex = IDEXLatch{State: StateDrained, Dest: -1}
		s.doneID = true
		return
	case StateEmpty:
		s.nextIdex = IDEXLatch{State: StateEmpty, Dest: -1}
		return
	}

	inst := isa.Instruction{Op: s.ifid.Op, Op1: s.ifid.Op1, Op2: s.ifid.Op2, Op3: s.ifid.Op3}
	out := s.decode.Decode(inst, s.ifid.PC, s.ifid)
	if out.err != nil {
		if !squashedByEX {
			s.err = out.err
		}
		s.nextIdex = IDEXLatch{State: StateEmpty, Dest: -1}
		return
	}
	if out.stall {
		s.nextIdex = out.latch
		if !squashedByEX {
			// Neither the program counter nor the fetched-but-undecoded
			// instruction advance: next cycle, fetch re-presents the
			// same instruction and decode retries the hazard check.
			s.pc = s.ifid.PC
		}
		return
	}
	if squashedByEX {
		// This instruction was decoded on the wrong path; any hazard
		// reservation it just took out will never be released by a
		// writeback that's now never going to happen.
		if out.latch.Dest >= 0 {
			s.hazard.Release(out.latch.Dest)
		}
		s.nextIdex = IDEXLatch{State: StateEmpty, Dest: -1}
		return
	}
	s.nextIdex = out.latch
	if !out.holdPC {
		s.pc = out.nextPC
	}
}

// doExecute runs the EX stage and reports whether it just discovered a
// branch misprediction that requires squashing IF/ID's work this
// cycle.
func (s *Simulator) doExecute() bool {
	switch s.idex.State {
	case StateDrained:
		s.nextExmem = EXMEMLatch{State: StateDrained, Dest: -1, SrcReg: -1}
		s.doneEX = true
		return false
	case StateEmpty, StateStalled:
		s.nextExmem = EXMEMLatch{State: StateEmpty, Dest: -1, SrcReg: -1}
		return false
	}

	out := s.execute.Execute(s.idex)
	out.latch.State = StateOccupied
	s.nextExmem = out.latch

	if s.idex.HasPrediction {
		s.predictor.Update(out.latch.PC, out.latch.ActualTaken)
		if out.latch.Mispredicted {
			s.pc = out.latch.ActualTarget
			return true
		}
	}
	return false
}

func (s *Simulator) doMemory() {
	switch s.exmem.State {
	case StateDrained:
		s.nextMemwb = MEMWBLatch{State: StateDrained, Dest: -1}
		s.doneMEM = true
		return
	case StateEmpty:
		s.nextMemwb = MEMWBLatch{State: StateEmpty, Dest: -1}
		return
	}

	out := s.memory.Access(s.exmem)
	if out.err != nil {
		s.err = out.err
		s.nextMemwb = MEMWBLatch{State: StateEmpty, Dest: -1}
		return
	}
	out.latch.State = StateOccupied
	s.nextMemwb = out.latch
	if out.delta != nil {
		s.deltas = append(s.deltas, *out.delta)
	}
}

func (s *Simulator) doWriteback() {
	switch s.memwb.State {
	case StateDrained:
		s.doneWB = true
		return
	case StateEmpty:
		return
	}
	s.writeback.Writeback(s.memwb)
}
