// Package arch provides the architectural state of the MIPS32 subset
// machine: the register file and data memory.
package arch

import "strconv"

// NumRegisters is the size of the general-purpose register file.
const NumRegisters = 32

// RegFile holds the 32 general-purpose MIPS registers.
// Register 0 ($zero) always reads as 0; writes to it are discarded.
type RegFile struct {
	regs [NumRegisters]int32
}

// Read returns the value of register idx. Reads of register 0 always
// yield 0 regardless of what was ever written.
func (r *RegFile) Read(idx int) int32 {
	if idx == 0 {
		return 0
	}
	return r.regs[idx]
}

// Write stores value into register idx. Writes to register 0 are
// silently discarded.
func (r *RegFile) Write(idx int, value int32) {
	if idx == 0 {
		return
	}
	r.regs[idx] = value
}

// Snapshot returns a copy of all 32 register values, used for the
// per-cycle register dump.
func (r *RegFile) Snapshot() [NumRegisters]int32 {
	return r.regs
}

// registerNames maps symbolic MIPS register names to indices, mirroring
// the conventional MIPS32 calling-convention register file.
var registerNames = func() map[string]int {
	m := map[string]int{
		"$zero": 0, "$at": 1,
		"$v0": 2, "$v1": 3,
		"$a0": 4, "$a1": 5, "$a2": 6, "$a3": 7,
		"$t0": 8, "$t1": 9, "$t2": 10, "$t3": 11,
		"$t4": 12, "$t5": 13, "$t6": 14, "$t7": 15,
		"$s0": 16, "$s1": 17, "$s2": 18, "$s3": 19,
		"$s4": 20, "$s5": 21, "$s6": 22, "$s7": 23,
		"$t8": 24, "$t9": 25,
		"$k0": 26, "$k1": 27,
		"$gp": 28, "$sp": 29, "$s8": 30, "$ra": 31,
	}
	for i := 0; i < NumRegisters; i++ {
		m["$"+strconv.Itoa(i)] = i
	}
	return m
}()

// RegisterByName resolves a symbolic or numeric register name (e.g.
// "$t0", "$8") to its index. The second return value is false for an
// unknown name.
func RegisterByName(name string) (int, bool) {
	idx, ok := registerNames[name]
	return idx, ok
}

// IsRegisterName reports whether name is a recognized symbolic or
// numeric register name.
func IsRegisterName(name string) bool {
	_, ok := registerNames[name]
	return ok
}
