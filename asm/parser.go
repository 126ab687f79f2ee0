// Package asm tokenizes MIPS assembly source into an instruction
// vector and a label table, following the line-oriented preprocessing
// style common to small assemblers: strip comments, split on
// whitespace/commas, fold label definitions into the following
// instruction.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sarchlab/mipspipe/isa"
)

// PoisonedLabel marks a label defined more than once; any later
// reference to it is a fatal InvalidLabel condition.
const PoisonedLabel = -1

// Program is the result of assembling a source file: an ordered
// instruction vector and a label name -> instruction index table.
type Program struct {
	Instructions []isa.Instruction
	Labels       map[string]int
}

// Parse reads MIPS assembly source from r and produces a Program.
// An unknown opcode is returned as a plain error; operands are not
// validated here (malformed operands are detected when the
// instruction is decoded). Label resolution is deliberately lazy — an undefined
// or doubly-defined label is only detected when a branch/jump
// referencing it executes, per the simulator's error model.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{Labels: make(map[string]int)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		label, rest := splitLabel(line)
		if label != "" {
			defineLabel(prog.Labels, label, len(prog.Instructions))
		}
		rest = strings.TrimSpace(rest)
		if rest == "" {
			// A label-only line attaches to whatever instruction comes
			// next, since the label already points at the current
			// (not yet appended) instruction index.
			continue
		}

		inst, err := parseInstruction(rest)
		if err != nil {
			return nil, err
		}
		prog.Instructions = append(prog.Instructions, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	return prog, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// splitLabel recognizes a label prefix in one of two forms: a
// standalone "name:" line, or "name:" prefixing an instruction on the
// same line. It returns the label name (empty if none) and the
// remainder of the line.
func splitLabel(line string) (label, rest string) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", line
	}
	return strings.TrimSpace(line[:idx]), line[idx+1:]
}

func defineLabel(labels map[string]int, name string, index int) {
	if _, exists := labels[name]; exists {
		labels[name] = PoisonedLabel
		return
	}
	labels[name] = index
}

// parseInstruction tokenizes a single instruction line (commas,
// spaces, and tabs as separators) into an isa.Instruction. Operand
// lists longer than three are collapsed by concatenating the extras
// into operand 3, matching the source assembler's tolerant behavior.
func parseInstruction(line string) (isa.Instruction, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	if len(fields) == 0 {
		return isa.Instruction{}, fmt.Errorf("empty instruction")
	}

	mnemonic := fields[0]
	op, ok := isa.Lookup(mnemonic)
	if !ok {
		return isa.Instruction{}, fmt.Errorf("unknown opcode %q", mnemonic)
	}

	operands := fields[1:]
	if len(operands) > 3 {
		operands[2] = strings.Join(operands[2:], " ")
		operands = operands[:3]
	}

	inst := isa.Instruction{Op: op}
	if len(operands) > 0 {
		inst.Op1 = operands[0]
	}
	if len(operands) > 1 {
		inst.Op2 = operands[1]
	}
	if len(operands) > 2 {
		inst.Op3 = operands[2]
	}
	return inst, nil
}

// IsValidLabelName reports whether name is a syntactically valid label:
// starts with a letter, contains only alphanumerics, and does not
// collide with an opcode mnemonic.
func IsValidLabelName(name string) bool {
	if name == "" || !isLetter(rune(name[0])) {
		return false
	}
	for _, r := range name {
		if !isLetter(r) && !isDigit(r) {
			return false
		}
	}
	return !isa.IsMnemonic(name)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
