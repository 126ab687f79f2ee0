package isa

import (
	"fmt"
	"strconv"
	"strings"
)

// MemOperand is a parsed lw/sw address operand: either a bare decimal
// byte address, or `offset(base)` where base names a register and
// offset may be empty (meaning 0).
type MemOperand struct {
	Offset   int32
	BaseReg  string // "" for a bare address with no base register
	HasBase  bool
}

// ParseMemOperand parses the textual address operand of an lw/sw
// instruction. It does not resolve the base register or validate the
// resulting address — that happens against live register/memory state
// in the pipeline's decode and memory stages.
func ParseMemOperand(token string) (MemOperand, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return MemOperand{}, fmt.Errorf("empty address operand")
	}

	if strings.HasSuffix(token, ")") {
		lparen := strings.IndexByte(token, '(')
		if lparen < 0 {
			return MemOperand{}, fmt.Errorf("malformed address operand %q", token)
		}
		offsetText := token[:lparen]
		base := strings.TrimSuffix(token[lparen+1:], ")")
		if base == "" {
			return MemOperand{}, fmt.Errorf("malformed address operand %q: missing base register", token)
		}

		offset := int32(0)
		if offsetText != "" {
			v, err := strconv.ParseInt(offsetText, 10, 32)
			if err != nil {
				return MemOperand{}, fmt.Errorf("malformed offset in %q: %w", token, err)
			}
			offset = int32(v)
		}

		return MemOperand{Offset: offset, BaseReg: base, HasBase: true}, nil
	}

	v, err := strconv.ParseInt(token, 10, 32)
	if err != nil {
		return MemOperand{}, fmt.Errorf("malformed address operand %q: %w", token, err)
	}
	return MemOperand{Offset: int32(v)}, nil
}
