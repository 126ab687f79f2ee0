// Package simerr provides the simulator's fatal error taxonomy, in the
// teacher's plain error-returning style (no panics), with enough
// structure to recover the error kind via errors.Is and to print the
// operand-tokens trailer the driver's error report requires.
package simerr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a fatal condition category.
type Kind int

// The five fatal condition kinds.
const (
	KindInvalidRegister Kind = iota + 1
	KindInvalidLabel
	KindInvalidAddress
	KindSyntaxError
	KindMemoryLimit
)

// Message returns the human-readable one-line description for a kind,
// printed as the first line of a fatal error report.
func (k Kind) Message() string {
	switch k {
	case KindInvalidRegister:
		return "invalid register provided or syntax error in providing register"
	case KindInvalidLabel:
		return "label used not defined or defined too many times"
	case KindInvalidAddress:
		return "unaligned or invalid memory address specified"
	case KindSyntaxError:
		return "syntax error encountered"
	case KindMemoryLimit:
		return "memory limit exceeded"
	default:
		return "unknown error"
	}
}

// ExitCode returns the process exit status associated with a kind,
// following the original implementation's exit_code numbering.
func (k Kind) ExitCode() int {
	return int(k)
}

// Sentinels usable with errors.Is.
var (
	ErrInvalidRegister = errors.New("invalid register")
	ErrInvalidLabel    = errors.New("invalid label")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrSyntaxError     = errors.New("syntax error")
	ErrMemoryLimit     = errors.New("memory limit exceeded")
)

func sentinelFor(k Kind) error {
	switch k {
	case KindInvalidRegister:
		return ErrInvalidRegister
	case KindInvalidLabel:
		return ErrInvalidLabel
	case KindInvalidAddress:
		return ErrInvalidAddress
	case KindSyntaxError:
		return ErrSyntaxError
	case KindMemoryLimit:
		return ErrMemoryLimit
	default:
		return errors.New("unknown error")
	}
}

// ExitCode returns the process exit status for err: the wrapped
// Kind's code for a simulator Error, or 1 for anything else.
func ExitCode(err error) int {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind.ExitCode()
	}
	return 1
}

// Error is a fatal simulator error, carrying the offending
// instruction's raw operand tokens for the driver's error report.
type Error struct {
	Kind     Kind
	Operands []string
	Cause    error
}

// New builds a fatal error of the given kind, wrapping cause (which may
// be nil) and recording the offending instruction's tokens.
func New(kind Kind, operands []string, cause error) *Error {
	return &Error{Kind: kind, Operands: operands, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind.Message(), e.Cause)
	}
	return e.Kind.Message()
}

// Unwrap lets errors.Is/As see through to both the underlying cause and
// the kind's sentinel.
func (e *Error) Unwrap() []error {
	return []error{sentinelFor(e.Kind), e.Cause}
}

// Report renders the wire format from the spec: a blank line, the
// message, "Error encountered at:", and the offending operand tokens.
func (e *Error) Report() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(e.Kind.Message())
	b.WriteString("\n")
	b.WriteString("Error encountered at:\n")
	b.WriteString(strings.Join(e.Operands, " "))
	b.WriteString("\n")
	return b.String()
}
