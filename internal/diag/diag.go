// Package diag provides the structured diagnostics used across the compiler.
// User-facing errors carry a position and render with source context and a
// caret; internal invariant violations abort with a backtrace.
package diag

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/zeek/go-spicy/internal/lexer"
)

// Priority orders errors attached to the same source location. A Normal
// priority error suppresses Low priority ones at that location.
type Priority int

const (
	Normal Priority = iota
	Low
)

// Error is a single user-facing diagnostic.
type Error struct {
	Message  string
	Location lexer.Position
	File     string
	Context  string
	Priority Priority
}

// Errorf builds an Error at the given position.
func Errorf(pos lexer.Position, format string, args ...any) Error {
	return Error{Message: fmt.Sprintf(format, args...), Location: pos}
}

// Error implements the error interface.
func (e Error) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s:%s: %s", e.File, e.Location, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Location, e.Message)
}

// Format renders the error with source context and a caret indicator.
// If color is true, ANSI color codes are used for terminal output.
func (e Error) Format(source string, color bool) string {
	var sb strings.Builder

	if e.File != "" {
		fmt.Fprintf(&sb, "Error in %s:%d:%d\n", e.File, e.Location.Line, e.Location.Column)
	} else {
		fmt.Fprintf(&sb, "Error at line %d:%d\n", e.Location.Line, e.Location.Column)
	}

	if line := sourceLine(source, e.Location.Line); line != "" {
		lineNum := fmt.Sprintf("%4d | ", e.Location.Line)
		sb.WriteString(lineNum)
		sb.WriteString(line)
		sb.WriteString("\n")

		sb.WriteString(strings.Repeat(" ", len(lineNum)+e.Location.Column-1))
		if color {
			sb.WriteString("\033[1;31m")
		}
		sb.WriteString("^")
		if color {
			sb.WriteString("\033[0m")
		}
		sb.WriteString("\n")
	}

	if color {
		sb.WriteString("\033[1m")
	}
	sb.WriteString(e.Message)
	if color {
		sb.WriteString("\033[0m")
	}
	if e.Context != "" {
		sb.WriteString("\n  ")
		sb.WriteString(e.Context)
	}

	return sb.String()
}

func sourceLine(source string, line int) string {
	if source == "" || line < 1 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[line-1], "\r")
}

// InternalError aborts compilation with a backtrace. It marks invariant
// violations in the compiler itself, never problems with user input.
func InternalError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	panic(fmt.Sprintf("internal error: %s\n%s", msg, debug.Stack()))
}
