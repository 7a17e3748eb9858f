package rderrors

import "fmt"

// Offset is a byte position into the source being parsed.
type Offset int

// UnclosedGroup reports a brace group that reached EOF before closing.
func UnclosedGroup(openedAt Offset) *ClassifiedError {
	return New(CategoryParse, fmt.Sprintf("unclosed group opened at byte %d", openedAt)).
		WithContext("opened_at", int(openedAt))
}

// UnexpectedClose reports a `}` with no matching open at this depth.
func UnexpectedClose(at Offset) *ClassifiedError {
	return New(CategoryParse, fmt.Sprintf("unexpected '}' at byte %d", at)).
		WithContext("at", int(at))
}

// ExpectedGroup reports a command that required a brace group argument
// which was not found.
func ExpectedGroup(command string, at Offset) *ClassifiedError {
	return New(CategoryParse, fmt.Sprintf("expected {...} after \\%s at byte %d", command, at)).
		WithContext("after_command", command).
		WithContext("at", int(at))
}

// BadArity reports a command invoked with the wrong number of brace groups.
func BadArity(command string, expected, got int) *ClassifiedError {
	return New(CategoryParse, fmt.Sprintf("\\%s expects %d argument(s), got %d", command, expected, got)).
		WithContext("command", command).
		WithContext("expected", expected).
		WithContext("got", got)
}
