package animscript

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/mogaika/skelanim/errkind"
)

// Error is a script failure at a source position. Line 0 means the
// position is unknown.
type Error struct {
	Line   int
	Column int
	Msg    string
}

func (e *Error) Error() string {
	if e.Line == 0 {
		return "animscript: " + e.Msg
	}
	return fmt.Sprintf("animscript: line %d:%d: %s", e.Line, e.Column, e.Msg)
}

func (e *Error) Kind() errkind.Kind {
	return errkind.Parse
}

func newError(line, column int, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Line: line, Column: column, Msg: fmt.Sprintf(format, args...)})
}

func tokenError(t Token, format string, args ...interface{}) error {
	return newError(t.Line, t.Column, format, args...)
}
