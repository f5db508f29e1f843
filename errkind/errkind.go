// Package errkind holds the error taxonomy shared by the loader, the script
// parser and the pose engine.
package errkind

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	Unknown Kind = iota
	Format       // bad magic, version, size overflow
	Range        // offset/count/index out of bounds
	Limit        // hard ceiling exceeded
	Parse        // script grammar violation
	Lookup       // name not found at runtime
)

func (k Kind) String() string {
	switch k {
	case Format:
		return "format"
	case Range:
		return "range"
	case Limit:
		return "limit"
	case Parse:
		return "parse"
	case Lookup:
		return "lookup"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Kinded is implemented by every error type that belongs to the taxonomy.
type Kinded interface {
	error
	Kind() Kind
}

type simpleError struct {
	kind Kind
	msg  string
}

func (e *simpleError) Error() string { return e.msg }
func (e *simpleError) Kind() Kind    { return e.kind }

// New returns a plain error of the given kind. Stack is attached by pkg/errors.
func New(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&simpleError{kind: kind, msg: fmt.Sprintf(format, args...)})
}

// Of returns the kind of the first Kinded error in the chain.
func Of(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return err != nil && Of(err) == kind
}
