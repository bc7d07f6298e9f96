// Package errors carries the operation trail and the error kind of every
// failure raised inside the console backend.
package errors

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"strings"
)

type Error struct {
	// Op is the operation being performed, named packageName.FunctionName
	// or packageName.TypeName.MethodName for methods.
	Op       Op
	Kind     Kind
	Err      error
	Location ErrLocation
}

type ErrLocation struct {
	File string
	Line int
}

func (l ErrLocation) String() string {
	return fmt.Sprintf("file: %v, line: %v", l.File, l.Line)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Op)
	}
	return e.Err.Error()
}

var _ error = (*Error)(nil)

type Op string

type Kind uint16

const (
	KindOther Kind = iota + 1
	KindInternal
	KindHasuraAPI
	KindBadInput
	KindNetwork
	// KindNotSupported is raised by drivers for capabilities the engine
	// behind them does not have.
	KindNotSupported
	// KindCancelled marks an operation the operator declined to confirm.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindOther:
		return "other error"
	case KindInternal:
		return "internal error"
	case KindHasuraAPI:
		return "graphql engine API error"
	case KindBadInput:
		return "bad input"
	case KindNetwork:
		return "network error"
	case KindNotSupported:
		return "not supported"
	case KindCancelled:
		return "cancelled"
	}
	return "unknown error kind"
}

// E builds an *Error from op and any of Kind, error or string arguments.
func E(op Op, args ...interface{}) error {
	_, file, line, _ := runtime.Caller(1)
	e := &Error{
		Op: op,
		Location: ErrLocation{
			File: file,
			Line: line,
		},
	}
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case error:
			e.Err = arg
		case string:
			e.Err = errors.New(arg)
		default:
			log.Printf("errors.E: bad call from %s:%d:%v: %v", file, line, op, args)
		}
	}
	return e
}

func IsKind(want Kind, err error) bool {
	return GetKind(err) == want
}

func GetKind(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return KindOther
	}
	if e.Kind != 0 {
		return e.Kind
	}
	return GetKind(e.Err)
}

// Ops lists the operations err travelled through, outermost first.
func Ops(err *Error) []Op {
	ops := []Op{err.Op}
	for {
		var embedded *Error
		if !errors.As(err.Err, &embedded) {
			break
		}
		ops = append(ops, embedded.Op)
		err = embedded
	}
	return ops
}

// OpTrail renders Ops as a single arrow separated string for debug logs.
func OpTrail(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	ops := Ops(e)
	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		parts = append(parts, string(op))
	}
	return strings.Join(parts, " -> ")
}

func GetLocation(err error) ErrLocation {
	var prev *Error
	for {
		var e *Error
		if !errors.As(err, &e) {
			if prev == nil {
				return ErrLocation{}
			}
			return prev.Location
		}
		prev = e
		err = e.Err
	}
}

// Is, As and New re-export the standard helpers so callers only need one
// errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

func New(text string) error { return errors.New(text) }
