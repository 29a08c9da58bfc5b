// Package apperr classifies failures raised by the stores and the upload
// pipeline so callers can react by kind instead of by message.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Generic Kind = iota
	Validation
	Transfer
	Persistence
	Authorization
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Transfer:
		return "transfer"
	case Persistence:
		return "persistence"
	case Authorization:
		return "authorization"
	}
	return "generic"
}

// Error carries the failing operation and its kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(k Kind, op string, err error) error {
	return &Error{Kind: k, Op: op, Err: err}
}

func ValidationErr(op string, err error) error    { return newErr(Validation, op, err) }
func TransferErr(op string, err error) error      { return newErr(Transfer, op, err) }
func PersistenceErr(op string, err error) error   { return newErr(Persistence, op, err) }
func AuthorizationErr(op string, err error) error { return newErr(Authorization, op, err) }
func GenericErr(op string, err error) error       { return newErr(Generic, op, err) }

// KindOf returns the kind of the outermost *Error in the chain, Generic otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Generic
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == k
}
