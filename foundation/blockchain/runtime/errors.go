package runtime

import (
	"errors"
	"fmt"
)

// Codespace tags results produced by the runtime.
const Codespace = "runtime"

// Set of result codes.
const (
	CodeOK       uint32 = 0
	CodeFault    uint32 = 1
	CodeOutOfGas uint32 = 2
	CodeUnpaid   uint32 = 3
)

// Set of fatal conditions. A fatal error is never absorbed into a failure
// result; the caller must discard everything the runtime touched.
var (
	ErrReadOnlyMutation = errors.New("read-only execution changed state")
	ErrTriggerLoop      = errors.New("trigger invoked while already running")
	ErrFrameMismatch    = errors.New("frame stack out of balance")
	ErrState            = errors.New("runtime already executed")
)

// Fault is a recoverable execution failure. The transaction is recorded
// with the fault code and its changes are discarded.
type Fault struct {
	Code    uint32
	Message string
	Err     error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Message, f.Err)
	}
	return f.Message
}

// Unwrap returns the cause of the fault.
func (f *Fault) Unwrap() error {
	return f.Err
}

// faultf constructs a generic fault.
func faultf(format string, args ...any) *Fault {
	return &Fault{Code: CodeFault, Message: fmt.Sprintf(format, args...)}
}

// asFault converts any error that is not fatal into a fault.
func asFault(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	var f *Fault
	if errors.As(err, &f) || IsFatal(err) {
		return err
	}

	return &Fault{Code: CodeFault, Message: fmt.Sprintf(format, args...), Err: err}
}

// fatalError marks an error the runtime must not absorb.
type fatalError struct {
	err error
}

func (fe *fatalError) Error() string { return "fatal: " + fe.err.Error() }
func (fe *fatalError) Unwrap() error { return fe.err }

// fatal wraps the error so IsFatal reports it.
func fatal(err error) error {
	if err == nil || IsFatal(err) {
		return err
	}
	return &fatalError{err: err}
}

// IsFatal reports if the error must abort the enclosing block operation.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

// IsFault reports if the error is a recoverable execution failure.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f) && !IsFatal(err)
}
