package host1x

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured host1x error with call context and errno
// mapping.
type Error struct {
	Op    string // Operation that failed (e.g. "BO.New", "Job.Submit")
	Code  ErrorCode
	Errno syscall.Errno // kernel errno, 0 if not applicable
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		if e.Errno != 0 {
			return fmt.Sprintf("host1x: %s: %s (errno=%d)", e.Op, msg, e.Errno)
		}
		return fmt.Sprintf("host1x: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("host1x: %s", msg)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is the high-level error taxonomy.
type ErrorCode string

const (
	// CodeInvalid covers a null handle, zero size, unrecognized flag,
	// unknown client class, or out-of-range condition code.
	CodeInvalid ErrorCode = "invalid argument"

	// CodeOutOfMemory covers host-side allocation failure or kernel
	// create failure; the in-flight object is fully torn down before
	// returning.
	CodeOutOfMemory ErrorCode = "out of memory"

	// CodeNotSupported means the device is not a host1x driver
	// instance, caught by the version check.
	CodeNotSupported ErrorCode = "not a host1x device"

	// CodeIoctlFailed means the driver returned a negative result.
	CodeIoctlFailed ErrorCode = "ioctl failed"

	// CodeTimedOut means fence.Wait expired before the syncpoint
	// reached the target.
	CodeTimedOut ErrorCode = "timed out"

	// CodeCorruption means a guard-page check on free detected a
	// caller write outside the BO (debug builds only).
	CodeCorruption ErrorCode = "buffer corruption detected"
)

// NewError creates a plain structured error with no errno attached.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewErrnoError wraps a kernel errno returned by an ioctl.
func NewErrnoError(op string, errno syscall.Errno) *Error {
	return &Error{
		Op:    op,
		Code:  mapErrnoToCode(errno),
		Errno: errno,
		Msg:   errno.Error(),
	}
}

// WrapError attaches op context to an arbitrary error, mapping a raw
// syscall.Errno to the taxonomy above when possible.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if he, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: he.Code, Errno: he.Errno, Msg: he.Msg, Inner: he.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: CodeIoctlFailed, Msg: inner.Error(), Inner: inner}
}

func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EINVAL, syscall.E2BIG, syscall.ENXIO:
		return CodeInvalid
	case syscall.ENOMEM, syscall.ENOSPC:
		return CodeOutOfMemory
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return CodeNotSupported
	case syscall.ETIMEDOUT:
		return CodeTimedOut
	default:
		return CodeIoctlFailed
	}
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Code == code
	}
	return false
}

// IsErrno reports whether err carries the given kernel errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var he *Error
	if errors.As(err, &he) {
		return he.Errno == errno
	}
	return false
}
