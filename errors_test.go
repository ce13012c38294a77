package host1x

import (
	"errors"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError(t *testing.T) {
	err := NewError("BO.New", CodeInvalid, "size must be > 0")
	assert.Equal(t, "BO.New", err.Op)
	assert.Equal(t, CodeInvalid, err.Code)
	assert.Equal(t, "host1x: BO.New: size must be > 0", err.Error())
}

func TestNewErrnoError(t *testing.T) {
	err := NewErrnoError("Fence.Wait", syscall.ETIMEDOUT)
	assert.Equal(t, CodeTimedOut, err.Code)
	assert.Equal(t, syscall.ETIMEDOUT, err.Errno)
	assert.Contains(t, err.Error(), "errno=")
}

func TestWrapErrorPreservesCode(t *testing.T) {
	inner := NewErrnoError("GemCreate", syscall.ENOMEM)
	wrapped := WrapError("BO.New", inner)
	assert.Equal(t, "BO.New", wrapped.Op)
	assert.Equal(t, CodeOutOfMemory, wrapped.Code)
	assert.True(t, errors.Is(wrapped, inner))
}

func TestWrapErrorRawErrno(t *testing.T) {
	wrapped := WrapError("Channel.Close", syscall.EINVAL)
	assert.Equal(t, CodeInvalid, wrapped.Code)
	assert.Equal(t, syscall.EINVAL, wrapped.Errno)
}

func TestWrapErrorNil(t *testing.T) {
	assert.Nil(t, WrapError("noop", nil))
}

func TestIsCode(t *testing.T) {
	err := NewError("Job.Submit", CodeIoctlFailed, "submit failed")
	assert.True(t, IsCode(err, CodeIoctlFailed))
	assert.False(t, IsCode(err, CodeInvalid))
	assert.False(t, IsCode(nil, CodeIoctlFailed))
}

func TestIsErrno(t *testing.T) {
	err := NewErrnoError("Fence.Wait", syscall.ETIMEDOUT)
	assert.True(t, IsErrno(err, syscall.ETIMEDOUT))
	assert.False(t, IsErrno(err, syscall.EINVAL))
	assert.False(t, IsErrno(nil, syscall.ETIMEDOUT))
}

func TestErrorIsMatchesByCode(t *testing.T) {
	a := NewError("op1", CodeInvalid, "msg1")
	b := NewError("op2", CodeInvalid, "msg2")
	c := NewError("op3", CodeOutOfMemory, "msg3")
	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestErrnoMapping(t *testing.T) {
	cases := []struct {
		errno    syscall.Errno
		expected ErrorCode
	}{
		{syscall.EINVAL, CodeInvalid},
		{syscall.E2BIG, CodeInvalid},
		{syscall.ENXIO, CodeInvalid},
		{syscall.ENOMEM, CodeOutOfMemory},
		{syscall.ENOSPC, CodeOutOfMemory},
		{syscall.ENOSYS, CodeNotSupported},
		{syscall.EOPNOTSUPP, CodeNotSupported},
		{syscall.ETIMEDOUT, CodeTimedOut},
		{syscall.EIO, CodeIoctlFailed},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expected, mapErrnoToCode(tc.errno), "errno %v", tc.errno)
	}
}
