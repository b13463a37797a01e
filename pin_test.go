package ecard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPin(t *testing.T) *Pin {
	t.Helper()
	pin, err := NewPin(3, []byte("1234"))
	require.NoError(t, err)
	return pin
}

func TestPinCheckSuccess(t *testing.T) {

	pin := newTestPin(t)

	require.NoError(t, pin.Check([]byte("1234")))
	assert.True(t, pin.Validated())
	assert.Equal(t, byte(3), pin.TriesRemaining())

}

func TestPinWrongCandidateCountsDown(t *testing.T) {

	pin := newTestPin(t)

	err := pin.Check([]byte("0000"))

	var swErr *StatusWordError
	require.ErrorAs(t, err, &swErr)
	assert.Equal(t, uint16(0x63C2), swErr.SW)
	assert.False(t, pin.Validated())
	assert.Equal(t, byte(2), pin.TriesRemaining())

}

func TestPinBlocksAfterTryLimit(t *testing.T) {

	pin := newTestPin(t)

	assert.Error(t, pin.Check([]byte("0000")))
	assert.Error(t, pin.Check([]byte("0000")))

	// The third failure reports blocked, not a retry count.
	assert.ErrorIs(t, pin.Check([]byte("0000")), ErrAuthBlocked)
	assert.True(t, pin.Blocked())

	// Blocked is terminal: the correct value fails too, without consuming
	// anything.
	assert.ErrorIs(t, pin.Check([]byte("1234")), ErrAuthBlocked)
	assert.Equal(t, byte(0), pin.TriesRemaining())

}

func TestPinSuccessResetsTryCounter(t *testing.T) {

	pin := newTestPin(t)

	assert.Error(t, pin.Check([]byte("0000")))
	assert.Error(t, pin.Check([]byte("0000")))
	assert.Equal(t, byte(1), pin.TriesRemaining())

	require.NoError(t, pin.Check([]byte("1234")))
	assert.Equal(t, byte(3), pin.TriesRemaining())

}

func TestPinLengthCollision(t *testing.T) {

	pin := newTestPin(t)

	// A candidate that equals the reference padded with zero digits must
	// not match.
	assert.Error(t, pin.Check([]byte("1234\x00\x00")))

}

func TestPinInvalidCandidateLengthConsumesNoTry(t *testing.T) {

	pin := newTestPin(t)

	assert.ErrorIs(t, pin.Check([]byte("12")), ErrWrongLength)
	assert.ErrorIs(t, pin.Check([]byte("123456789")), ErrWrongLength)
	assert.Equal(t, byte(3), pin.TriesRemaining())

}

func TestPinUpdateRequiresValidatedSession(t *testing.T) {

	pin := newTestPin(t)

	assert.ErrorIs(t, pin.Update([]byte("9999")), ErrSecurityNotSatisfied)

	require.NoError(t, pin.Check([]byte("1234")))
	require.NoError(t, pin.Update([]byte("9999")))

	pin.Reset()
	require.NoError(t, pin.Check([]byte("9999")))

}

func TestPinChangeChecksOldValueInSameCall(t *testing.T) {

	pin := newTestPin(t)

	// Wrong old value consumes a try.
	assert.Error(t, pin.Change([]byte("0000"), []byte("9999")))
	assert.Equal(t, byte(2), pin.TriesRemaining())

	require.NoError(t, pin.Change([]byte("1234"), []byte("9999")))
	assert.Equal(t, byte(3), pin.TriesRemaining())

	pin.Reset()
	require.NoError(t, pin.Check([]byte("9999")))

}

func TestPinResetDropsValidationOnly(t *testing.T) {

	pin := newTestPin(t)

	require.NoError(t, pin.Check([]byte("1234")))
	pin.Reset()

	assert.False(t, pin.Validated())
	assert.Equal(t, byte(3), pin.TriesRemaining())

}

func TestNewPinRejectsBadReferenceLength(t *testing.T) {

	_, err := NewPin(3, []byte("12"))
	assert.ErrorIs(t, err, ErrWrongLength)

	_, err = NewPin(3, []byte("123456789"))
	assert.ErrorIs(t, err, ErrWrongLength)

}
