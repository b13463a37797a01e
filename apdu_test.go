package ecard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandRejectsShortBuffers(t *testing.T) {

	for _, raw := range [][]byte{nil, {}, {0x80}, {0x80, 0x10}, {0x80, 0x10, 0x00}} {
		_, err := ParseCommand(raw)
		assert.ErrorIs(t, err, ErrWrongLength, "buffer of %d bytes", len(raw))
	}

}

func TestParseCommandHeaderOnly(t *testing.T) {

	command, err := ParseCommand([]byte{0x80, 0x10, 0x01, 0x02})

	require.NoError(t, err)
	assert.Equal(t, byte(0x80), command.Cla)
	assert.Equal(t, byte(0x10), command.Ins)
	assert.Equal(t, byte(0x01), command.P1)
	assert.Equal(t, byte(0x02), command.P2)
	assert.Empty(t, command.Data)
	assert.False(t, command.HasLe)

}

func TestParseCommandLoneTrailingByteIsLe(t *testing.T) {

	command, err := ParseCommand([]byte{0x80, 0x10, 0x00, 0x00, 0x04})

	require.NoError(t, err)
	assert.Empty(t, command.Data)
	assert.True(t, command.HasLe)
	assert.Equal(t, byte(0x04), command.Le)

}

func TestParseCommandWithDataAndLe(t *testing.T) {

	command, err := ParseCommand([]byte{0x80, 0x17, 0x00, 0x00, 0x02, 0x01, 0x00, 0x04})

	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, command.Data)
	assert.True(t, command.HasLe)
	assert.Equal(t, byte(0x04), command.Le)

}

func TestParseCommandRejectsLcOverrun(t *testing.T) {

	// Lc declares 5 bytes, only 2 follow.
	_, err := ParseCommand([]byte{0x80, 0x17, 0x00, 0x00, 0x05, 0x01, 0x00})

	assert.ErrorIs(t, err, ErrWrongLength)

}

func TestParseCommandRejectsTrailingGarbage(t *testing.T) {

	// Two bytes after the data field: one Le too many.
	_, err := ParseCommand([]byte{0x80, 0x17, 0x00, 0x00, 0x01, 0xAA, 0x00, 0x00})

	assert.ErrorIs(t, err, ErrWrongLength)

}

func TestCommandRoundTrip(t *testing.T) {

	wellFormed := [][]byte{
		{0x00, 0xA4, 0x04, 0x00},
		{0x80, 0x10, 0x00, 0x00, 0x04},
		{0x80, 0x11, 0x05, 0x00},
		{0x80, 0x17, 0x00, 0x00, 0x02, 0x01, 0x00},
		{0x80, 0x17, 0x00, 0x00, 0x02, 0x01, 0x00, 0x04},
		{0x00, 0xA4, 0x04, 0x00, 0x07, 0xF0, 0x00, 0x00, 0x00, 0x01, 0x00, 0x02},
	}

	for _, raw := range wellFormed {

		command, err := ParseCommand(raw)
		require.NoError(t, err, "% X", raw)

		encoded, err := command.Bytes()
		require.NoError(t, err)

		assert.Equal(t, raw, encoded, "% X", raw)

	}

}

func TestResponseBytes(t *testing.T) {

	assert.Equal(t, []byte{0x90, 0x00}, Response{SW: SwSuccess}.Bytes())
	assert.Equal(t, []byte{0x01, 0x02, 0x69, 0x82},
		Response{Data: []byte{0x01, 0x02}, SW: SwSecurityNotSatisfied}.Bytes())

}

func TestParseResponse(t *testing.T) {

	response, err := ParseResponse([]byte{0xAA, 0xBB, 0x90, 0x00})

	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, response.Data)
	assert.Equal(t, SwSuccess, response.SW)

	_, err = ParseResponse([]byte{0x90})
	assert.ErrorIs(t, err, ErrWrongLength)

}

func TestStatusWordFolding(t *testing.T) {

	assert.Equal(t, SwSuccess, statusWord(nil))
	assert.Equal(t, SwAuthBlocked, statusWord(ErrAuthBlocked))
	assert.Equal(t, uint16(0x63C2), statusWord(PinRetriesError(2)))
	assert.Equal(t, uint16(0x63CF), statusWord(PinRetriesError(200)))
	assert.Equal(t, SwUnknown, statusWord(assert.AnError))

}
