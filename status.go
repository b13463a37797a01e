package ecard

import (
	"errors"
	"fmt"
)

// Status words emitted by the engine (ISO 7816-4).
const (
	SwSuccess                uint16 = 0x9000
	SwWrongLength            uint16 = 0x6700
	SwSecurityNotSatisfied   uint16 = 0x6982
	SwAuthBlocked            uint16 = 0x6983
	SwConditionsNotSatisfied uint16 = 0x6985
	SwWrongData              uint16 = 0x6A80
	SwInsNotSupported        uint16 = 0x6D00
	SwClaNotSupported        uint16 = 0x6E00
	SwUnknown                uint16 = 0x6F00

	// swPinRetry carries the remaining-tries count in its low nibble.
	swPinRetry uint16 = 0x63C0
)

// StatusWordError is a command failure carried as a status word. Handlers
// return these instead of unwinding; nothing crosses the card boundary as a
// Go error.
type StatusWordError struct {
	SW  uint16
	msg string
}

func (statusWordError *StatusWordError) Error() string {
	return fmt.Sprintf("%s (SW %04X)", statusWordError.msg, statusWordError.SW)
}

var (
	ErrWrongLength            = &StatusWordError{SwWrongLength, "wrong length"}
	ErrSecurityNotSatisfied   = &StatusWordError{SwSecurityNotSatisfied, "security status not satisfied"}
	ErrAuthBlocked            = &StatusWordError{SwAuthBlocked, "authentication method blocked"}
	ErrConditionsNotSatisfied = &StatusWordError{SwConditionsNotSatisfied, "conditions of use not satisfied"}
	ErrWrongData              = &StatusWordError{SwWrongData, "wrong data"}
	ErrInsNotSupported        = &StatusWordError{SwInsNotSupported, "instruction not supported"}
	ErrClaNotSupported        = &StatusWordError{SwClaNotSupported, "class not supported"}
)

// PinRetriesError reports a failed PIN presentation. The remaining-tries
// count is clamped to the low nibble of the status word.
func PinRetriesError(remaining byte) *StatusWordError {

	if remaining > 15 {
		remaining = 15
	}

	return &StatusWordError{
		SW:  swPinRetry | uint16(remaining),
		msg: fmt.Sprintf("wrong pin, %d tries remaining", remaining),
	}

}

// statusWord folds a handler outcome into the status word sent to the host.
func statusWord(err error) uint16 {

	if err == nil {
		return SwSuccess
	}

	var statusWordError *StatusWordError

	if errors.As(err, &statusWordError) {
		return statusWordError.SW
	}

	return SwUnknown

}
