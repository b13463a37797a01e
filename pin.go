package ecard

import "crypto/subtle"

// PIN length policy, matching the JavaCard OwnerPIN defaults the applets use.
const (
	PinMinLength = 4
	PinMaxLength = 8
)

// Pin is the session authentication guard: a reference secret with a try
// counter and a session-scoped validated flag. Once the counter reaches zero
// the guard is blocked and every check fails until the card is reinstalled.
type Pin struct {
	// reference holds the zero-padded secret with its length in the final
	// byte, so candidates of different lengths never collide and the
	// comparison covers a fixed-size buffer.
	reference [PinMaxLength + 1]byte

	tryLimit       byte
	triesRemaining byte
	validated      bool
}

// NewPin creates a guard with the given try limit and initial reference
// value. The reference must be between PinMinLength and PinMaxLength bytes.
func NewPin(tryLimit byte, reference []byte) (*Pin, error) {

	pin := &Pin{tryLimit: tryLimit, triesRemaining: tryLimit}

	if err := pin.load(reference); err != nil {
		return nil, err
	}

	return pin, nil

}

func pad(secret []byte) ([PinMaxLength + 1]byte, error) {

	var padded [PinMaxLength + 1]byte

	if len(secret) < PinMinLength || len(secret) > PinMaxLength {
		return padded, ErrWrongLength
	}

	copy(padded[:], secret)
	padded[PinMaxLength] = byte(len(secret))

	return padded, nil

}

func (pin *Pin) load(reference []byte) error {

	padded, err := pad(reference)

	if err != nil {
		return err
	}

	pin.reference = padded

	return nil

}

// Check compares a candidate against the reference. A blocked guard fails
// immediately without consuming a try. A match validates the session and
// resets the try counter; a mismatch consumes a try and reports the remaining
// count, or ErrAuthBlocked when the counter reaches zero. A candidate of
// invalid length is rejected before any try is consumed.
func (pin *Pin) Check(candidate []byte) error {

	if pin.Blocked() {
		return ErrAuthBlocked
	}

	padded, err := pad(candidate)

	if err != nil {
		return err
	}

	// Fixed-size constant-time compare: the same number of steps no matter
	// where a mismatch occurs.
	if subtle.ConstantTimeCompare(pin.reference[:], padded[:]) == 1 {
		pin.validated = true
		pin.triesRemaining = pin.tryLimit
		return nil
	}

	pin.triesRemaining--
	pin.validated = false

	if pin.triesRemaining == 0 {
		return ErrAuthBlocked
	}

	return PinRetriesError(pin.triesRemaining)

}

// Update replaces the reference within an already validated session and
// resets the try counter.
func (pin *Pin) Update(reference []byte) error {

	if !pin.validated {
		return ErrSecurityNotSatisfied
	}

	if err := pin.load(reference); err != nil {
		return err
	}

	pin.triesRemaining = pin.tryLimit

	return nil

}

// Change replaces the reference after a fresh successful check of the old
// value in the same call. A wrong old value consumes a try as usual.
func (pin *Pin) Change(oldReference []byte, newReference []byte) error {

	if err := pin.Check(oldReference); err != nil {
		return err
	}

	return pin.Update(newReference)

}

// Reset drops the session validation. Invoked on every deselection and, per
// engine policy, on (re)selection, so validation never survives a session
// boundary.
func (pin *Pin) Reset() {
	pin.validated = false
}

func (pin *Pin) Validated() bool {
	return pin.validated
}

func (pin *Pin) Blocked() bool {
	return pin.triesRemaining == 0
}

func (pin *Pin) TriesRemaining() byte {
	return pin.triesRemaining
}
