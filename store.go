package ecard

// Store is a persisted non-negative integer of fixed width, mutated only
// through checked operations. Every candidate result is computed in a wider
// int64 so overflow past the width, a negative result, or an enabled bound
// violation is detected before anything is committed. A rejected operation
// leaves the stored value untouched.
type Store struct {
	value        int64
	max          int64
	bound        int64
	boundEnabled bool
}

// NewStore16 creates a 16-bit store (balance-sized).
func NewStore16(initial int64) *Store {
	return &Store{value: initial, max: 0x7FFF}
}

// NewStore32 creates a 32-bit store (counter-sized).
func NewStore32(initial int64) *Store {
	return &Store{value: initial, max: 0x7FFFFFFF}
}

// Value reads the stored value.
func (store *Store) Value() int64 {
	return store.value
}

// Max is the largest value the fixed width can hold.
func (store *Store) Max() int64 {
	return store.max
}

// Bound reports the configured upper bound and whether it is enabled.
func (store *Store) Bound() (int64, bool) {
	return store.bound, store.boundEnabled
}

// SetBound configures the optional upper bound. The limit itself must fit the
// fixed width.
func (store *Store) SetBound(limit int64, enabled bool) error {

	if limit < 0 || limit > store.max {
		return ErrWrongData
	}

	store.bound = limit
	store.boundEnabled = enabled

	return nil

}

// stageAdd validates an addition and returns the candidate result without
// committing it.
func (store *Store) stageAdd(delta int64) (int64, error) {

	if delta < 0 {
		return 0, ErrWrongData
	}

	candidate := store.value + delta

	if candidate > store.max {
		return 0, ErrConditionsNotSatisfied
	}

	if store.boundEnabled && candidate > store.bound {
		return 0, ErrConditionsNotSatisfied
	}

	return candidate, nil

}

// stageSubtract validates a subtraction; a candidate below zero is rejected.
func (store *Store) stageSubtract(delta int64) (int64, error) {

	if delta < 0 {
		return 0, ErrWrongData
	}

	candidate := store.value - delta

	if candidate < 0 {
		return 0, ErrConditionsNotSatisfied
	}

	return candidate, nil

}

// stageMultiply validates a multiplication against width and bound.
func (store *Store) stageMultiply(factor int64) (int64, error) {

	if factor < 0 {
		return 0, ErrWrongData
	}

	candidate := store.value * factor

	if candidate > store.max {
		return 0, ErrConditionsNotSatisfied
	}

	if store.boundEnabled && candidate > store.bound {
		return 0, ErrConditionsNotSatisfied
	}

	return candidate, nil

}

// stageSet validates an absolute value against width and bound.
func (store *Store) stageSet(value int64) (int64, error) {

	if value < 0 || value > store.max {
		return 0, ErrConditionsNotSatisfied
	}

	if store.boundEnabled && value > store.bound {
		return 0, ErrConditionsNotSatisfied
	}

	return value, nil

}

// commit replaces the stored value with a previously staged candidate. This
// is the single visible swap; callers pair it with their history append.
func (store *Store) commit(candidate int64) {
	store.value = candidate
}

// Add commits a checked addition and returns the new value.
func (store *Store) Add(delta int64) (int64, error) {

	candidate, err := store.stageAdd(delta)

	if err != nil {
		return 0, err
	}

	store.commit(candidate)

	return candidate, nil

}

// Subtract commits a checked subtraction and returns the new value.
func (store *Store) Subtract(delta int64) (int64, error) {

	candidate, err := store.stageSubtract(delta)

	if err != nil {
		return 0, err
	}

	store.commit(candidate)

	return candidate, nil

}

// Multiply commits a checked multiplication and returns the new value.
func (store *Store) Multiply(factor int64) (int64, error) {

	candidate, err := store.stageMultiply(factor)

	if err != nil {
		return 0, err
	}

	store.commit(candidate)

	return candidate, nil

}

// SetAbsolute commits a checked absolute value.
func (store *Store) SetAbsolute(value int64) error {

	candidate, err := store.stageSet(value)

	if err != nil {
		return err
	}

	store.commit(candidate)

	return nil

}
