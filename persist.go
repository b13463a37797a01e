package ecard

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot types mirror the persistent fields of the engine — the EEPROM
// analog. The session-scoped validated flag is deliberately absent.

type pinSnapshot struct {
	Reference      []byte `cbor:"ref"`
	TryLimit       byte   `cbor:"limit"`
	TriesRemaining byte   `cbor:"tries"`
}

type storeSnapshot struct {
	Value        int64 `cbor:"value"`
	Bound        int64 `cbor:"bound"`
	BoundEnabled bool  `cbor:"bound_on"`
}

type historySnapshot struct {
	Entries []int64 `cbor:"entries"`
	Cursor  int     `cbor:"cursor"`
	Total   uint64  `cbor:"total"`
}

type counterSnapshot struct {
	Value      storeSnapshot   `cbor:"counter"`
	History    historySnapshot `cbor:"history"`
	Operations uint16          `cbor:"ops"`
}

type walletSnapshot struct {
	Balance    storeSnapshot   `cbor:"balance"`
	Pin        pinSnapshot     `cbor:"pin"`
	History    historySnapshot `cbor:"history"`
	Operations uint16          `cbor:"ops"`
}

// persistentApplet is implemented by applets whose state survives a power
// cycle.
type persistentApplet interface {
	marshalState() ([]byte, error)
	restoreState(data []byte) error
}

func (pin *Pin) snapshot() pinSnapshot {

	length := int(pin.reference[PinMaxLength])

	return pinSnapshot{
		Reference:      append([]byte(nil), pin.reference[:length]...),
		TryLimit:       pin.tryLimit,
		TriesRemaining: pin.triesRemaining,
	}

}

func (pin *Pin) restore(snapshot pinSnapshot) error {

	if err := pin.load(snapshot.Reference); err != nil {
		return err
	}

	pin.tryLimit = snapshot.TryLimit
	pin.triesRemaining = snapshot.TriesRemaining
	pin.validated = false

	return nil

}

func (store *Store) snapshot() storeSnapshot {
	return storeSnapshot{
		Value:        store.value,
		Bound:        store.bound,
		BoundEnabled: store.boundEnabled,
	}
}

func (store *Store) restore(snapshot storeSnapshot) error {

	if snapshot.Value < 0 || snapshot.Value > store.max {
		return ErrWrongData
	}

	if snapshot.Bound < 0 || snapshot.Bound > store.max {
		return ErrWrongData
	}

	store.value = snapshot.Value
	store.bound = snapshot.Bound
	store.boundEnabled = snapshot.BoundEnabled

	return nil

}

func (history *History) snapshot() historySnapshot {
	return historySnapshot{
		Entries: append([]int64(nil), history.entries...),
		Cursor:  history.cursor,
		Total:   history.total,
	}
}

func (history *History) restore(snapshot historySnapshot) error {

	if len(snapshot.Entries) == 0 || snapshot.Cursor < 0 || snapshot.Cursor >= len(snapshot.Entries) {
		return ErrWrongData
	}

	history.entries = append([]int64(nil), snapshot.Entries...)
	history.cursor = snapshot.Cursor
	history.total = snapshot.Total

	return nil

}

func (counter *Counter) marshalState() ([]byte, error) {
	return cbor.Marshal(counterSnapshot{
		Value:      counter.value.snapshot(),
		History:    counter.history.snapshot(),
		Operations: counter.operations,
	})
}

func (counter *Counter) restoreState(data []byte) error {

	var snapshot counterSnapshot

	if err := cbor.Unmarshal(data, &snapshot); err != nil {
		return err
	}

	if err := counter.value.restore(snapshot.Value); err != nil {
		return err
	}

	if err := counter.history.restore(snapshot.History); err != nil {
		return err
	}

	counter.operations = snapshot.Operations

	return nil

}

func (wallet *Wallet) marshalState() ([]byte, error) {
	return cbor.Marshal(walletSnapshot{
		Balance:    wallet.balance.snapshot(),
		Pin:        wallet.pin.snapshot(),
		History:    wallet.history.snapshot(),
		Operations: wallet.operations,
	})
}

func (wallet *Wallet) restoreState(data []byte) error {

	var snapshot walletSnapshot

	if err := cbor.Unmarshal(data, &snapshot); err != nil {
		return err
	}

	if err := wallet.balance.restore(snapshot.Balance); err != nil {
		return err
	}

	if err := wallet.pin.restore(snapshot.Pin); err != nil {
		return err
	}

	if err := wallet.history.restore(snapshot.History); err != nil {
		return err
	}

	wallet.operations = snapshot.Operations

	return nil

}

// SaveState snapshots every persistent applet to a CBOR file keyed by AID.
// The snapshot is staged to a temporary file and renamed into place, so a
// fault mid-save never corrupts the previous state file.
func (card *Card) SaveState(path string) error {

	state := make(map[string][]byte)

	for _, aid := range card.aids {

		applet, ok := card.applets[aid].(persistentApplet)

		if !ok {
			continue
		}

		data, err := applet.marshalState()

		if err != nil {
			return fmt.Errorf("snapshot applet %s: %w", hex.EncodeToString([]byte(aid)), err)
		}

		state[hex.EncodeToString([]byte(aid))] = data

	}

	encoded, err := cbor.Marshal(state)

	if err != nil {
		return err
	}

	staged, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-")

	if err != nil {
		return err
	}

	if _, err := staged.Write(encoded); err != nil {
		staged.Close()
		os.Remove(staged.Name())
		return err
	}

	if err := staged.Close(); err != nil {
		os.Remove(staged.Name())
		return err
	}

	return os.Rename(staged.Name(), path)

}

// LoadState restores applet state from a snapshot file. AIDs in the file
// that are no longer installed are ignored.
func (card *Card) LoadState(path string) error {

	encoded, err := os.ReadFile(path)

	if err != nil {
		return err
	}

	var state map[string][]byte

	if err := cbor.Unmarshal(encoded, &state); err != nil {
		return fmt.Errorf("decode state file: %w", err)
	}

	for encodedAid, data := range state {

		aid, err := hex.DecodeString(encodedAid)

		if err != nil {
			return fmt.Errorf("decode state aid %q: %w", encodedAid, err)
		}

		applet, ok := card.applets[string(aid)].(persistentApplet)

		if !ok {
			continue
		}

		if err := applet.restoreState(data); err != nil {
			return fmt.Errorf("restore applet %s: %w", encodedAid, err)
		}

	}

	return nil

}
