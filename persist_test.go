package ecard

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadState(t *testing.T) {

	path := filepath.Join(t.TempDir(), "card.state")

	card, _ := newTestCard(t)

	// Mutate the counter.
	_, sw := transmitHex(t, card, "80 11 07 00")
	require.Equal(t, SwSuccess, sw)

	// Switch to the wallet, authenticate, move money, burn one PIN try.
	_, sw = transmitHex(t, card, "00 A4 04 00 07 F0 00 00 00 01 00 03")
	require.Equal(t, SwSuccess, sw)

	verifyDefaultPin(t, card)

	_, sw = transmitHex(t, card, "80 30 00 00 02 00 64")
	require.Equal(t, SwSuccess, sw)

	card.EndSession()

	_, sw = transmitHex(t, card, "80 20 00 00 04 30 30 30 30")
	require.Equal(t, uint16(0x63C2), sw)

	require.NoError(t, card.SaveState(path))

	// A fresh card resumes from the snapshot.
	restored, _ := newTestCard(t)
	require.NoError(t, restored.LoadState(path))

	data, sw := transmitHex(t, restored, "80 10 00 00")
	assert.Equal(t, SwSuccess, sw)
	assert.Equal(t, []byte{0, 0, 0, 7}, data, "counter value survives")

	_, sw = transmitHex(t, restored, "00 A4 04 00 07 F0 00 00 00 01 00 03")
	require.Equal(t, SwSuccess, sw)

	data, sw = transmitHex(t, restored, "80 50 00 00")
	assert.Equal(t, SwSuccess, sw)
	assert.Equal(t, []byte{0x00, 0x64}, data, "balance survives")

	data, sw = transmitHex(t, restored, "80 60 00 00")
	assert.Equal(t, SwSuccess, sw)
	assert.Equal(t, []byte{0x00, 0x64}, data, "history survives")

	data, sw = transmitHex(t, restored, "80 52 00 00")
	require.Equal(t, SwSuccess, sw)
	require.Len(t, data, 6)
	assert.Equal(t, byte(2), data[2], "consumed try survives")
	assert.Equal(t, byte(0), data[3], "validation is session-scoped, never persisted")

}

func TestLoadStatePreservesBlockedPin(t *testing.T) {

	path := filepath.Join(t.TempDir(), "card.state")

	card, _ := newWalletCard(t)

	for i := 0; i < 3; i++ {
		transmitHex(t, card, "80 20 00 00 04 30 30 30 30")
	}

	require.NoError(t, card.SaveState(path))

	restored, _ := newWalletCard(t)
	require.NoError(t, restored.LoadState(path))

	// Blocking survives the power cycle; even the correct PIN fails.
	_, sw := transmitHex(t, restored, "80 20 00 00 04 31 32 33 34")
	assert.Equal(t, SwAuthBlocked, sw)

}

func TestLoadStateMissingFile(t *testing.T) {

	card, _ := newTestCard(t)

	err := card.LoadState(filepath.Join(t.TempDir(), "absent.state"))

	assert.ErrorIs(t, err, fs.ErrNotExist)

}

func TestLoadStateIgnoresUnknownAids(t *testing.T) {

	path := filepath.Join(t.TempDir(), "card.state")

	full, _ := newTestCard(t)

	_, sw := transmitHex(t, full, "80 11 05 00")
	require.Equal(t, SwSuccess, sw)

	require.NoError(t, full.SaveState(path))

	// A card with only the wallet installed loads the same file.
	walletOnly, _ := newWalletCard(t)
	require.NoError(t, walletOnly.LoadState(path))

}

func TestSaveStateLeavesNoPartialFileBehind(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "card.state")

	card, _ := newTestCard(t)

	require.NoError(t, card.SaveState(path))
	require.NoError(t, card.SaveState(path))

	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)

	assert.Equal(t, []string{path}, entries, "only the committed snapshot remains")

}
